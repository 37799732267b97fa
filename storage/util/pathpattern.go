package util

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// PathPattern is a configurable template for generating file paths.
// Supported placeholders: {year}, {month}, {day}, {slug}, {ext} (leading dot
// included) and {filename} (slug plus extension).
type PathPattern struct {
	pattern string
}

func NewPathPattern(pattern string) *PathPattern {
	return &PathPattern{pattern: pattern}
}

// Generate produces a path by substituting placeholders. A zero timestamp
// leaves date placeholders untouched; an empty ext skips the extension.
func (p *PathPattern) Generate(slug string, timestamp time.Time, ext string) (string, error) {
	if slug == "" {
		return "", fmt.Errorf("slug cannot be empty")
	}

	result := p.pattern

	if !timestamp.IsZero() {
		result = strings.ReplaceAll(result, "{year}", fmt.Sprintf("%04d", timestamp.Year()))
		result = strings.ReplaceAll(result, "{month}", fmt.Sprintf("%02d", timestamp.Month()))
		result = strings.ReplaceAll(result, "{day}", fmt.Sprintf("%02d", timestamp.Day()))
	}

	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	filename := slug + ext

	result = strings.ReplaceAll(result, "{slug}", slug)
	result = strings.ReplaceAll(result, "{filename}", filename)
	result = strings.ReplaceAll(result, "{ext}", ext)

	return filepath.Clean(result), nil
}

// DefaultContentPattern keeps content files flat in the content directory.
func DefaultContentPattern() *PathPattern {
	return NewPathPattern("{slug}.json")
}

// DefaultMediaPattern organizes media files by upload date.
func DefaultMediaPattern() *PathPattern {
	return NewPathPattern("{year}/{month}/{filename}")
}
