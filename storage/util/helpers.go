package util

import (
	"fmt"
	"strings"
)

// NormalizeBaseURL trims whitespace and guarantees exactly one trailing slash.
func NormalizeBaseURL(raw string) string {
	trimmed := strings.TrimSpace(raw)
	trimmed = strings.TrimRight(trimmed, "/")
	return trimmed + "/"
}

// SlugFromURL extracts the final path segment from a URL-like string.
func SlugFromURL(raw string) (string, error) {
	parts := strings.Split(strings.TrimSuffix(raw, "/"), "/")

	slug := parts[len(parts)-1]
	if slug == "" {
		return "", fmt.Errorf("url %q does not have a valid slug", raw)
	}

	return slug, nil
}
