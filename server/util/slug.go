package util

import (
	"strings"

	"github.com/gosimple/slug"

	"github.com/indieinfra/quill/micropub"
)

// GenerateSlug derives a URL slug from a document's name and content
// properties. A short name is padded with leading content words so the slug
// carries roughly five words. Returns an empty string when neither property
// yields text.
func GenerateSlug(doc micropub.Document) string {
	var nameText string
	var contentText string

	if name, ok := doc.Properties["name"]; ok {
		nameText = extractTextFromProperty(name)
	}

	if content, ok := doc.Properties["content"]; ok {
		contentText = extractTextFromProperty(content)
	}

	var generated string
	if nameText != "" {
		generated = slug.Make(nameText)
	}

	if len(strings.Fields(nameText)) < 5 && contentText != "" {
		var combined []string
		if nameText != "" {
			combined = append(combined, strings.Fields(nameText)...)
		}

		for _, word := range strings.Fields(contentText) {
			combined = append(combined, word)
			if len(combined) >= 5 {
				break
			}
		}

		if len(combined) > 0 {
			generated = slug.Make(strings.Join(combined, " "))
		}
	}

	if generated == "" && contentText != "" {
		generated = slug.Make(contentText)
	}

	return generated
}

// extractTextFromProperty pulls usable text out of a property value list:
// either a direct string or an embedded object carrying html content.
func extractTextFromProperty(values []any) string {
	for _, val := range values {
		if val == nil {
			continue
		}

		if str, ok := val.(string); ok && str != "" {
			return str
		}

		obj, ok := val.(map[string]any)
		if !ok {
			continue
		}

		switch v := obj["html"].(type) {
		case string:
			if v != "" {
				// 100 words is plenty for slug generation
				return HtmlToText(v, 100)
			}
		case []any:
			if len(v) > 0 {
				if htmlStr, ok := v[0].(string); ok && htmlStr != "" {
					return HtmlToText(htmlStr, 100)
				}
			}
		}
	}

	return ""
}
