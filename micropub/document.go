package micropub

import "strings"

// Document is the canonical nested representation of a post: an ordered list
// of microformat type identifiers plus a mapping from property name to an
// ordered list of values. Single values are always wrapped in a one-element
// list. Properties never carry the access_token key; the dispatcher strips it
// before a document is built.
type Document struct {
	Type       []string         `json:"type"`
	Properties map[string][]any `json:"properties"`
}

// NormalizeForm converts a flat form body (string or list-of-string values)
// into a canonical Document. The "h" field selects the microformat type,
// defaulting to h-entry. Bracketed keys collapse to their plain equivalents.
// Property names are not validated; any key is accepted.
func NormalizeForm(values map[string]any) Document {
	doc := Document{
		Type:       []string{"h-entry"},
		Properties: map[string][]any{},
	}

	for key, val := range values {
		key = strings.TrimSuffix(key, "[]")

		if key == "h" {
			if s, ok := firstString(val); ok && s != "" {
				doc.Type = []string{"h-" + s}
			}
			continue
		}

		switch v := val.(type) {
		case []any:
			doc.Properties[key] = v
		default:
			doc.Properties[key] = []any{v}
		}
	}

	return doc
}

// DocumentFromMap interprets an already-canonical JSON body as a Document.
// Values pass through unchanged beyond the structural conversion; the body is
// assumed to carry "type" and "properties" in microformats2 shape.
func DocumentFromMap(body map[string]any) Document {
	doc := Document{Properties: map[string][]any{}}

	switch t := body["type"].(type) {
	case []any:
		for _, v := range t {
			if s, ok := v.(string); ok {
				doc.Type = append(doc.Type, s)
			}
		}
	case string:
		doc.Type = []string{t}
	}

	if props, ok := body["properties"].(map[string]any); ok {
		for key, val := range props {
			switch v := val.(type) {
			case []any:
				doc.Properties[key] = v
			default:
				doc.Properties[key] = []any{v}
			}
		}
	}

	return doc
}

func firstString(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case []any:
		if len(x) > 0 {
			if s, ok := x[0].(string); ok {
				return s, true
			}
		}
	}

	return "", false
}
