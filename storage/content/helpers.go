package content

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/indieinfra/quill/micropub"
	"github.com/indieinfra/quill/server/util"
)

// ExtractSlug reads the slug property a document must carry before storage.
func ExtractSlug(doc micropub.Document) (string, error) {
	slugProp, ok := doc.Properties["slug"]
	if !ok || len(slugProp) == 0 {
		return "", fmt.Errorf("document must have a slug property")
	}

	slug, ok := slugProp[0].(string)
	if !ok || slug == "" {
		return "", fmt.Errorf("slug property must be a non-empty string")
	}

	return slug, nil
}

// applyMutations applies replace/add/delete change sets to a document in
// place. Deletions may be a map (remove specific values) or a list of
// property names (remove whole properties).
func applyMutations(doc *micropub.Document, replacements map[string][]any, additions map[string][]any, deletions any) {
	if doc.Properties == nil {
		doc.Properties = make(map[string][]any)
	}

	for key, values := range replacements {
		doc.Properties[key] = values
	}

	for key, values := range additions {
		doc.Properties[key] = append(doc.Properties[key], values...)
	}

	switch deletes := deletions.(type) {
	case map[string][]any:
		for key, valuesToRemove := range deletes {
			remaining := deleteValues(doc.Properties[key], valuesToRemove)
			if len(remaining) == 0 {
				delete(doc.Properties, key)
			} else {
				doc.Properties[key] = remaining
			}
		}
	case []string:
		for _, key := range deletes {
			delete(doc.Properties, key)
		}
	case []any:
		for _, key := range deletes {
			if name, ok := key.(string); ok {
				delete(doc.Properties, name)
			}
		}
	}
}

// deleteValues removes elements present in toRemove from values using deep
// equality.
func deleteValues(values []any, toRemove []any) []any {
	if len(values) == 0 || len(toRemove) == 0 {
		return values
	}

	var remaining []any
	for _, v := range values {
		if !containsValue(toRemove, v) {
			remaining = append(remaining, v)
		}
	}

	return remaining
}

func containsValue(list []any, value any) bool {
	for _, candidate := range list {
		if reflect.DeepEqual(candidate, value) {
			return true
		}
	}

	return false
}

func deletedFlag(doc *micropub.Document) bool {
	if doc == nil || doc.Properties == nil {
		return false
	}

	values := doc.Properties["deleted"]
	if len(values) == 0 {
		return false
	}

	if b, ok := values[0].(bool); ok {
		return b
	}

	if s, ok := values[0].(string); ok {
		return strings.EqualFold(s, "true")
	}

	return false
}

// shouldRecomputeSlug reports whether the change sets touch properties that
// feed slug derivation.
func shouldRecomputeSlug(replacements map[string][]any, additions map[string][]any) bool {
	if _, hasSlug := replacements["slug"]; hasSlug {
		return true
	}

	for _, key := range []string{"name", "content"} {
		if _, ok := replacements[key]; ok {
			return true
		}
		if _, ok := additions[key]; ok {
			return true
		}
	}

	return false
}

// computeNewSlug determines the slug a document should carry after mutations
// have been applied: an explicit slug replacement wins, otherwise the slug is
// regenerated from the mutated document.
func computeNewSlug(doc *micropub.Document, replacements map[string][]any) (string, error) {
	if slugVals, ok := replacements["slug"]; ok && len(slugVals) > 0 {
		if slug, ok := slugVals[0].(string); ok && slug != "" {
			return slug, nil
		}
		return "", fmt.Errorf("slug replacement must be a non-empty string")
	}

	generated := util.GenerateSlug(*doc)
	if generated == "" {
		return "", fmt.Errorf("failed to generate slug from document")
	}

	return generated, nil
}
