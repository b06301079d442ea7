package snippet

import (
	"regexp"
	"strings"
)

// DefaultPlaceholders is the fixed fallback table for context placeholders.
// Keys are lowercase; templates reference them as [FIRM_NAME] etc.
var DefaultPlaceholders = map[string]string{
	"firm_name":       "the firm",
	"frn_number":      "000000",
	"url":             "our website",
	"contact_details": "our registered office",
	"party_one_name":  "the Disclosing Party",
	"party_two_name":  "the Receiving Party",
}

var placeholderPattern = regexp.MustCompile(`\[([A-Z][A-Z0-9_]*)\]`)

// Format substitutes [KEY] placeholders in a snippet template: caller context
// first, then the default table. No placeholder token survives in the output;
// keys resolvable from neither source degrade to their humanized words.
func Format(s Snippet, context map[string]string) string {
	return placeholderPattern.ReplaceAllStringFunc(s.Template, func(token string) string {
		key := strings.ToLower(token[1 : len(token)-1])
		if context != nil {
			if v, ok := context[key]; ok && v != "" {
				return v
			}
			// Callers sometimes pass the uppercase form used in templates.
			if v, ok := context[token[1:len(token)-1]]; ok && v != "" {
				return v
			}
		}
		if v, ok := DefaultPlaceholders[key]; ok {
			return v
		}
		return strings.ReplaceAll(key, "_", " ")
	})
}
