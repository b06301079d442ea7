package snippet

import "strings"

// minMarkerLen guards against templates that are nearly all placeholders.
const minMarkerLen = 12

// Markers derives a distinctive literal phrase per catalog entry, keyed by
// module_id:gate_id. The marker is the longest placeholder-free fragment of
// the template, which survives formatting verbatim, so a document that
// received the snippet will contain it. Intended for gates.MarkerEngine.
func (c *Catalog) Markers() map[string]string {
	markers := make(map[string]string, c.Len())
	for _, s := range c.All() {
		if m := longestLiteralFragment(s.Template); len(m) >= minMarkerLen {
			markers[s.Key()] = m
		}
	}
	return markers
}

// longestLiteralFragment returns the longest run of template text that
// contains no placeholder token, whitespace-trimmed.
func longestLiteralFragment(template string) string {
	fragments := placeholderPattern.Split(template, -1)
	longest := ""
	for _, f := range fragments {
		f = strings.TrimSpace(f)
		if len(f) > len(longest) {
			longest = f
		}
	}
	return longest
}
