package synthesis

import (
	"regexp"
	"strings"
)

// allCapsHeader matches a plain-text section header line: ALLCAPS words,
// optionally ending with a colon. Used to find the end of an existing section
// during upsert.
var allCapsHeader = regexp.MustCompile(`^[A-Z][A-Z0-9 &/-]*:?$`)

// markdownHeader matches a markdown heading of any level.
var markdownHeader = regexp.MustCompile(`^#+\s+\S`)

// headerPattern builds the matcher for a named section header: either
// "HEADER:" or a markdown heading "## HEADER", case-insensitive.
func headerPattern(header string) *regexp.Regexp {
	quoted := regexp.QuoteMeta(header)
	return regexp.MustCompile(`(?i)^(?:` + quoted + `:|#+\s+` + quoted + `)\s*$`)
}

// upsertSection replaces the body of the named section, or appends a new
// section when the header is absent. The section body runs from the header
// line to the next blank line followed by another header, or document end.
func upsertSection(text, header, body string) string {
	lines := strings.Split(text, "\n")
	pattern := headerPattern(header)

	headerIdx := -1
	for i, line := range lines {
		if pattern.MatchString(strings.TrimSpace(line)) {
			headerIdx = i
			break
		}
	}

	if headerIdx < 0 {
		out := strings.TrimRight(text, "\n")
		if out != "" {
			out += "\n\n"
		}
		return out + strings.ToUpper(header) + ":\n" + strings.TrimSpace(body) + "\n"
	}

	end := len(lines)
	for i := headerIdx + 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) != "" {
			continue
		}
		if i+1 < len(lines) {
			next := strings.TrimSpace(lines[i+1])
			if allCapsHeader.MatchString(next) || markdownHeader.MatchString(next) {
				end = i
				break
			}
		}
	}

	var rebuilt []string
	rebuilt = append(rebuilt, lines[:headerIdx+1]...)
	rebuilt = append(rebuilt, strings.TrimSpace(body))
	rebuilt = append(rebuilt, lines[end:]...)
	out := strings.Join(rebuilt, "\n")
	if strings.HasSuffix(text, "\n") && !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	return out
}

// prependBlock places body before the document with a separating blank line.
func prependBlock(text, body string) string {
	body = strings.TrimSpace(body)
	if strings.TrimSpace(text) == "" {
		return body + "\n"
	}
	return body + "\n\n" + text
}

// appendBlock places body after the document with a separating blank line.
func appendBlock(text, body string) string {
	body = strings.TrimSpace(body)
	if strings.TrimSpace(text) == "" {
		return body + "\n"
	}
	return strings.TrimRight(text, "\n") + "\n\n" + body + "\n"
}
