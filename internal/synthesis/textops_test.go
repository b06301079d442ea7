package synthesis

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrependBlock(t *testing.T) {
	assert.Equal(t, "warning\n", prependBlock("", "warning"))
	assert.Equal(t, "warning\n", prependBlock("   \n", "warning"))
	assert.Equal(t, "warning\n\nbody text", prependBlock("body text", "  warning  "))
}

func TestAppendBlock(t *testing.T) {
	assert.Equal(t, "footer\n", appendBlock("", "footer"))
	assert.Equal(t, "body text\n\nfooter\n", appendBlock("body text\n", "footer"))
	assert.Equal(t, "body text\n\nfooter\n", appendBlock("body text\n\n\n", "footer"))
}

func TestUpsertSectionAppendsWhenHeaderAbsent(t *testing.T) {
	got := upsertSection("Intro paragraph.\n", "Data Retention", "Records are kept for six years.")

	assert.Equal(t, "Intro paragraph.\n\nDATA RETENTION:\nRecords are kept for six years.\n", got)
}

func TestUpsertSectionOnEmptyDocument(t *testing.T) {
	got := upsertSection("", "Data Retention", "Records are kept for six years.")
	assert.Equal(t, "DATA RETENTION:\nRecords are kept for six years.\n", got)
}

func TestUpsertSectionReplacesExistingBody(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{
			name: "plain header",
			text: "Intro.\n\nDATA RETENTION:\nold retention text\nmore old text\n\nNEXT SECTION:\nkeep me",
		},
		{
			name: "markdown header",
			text: "Intro.\n\n## Data Retention\nold retention text\nmore old text\n\n## Next Section\nkeep me",
		},
		{
			name: "mixed case header",
			text: "Intro.\n\ndata retention:\nold retention text\nmore old text\n\nNEXT SECTION:\nkeep me",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := upsertSection(tt.text, "Data Retention", "new retention text")

			assert.Contains(t, got, "new retention text")
			assert.NotContains(t, got, "old retention text")
			assert.NotContains(t, got, "more old text")
			assert.Contains(t, got, "keep me")
			assert.Contains(t, got, "Intro.")
		})
	}
}

func TestUpsertSectionAtDocumentEnd(t *testing.T) {
	text := "Intro.\n\nDATA RETENTION:\nold body line one\nold body line two"
	got := upsertSection(text, "Data Retention", "fresh body")

	assert.NotContains(t, got, "old body")
	assert.Contains(t, got, "fresh body")
}

func TestUpsertSectionIsIdempotent(t *testing.T) {
	text := "Intro.\n"
	once := upsertSection(text, "Complaints", "Contact the Financial Ombudsman Service.")
	twice := upsertSection(once, "Complaints", "Contact the Financial Ombudsman Service.")

	assert.Equal(t, once, twice)
	assert.Equal(t, 1, strings.Count(twice, "Financial Ombudsman Service"))
}

func TestUpsertSectionKeepsBlankLineInsideBody(t *testing.T) {
	// A blank line followed by ordinary prose does not end the section; only
	// a blank line followed by another header does.
	text := "DATA RETENTION:\nfirst paragraph\n\nsecond paragraph of same section"
	got := upsertSection(text, "Data Retention", "replacement")

	assert.NotContains(t, got, "first paragraph")
	assert.NotContains(t, got, "second paragraph")
	assert.Contains(t, got, "replacement")
}

func TestHeaderPattern(t *testing.T) {
	p := headerPattern("Data Retention")

	assert.True(t, p.MatchString("DATA RETENTION:"))
	assert.True(t, p.MatchString("data retention:"))
	assert.True(t, p.MatchString("## Data Retention"))
	assert.True(t, p.MatchString("# DATA RETENTION"))
	assert.False(t, p.MatchString("Data Retention policy:"))
	assert.False(t, p.MatchString("see data retention: below"))
}
