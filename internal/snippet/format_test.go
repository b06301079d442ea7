package snippet

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatContextWins(t *testing.T) {
	s := Snippet{Template: "[FIRM_NAME] (FRN [FRN_NUMBER]) is authorised."}

	out := Format(s, map[string]string{"firm_name": "Acme Capital Ltd", "frn_number": "765432"})
	assert.Equal(t, "Acme Capital Ltd (FRN 765432) is authorised.", out)
}

func TestFormatUppercaseContextKeys(t *testing.T) {
	s := Snippet{Template: "Contact [FIRM_NAME]."}
	out := Format(s, map[string]string{"FIRM_NAME": "Acme"})
	assert.Equal(t, "Contact Acme.", out)
}

func TestFormatFallsBackToDefaults(t *testing.T) {
	s := Snippet{Template: "Complaints: write to [CONTACT_DETAILS]."}
	out := Format(s, nil)
	assert.Equal(t, "Complaints: write to our registered office.", out)
}

func TestFormatUnknownPlaceholderDegradesToWords(t *testing.T) {
	s := Snippet{Template: "See [DATA_RETENTION_SCHEDULE] for details."}
	out := Format(s, nil)
	assert.Equal(t, "See data retention schedule for details.", out)
	assert.NotContains(t, out, "[")
}

func TestFormatEmptyContextValueIgnored(t *testing.T) {
	s := Snippet{Template: "[FIRM_NAME] accepts complaints."}
	out := Format(s, map[string]string{"firm_name": ""})
	assert.Equal(t, "the firm accepts complaints.", out)
}

func TestFormatLeavesLowercaseBracketsAlone(t *testing.T) {
	s := Snippet{Template: "see [note] and [FIRM_NAME]"}
	out := Format(s, nil)
	assert.Equal(t, "see [note] and the firm", out)
}

func TestDefaultPriority(t *testing.T) {
	assert.Equal(t, 100, DefaultPriority("critical"))
	assert.Equal(t, 90, DefaultPriority("high"))
	assert.Equal(t, 80, DefaultPriority("medium"))
	assert.Equal(t, 70, DefaultPriority("low"))
	assert.Equal(t, 70, DefaultPriority("info"))
}
