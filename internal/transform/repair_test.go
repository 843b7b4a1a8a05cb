package transform

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepairBackslashes(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no backslash", "plain text", "plain text"},
		{"quote escapes", `he said \"hi\n\" ok`, `he said \\"hi\n\\" ok`},
		{"latex", `$\alpha + \beta$`, `$\\alpha + \\beta$`},
		{"newline kept", `a\nb`, `a\nb`},
		{"trailing backslash", `end\`, `end\\`},
		{"double backslash before n", `\\n`, `\\\n`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RepairBackslashes(tt.in))
		})
	}
}

func TestRepairedReplyParses(t *testing.T) {
	raw := `{"context": "We set $\alpha = 0.1$ and $\beta$.\nSecond paragraph."}`

	var broken map[string]string
	assert.Error(t, json.Unmarshal([]byte(raw), &broken), "未修复的LaTeX不是合法JSON")

	var fields map[string]string
	require.NoError(t, json.Unmarshal([]byte(RepairBackslashes(raw)), &fields))
	assert.Equal(t, "We set $\\alpha = 0.1$ and $\\beta$.\nSecond paragraph.", fields["context"])
}

func TestStripCodeFence(t *testing.T) {
	assert.Equal(t, `{"a": 1}`, StripCodeFence("```json\n{\"a\": 1}\n```"))
	assert.Equal(t, `{"a": 1}`, StripCodeFence("```\n{\"a\": 1}\n```"))
	assert.Equal(t, `{"a": 1}`, StripCodeFence("  {\"a\": 1}  "))
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, `the 'best' model`, Sanitize(`the "best" model`))
}
