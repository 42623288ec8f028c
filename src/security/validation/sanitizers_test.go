package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeForFormulaInjection(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain name", "Alice", "Alice"},
		{"equals prefix", "=SUM(A1:A9)", "'=SUM(A1:A9)"},
		{"plus prefix", "+1234", "'+1234"},
		{"minus prefix", "-cmd", "'-cmd"},
		{"at prefix", "@import", "'@import"},
		{"leading whitespace before formula", "  =1+1", "'  =1+1"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeForFormulaInjection(tt.input))
		})
	}
}

func TestStripUnprintable(t *testing.T) {
	assert.Equal(t, "Alice", StripUnprintable("Ali\x00ce"))
	assert.Equal(t, "line1\nline2", StripUnprintable("line1\nline2"))
	assert.Equal(t, "tab\there", StripUnprintable("tab\there"))
}
