package payfort

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeText(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		pattern   string
		maxLength int
		want      string
	}{
		{
			name:    "empty pattern fails closed",
			text:    "anything at all",
			pattern: "",
			want:    "",
		},
		{
			name:    "clean text is untouched",
			text:    "Course: MITx CS-101",
			pattern: OrderDescriptionPattern,
			want:    "Course: MITx CS-101",
		},
		{
			name:    "invalid characters are replaced",
			text:    "name@example.com?",
			pattern: CustomerNamePattern,
			want:    "name_example.com_",
		},
		{
			name:      "no truncation under the limit",
			text:      "short",
			pattern:   OrderDescriptionPattern,
			maxLength: 10,
			want:      "short",
		},
		{
			name:      "ellipsis truncation when dot is allowed",
			text:      strings.Repeat("a", 20),
			pattern:   OrderDescriptionPattern,
			maxLength: 10,
			want:      strings.Repeat("a", 7) + "...",
		},
		{
			name:      "smallest limit that fits the ellipsis",
			text:      "abcdefg",
			pattern:   OrderDescriptionPattern,
			maxLength: 4,
			want:      "a...",
		},
		{
			name:      "limit too small for an ellipsis is a hard cut",
			text:      "abcdefg",
			pattern:   OrderDescriptionPattern,
			maxLength: 2,
			want:      "ab",
		},
		{
			name:      "hard truncation when dot is not allowed",
			text:      strings.Repeat("7", 20),
			pattern:   `[^0-9]`,
			maxLength: 10,
			want:      strings.Repeat("7", 10),
		},
		{
			name:      "zero max length means no truncation",
			text:      strings.Repeat("b", 200),
			pattern:   OrderDescriptionPattern,
			maxLength: 0,
			want:      strings.Repeat("b", 200),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizeText(tt.text, tt.pattern, tt.maxLength, "_")
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSanitizeText_Idempotent(t *testing.T) {
	once := SanitizeText("2 X edX Demo; Course!", OrderDescriptionPattern, 0, "_")
	twice := SanitizeText(once, OrderDescriptionPattern, 0, "_")

	assert.Equal(t, once, twice)
}
