package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		countryCode string
		expected    string
	}{
		{"international with spaces", "+971 50 123 4567", "", "501234567"},
		{"local with trunk zero", "0501234567", "", "501234567"},
		{"country code no plus", "971501234567", "", "501234567"},
		{"double zero prefix", "00971501234567", "", "501234567"},
		{"dashes and parens", "(050) 123-4567", "", "501234567"},
		{"already normalized", "501234567", "", "501234567"},
		{"custom country code", "+966512345678", "966", "512345678"},
		{"no digits", "call me", "", ""},
		{"empty", "", "", ""},
		{"digits equal country code", "971", "", "971"},
		{"single zero", "0", "", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizePhone(tt.raw, tt.countryCode))
		})
	}
}

// The three formats of the same subscriber must collapse to one join key.
func TestNormalizePhoneEquivalence(t *testing.T) {
	forms := []string{"+971 50 123 4567", "0501234567", "971501234567"}
	keys := make(map[string]struct{})
	for _, f := range forms {
		keys[NormalizePhone(f, "")] = struct{}{}
	}
	assert.Len(t, keys, 1)
}
