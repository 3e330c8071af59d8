package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePath(t *testing.T) {
	testCases := map[string]string{
		"notes/today.md":      "notes/today.md",
		"./notes/today.md":    "notes/today.md",
		"././a.md":            "a.md",
		`notes\daily\2024.md`: "notes/daily/2024.md",
		"/abs//double///x.md": "abs/double/x.md",
		"folder/":             "folder",
		"  padded.md  ":       "padded.md",
		".":                   "",
		"cafe\u0301.md":       "caf\u00e9.md",
	}
	for input, want := range testCases {
		assert.Equal(t, want, NormalizePath(input), "input %q", input)
	}
}
