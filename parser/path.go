package parser

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizePath converts a path written by the assistant into the workspace
// form: forward slashes, no duplicate separators, no leading "./" or "/",
// no trailing "/", Unicode NFC.
func NormalizePath(p string) string {
	p = strings.TrimSpace(p)
	p = strings.ReplaceAll(p, `\`, "/")
	for strings.Contains(p, "//") {
		p = strings.ReplaceAll(p, "//", "/")
	}
	for strings.HasPrefix(p, "./") {
		p = strings.TrimPrefix(p, "./")
	}
	p = strings.Trim(p, "/")
	if p == "." {
		p = ""
	}
	return norm.NFC.String(p)
}
