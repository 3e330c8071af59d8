// Package parser extracts the directives an assistant embeds in its answer.
//
// Two tags are recognised:
//
//	<read-file path="notes/today.md"/>
//	<vault-action action="append" path="log.md">text</vault-action>
//
// Extraction removes every complete tag from the text and leaves the rest of
// the answer alone. Incomplete or malformed tags stay in the text.
package parser

import (
	"regexp"
	"strings"
)

// Precompiled tag patterns. A vault-action body runs to the first closing
// tag, so fenced code blocks inside it are carried through verbatim.
var (
	readFileRegex    = regexp.MustCompile(`<read-file\s+path\s*=\s*"([^"]*)"\s*/>`)
	vaultActionRegex = regexp.MustCompile(`(?s)<vault-action\s+action\s*=\s*"(create|edit|append|delete|rename)"\s+path\s*=\s*"([^"]*)"(?:\s+to\s*=\s*"([^"]*)")?\s*>(.*?)</vault-action>`)
)

type span struct {
	start int
	end   int
}

// ExtractReadRequests returns text without its read-file tags, trimmed, and
// the normalized paths they requested in order of appearance.
func ExtractReadRequests(text string) (string, []string) {
	var paths []string
	out := extractAll(text, readFileRegex, func(m []string) bool {
		p := NormalizePath(m[1])
		if p == "" {
			return false
		}
		paths = append(paths, p)
		return true
	})
	return out, paths
}

// ExtractActions returns text without its vault-action tags, trimmed, and the
// actions they describe in order of appearance.
func ExtractActions(text string) (string, []Action) {
	var actions []Action
	out := extractAll(text, vaultActionRegex, func(m []string) bool {
		p := NormalizePath(m[2])
		if p == "" {
			return false
		}
		a := Action{Kind: Kind(m[1]), Path: p}
		if body := strings.TrimSpace(m[4]); body != "" {
			a.Content = body
			a.HasContent = true
		}
		if a.Kind == KindRename {
			a.NewPath = NormalizePath(m[3])
		}
		actions = append(actions, a)
		return true
	})
	return out, actions
}

// extractAll strips matches of re for which accept returns true. A rejected
// match only gives up its opening "<", so a complete tag inside its body is
// still found. Stripping can join two fragments into a new complete tag, so
// passes repeat until nothing more is removed; a second call on the result is
// then a no-op.
func extractAll(text string, re *regexp.Regexp, accept func(groups []string) bool) string {
	for {
		var spans []span
		for pos := 0; pos < len(text); {
			loc := re.FindStringSubmatchIndex(text[pos:])
			if loc == nil {
				break
			}
			groups := make([]string, len(loc)/2)
			for i := range groups {
				if loc[2*i] >= 0 {
					groups[i] = text[pos+loc[2*i] : pos+loc[2*i+1]]
				}
			}
			start, end := pos+loc[0], pos+loc[1]
			if accept(groups) {
				spans = append(spans, span{start: start, end: end})
				pos = end
			} else {
				pos = start + 1
			}
		}
		if len(spans) == 0 {
			return strings.TrimSpace(text)
		}
		text = removeSpans(text, spans)
	}
}

// removeSpans cuts the spans out of text. When a cut leaves blanks on both
// sides of the seam, the blanks after it are dropped so "a <tag/> b" becomes
// "a b" rather than "a  b".
func removeSpans(text string, spans []span) string {
	var b strings.Builder
	prev := 0
	for _, s := range spans {
		b.WriteString(text[prev:s.start])
		prev = s.end
		if out := b.String(); out != "" && isBlank(out[len(out)-1]) {
			for prev < len(text) && isBlank(text[prev]) {
				prev++
			}
		}
	}
	b.WriteString(text[prev:])
	return b.String()
}

func isBlank(c byte) bool { return c == ' ' || c == '\t' }
