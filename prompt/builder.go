// Package prompt assembles the text sent to the assistant CLI on each
// invocation.
package prompt

import (
	"fmt"
	"strings"

	"github.com/m4xw311/scribe/session"
)

// TruncationMarker is appended to any text cut to a size cap.
const TruncationMarker = "\n...[truncated]"

const (
	DefaultListingLimit     = 200
	DefaultContextCharLimit = 8000
)

// Document is a file whose contents are included in the prompt.
type Document struct {
	Path    string
	Content string
}

// Input is everything that varies between prompts.
type Input struct {
	// Paths is the workspace listing, in store order.
	Paths     []string
	Documents []Document
	History   []session.Turn
	Newest    session.Turn
}

// Builder renders prompts. The zero value uses the defaults.
type Builder struct {
	Preamble         string
	ListingLimit     int
	ContextCharLimit int
}

// NewBuilder returns a Builder with the default preamble and limits.
func NewBuilder() *Builder {
	return &Builder{
		Preamble:         DefaultPreamble,
		ListingLimit:     DefaultListingLimit,
		ContextCharLimit: DefaultContextCharLimit,
	}
}

// Build renders in to a prompt. The result depends only on b and in.
func (b *Builder) Build(in Input) string {
	var sb strings.Builder

	preamble := b.Preamble
	if preamble == "" {
		preamble = DefaultPreamble
	}
	sb.WriteString(strings.TrimSpace(preamble))
	sb.WriteString("\n\n")

	b.writeListing(&sb, in.Paths)

	for _, doc := range in.Documents {
		fmt.Fprintf(&sb, "--- Document: %s ---\n", doc.Path)
		sb.WriteString(Truncate(doc.Content, b.contextLimit(), TruncationMarker))
		sb.WriteString("\n\n")
	}

	for _, turn := range in.History {
		writeTurn(&sb, turn)
		sb.WriteString("\n\n")
	}
	writeTurn(&sb, in.Newest)
	return sb.String()
}

func (b *Builder) writeListing(sb *strings.Builder, paths []string) {
	sb.WriteString("Workspace files:\n")
	if len(paths) == 0 {
		sb.WriteString("(empty)\n\n")
		return
	}
	limit := b.ListingLimit
	if limit <= 0 {
		limit = DefaultListingLimit
	}
	shown := paths
	if len(shown) > limit {
		shown = shown[:limit]
	}
	for _, p := range shown {
		sb.WriteString("- ")
		sb.WriteString(p)
		sb.WriteString("\n")
	}
	if rest := len(paths) - len(shown); rest > 0 {
		fmt.Fprintf(sb, "...and %d more\n", rest)
	}
	sb.WriteString("\n")
}

func (b *Builder) contextLimit() int {
	if b.ContextCharLimit <= 0 {
		return DefaultContextCharLimit
	}
	return b.ContextCharLimit
}

func writeTurn(sb *strings.Builder, turn session.Turn) {
	sb.WriteString(turn.Role.Label())
	sb.WriteString(": ")
	sb.WriteString(turn.Content)
}

// Truncate cuts s to at most limit runes and appends marker when anything
// was removed. A non-positive limit leaves s alone.
func Truncate(s string, limit int, marker string) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i] + marker
		}
		n++
	}
	return s
}
