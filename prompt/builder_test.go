package prompt

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/m4xw311/scribe/session"
)

func TestBuildSectionOrder(t *testing.T) {
	b := &Builder{Preamble: "PREAMBLE", ListingLimit: 10, ContextCharLimit: 100}
	got := b.Build(Input{
		Paths:     []string{"a.md", "b/c.md"},
		Documents: []Document{{Path: "a.md", Content: "alpha"}},
		History: []session.Turn{
			{Role: session.RoleUser, Content: "hi"},
			{Role: session.RoleAssistant, Content: "hello"},
		},
		Newest: session.Turn{Role: session.RoleUser, Content: "summarize a"},
	})

	want := "PREAMBLE\n\n" +
		"Workspace files:\n- a.md\n- b/c.md\n\n" +
		"--- Document: a.md ---\nalpha\n\n" +
		"User: hi\n\n" +
		"Assistant: hello\n\n" +
		"User: summarize a"
	assert.Equal(t, want, got)
}

func TestBuildCapsListing(t *testing.T) {
	var paths []string
	for i := 0; i < 205; i++ {
		paths = append(paths, fmt.Sprintf("n%03d.md", i))
	}
	got := NewBuilder().Build(Input{Paths: paths, Newest: session.Turn{Role: session.RoleUser, Content: "q"}})

	assert.Contains(t, got, "- n199.md\n...and 5 more\n")
	assert.NotContains(t, got, "n200.md")
}

func TestBuildTruncatesDocuments(t *testing.T) {
	b := &Builder{ContextCharLimit: 5}
	got := b.Build(Input{
		Documents: []Document{{Path: "long.md", Content: "0123456789"}},
		Newest:    session.Turn{Role: session.RoleUser, Content: "q"},
	})
	assert.Contains(t, got, "--- Document: long.md ---\n01234\n...[truncated]\n\n")
}

func TestBuildEmptyWorkspace(t *testing.T) {
	got := (&Builder{}).Build(Input{Newest: session.Turn{Role: session.RoleUser, Content: "q"}})
	assert.True(t, strings.HasPrefix(got, DefaultPreamble))
	assert.Contains(t, got, "Workspace files:\n(empty)\n\n")
	assert.True(t, strings.HasSuffix(got, "User: q"))
}

func TestBuildIsDeterministic(t *testing.T) {
	in := Input{
		Paths:  []string{"x.md"},
		Newest: session.Turn{Role: session.RoleUser, Content: "same"},
	}
	b := NewBuilder()
	assert.Equal(t, b.Build(in), b.Build(in))
}

func TestTruncate(t *testing.T) {
	testCases := []struct {
		in    string
		limit int
		want  string
	}{
		{"short", 10, "short"},
		{"exact", 5, "exact"},
		{"toolong", 3, "too~"},
		{"héllo wörld", 4, "héll~"},
		{"anything", 0, "anything"},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.want, Truncate(tc.in, tc.limit, "~"), tc.in)
	}
}
