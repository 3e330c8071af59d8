package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractReadRequests(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		text  string
		paths []string
	}{
		{
			name:  "Single",
			input: `Let me check. <read-file path="notes/today.md"/>`,
			text:  "Let me check.",
			paths: []string{"notes/today.md"},
		},
		{
			name:  "WhitespaceVariations",
			input: "<read-file  path = \"a.md\" />\n<read-file\tpath=\"./b\\c.md\"/>",
			text:  "",
			paths: []string{"a.md", "b/c.md"},
		},
		{
			name:  "MalformedLeftAlone",
			input: `Looking <read-file path="a.md"> and <read-file path="b.md`,
			text:  `Looking <read-file path="a.md"> and <read-file path="b.md`,
		},
		{
			name:  "EmptyPathLeftAlone",
			input: `x <read-file path=""/> y`,
			text:  `x <read-file path=""/> y`,
		},
		{
			name:  "NoTags",
			input: "  plain answer\n",
			text:  "plain answer",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			text, paths := ExtractReadRequests(tc.input)
			assert.Equal(t, tc.text, text)
			assert.Equal(t, tc.paths, paths)
		})
	}
}

func TestExtractActionsScenario(t *testing.T) {
	text, actions := ExtractActions(`Sure, <vault-action action="append" path="log.md">done</vault-action> ok`)

	assert.Equal(t, "Sure, ok", text)
	assert.Equal(t, []Action{{Kind: KindAppend, Path: "log.md", Content: "done", HasContent: true}}, actions)
}

func TestExtractActionsKinds(t *testing.T) {
	input := "Plan:\n" +
		`<vault-action action="create" path="./Projects/new.md">` + "\n# New\n\nBody\n" + `</vault-action>` + "\n" +
		`<vault-action action="edit" path="a.md">rewritten</vault-action>` + "\n" +
		`<vault-action action="delete" path="old.md"></vault-action>` + "\n" +
		`<vault-action action="rename" path="draft.md" to="final\done.md"></vault-action>` + "\n" +
		`<vault-action action="append" path="log.md" to="ignored.md">entry</vault-action>` + "\n" +
		"Done."

	text, actions := ExtractActions(input)

	assert.Equal(t, "Plan:\n\n\n\n\n\nDone.", text)
	assert.Equal(t, []Action{
		{Kind: KindCreate, Path: "Projects/new.md", Content: "# New\n\nBody", HasContent: true},
		{Kind: KindEdit, Path: "a.md", Content: "rewritten", HasContent: true},
		{Kind: KindDelete, Path: "old.md"},
		{Kind: KindRename, Path: "draft.md", NewPath: "final/done.md"},
		{Kind: KindAppend, Path: "log.md", Content: "entry", HasContent: true},
	}, actions)
}

func TestExtractActionsPreservesFencedBlocks(t *testing.T) {
	body := "```go\nfunc main() {}\n```\n\n~~~\nraw\n~~~"
	input := "Before\n```sh\nls\n```\n" +
		`<vault-action action="create" path="code.md">` + "\n" + body + "\n" + `</vault-action>` +
		"\nAfter"

	text, actions := ExtractActions(input)

	assert.Equal(t, "Before\n```sh\nls\n```\n\nAfter", text)
	if assert.Len(t, actions, 1) {
		assert.Equal(t, body, actions[0].Content)
	}
}

func TestExtractActionsRenameWithoutTarget(t *testing.T) {
	_, actions := ExtractActions(`<vault-action action="rename" path="a.md"></vault-action>`)

	if assert.Len(t, actions, 1) {
		assert.Equal(t, KindRename, actions[0].Kind)
		assert.Empty(t, actions[0].NewPath)
	}
}

func TestExtractActionsLeavesUnknownAndUnterminated(t *testing.T) {
	inputs := []string{
		`<vault-action action="explode" path="a.md">x</vault-action>`,
		`<vault-action action="edit" path="a.md">never closed`,
		`<vault-action path="a.md" action="edit">wrong order</vault-action>`,
	}
	for _, input := range inputs {
		text, actions := ExtractActions(input)
		assert.Equal(t, input, text)
		assert.Empty(t, actions)
	}
}

func TestRejectedTagDoesNotHideInnerTag(t *testing.T) {
	text, actions := ExtractActions(`<vault-action action="edit" path="">x <vault-action action="create" path="b.md">B</vault-action> y`)

	assert.Equal(t, `<vault-action action="edit" path="">x y`, text)
	assert.Equal(t, []Action{{Kind: KindCreate, Path: "b.md", Content: "B", HasContent: true}}, actions)

	text, paths := ExtractReadRequests(`<read-file path=""/> <read-file path="a.md"/>`)
	assert.Equal(t, `<read-file path=""/>`, text)
	assert.Equal(t, []string{"a.md"}, paths)
}

func TestExtractionIsIdempotent(t *testing.T) {
	inputs := []string{
		`Sure, <vault-action action="append" path="log.md">done</vault-action> ok`,
		`<vault-action action="edit" path="a.md">x</vault-action> tail <vault-action action="edit"`,
		// Removing the inner tag joins the outer fragments into a new tag.
		`<vault-action action="edit" path="b.md">` +
			`<vault-action action="edit" path="c.md">inner</vault-action>` +
			`outer</vault-action>`,
	}
	for _, input := range inputs {
		once, _ := ExtractActions(input)
		twice, actions := ExtractActions(once)
		assert.Equal(t, once, twice)
		assert.Empty(t, actions)
	}

	reads := `a <read-<read-file path="x.md"/>file path="y.md"/> b`
	once, paths := ExtractReadRequests(reads)
	assert.Equal(t, "a b", once)
	assert.Equal(t, []string{"x.md", "y.md"}, paths)
	twice, paths := ExtractReadRequests(once)
	assert.Equal(t, once, twice)
	assert.Empty(t, paths)
}

func TestActionLabel(t *testing.T) {
	assert.Equal(t, "append log.md", Action{Kind: KindAppend, Path: "log.md"}.Label())
	assert.Equal(t, "rename a.md -> b.md", Action{Kind: KindRename, Path: "a.md", NewPath: "b.md"}.Label())
	assert.Equal(t, "rename a.md", Action{Kind: KindRename, Path: "a.md"}.Label())
}
