package workspace

import (
	"context"
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/m4xw311/scribe/parser"
)

// Preview describes what Apply would do without doing it, for hosts that ask
// the user to confirm each action. Edits are shown as a line diff.
func (e *Executor) Preview(ctx context.Context, a parser.Action) (string, error) {
	switch a.Kind {
	case parser.KindCreate:
		return fmt.Sprintf("Create %s:\n%s", a.Path, a.Content), nil
	case parser.KindRename:
		if a.NewPath == "" {
			return fmt.Sprintf("Rename %s (no target given)", a.Path), nil
		}
	}

	target, found, err := e.Resolve(ctx, a.Path)
	if err != nil {
		return "", err
	}
	if !found {
		return fmt.Sprintf("%s %s (file not found)", titleKind(a.Kind), a.Path), nil
	}

	switch a.Kind {
	case parser.KindEdit:
		current, err := e.store.Read(ctx, target)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Edit %s:\n%s", target, LineDiff(current, a.Content)), nil
	case parser.KindAppend:
		return fmt.Sprintf("Append to %s:\n%s", target, a.Content), nil
	case parser.KindDelete:
		return fmt.Sprintf("Move %s to trash", target), nil
	case parser.KindRename:
		return fmt.Sprintf("Rename %s -> %s", target, a.NewPath), nil
	}
	return fmt.Sprintf("Unknown action: %s", a.Kind), nil
}

// LineDiff renders a unified-style line diff: "+ " for added lines, "- " for
// removed lines and "  " for unchanged ones.
func LineDiff(before, after string) string {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var sb strings.Builder
	for _, d := range diffs {
		prefix := "  "
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			prefix = "+ "
		case diffmatchpatch.DiffDelete:
			prefix = "- "
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			sb.WriteString(prefix)
			sb.WriteString(strings.TrimSuffix(line, "\n"))
			sb.WriteString("\n")
		}
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

func titleKind(k parser.Kind) string {
	s := string(k)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
