package parser

import "fmt"

type Kind string

const (
	KindCreate Kind = "create"
	KindEdit   Kind = "edit"
	KindAppend Kind = "append"
	KindDelete Kind = "delete"
	KindRename Kind = "rename"
)

// Action is a workspace mutation requested by the assistant.
type Action struct {
	Kind Kind
	Path string
	// Content is the trimmed tag body; HasContent is false when the body
	// was empty.
	Content    string
	HasContent bool
	// NewPath is only set for renames.
	NewPath string
}

// Label is a short description used in result and failure messages.
func (a Action) Label() string {
	if a.Kind == KindRename {
		if a.NewPath == "" {
			return fmt.Sprintf("rename %s", a.Path)
		}
		return fmt.Sprintf("rename %s -> %s", a.Path, a.NewPath)
	}
	return fmt.Sprintf("%s %s", a.Kind, a.Path)
}
