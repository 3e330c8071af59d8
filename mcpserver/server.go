// Package mcpserver exposes the vault to MCP clients. Other agents can list
// and read documents and apply the same workspace actions the assistant's
// tags produce, through the same executor and access rules.
package mcpserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/m4xw311/scribe/logging"
	"github.com/m4xw311/scribe/parser"
	"github.com/m4xw311/scribe/prompt"
	"github.com/m4xw311/scribe/workspace"
)

// Server wraps an MCP server whose tools act on one vault.
type Server struct {
	executor      *workspace.Executor
	readCharLimit int
	logger        *zap.Logger
	mcp           *mcp.Server
}

// New registers the vault tools. readCharLimit caps read_file output; zero
// means no cap.
func New(executor *workspace.Executor, readCharLimit int, version string, logger *zap.Logger) *Server {
	s := &Server{
		executor:      executor,
		readCharLimit: readCharLimit,
		logger:        logging.OrNop(logger).Named("mcp"),
		mcp:           mcp.NewServer(&mcp.Implementation{Name: "scribe", Version: version}, nil),
	}
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "list_files",
		Description: "List the documents in the vault, optionally filtered by a glob such as 'Projects/**'.",
	}, s.listFiles)
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "read_file",
		Description: "Read a vault document. The path may omit the extension or be just the note's name.",
	}, s.readFile)
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "vault_action",
		Description: "Create, edit, append to, delete (move to trash) or rename a vault document.",
	}, s.vaultAction)
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "apply_response",
		Description: "Apply every <vault-action> tag found in an assistant response and return the remaining text with one result line per action.",
	}, s.applyResponse)
	return s
}

// MCP returns the underlying server, for callers that manage transports
// themselves.
func (s *Server) MCP() *mcp.Server { return s.mcp }

// Run serves over stdin and stdout until the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("serving MCP over stdio")
	return s.mcp.Run(ctx, mcp.NewStdioTransport())
}

type ListFilesArgs struct {
	Pattern string `json:"pattern,omitempty" jsonschema:"optional doublestar glob the paths must match"`
}

type ReadFileArgs struct {
	Path string `json:"path" jsonschema:"vault path of the document"`
}

type VaultActionArgs struct {
	Action  string `json:"action" jsonschema:"one of create, edit, append, delete, rename"`
	Path    string `json:"path" jsonschema:"vault path of the document"`
	Content string `json:"content,omitempty" jsonschema:"document text for create, edit and append"`
	To      string `json:"to,omitempty" jsonschema:"new path, required for rename"`
}

type ApplyResponseArgs struct {
	Text string `json:"text" jsonschema:"assistant response containing vault-action tags"`
}

func (s *Server) listFiles(ctx context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[ListFilesArgs]) (*mcp.CallToolResultFor[any], error) {
	pattern := params.Arguments.Pattern
	if pattern != "" && !doublestar.ValidatePattern(pattern) {
		return errorResult(fmt.Sprintf("invalid glob pattern: %s", pattern)), nil
	}
	paths, err := s.executor.Store().ListPaths(ctx)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	var matched []string
	for _, p := range paths {
		if pattern != "" {
			if ok, _ := doublestar.Match(pattern, p); !ok {
				continue
			}
		}
		matched = append(matched, p)
	}
	if len(matched) == 0 {
		return textResult("No files found."), nil
	}
	return textResult(strings.Join(matched, "\n")), nil
}

func (s *Server) readFile(ctx context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[ReadFileArgs]) (*mcp.CallToolResultFor[any], error) {
	p := parser.NormalizePath(params.Arguments.Path)
	target, found, err := s.executor.Resolve(ctx, p)
	if err != nil {
		return errorResult(fmt.Sprintf("Error reading %s: %v", p, err)), nil
	}
	if !found {
		return errorResult(fmt.Sprintf("File not found: %s", p)), nil
	}
	content, err := s.executor.Store().Read(ctx, target)
	if err != nil {
		return errorResult(fmt.Sprintf("Error reading %s: %v", p, err)), nil
	}
	return textResult(prompt.Truncate(content, s.readCharLimit, prompt.TruncationMarker)), nil
}

func (s *Server) vaultAction(ctx context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[VaultActionArgs]) (*mcp.CallToolResultFor[any], error) {
	args := params.Arguments
	action := parser.Action{
		Kind: parser.Kind(strings.ToLower(strings.TrimSpace(args.Action))),
		Path: parser.NormalizePath(args.Path),
	}
	if action.Path == "" {
		return errorResult("path is required"), nil
	}
	if content := strings.TrimSpace(args.Content); content != "" {
		action.Content = content
		action.HasContent = true
	}
	if action.Kind == parser.KindRename {
		action.NewPath = parser.NormalizePath(args.To)
	}

	s.logger.Info("vault_action", zap.String("action", action.Label()))
	msg, ok := s.executor.ApplySafely(ctx, action)
	if !ok {
		return errorResult(msg), nil
	}
	return textResult(msg), nil
}

func (s *Server) applyResponse(ctx context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[ApplyResponseArgs]) (*mcp.CallToolResultFor[any], error) {
	text, actions := parser.ExtractActions(params.Arguments.Text)
	lines := []string{text}
	failed := false
	for _, action := range actions {
		msg, ok := s.executor.ApplySafely(ctx, action)
		failed = failed || !ok
		lines = append(lines, msg)
	}
	res := textResult(strings.TrimSpace(strings.Join(lines, "\n")))
	res.IsError = failed
	return res, nil
}

func textResult(text string) *mcp.CallToolResultFor[any] {
	return &mcp.CallToolResultFor[any]{Content: []mcp.Content{&mcp.TextContent{Text: text}}}
}

func errorResult(text string) *mcp.CallToolResultFor[any] {
	res := textResult(text)
	res.IsError = true
	return res
}
