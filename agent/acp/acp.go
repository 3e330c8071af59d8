package acp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/m4xw311/scribe/agent"
	"github.com/m4xw311/scribe/errors"
	"github.com/m4xw311/scribe/logging"
	"github.com/m4xw311/scribe/parser"
	"github.com/m4xw311/scribe/prompt"
)

// JSON-RPC error codes.
const (
	codeParseError     = -32700
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeInternalError  = -32603
)

// maxInlineResource caps the text inlined for a resource outside the vault.
const maxInlineResource = 50000

// Options configures the server.
type Options struct {
	// VaultRoot is the absolute vault directory used to map file:// URIs
	// to vault paths.
	VaultRoot string
	Logger    *zap.Logger
}

// Run starts the Agent Client Protocol server. newAgent is called once per
// session. Run returns when in reaches EOF, after every running prompt has
// finished; cancelling ctx cancels the running prompts.
func Run(ctx context.Context, newAgent func() *agent.Agent, in io.Reader, out io.Writer, opts Options) error {
	server := &acpServer{
		ctx:         ctx,
		newAgent:    newAgent,
		vaultRoot:   opts.VaultRoot,
		logger:      logging.OrNop(opts.Logger).Named("acp"),
		sessions:    make(map[string]*agent.Agent),
		pending:     make(map[string]chan *jsonrpcMessage),
		inputClosed: make(chan struct{}),
		in:          bufio.NewReader(in),
		out:         bufio.NewWriter(out),
	}
	server.logger.Info("starting ACP server")
	// Running prompts finish before Run returns. Once input is closed no
	// permission answer can arrive, so pending requests give up.
	defer server.prompts.Wait()
	defer close(server.inputClosed)

	for {
		payload, err := server.readFramedMessage()
		if err == io.EOF {
			server.logger.Info("EOF received, exiting")
			return nil
		}
		if err != nil {
			// If framing is broken, there isn't a safe way to continue.
			return errors.Wrapf(err, "ACP read error")
		}
		if len(strings.TrimSpace(string(payload))) == 0 {
			continue
		}

		var msg jsonrpcMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			server.logger.Warn("JSON parse error", zap.Error(err))
			_ = server.writeResponseError(nil, codeParseError, "Parse error", nil)
			continue
		}
		server.dispatch(&msg)
	}
}

// jsonrpcMessage is any incoming JSON-RPC 2.0 message: a request, a
// notification (no ID) or a response to one of our requests (no method).
type jsonrpcMessage struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *jsonrpcError   `json:"error,omitempty"`
}

// jsonrpcResponse represents a JSON-RPC 2.0 response message
type jsonrpcResponse struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      any           `json:"id"`
	Result  any           `json:"result,omitempty"`
	Error   *jsonrpcError `json:"error,omitempty"`
}

// jsonrpcError represents a JSON-RPC 2.0 error object
type jsonrpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

type acpServer struct {
	ctx       context.Context
	newAgent  func() *agent.Agent
	vaultRoot string
	logger    *zap.Logger

	sessionsLock sync.Mutex
	sessions     map[string]*agent.Agent

	pendingLock sync.Mutex
	pending     map[string]chan *jsonrpcMessage
	requestSeq  atomic.Int64
	inputClosed chan struct{}

	prompts sync.WaitGroup

	in        *bufio.Reader
	out       *bufio.Writer
	writeLock sync.Mutex
}

func (s *acpServer) dispatch(msg *jsonrpcMessage) {
	if msg.Method == "" {
		s.deliverResponse(msg)
		return
	}
	s.logger.Debug("dispatching", zap.String("method", msg.Method), zap.Any("id", msg.ID))
	switch msg.Method {
	case "initialize":
		s.handleInitialize(msg)
	case "session/new":
		s.handleSessionNew(msg)
	case "session/prompt":
		// Prompts run concurrently with the read loop so that a
		// session/cancel can reach them.
		s.prompts.Add(1)
		go func() {
			defer s.prompts.Done()
			s.handleSessionPrompt(msg)
		}()
	case "session/cancel":
		s.handleSessionCancel(msg)
	case "session/reset":
		s.handleSessionReset(msg)
	default:
		if msg.ID != nil {
			_ = s.writeResponseError(msg.ID, codeMethodNotFound, "Method not found", nil)
		}
	}
}

// readFramedMessage reads a single newline-delimited JSON-RPC payload.
func (s *acpServer) readFramedMessage() ([]byte, error) {
	line, err := s.in.ReadBytes('\n')
	if err == io.EOF && len(line) > 0 {
		return line, nil
	}
	return line, err
}

// writeFramedJSON serializes obj and writes it followed by a newline.
func (s *acpServer) writeFramedJSON(obj any) error {
	data, err := json.Marshal(obj)
	if err != nil {
		return errors.Wrapf(err, "failed to serialize JSON-RPC message")
	}
	s.logger.Debug("writing message", zap.ByteString("json", data))

	s.writeLock.Lock()
	defer s.writeLock.Unlock()
	if _, err := s.out.Write(data); err != nil {
		return err
	}
	if err := s.out.WriteByte('\n'); err != nil {
		return err
	}
	return s.out.Flush()
}

func (s *acpServer) writeResponseOK(id any, result any) error {
	return s.writeFramedJSON(jsonrpcResponse{JSONRPC: "2.0", ID: id, Result: result})
}

func (s *acpServer) writeResponseError(id any, code int, msg string, data any) error {
	s.logger.Debug("error response", zap.Int("code", code), zap.String("message", msg), zap.Any("data", data))
	return s.writeFramedJSON(jsonrpcResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &jsonrpcError{Code: code, Message: msg, Data: data},
	})
}

// writeNotification sends a JSON-RPC notification (request without an ID)
func (s *acpServer) writeNotification(method string, params any) error {
	return s.writeFramedJSON(map[string]any{
		"jsonrpc": "2.0",
		"method":  method,
		"params":  params,
	})
}

// call sends a request to the client and waits for its response.
func (s *acpServer) call(ctx context.Context, method string, params any) (*jsonrpcMessage, error) {
	id := s.requestSeq.Add(1)
	key := fmt.Sprint(id)
	ch := make(chan *jsonrpcMessage, 1)
	s.pendingLock.Lock()
	s.pending[key] = ch
	s.pendingLock.Unlock()
	defer func() {
		s.pendingLock.Lock()
		delete(s.pending, key)
		s.pendingLock.Unlock()
	}()

	err := s.writeFramedJSON(map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"method":  method,
		"params":  params,
	})
	if err != nil {
		return nil, err
	}
	select {
	case resp := <-ch:
		if resp.Error != nil {
			return nil, errors.New("%s failed: %s", method, resp.Error.Message)
		}
		return resp, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.inputClosed:
		return nil, errors.New("%s: client input closed", method)
	}
}

func (s *acpServer) deliverResponse(msg *jsonrpcMessage) {
	key := fmt.Sprint(msg.ID)
	s.pendingLock.Lock()
	ch, ok := s.pending[key]
	s.pendingLock.Unlock()
	if !ok {
		s.logger.Warn("response to unknown request", zap.String("id", key))
		return
	}
	ch <- msg
}

func (s *acpServer) decodeParams(msg *jsonrpcMessage, v any) bool {
	if len(msg.Params) == 0 {
		return true
	}
	if err := json.Unmarshal(msg.Params, v); err != nil {
		if msg.ID != nil {
			_ = s.writeResponseError(msg.ID, codeInvalidParams, "Invalid params", err.Error())
		}
		return false
	}
	return true
}

func (s *acpServer) lookupSession(id string) (*agent.Agent, bool) {
	s.sessionsLock.Lock()
	defer s.sessionsLock.Unlock()
	a, ok := s.sessions[id]
	return a, ok
}

// ---- Handlers ----

func (s *acpServer) handleInitialize(msg *jsonrpcMessage) {
	var p struct {
		ProtocolVersion int             `json:"protocolVersion"`
		ClientCaps      json.RawMessage `json:"clientCapabilities,omitempty"`
	}
	if !s.decodeParams(msg, &p) {
		return
	}
	s.logger.Info("client initialized", zap.Int("protocol_version", p.ProtocolVersion))

	_ = s.writeResponseOK(msg.ID, map[string]any{
		"protocolVersion": 1,
		"agentCapabilities": map[string]any{
			"loadSession": false,
			"promptCapabilities": map[string]bool{
				"audio":           false,
				"embeddedContext": false,
				"image":           false,
			},
		},
		"authMethods": []any{},
	})
}

func (s *acpServer) handleSessionNew(msg *jsonrpcMessage) {
	var p struct {
		Cwd        string          `json:"cwd"`
		McpServers json.RawMessage `json:"mcpServers"`
	}
	if !s.decodeParams(msg, &p) {
		return
	}

	sid := nextSessionID()
	a := s.newAgent()
	a.Conversation.Name = sid

	s.sessionsLock.Lock()
	s.sessions[sid] = a
	s.sessionsLock.Unlock()

	s.logger.Info("session created",
		zap.String("session", sid),
		zap.String("cwd", p.Cwd),
		zap.String("mode", string(a.Mode)))
	_ = s.writeResponseOK(msg.ID, map[string]any{"sessionId": sid})
}

func (s *acpServer) handleSessionCancel(msg *jsonrpcMessage) {
	var p struct {
		SessionID string `json:"sessionId"`
	}
	if !s.decodeParams(msg, &p) {
		return
	}
	if a, ok := s.lookupSession(p.SessionID); ok {
		s.logger.Info("cancelling session", zap.String("session", p.SessionID))
		a.Cancel()
	}
}

func (s *acpServer) handleSessionReset(msg *jsonrpcMessage) {
	var p struct {
		SessionID string `json:"sessionId"`
	}
	if !s.decodeParams(msg, &p) {
		return
	}
	a, ok := s.lookupSession(p.SessionID)
	if !ok {
		_ = s.writeResponseError(msg.ID, codeInvalidParams, "Invalid params", "unknown sessionId")
		return
	}
	a.Reset()
	_ = s.writeResponseOK(msg.ID, map[string]any{})
}

// contentBlock represents a content block in ACP prompt requests. Only text
// and resource_link blocks are understood.
type contentBlock struct {
	Type        string `json:"type"`
	Text        string `json:"text,omitempty"`
	URI         string `json:"uri,omitempty"`
	Name        string `json:"name,omitempty"`
	MimeType    string `json:"mimeType,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Size        *int64 `json:"size,omitempty"`
}

// handleSessionPrompt runs one request. The response carries the stop
// reason once the answer is final and every action has been handled.
func (s *acpServer) handleSessionPrompt(msg *jsonrpcMessage) {
	var p struct {
		SessionID string         `json:"sessionId"`
		Prompt    []contentBlock `json:"prompt"`
	}
	if !s.decodeParams(msg, &p) {
		return
	}
	a, ok := s.lookupSession(p.SessionID)
	if !ok {
		_ = s.writeResponseError(msg.ID, codeInvalidParams, "Invalid params", "unknown sessionId")
		return
	}

	userText, active := s.extractUserText(p.Prompt)
	sid := p.SessionID
	callbacks := agent.ProcessCallbacks{
		OnChunk: func(text string) {
			_ = s.sendUpdate(sid, "agent_thought_chunk", map[string]any{"content": textContent(text)})
		},
		OnReadRequest: func(paths []string) {
			id := uuid.NewString()
			_ = s.sendToolCallNotification(sid, id, "read_file", map[string]any{"paths": paths})
			_ = s.sendToolResultNotification(sid, id, fmt.Sprintf("sent %d file(s) to the assistant", len(paths)))
		},
		OnAssistantMessage: func(message string) {
			_ = s.sendAgentMessageChunk(sid, message)
		},
		ShouldApplyAction: func(ctx context.Context, action parser.Action, preview string) bool {
			return s.requestPermission(ctx, sid, action, preview)
		},
		OnActionResult: func(result agent.ActionResult) {
			id := uuid.NewString()
			_ = s.sendToolCallNotification(sid, id, string(result.Action.Kind), actionArgs(result.Action))
			_ = s.sendToolResultNotification(sid, id, result.Message)
		},
		OnWarning: func(warning string) {
			s.logger.Warn("agent warning", zap.String("session", sid), zap.String("warning", warning))
		},
	}

	out, err := a.ProcessUserInput(s.ctx, userText, callbacks, active...)
	switch {
	case errors.Is(err, agent.ErrCancelled), err == nil && out.Cancelled:
		_ = s.writeResponseOK(msg.ID, map[string]any{"stopReason": "cancelled"})
	case err != nil:
		s.logger.Warn("prompt failed", zap.String("session", sid), zap.Error(err))
		_ = s.writeResponseError(msg.ID, codeInternalError, "Internal error", err.Error())
	default:
		_ = s.writeResponseOK(msg.ID, map[string]any{"stopReason": "end_turn"})
	}
}

// requestPermission asks the client whether to apply action. Any failure to
// get an answer declines, including ctx being cancelled by session/cancel
// while the client is still deciding.
func (s *acpServer) requestPermission(ctx context.Context, sessionID string, action parser.Action, preview string) bool {
	resp, err := s.call(ctx, "session/request_permission", map[string]any{
		"sessionId": sessionID,
		"toolCall": map[string]any{
			"toolCallId": uuid.NewString(),
			"title":      action.Label(),
			"kind":       "edit",
			"content": []any{
				map[string]any{"type": "content", "content": textContent(preview)},
			},
		},
		"options": []any{
			map[string]any{"optionId": "allow", "name": "Apply", "kind": "allow_once"},
			map[string]any{"optionId": "reject", "name": "Skip", "kind": "reject_once"},
		},
	})
	if err != nil {
		s.logger.Warn("permission request failed", zap.String("action", action.Label()), zap.Error(err))
		return false
	}
	var result struct {
		Outcome struct {
			Outcome  string `json:"outcome"`
			OptionID string `json:"optionId"`
		} `json:"outcome"`
	}
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return false
	}
	return result.Outcome.Outcome == "selected" && result.Outcome.OptionID == "allow"
}

func actionArgs(a parser.Action) map[string]any {
	args := map[string]any{"path": a.Path}
	if a.NewPath != "" {
		args["to"] = a.NewPath
	}
	return args
}

func textContent(text string) map[string]any {
	return map[string]any{"type": "text", "text": text}
}

func (s *acpServer) sendUpdate(sessionID, kind string, fields map[string]any) error {
	update := map[string]any{"sessionUpdate": kind}
	for k, v := range fields {
		update[k] = v
	}
	return s.writeNotification("session/update", map[string]any{
		"sessionId": sessionID,
		"update":    update,
	})
}

// sendToolCallNotification reports a workspace operation to the client.
func (s *acpServer) sendToolCallNotification(sessionID, toolCallID, name string, args map[string]any) error {
	return s.sendUpdate(sessionID, "tool_call", map[string]any{
		"toolCall": map[string]any{
			"id":   toolCallID,
			"name": name,
			"args": args,
		},
	})
}

func (s *acpServer) sendToolResultNotification(sessionID, toolCallID, result string) error {
	return s.sendUpdate(sessionID, "tool_result", map[string]any{
		"toolResult": map[string]any{
			"toolCallId": toolCallID,
			"result":     result,
		},
	})
}

func (s *acpServer) sendAgentMessageChunk(sessionID, text string) error {
	return s.sendUpdate(sessionID, "agent_message_chunk", map[string]any{"content": textContent(text)})
}

func nextSessionID() string {
	return "sess_" + uuid.NewString()
}

// extractUserText joins the text blocks of a prompt. resource_link blocks
// for files inside the vault are returned as active document paths; other
// files are inlined.
func (s *acpServer) extractUserText(blocks []contentBlock) (string, []string) {
	var parts, active []string
	for _, b := range blocks {
		switch b.Type {
		case "text":
			if strings.TrimSpace(b.Text) != "" {
				parts = append(parts, b.Text)
			}
		case "resource_link":
			if p, ok := s.vaultPath(b.URI); ok {
				active = append(active, p)
				continue
			}
			parts = append(parts, describeResource(b))
		default:
			s.logger.Debug("ignoring content block", zap.String("type", b.Type))
		}
	}
	return strings.Join(parts, "\n"), active
}

// vaultPath maps a file:// URI inside the vault to a vault path.
func (s *acpServer) vaultPath(uri string) (string, bool) {
	if s.vaultRoot == "" {
		return "", false
	}
	file, err := filePathFromURI(uri)
	if err != nil {
		return "", false
	}
	rel, err := filepath.Rel(s.vaultRoot, file)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	p := parser.NormalizePath(filepath.ToSlash(rel))
	return p, p != ""
}

func describeResource(b contentBlock) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "=== Resource: %s ===\n", b.Name)
	if b.Title != "" {
		fmt.Fprintf(&sb, "Title: %s\n", b.Title)
	}
	if b.Description != "" {
		fmt.Fprintf(&sb, "Description: %s\n", b.Description)
	}
	fmt.Fprintf(&sb, "URI: %s\n", b.URI)
	if b.MimeType != "" {
		fmt.Fprintf(&sb, "Type: %s\n", b.MimeType)
	}

	if content, err := readFileFromURI(b.URI); err != nil {
		fmt.Fprintf(&sb, "\n[Error reading file: %v]\n", err)
	} else {
		content = prompt.Truncate(content, maxInlineResource, prompt.TruncationMarker)
		fmt.Fprintf(&sb, "\n--- File Contents ---\n%s\n--- End of File ---\n", content)
	}
	sb.WriteString("=== End Resource ===\n")
	return sb.String()
}

func filePathFromURI(uri string) (string, error) {
	parsed, err := url.Parse(uri)
	if err != nil {
		return "", errors.Wrapf(err, "invalid URI")
	}
	if parsed.Scheme != "file" {
		return "", errors.New("unsupported URI scheme: %s", parsed.Scheme)
	}
	return filepath.FromSlash(parsed.Path), nil
}

// readFileFromURI reads the contents of a file:// URI.
func readFileFromURI(uri string) (string, error) {
	file, err := filePathFromURI(uri)
	if err != nil {
		return "", err
	}
	content, err := os.ReadFile(file)
	if err != nil {
		return "", errors.Wrapf(err, "failed to read file")
	}
	return string(content), nil
}
