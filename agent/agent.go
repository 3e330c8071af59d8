package agent

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/m4xw311/scribe/config"
	"github.com/m4xw311/scribe/errors"
	"github.com/m4xw311/scribe/llm"
	"github.com/m4xw311/scribe/logging"
	"github.com/m4xw311/scribe/parser"
	"github.com/m4xw311/scribe/prompt"
	"github.com/m4xw311/scribe/session"
	"github.com/m4xw311/scribe/workspace"
)

// ErrCancelled is returned by ProcessUserInput when the request was
// cancelled before the answer was final.
var ErrCancelled = llm.ErrCancelled

// ErrBusy is returned when ProcessUserInput is called while another request
// is still running on the same agent.
var ErrBusy = errors.New("a request is already in progress")

// ProcessCallbacks lets a host observe a request. Every field is optional.
type ProcessCallbacks struct {
	// OnChunk receives the assistant's output as it streams, for every
	// round including ones that end in a read request.
	OnChunk func(text string)
	// OnReadRequest is called when the assistant asked for files and they
	// are about to be sent back.
	OnReadRequest func(paths []string)
	// OnAssistantMessage receives the final answer with all tags removed.
	OnAssistantMessage func(message string)
	// ShouldApplyAction is consulted in prompt mode. A nil func declines
	// every action. ctx is cancelled when the request is, and an answer
	// given after that is ignored.
	ShouldApplyAction func(ctx context.Context, action parser.Action, preview string) bool
	OnActionResult    func(result ActionResult)
	OnWarning         func(warning string)
	OnError           func(err error)
}

// ActionResult describes what happened to one workspace action.
type ActionResult struct {
	Action  parser.Action
	Message string
	// Applied is false when the action was declined.
	Applied bool
	// Failed is set when applying the action returned an error.
	Failed bool
}

// Outcome summarizes a completed request.
type Outcome struct {
	Text        string
	Invocations int
	ReadRounds  int
	Actions     []ActionResult
	// Cancelled is set when the request was cancelled while its actions
	// were being confirmed. The remaining actions were skipped.
	Cancelled bool
}

// Agent holds one conversation with the assistant.
type Agent struct {
	Config       *config.Config
	Conversation *session.Conversation
	Client       llm.Client
	Executor     *workspace.Executor
	Builder      *prompt.Builder
	Mode         config.Mode
	Logger       *zap.Logger

	running atomic.Bool
	mu      sync.Mutex
	cancel  context.CancelFunc
	pinned  []string
}

// New creates an agent with an empty conversation.
func New(cfg *config.Config, client llm.Client, executor *workspace.Executor, logger *zap.Logger) *Agent {
	return &Agent{
		Config:       cfg,
		Conversation: session.New("default"),
		Client:       client,
		Executor:     executor,
		Builder: &prompt.Builder{
			Preamble:         prompt.DefaultPreamble,
			ListingLimit:     cfg.ListingLimit,
			ContextCharLimit: cfg.ContextCharLimit,
		},
		Mode:   cfg.Mode,
		Logger: logging.OrNop(logger).Named("agent"),
	}
}

// ProcessUserInput sends input to the assistant and runs the read loop to
// completion. active names documents the host has open; together with the
// pinned documents they are included in every prompt when
// Config.IncludeContext is set.
//
// On cancellation the conversation keeps the turns committed so far and no
// action is applied. When the assistant fails, every turn this call added is
// removed again.
func (a *Agent) ProcessUserInput(ctx context.Context, input string, cb ProcessCallbacks, active ...string) (*Outcome, error) {
	if !a.running.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer a.running.Store(false)

	ctx, cancel := context.WithCancel(ctx)
	a.setCancel(cancel)
	defer func() {
		a.setCancel(nil)
		cancel()
	}()

	base := a.Conversation.Len()
	a.Conversation.AddTurn(session.RoleUser, input)

	out := &Outcome{}
	var (
		promptText string
		response   string
		visible    string
		reads      []string
	)
	st := statePrompting
	for {
		a.Logger.Debug("state", zap.Stringer("state", st), zap.Int("invocations", out.Invocations))
		switch st {
		case statePrompting:
			promptText = a.buildPrompt(ctx, cb, active)
			out.Invocations++
			st = stateStreaming

		case stateStreaming:
			var err error
			response, err = a.Client.Complete(ctx, promptText, func(text string) {
				if ctx.Err() == nil && cb.OnChunk != nil {
					cb.OnChunk(text)
				}
			})
			if errors.Is(err, llm.ErrCancelled) || ctx.Err() != nil {
				st = stateCancelled
				continue
			}
			if err != nil {
				a.Logger.Warn("assistant failed", zap.Error(err))
				a.Conversation.Rewind(base)
				if cb.OnError != nil {
					cb.OnError(err)
				}
				return nil, err
			}
			st = stateDeciding

		case stateDeciding:
			visible, reads = parser.ExtractReadRequests(response)
			switch {
			case len(reads) == 0:
				st = stateFinalized
			case out.Invocations >= a.maxRounds():
				a.Logger.Info("read budget exhausted", zap.Int("invocations", out.Invocations), zap.Strings("ignored", reads))
				if cb.OnWarning != nil {
					cb.OnWarning("read request limit reached; answering without the requested files")
				}
				st = stateFinalized
			default:
				st = stateReading
			}

		case stateReading:
			if cb.OnReadRequest != nil {
				cb.OnReadRequest(reads)
			}
			bodies, err := a.fetchReads(ctx, reads)
			if err != nil {
				st = stateCancelled
				continue
			}
			a.Conversation.AddTurn(session.RoleAssistant, visible)
			a.Conversation.AddTurn(session.RoleUser, readTurn(reads, bodies))
			out.ReadRounds++
			st = statePrompting

		case stateFinalized:
			return a.finalize(ctx, visible, cb, out), nil

		case stateCancelled:
			a.Logger.Info("request cancelled", zap.Int("invocations", out.Invocations))
			return nil, ErrCancelled
		}
	}
}

func (a *Agent) maxRounds() int {
	if a.Config.MaxReadRounds <= 0 {
		return 1
	}
	return a.Config.MaxReadRounds
}

func (a *Agent) finalize(ctx context.Context, text string, cb ProcessCallbacks, out *Outcome) *Outcome {
	text, actions := parser.ExtractActions(text)
	out.Text = text
	a.Conversation.AddTurn(session.RoleAssistant, text)
	if cb.OnAssistantMessage != nil {
		cb.OnAssistantMessage(text)
	}

	for _, action := range actions {
		var result ActionResult
		if ctx.Err() != nil {
			result = ActionResult{Action: action, Message: "Skipped: " + action.Label()}
		} else {
			result = a.applyAction(ctx, action, cb)
		}
		out.Actions = append(out.Actions, result)
		if cb.OnActionResult != nil {
			cb.OnActionResult(result)
		}
	}
	if len(actions) > 0 && ctx.Err() != nil {
		a.Logger.Info("request cancelled while applying actions")
		out.Cancelled = true
	}
	return out
}

func (a *Agent) applyAction(ctx context.Context, action parser.Action, cb ProcessCallbacks) ActionResult {
	if a.Mode != config.ModeAuto {
		preview, err := a.Executor.Preview(ctx, action)
		if err != nil {
			preview = action.Label()
		}
		if cb.ShouldApplyAction == nil || !cb.ShouldApplyAction(ctx, action, preview) || ctx.Err() != nil {
			return ActionResult{Action: action, Message: "Skipped: " + action.Label()}
		}
	}
	msg, ok := a.Executor.ApplySafely(ctx, action)
	return ActionResult{Action: action, Message: msg, Applied: ok, Failed: !ok}
}

func (a *Agent) buildPrompt(ctx context.Context, cb ProcessCallbacks, active []string) string {
	paths, err := a.Executor.Store().ListPaths(ctx)
	if err != nil {
		a.warn(cb, "could not list workspace files: "+err.Error())
	}

	var docs []prompt.Document
	if a.Config.IncludeContext {
		docs = a.contextDocuments(ctx, cb, active)
	}

	turns := a.Conversation.Turns()
	return a.Builder.Build(prompt.Input{
		Paths:     paths,
		Documents: docs,
		History:   turns[:len(turns)-1],
		Newest:    turns[len(turns)-1],
	})
}

// contextDocuments reads the pinned documents followed by the active ones,
// skipping duplicates and files that cannot be read.
func (a *Agent) contextDocuments(ctx context.Context, cb ProcessCallbacks, active []string) []prompt.Document {
	seen := make(map[string]bool)
	var docs []prompt.Document
	for _, p := range append(a.Pinned(), active...) {
		p = parser.NormalizePath(p)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		target, found, err := a.Executor.Resolve(ctx, p)
		if err != nil || !found {
			a.warn(cb, "context document not available: "+p)
			continue
		}
		content, err := a.Executor.Store().Read(ctx, target)
		if err != nil {
			a.warn(cb, "could not read context document "+p+": "+err.Error())
			continue
		}
		docs = append(docs, prompt.Document{Path: target, Content: content})
	}
	return docs
}

func (a *Agent) warn(cb ProcessCallbacks, msg string) {
	a.Logger.Warn(msg)
	if cb.OnWarning != nil {
		cb.OnWarning(msg)
	}
}

// Running reports whether a request is in progress.
func (a *Agent) Running() bool { return a.running.Load() }

// Cancel stops the request in progress, killing the assistant process if
// one is running. It is a no-op when the agent is idle.
func (a *Agent) Cancel() {
	a.mu.Lock()
	cancel := a.cancel
	a.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (a *Agent) setCancel(cancel context.CancelFunc) {
	a.mu.Lock()
	a.cancel = cancel
	a.mu.Unlock()
}

// Reset starts a new conversation. Pinned documents are kept.
func (a *Agent) Reset() {
	a.Conversation.Reset()
}

// Pin adds p to the documents sent with every prompt.
func (a *Agent) Pin(p string) {
	p = parser.NormalizePath(p)
	if p == "" {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, existing := range a.pinned {
		if existing == p {
			return
		}
	}
	a.pinned = append(a.pinned, p)
}

// Unpin removes p from the pinned documents and reports whether it was there.
func (a *Agent) Unpin(p string) bool {
	p = parser.NormalizePath(p)
	a.mu.Lock()
	defer a.mu.Unlock()
	for i, existing := range a.pinned {
		if existing == p {
			a.pinned = append(a.pinned[:i], a.pinned[i+1:]...)
			return true
		}
	}
	return false
}

// Pinned returns the pinned documents in the order they were pinned.
func (a *Agent) Pinned() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.pinned...)
}
