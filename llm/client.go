// Package llm is the assistant client used by the agent. The only backend
// is the assistant CLI driven through the runner package.
package llm

import (
	"context"
	stderrors "errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/m4xw311/scribe/logging"
	"github.com/m4xw311/scribe/runner"
)

// ErrCancelled is returned by Complete when the context was cancelled while
// the assistant was running. It wraps runner.ErrKilled.
var ErrCancelled = fmt.Errorf("assistant cancelled: %w", runner.ErrKilled)

// Client produces one assistant response for a prompt. onChunk receives the
// response incrementally, in order. After Complete returns it is only called
// for a chunk that was already being delivered when ctx was cancelled.
type Client interface {
	Complete(ctx context.Context, prompt string, onChunk func(string)) (string, error)
}

// CLIClient runs the assistant CLI once per Complete call.
type CLIClient struct {
	Driver     *runner.Driver
	Executable string
	Model      string
	WorkDir    string
	Logger     *zap.Logger
}

func (c *CLIClient) Complete(ctx context.Context, prompt string, onChunk func(string)) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", ErrCancelled
	}
	proc, err := c.Driver.Start(runner.Request{
		Executable: c.Executable,
		Prompt:     prompt,
		Model:      c.Model,
		WorkDir:    c.WorkDir,
		OnChunk:    onChunk,
	})
	if err != nil {
		return "", err
	}

	select {
	case <-proc.Done():
	case <-ctx.Done():
		// The runner reaps the child in the background; a CLI that is slow
		// to exit must not hold up the caller.
		logging.OrNop(c.Logger).Debug("cancelling assistant", zap.String("process", proc.ID()))
		proc.Kill()
		return "", ErrCancelled
	}

	text, err := proc.Wait()
	if stderrors.Is(err, runner.ErrKilled) {
		return "", ErrCancelled
	}
	return text, err
}
