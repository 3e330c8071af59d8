package agent

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/m4xw311/scribe/prompt"
)

// fetchReads reads every requested path. Missing files and read errors
// become placeholder text so the assistant still gets an answer for each
// request. The only error returned is the context's.
func (a *Agent) fetchReads(ctx context.Context, paths []string) ([]string, error) {
	bodies := make([]string, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, p := range paths {
		g.Go(func() error {
			bodies[i] = a.readOne(gctx, p)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return bodies, nil
}

func (a *Agent) readOne(ctx context.Context, p string) string {
	target, found, err := a.Executor.Resolve(ctx, p)
	if err != nil {
		return fmt.Sprintf("[Error reading %s: %v]", p, err)
	}
	if !found {
		return fmt.Sprintf("[File not found: %s]", p)
	}
	content, err := a.Executor.Store().Read(ctx, target)
	if err != nil {
		a.Logger.Warn("read request failed", zap.String("path", target), zap.Error(err))
		return fmt.Sprintf("[Error reading %s: %v]", p, err)
	}
	return prompt.Truncate(content, a.Config.ReadCharLimit, prompt.TruncationMarker)
}

// readTurn is the user turn that answers a read request.
func readTurn(paths, bodies []string) string {
	var sb strings.Builder
	sb.WriteString("Here are the requested files:")
	for i, p := range paths {
		fmt.Fprintf(&sb, "\n\n=== %s ===\n%s", p, bodies[i])
	}
	return sb.String()
}
