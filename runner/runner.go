package runner

import (
	"bytes"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/m4xw311/scribe/errors"
	"github.com/m4xw311/scribe/logging"
)

// NestedSessionEnv is set by the assistant CLI in its own children. It is
// stripped from the child environment, otherwise the CLI refuses to start
// because it believes it is running inside itself.
const NestedSessionEnv = "CLAUDECODE"

const readBufferSize = 4096

// DefaultKillGrace is how long a killed process gets to exit after SIGTERM
// before it is sent SIGKILL.
const DefaultKillGrace = 3 * time.Second

// Request describes one invocation of the assistant CLI.
type Request struct {
	Executable string
	Prompt     string
	// Model is passed as --model when set.
	Model   string
	WorkDir string
	// OnChunk receives decoded stdout fragments in the order they were
	// written. It is called from the process's reader goroutine.
	OnChunk func(text string)
}

// Args returns the command line arguments for the assistant CLI. The prompt
// itself travels over stdin.
func Args(model string) []string {
	args := []string{"-p", "--output-format", "text"}
	if model != "" {
		args = append(args, "--model", model)
	}
	return args
}

// Driver starts assistant processes and registers them while they run.
type Driver struct {
	registry  *Registry
	logger    *zap.Logger
	environ   func() []string
	killGrace time.Duration
}

// NewDriver creates a Driver that records live processes in registry.
func NewDriver(registry *Registry, logger *zap.Logger) *Driver {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Driver{
		registry: registry,
		logger:   logging.OrNop(logger).Named("runner"),
		environ:   os.Environ,
		killGrace: DefaultKillGrace,
	}
}

// WithKillGrace sets how long Kill waits for the process to exit before
// forcing it, and returns d.
func (d *Driver) WithKillGrace(grace time.Duration) *Driver {
	d.killGrace = grace
	return d
}

// Registry returns the registry the driver records processes in.
func (d *Driver) Registry() *Registry { return d.registry }

// Start spawns the executable described by req. Output is streamed to
// req.OnChunk; the final outcome is available from Process.Wait.
func (d *Driver) Start(req Request) (*Process, error) {
	cmd := exec.Command(req.Executable, Args(req.Model)...)
	cmd.Dir = req.WorkDir
	cmd.Env = withoutVar(d.environ(), NestedSessionEnv)
	// exec copies a non-file Stdin in a goroutine and closes the pipe once
	// the whole prompt is written.
	cmd.Stdin = strings.NewReader(req.Prompt)
	setProcessGroup(cmd)

	p := &Process{
		id:        uuid.NewString(),
		cmd:       cmd,
		registry:  d.registry,
		onChunk:   req.OnChunk,
		killGrace: d.killGrace,
		done:      make(chan struct{}),
		started:   time.Now(),
	}
	p.logger = d.logger.With(zap.String("process", p.id))
	cmd.Stderr = &p.stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.Wrapf(err, "could not create stdout pipe")
	}
	if err := cmd.Start(); err != nil {
		d.logger.Warn("spawn failed", zap.String("executable", req.Executable), zap.Error(err))
		return nil, &SpawnError{Executable: req.Executable, Err: err}
	}

	d.registry.Register(p)
	p.logger.Debug("process started",
		zap.String("executable", req.Executable),
		zap.Int("pid", cmd.Process.Pid),
		zap.Int("prompt_bytes", len(req.Prompt)))

	go p.run(stdout)
	return p, nil
}

// Process is a handle on one running assistant invocation.
type Process struct {
	id        string
	cmd       *exec.Cmd
	registry  *Registry
	onChunk   func(string)
	logger    *zap.Logger
	started   time.Time
	killGrace time.Duration

	stderr bytes.Buffer
	killed atomic.Bool

	done chan struct{}
	mu   sync.Mutex
	text string
	err  error
}

// ID returns the unique handle identifier.
func (p *Process) ID() string { return p.id }

// Done is closed once the process has terminated and its outcome is known.
func (p *Process) Done() <-chan struct{} { return p.done }

// Wait blocks until the process terminates and returns the accumulated stdout
// or the classified failure.
func (p *Process) Wait() (string, error) {
	<-p.done
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.text, p.err
}

// Kill terminates the process and returns without waiting for it to exit.
// It is a no-op once the process has already terminated or been killed. The
// handle leaves the registry immediately, and no chunk is delivered after
// Kill returns unless it was already being delivered. A process still
// running after the kill grace period is sent SIGKILL.
func (p *Process) Kill() {
	select {
	case <-p.done:
		return
	default:
	}
	if !p.killed.CompareAndSwap(false, true) {
		return
	}
	p.registry.Unregister(p)
	if err := terminate(p.cmd); err != nil {
		p.logger.Warn("terminate failed", zap.Error(err))
	}
	p.logger.Debug("process killed")
	go p.forceAfterGrace()
}

func (p *Process) forceAfterGrace() {
	timer := time.NewTimer(p.killGrace)
	defer timer.Stop()
	select {
	case <-p.done:
	case <-timer.C:
		p.logger.Warn("process survived SIGTERM, sending SIGKILL", zap.Duration("grace", p.killGrace))
		if err := forceKill(p.cmd); err != nil {
			p.logger.Warn("force kill failed", zap.Error(err))
		}
	}
}

func (p *Process) run(stdout io.Reader) {
	var out strings.Builder
	// The decoder holds back an incomplete UTF-8 sequence until the rest of
	// it arrives, so a chunk never ends in half a rune.
	decoded := transform.NewReader(stdout, unicode.UTF8.NewDecoder())
	buf := make([]byte, readBufferSize)
	for {
		n, err := decoded.Read(buf)
		if n > 0 && !p.killed.Load() {
			chunk := string(buf[:n])
			out.WriteString(chunk)
			if p.onChunk != nil {
				p.onChunk(chunk)
			}
		}
		if err != nil {
			if err != io.EOF {
				p.logger.Debug("stdout read ended", zap.Error(err))
			}
			break
		}
	}

	waitErr := p.cmd.Wait()
	text, err := p.classify(out.String(), waitErr)

	p.registry.Unregister(p)
	p.mu.Lock()
	p.text, p.err = text, err
	p.mu.Unlock()

	p.logger.Debug("process finished",
		zap.Duration("duration", time.Since(p.started)),
		zap.Int("stdout_bytes", len(text)),
		zap.Bool("killed", p.killed.Load()),
		zap.Error(err))
	close(p.done)
}

func (p *Process) classify(stdout string, waitErr error) (string, error) {
	if p.killed.Load() {
		return "", ErrKilled
	}
	if waitErr == nil {
		return stdout, nil
	}

	var exitErr *exec.ExitError
	if !errors.As(waitErr, &exitErr) {
		return "", errors.Wrapf(waitErr, "waiting for assistant process")
	}
	// Assistant CLIs print warnings and exit 1 while still producing a valid
	// answer, so any stdout wins over the exit code.
	if stdout != "" {
		p.logger.Info("non-zero exit with output treated as success",
			zap.Int("exit_code", exitErr.ExitCode()),
			zap.String("stderr", strings.TrimSpace(p.stderr.String())))
		return stdout, nil
	}
	return "", &ExitError{
		Code:   exitErr.ExitCode(),
		Stderr: strings.TrimSpace(p.stderr.String()),
	}
}

func withoutVar(env []string, name string) []string {
	prefix := name + "="
	out := make([]string, 0, len(env))
	for _, kv := range env {
		if strings.HasPrefix(kv, prefix) {
			continue
		}
		out = append(out, kv)
	}
	return out
}
