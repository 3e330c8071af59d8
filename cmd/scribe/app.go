package main

import (
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/m4xw311/scribe/agent"
	"github.com/m4xw311/scribe/config"
	"github.com/m4xw311/scribe/errors"
	"github.com/m4xw311/scribe/llm"
	"github.com/m4xw311/scribe/logging"
	"github.com/m4xw311/scribe/runner"
	"github.com/m4xw311/scribe/workspace"
)

// app is everything a subcommand needs, built from config and flags.
type app struct {
	cfg       *config.Config
	vaultRoot string
	logger    *zap.Logger
	driver    *runner.Driver
	executor  *workspace.Executor

	closeOnce sync.Once
}

// current is the app of the running command, shut down on exit and on
// signals so no assistant process outlives scribe.
var current = &appRef{}

type appRef struct {
	mu  sync.Mutex
	app *app
	// onInterrupt, when set, handles Ctrl-C and reports whether it did.
	onInterrupt func() bool
}

func (r *appRef) setInterrupt(f func() bool) {
	r.mu.Lock()
	r.onInterrupt = f
	r.mu.Unlock()
}

func (r *appRef) interrupt() bool {
	r.mu.Lock()
	f := r.onInterrupt
	r.mu.Unlock()
	return f != nil && f()
}

func (r *appRef) set(a *app) {
	r.mu.Lock()
	r.app = a
	r.mu.Unlock()
}

func (r *appRef) shutdown() {
	r.mu.Lock()
	a := r.app
	r.mu.Unlock()
	if a != nil {
		a.close()
	}
}

func newApp() (*app, error) {
	root := vaultFlag
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, errors.Wrapf(err, "could not get working directory")
		}
		root = wd
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Wrapf(err, "could not resolve vault path")
	}

	cfg, err := config.LoadConfig(root)
	if err != nil {
		return nil, err
	}
	if exeFlag != "" {
		cfg.Executable = exeFlag
	}
	if modelFlag != "" {
		cfg.Model = modelFlag
	}
	if modeFlag != "" {
		cfg.Mode = config.Mode(modeFlag)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Log, root, verboseFlag)
	if err != nil {
		return nil, err
	}
	store, err := workspace.NewDirStore(root, cfg.DocumentExtension)
	if err != nil {
		return nil, err
	}
	guard, err := workspace.NewGuard(store, cfg.FilesystemAccess)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:       cfg,
		vaultRoot: root,
		logger:    logger,
		driver:    runner.NewDriver(runner.NewRegistry(), logger),
		executor:  workspace.NewExecutor(guard, cfg.DocumentExtension, logger),
	}
	logger.Info("scribe starting",
		zap.String("version", version),
		zap.String("vault", root),
		zap.String("executable", cfg.Executable),
		zap.String("mode", string(cfg.Mode)))
	current.set(a)
	return a, nil
}

// newAgent returns an agent with its own conversation. All agents share the
// driver, so shutdown reaches every process they started.
func (a *app) newAgent() *agent.Agent {
	client := &llm.CLIClient{
		Driver:     a.driver,
		Executable: a.cfg.Executable,
		Model:      a.cfg.Model,
		WorkDir:    a.vaultRoot,
		Logger:     a.logger,
	}
	return agent.New(a.cfg, client, a.executor, a.logger)
}

func (a *app) close() {
	a.closeOnce.Do(func() {
		if n := a.driver.Registry().Len(); n > 0 {
			a.logger.Info("killing live assistant processes", zap.Int("count", n))
		}
		a.driver.Registry().KillAll()
		_ = a.logger.Sync()
	})
}
