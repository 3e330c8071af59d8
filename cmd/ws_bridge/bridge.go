package main

import (
	"bufio"
	"context"
	"io"
	"net/http"
	"os/exec"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const maxLineSize = 16 << 20

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// bridge relays one websocket connection to a fresh agent process.
type bridge struct {
	command []string
	logger  *zap.Logger
}

func (b *bridge) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.logger.Warn("upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	// The agent lives exactly as long as the connection.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cmd := exec.CommandContext(ctx, b.command[0], b.command[1:]...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		b.logger.Warn("stdin pipe", zap.Error(err))
		return
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		b.logger.Warn("stdout pipe", zap.Error(err))
		return
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		b.logger.Warn("stderr pipe", zap.Error(err))
		return
	}
	if err := cmd.Start(); err != nil {
		b.logger.Warn("agent failed to start", zap.Strings("command", b.command), zap.Error(err))
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "agent failed to start"))
		return
	}
	log := b.logger.With(zap.Int("pid", cmd.Process.Pid), zap.String("remote", r.RemoteAddr))
	log.Info("agent started")

	// Agent stdout → websocket. This goroutine is the only writer. After a
	// failed write it keeps draining so the agent never blocks on a full pipe.
	stdoutDone := make(chan struct{})
	go func() {
		defer close(stdoutDone)
		scanner := bufio.NewScanner(stdout)
		scanner.Buffer(make([]byte, 64*1024), maxLineSize)
		var writeErr error
		for scanner.Scan() {
			if writeErr != nil {
				continue
			}
			if writeErr = conn.WriteMessage(websocket.TextMessage, scanner.Bytes()); writeErr != nil {
				log.Debug("websocket write failed", zap.Error(writeErr))
			}
		}
		if err := scanner.Err(); err != nil {
			log.Warn("agent stdout unreadable", zap.Error(err))
			_, _ = io.Copy(io.Discard, stdout)
		}
		if writeErr == nil {
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "agent exited"))
		}
	}()

	// Agent stderr → log.
	stderrDone := make(chan struct{})
	go func() {
		defer close(stderrDone)
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			log.Info("agent stderr", zap.String("line", scanner.Text()))
		}
	}()

	// Websocket → agent stdin.
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			log.Debug("websocket closed", zap.Error(err))
			break
		}
		if _, err := stdin.Write(append(msg, '\n')); err != nil {
			log.Debug("stdin write failed", zap.Error(err))
			break
		}
	}

	// Closing stdin lets the agent finish on its own; cancel covers the
	// rest when the handler returns.
	stdin.Close()
	<-stdoutDone
	<-stderrDone
	err = cmd.Wait()
	log.Info("agent stopped", zap.Error(err))
}
