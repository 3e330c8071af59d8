package main

import (
	"net/http/httptest"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func dial(t *testing.T, command ...string) *websocket.Conn {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("uses POSIX commands")
	}
	srv := httptest.NewServer(&bridge{command: command, logger: zap.NewNop()})
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	return conn
}

func TestBridgeRelaysLines(t *testing.T) {
	conn := dial(t, "cat")

	for _, line := range []string{`{"jsonrpc":"2.0","id":1,"method":"initialize"}`, `{"id":2}`} {
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(line)))
		_, got, err := conn.ReadMessage()
		require.NoError(t, err)
		assert.Equal(t, line, string(got))
	}
}

func TestBridgeClosesWhenAgentExits(t *testing.T) {
	conn := dial(t, "sh", "-c", "echo ready")

	_, got, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "ready", string(got))

	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}

func TestBridgeReportsStartFailure(t *testing.T) {
	conn := dial(t, "/nonexistent/agent")

	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseInternalServerErr), "got %v", err)
}
