package livereload

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dial(t *testing.T, ctx context.Context, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + Path
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func read(t *testing.T, ctx context.Context, conn *websocket.Conn) Message {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	_, data, err := conn.Read(readCtx)
	require.NoError(t, err)

	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func startHub(t *testing.T) (*Hub, *httptest.Server, context.Context) {
	t.Helper()
	hub := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	mux := http.NewServeMux()
	mux.Handle(Path, hub)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return hub, srv, ctx
}

func TestHubNotifiesRoutes(t *testing.T) {
	hub, srv, ctx := startHub(t)
	conn := dial(t, ctx, srv)

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.Notify(false, []string{"/docs"})
	msg := read(t, ctx, conn)
	assert.Equal(t, TypeReload, msg.Type)
	assert.Equal(t, "/docs", msg.Route)
	assert.False(t, msg.Timestamp.IsZero())

	hub.Notify(true, []string{"/ignored"})
	msg = read(t, ctx, conn)
	assert.Equal(t, TypeFullReload, msg.Type)
	assert.Empty(t, msg.Route)
}

func TestHubUnregistersClosedClients(t *testing.T) {
	hub, srv, ctx := startHub(t)
	conn := dial(t, ctx, srv)

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, conn.Close(websocket.StatusNormalClosure, "bye"))
	assert.Eventually(t, func() bool { return hub.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHubRejectsForeignOrigin(t *testing.T) {
	_, srv, _ := startHub(t)

	req, err := http.NewRequest(http.MethodGet, srv.URL+Path, nil)
	require.NoError(t, err)
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")
	req.Header.Set("Sec-WebSocket-Version", "13")
	req.Header.Set("Sec-WebSocket-Key", "dGhlIHNhbXBsZSBub25jZQ==")
	req.Header.Set("Origin", "http://evil.example")

	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusForbidden, res.StatusCode)
}

func TestServeScript(t *testing.T) {
	hub := NewHub(nil)
	rec := httptest.NewRecorder()
	hub.ServeScript(rec, httptest.NewRequest(http.MethodGet, ScriptPath, nil))

	assert.Equal(t, "text/javascript; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), Path)
}
