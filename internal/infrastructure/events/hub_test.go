package events

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"ortho-scan/internal/domain/entity"
)

func newTestHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r, r.URL.Query().Get("session"))
	}))
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, session string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?session=" + session
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHub_DeliversToSessionOnly(t *testing.T) {
	hub, srv := newTestHub(t)

	mine := dial(t, srv, "s1")
	other := dial(t, srv, "s2")
	require.Eventually(t, func() bool { return hub.ClientCount() == 2 }, time.Second, 10*time.Millisecond)

	hub.Publish(entity.ScanEvent{Type: entity.EventReportGenerated, SessionID: "s1", Report: "report_1.pdf"})

	var got map[string]any
	mine.SetReadDeadline(time.Now().Add(time.Second))
	require.NoError(t, mine.ReadJSON(&got))
	require.Equal(t, "report_generated", got["type"])
	require.Equal(t, "report_1.pdf", got["report"])
	require.NotContains(t, got, "SessionID")

	other.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err := other.ReadMessage()
	require.Error(t, err, "other session must not receive the event")
}

func TestHub_UnregistersOnClose(t *testing.T) {
	hub, srv := newTestHub(t)

	conn := dial(t, srv, "s1")
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	conn.Close()
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 10*time.Millisecond)
}

func TestHub_PublishDoesNotBlockWithoutRun(t *testing.T) {
	hub := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	for i := 0; i < broadcastSize+10; i++ {
		hub.Publish(entity.ScanEvent{Type: entity.EventScanProcessed, SessionID: "s"})
	}
	require.Len(t, hub.broadcast, broadcastSize)
}

func serveUntilReturn(hub *Hub) (*httptest.Server, <-chan struct{}) {
	served := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer close(served)
		hub.ServeWS(w, r, "s1")
	}))
	return srv, served
}

func TestHub_ServeWSReturnsAfterRunStopped(t *testing.T) {
	hub := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	hub.Run(ctx)

	srv, served := serveUntilReturn(hub)
	defer srv.Close()
	dial(t, srv, "s1")

	select {
	case <-served:
	case <-time.After(time.Second):
		t.Fatal("ServeWS blocked on register after hub stopped")
	}
}

func TestHub_ServeWSReturnsOnShutdown(t *testing.T) {
	hub := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	srv, served := serveUntilReturn(hub)
	defer srv.Close()
	dial(t, srv, "s1")
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-served:
	case <-time.After(time.Second):
		t.Fatal("ServeWS blocked on unregister after hub stopped")
	}
	require.Zero(t, hub.ClientCount())
}
