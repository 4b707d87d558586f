package notify_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/JaimeStill/tally/internal/documents"
	"github.com/JaimeStill/tally/internal/notify"
	"github.com/JaimeStill/tally/pkg/middleware"
)

func newHub() *notify.Hub {
	return notify.NewHub(nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func dial(t *testing.T, srv *httptest.Server, requester string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	header := http.Header{}
	header.Set(middleware.HeaderRequesterID, requester)

	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitConnected(t *testing.T, hub *notify.Hub, requester string, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.Connections(requester) != n {
		if time.Now().After(deadline) {
			t.Fatalf("connections for %s: got %d, want %d", requester, hub.Connections(requester), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHubDeliversToRequester(t *testing.T) {
	hub := newHub()
	srv := httptest.NewServer(middleware.HeaderIdentity()(http.HandlerFunc(hub.ServeWS)))
	defer srv.Close()

	conn := dial(t, srv, "alice")
	waitConnected(t, hub, "alice", 1)

	own := uuid.New()
	hub.Notify(context.Background(), notify.Event{
		DocumentID:  uuid.New(),
		RequesterID: "bob",
		Status:      documents.StatusClassifying,
	})
	hub.Notify(context.Background(), notify.Event{
		DocumentID:  own,
		RequesterID: "alice",
		Status:      documents.StatusAnalyzed,
		Progress:    100,
		Terminal:    true,
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}

	var got struct {
		ID       uuid.UUID `json:"id"`
		Status   string    `json:"status"`
		Progress int       `json:"progress"`
		Terminal bool      `json:"terminal"`
	}
	if err := json.Unmarshal(msg, &got); err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if got.ID != own {
		t.Errorf("received another requester's event: %s", got.ID)
	}
	if got.Status != "Analyzed" || got.Progress != 100 || !got.Terminal {
		t.Errorf("event: got %+v", got)
	}
}

func TestHubUnregistersOnDisconnect(t *testing.T) {
	hub := newHub()
	srv := httptest.NewServer(middleware.HeaderIdentity()(http.HandlerFunc(hub.ServeWS)))
	defer srv.Close()

	conn := dial(t, srv, "alice")
	waitConnected(t, hub, "alice", 1)

	conn.Close()
	waitConnected(t, hub, "alice", 0)
}

func TestServeWSRequiresIdentity(t *testing.T) {
	hub := newHub()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/notifications/ws", nil)
	hub.ServeWS(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestDiscard(t *testing.T) {
	notify.Discard.Notify(context.Background(), notify.Event{RequesterID: "alice"})
}
