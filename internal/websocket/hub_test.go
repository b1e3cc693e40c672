package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Priya8975/harmony-node/internal/events"
)

func setupTestHub(t *testing.T) *Hub {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	hub := NewHub(logger)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

func connectWS(t *testing.T, hub *Hub, organizationID int64) (*websocket.Conn, func()) {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.Serve(w, r, organizationID)
	}))
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	dialer := websocket.Dialer{}
	conn, _, err := dialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("failed to connect WebSocket: %v", err)
	}

	cleanup := func() {
		conn.Close()
		server.Close()
	}

	return conn, cleanup
}

func outcome(eventID string, requestor, requestee int64) events.LegOutcome {
	return events.LegOutcome{
		EventID:                 eventID,
		Source:                  "https://a.example/2/events",
		Type:                    "org.wbcsd.pathfinder.Contract.Request.v1",
		RequestorOrganizationID: requestor,
		RequesteeOrganizationID: requestee,
		Status:                  events.StatusDelivered,
		DurationMs:              42,
	}
}

func TestHub_ClientConnects(t *testing.T) {
	hub := setupTestHub(t)

	conn, cleanup := connectWS(t, hub, 1)
	defer cleanup()

	// Give the hub time to register the client
	time.Sleep(50 * time.Millisecond)

	if count := hub.ClientCount(); count != 1 {
		t.Errorf("expected 1 client, got %d", count)
	}

	conn.Close()
	time.Sleep(50 * time.Millisecond)

	if count := hub.ClientCount(); count != 0 {
		t.Errorf("expected 0 clients after disconnect, got %d", count)
	}
}

func TestHub_LegReachesBothParties(t *testing.T) {
	hub := setupTestHub(t)

	requestor, cleanup1 := connectWS(t, hub, 1)
	defer cleanup1()
	requestee, cleanup2 := connectWS(t, hub, 2)
	defer cleanup2()

	time.Sleep(50 * time.Millisecond)

	hub.LegCompleted(outcome("evt-123", 1, 2))

	for i, conn := range []*websocket.Conn{requestor, requestee} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, message, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("client %d failed to read: %v", i+1, err)
		}

		var msg LegMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			t.Fatalf("client %d: decode: %v", i+1, err)
		}
		if msg.Type != MessageContractLeg || msg.EventID != "evt-123" || msg.Status != events.StatusDelivered {
			t.Errorf("client %d: unexpected message %s", i+1, message)
		}
	}
}

func TestHub_OtherOrganizationsSeeNothing(t *testing.T) {
	hub := setupTestHub(t)

	bystander, cleanup := connectWS(t, hub, 3)
	defer cleanup()
	party, cleanup2 := connectWS(t, hub, 1)
	defer cleanup2()

	time.Sleep(50 * time.Millisecond)

	hub.LegCompleted(outcome("evt-private", 1, 2))
	hub.LegCompleted(outcome("evt-visible", 3, 2))

	bystander.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, message, err := bystander.ReadMessage()
	if err != nil {
		t.Fatalf("failed to read: %v", err)
	}
	if !strings.Contains(string(message), "evt-visible") {
		t.Errorf("bystander received a leg it is not part of: %s", message)
	}

	party.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, message, err = party.ReadMessage(); err != nil || !strings.Contains(string(message), "evt-private") {
		t.Errorf("party did not receive its leg: %s (%v)", message, err)
	}
}

func TestHub_ClientCountStartsAtZero(t *testing.T) {
	hub := setupTestHub(t)

	if count := hub.ClientCount(); count != 0 {
		t.Errorf("expected 0 clients initially, got %d", count)
	}
}

func TestHub_RunStopsWithContext(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	hub := NewHub(logger)
	ctx, cancel := context.WithCancel(context.Background())

	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	conn, cleanup := connectWS(t, hub, 1)
	defer cleanup()
	time.Sleep(50 * time.Millisecond)

	cancel()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("hub did not stop")
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("expected the connection to be closed")
	}
	if count := hub.ClientCount(); count != 0 {
		t.Errorf("expected 0 clients after stop, got %d", count)
	}
}
