package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Ananthan-A-K/ResQ/internal/discovery"
	"github.com/Ananthan-A-K/ResQ/internal/store"
	"gorm.io/gorm"
)

type fakeEngine struct {
	db        *gorm.DB
	published []store.Message
}

func (f *fakeEngine) NodeID() string { return "node-test" }
func (f *fakeEngine) Label() string  { return "TestNode" }

func (f *fakeEngine) Publish(kind, destID, payload string) (store.Message, error) {
	now := time.Now()
	msg := store.Message{
		ID: "pub-1", OriginID: f.NodeID(), Kind: kind, DestID: destID,
		Payload: payload, CreatedAt: now, ReceivedAt: now, TTL: 6,
	}
	f.published = append(f.published, msg)
	_, err := store.InsertIfAbsent(f.db, &msg)
	return msg, err
}

func newTestServer(t *testing.T) (*Server, *fakeEngine) {
	t.Helper()
	db, err := store.Init(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to init db: %v", err)
	}
	eng := &fakeEngine{db: db}
	peers := discovery.NewTracker(5 * time.Second)
	peers.Observe("p1", "Alpha", "10.0.0.1:50000")
	return NewServer(db, eng, peers, 0), eng
}

func TestStatusEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var status map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	if status["node_id"] != "node-test" {
		t.Errorf("Expected node_id node-test, got %v", status["node_id"])
	}
	if status["active_peers"].(float64) != 1 {
		t.Errorf("Expected 1 active peer, got %v", status["active_peers"])
	}
}

func TestPostMessagePublishes(t *testing.T) {
	srv, eng := newTestServer(t)

	body := strings.NewReader(`{"kind":"SOS","payload":"need water"}`)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/messages", body))

	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(eng.published) != 1 {
		t.Fatalf("Expected 1 publish, got %d", len(eng.published))
	}
	if eng.published[0].Kind != store.KindSOS || eng.published[0].Payload != "need water" {
		t.Errorf("Wrong publish: %+v", eng.published[0])
	}

	// The stored message shows up in the list.
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/messages", nil))
	var msgs []store.Message
	if err := json.Unmarshal(rec.Body.Bytes(), &msgs); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	if len(msgs) != 1 || msgs[0].ID != "pub-1" {
		t.Errorf("Expected published message listed, got %+v", msgs)
	}
}

func TestPostMessageValidation(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/messages",
		strings.NewReader(`{"kind":"SOS"}`)))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for empty payload, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/messages",
		strings.NewReader("{broken")))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for malformed body, got %d", rec.Code)
	}
}

func TestPeersEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/peers", nil))

	var peers []discovery.Peer
	if err := json.Unmarshal(rec.Body.Bytes(), &peers); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	if len(peers) != 1 || peers[0].ID != "p1" {
		t.Errorf("Expected peer p1, got %+v", peers)
	}
}
