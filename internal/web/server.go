package web

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Ananthan-A-K/ResQ/internal/discovery"
	"github.com/Ananthan-A-K/ResQ/internal/store"
	"gorm.io/gorm"
)

// Engine is the surface the web layer needs from the relay engine.
type Engine interface {
	NodeID() string
	Label() string
	Publish(kind, destID, payload string) (store.Message, error)
}

type Server struct {
	db     *gorm.DB
	engine Engine
	peers  *discovery.Tracker
	port   int
	start  time.Time
}

func NewServer(db *gorm.DB, eng Engine, peers *discovery.Tracker, port int) *Server {
	return &Server{
		db:     db,
		engine: eng,
		peers:  peers,
		port:   port,
		start:  time.Now(),
	}
}

func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: s.Handler(),
	}

	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	slog.Info("Web server starting", "port", s.port)
	return srv.ListenAndServe()
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/messages", s.handleMessages)
	mux.HandleFunc("/api/peers", s.handlePeers)
	mux.HandleFunc("/api/alerts", s.handleAlerts)
	return mux
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"node_id":      s.engine.NodeID(),
		"label":        s.engine.Label(),
		"active_peers": s.peers.ActiveCount(),
		"uptime_secs":  int(time.Since(s.start).Seconds()),
	})
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		s.handlePostMessage(w, r)
		return
	}

	messages, err := store.ListMessages(s.db, 100)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, messages)
}

func (s *Server) handlePostMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Kind    string `json:"kind"`
		DestID  string `json:"dest_id"`
		Payload string `json:"payload"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Payload == "" {
		http.Error(w, "payload is required", http.StatusBadRequest)
		return
	}
	if req.Kind == "" {
		req.Kind = store.KindText
	}

	msg, err := s.engine.Publish(req.Kind, req.DestID, req.Payload)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, msg)
}

func (s *Server) handlePeers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.peers.List())
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := store.ListAlerts(s.db, 50)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, alerts)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}
