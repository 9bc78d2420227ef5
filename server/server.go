// Package server exposes the chat orchestrator to the external UI layer
// over JSON/HTTP, with a websocket endpoint for interactive clients.
//
// LLM failures never surface as HTTP errors: per the orchestrator
// contract they arrive inside the reply text. HTTP status codes cover
// transport and caller mistakes only.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/scttfrdmn/chatmem/chat"
	"github.com/scttfrdmn/chatmem/history"
	"github.com/scttfrdmn/chatmem/session"
)

// ChatRequest is the body of POST /chat and each websocket frame.
type ChatRequest struct {
	SessionID   string  `json:"session_id"`
	Kind        string  `json:"kind"`
	Window      int     `json:"window,omitempty"`
	Message     string  `json:"message"`
	Temperature float64 `json:"temperature,omitempty"`
}

// ClearRequest is the body of POST /clear.
type ClearRequest struct {
	SessionID string `json:"session_id"`
	Kind      string `json:"kind"`
	Window    int    `json:"window,omitempty"`
}

// errorResponse is the JSON shape of HTTP-level failures.
type errorResponse struct {
	Error string `json:"error"`
}

// Server serves the chat API.
type Server struct {
	orch   *chat.Orchestrator
	server *http.Server
	mux    *http.ServeMux
	logger *slog.Logger

	upgrader websocket.Upgrader
	mu       sync.Mutex
}

// New creates a server for the given orchestrator listening on addr.
func New(orch *chat.Orchestrator, addr string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	mux := http.NewServeMux()
	s := &Server{
		orch:   orch,
		mux:    mux,
		logger: logger,
		server: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}

	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/chat", s.handleChat)
	mux.HandleFunc("/clear", s.handleClear)
	mux.HandleFunc("/session", s.handleSession)
	mux.HandleFunc("/ws", s.handleWS)
	mux.Handle("/metrics", promhttp.Handler())

	return s
}

// Handler returns the route mux, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start starts serving in the background.
func (s *Server) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.Info("chat server listening", slog.String("addr", s.server.Addr))
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server error", slog.String("error", err.Error()))
		}
	}()
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodHead && r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	key, err := sessionKey(req.SessionID, req.Kind, req.Window)
	if err != nil {
		s.sendError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.orch.Turn(r.Context(), req.Message, key, req.Temperature)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, history.ErrUnknownKind) {
			status = http.StatusBadRequest
		}
		s.sendError(w, status, err.Error())
		return
	}

	s.sendJSON(w, http.StatusOK, result)
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req ClearRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	key, err := sessionKey(req.SessionID, req.Kind, req.Window)
	if err != nil {
		s.sendError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.orch.Clear(key)
	s.sendJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.sendJSON(w, http.StatusOK, map[string]string{"session_id": chat.NewSessionID()})
}

// handleWS speaks the /chat request/response contract over a websocket,
// one turn per frame.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	defer conn.Close()

	for {
		var req ChatRequest
		if err := conn.ReadJSON(&req); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warn("websocket read failed", slog.String("error", err.Error()))
			}
			return
		}

		key, err := sessionKey(req.SessionID, req.Kind, req.Window)
		if err != nil {
			if werr := conn.WriteJSON(errorResponse{Error: err.Error()}); werr != nil {
				return
			}
			continue
		}

		result, err := s.orch.Turn(r.Context(), req.Message, key, req.Temperature)
		if err != nil {
			if werr := conn.WriteJSON(errorResponse{Error: err.Error()}); werr != nil {
				return
			}
			continue
		}
		if err := conn.WriteJSON(result); err != nil {
			return
		}
	}
}

// sessionKey validates a request's session addressing. The windowed kinds
// require a positive window from the caller.
func sessionKey(sessionID, kind string, window int) (session.Key, error) {
	if sessionID == "" {
		return session.Key{}, errors.New("session_id is required")
	}
	k := history.Kind(kind)
	if !k.Valid() {
		return session.Key{}, fmt.Errorf("%w: %q", history.ErrUnknownKind, kind)
	}
	switch k {
	case history.KindSlidingWindow, history.KindSummaryWindow:
		if window <= 0 {
			return session.Key{}, fmt.Errorf("kind %q requires a positive window, got %d", kind, window)
		}
	default:
		window = 0
	}
	return session.Key{SessionID: sessionID, Kind: k, Window: window}, nil
}

func (s *Server) sendJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("response encode failed", slog.String("error", err.Error()))
	}
}

func (s *Server) sendError(w http.ResponseWriter, status int, msg string) {
	s.sendJSON(w, status, errorResponse{Error: msg})
}
