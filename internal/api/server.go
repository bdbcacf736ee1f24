package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Server serves the status endpoints and the live websocket feed.
type Server struct {
	pub       *Publisher
	logger    zerolog.Logger
	startTime time.Time
	upgrader  websocket.Upgrader
}

// NewServer creates an API server over the given publisher.
func NewServer(pub *Publisher, logger zerolog.Logger) *Server {
	return &Server{
		pub:       pub,
		logger:    logger.With().Str("component", "api").Logger(),
		startTime: time.Now(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// Local status feed only; nothing sensitive crosses it.
				return true
			},
		},
	}
}

// Routes sets up the HTTP routes.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/ws", s.handleWebsocket)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(10 * time.Second))
		r.Get("/state", s.handleState)
		r.Get("/status", s.handleStatus)
		r.Get("/exploration", s.handleExploration)
		r.Get("/goals", s.handleGoals)
		r.Get("/history", s.handleHistory)
		r.Get("/progress", s.handleProgress)
	})

	return r
}

// Shutdown closes all websocket subscribers.
func (s *Server) Shutdown() {
	s.pub.closeAll()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"uptime_seconds": int(time.Since(s.startTime).Seconds()),
	})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	doc := s.pub.Latest()
	if doc == nil {
		s.writeError(w, http.StatusNotFound, "NO_STATE", "no state published yet")
		return
	}
	s.writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	doc := s.pub.Latest()
	if doc == nil {
		s.writeError(w, http.StatusNotFound, "NO_STATE", "no state published yet")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"session_id":  doc.SessionID,
		"turn":        doc.Turn,
		"last_action": doc.LastAction,
		"stuck":       doc.Stuck,
		"in_battle":   doc.InBattle,
		"timestamp":   doc.Timestamp,
	})
}

func (s *Server) handleExploration(w http.ResponseWriter, r *http.Request) {
	doc := s.pub.Latest()
	if doc == nil {
		s.writeError(w, http.StatusNotFound, "NO_STATE", "no state published yet")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"zone":  doc.Position.Zone,
		"stats": doc.Exploration,
	})
}

func (s *Server) handleGoals(w http.ResponseWriter, r *http.Request) {
	doc := s.pub.Latest()
	if doc == nil {
		s.writeError(w, http.StatusNotFound, "NO_STATE", "no state published yet")
		return
	}
	s.writeJSON(w, http.StatusOK, doc.Goals)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	doc := s.pub.Latest()
	if doc == nil {
		s.writeError(w, http.StatusNotFound, "NO_STATE", "no state published yet")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"digest_count": doc.DigestCount,
		"recent_turns": doc.RecentTurns,
	})
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	doc := s.pub.Latest()
	if doc == nil {
		s.writeError(w, http.StatusNotFound, "NO_STATE", "no state published yet")
		return
	}
	s.writeJSON(w, http.StatusOK, doc.Progress)
}

// handleWebsocket upgrades the connection, sends the latest document
// immediately, and subscribes the client to every subsequent publish.
func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	if doc := s.pub.Latest(); doc != nil {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(doc); err != nil {
			conn.Close()
			return
		}
	}

	s.pub.subscribe(conn)

	// Drain (and discard) client messages so pings are answered and a
	// closed peer is noticed.
	go func() {
		defer func() {
			s.pub.unsubscribe(conn)
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// writeJSON writes a JSON response with proper headers.
func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

// writeError writes a structured error response.
func (s *Server) writeError(w http.ResponseWriter, status int, code, message string) {
	s.writeJSON(w, status, map[string]string{
		"error":   code,
		"message": message,
	})
}
