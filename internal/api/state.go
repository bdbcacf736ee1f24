// Package api exposes the agent's live state over HTTP and websocket.
//
// The loop driver publishes a slim state document once per cycle; every
// endpoint and the websocket feed serve that published copy. The server
// never reaches into loop-owned components, so the publish slot is the
// only state shared with the loop.
package api

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/MJE43/red-agent-go/internal/explore"
	"github.com/MJE43/red-agent-go/internal/gamestate"
	"github.com/MJE43/red-agent-go/internal/progress"
)

// PartySummary is the per-member slice of a snapshot the feed carries.
type PartySummary struct {
	Species   string `json:"species"`
	Level     int    `json:"level"`
	CurrentHP int    `json:"current_hp"`
	MaxHP     int    `json:"max_hp"`
}

// TurnSummary is one recent turn without its snapshot payload.
type TurnSummary struct {
	Number  int    `json:"number"`
	Action  string `json:"action,omitempty"`
	Outcome string `json:"outcome,omitempty"`
}

// StateDoc is the per-cycle document the dashboard consumes.
type StateDoc struct {
	SessionID     string             `json:"session_id"`
	Turn          int                `json:"turn"`
	Timestamp     time.Time          `json:"timestamp"`
	Position      gamestate.Position `json:"position"`
	Party         []PartySummary     `json:"party"`
	Money         int                `json:"money"`
	BadgeCount    int                `json:"badge_count"`
	Badges        []string           `json:"badges"`
	InBattle      bool               `json:"in_battle"`
	Goals         map[string]string  `json:"goals"`
	LastAction    string             `json:"last_action,omitempty"`
	LastReasoning string             `json:"last_reasoning,omitempty"`
	Stuck         bool               `json:"stuck"`
	Exploration   explore.Stats      `json:"exploration"`
	RecentTurns   []TurnSummary      `json:"recent_turns"`
	DigestCount   int                `json:"digest_count"`
	Progress      progress.State     `json:"progress"`
}

// Publisher holds the latest state document and fans it out to
// websocket subscribers. Publish is called from the loop driver; reads
// come from HTTP handler goroutines.
type Publisher struct {
	logger zerolog.Logger

	mu     sync.RWMutex
	latest *StateDoc

	connMu sync.Mutex
	conns  map[*websocket.Conn]struct{}
}

// NewPublisher creates an empty publisher.
func NewPublisher(logger zerolog.Logger) *Publisher {
	return &Publisher{
		logger: logger.With().Str("component", "api").Logger(),
		conns:  make(map[*websocket.Conn]struct{}),
	}
}

// Publish stores the document and pushes it to every subscriber.
func (p *Publisher) Publish(doc StateDoc) {
	p.mu.Lock()
	p.latest = &doc
	p.mu.Unlock()

	p.broadcast(doc)
}

// Latest returns the most recently published document, or nil before
// the first cycle.
func (p *Publisher) Latest() *StateDoc {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.latest == nil {
		return nil
	}
	copied := *p.latest
	return &copied
}

const writeWait = 5 * time.Second

// subscribe registers a websocket connection for broadcasts.
func (p *Publisher) subscribe(conn *websocket.Conn) {
	p.connMu.Lock()
	p.conns[conn] = struct{}{}
	p.connMu.Unlock()
}

// unsubscribe drops a connection.
func (p *Publisher) unsubscribe(conn *websocket.Conn) {
	p.connMu.Lock()
	delete(p.conns, conn)
	p.connMu.Unlock()
}

// broadcast writes the document to every subscriber, dropping any
// connection that fails.
func (p *Publisher) broadcast(doc StateDoc) {
	p.connMu.Lock()
	defer p.connMu.Unlock()

	for conn := range p.conns {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(doc); err != nil {
			p.logger.Debug().Err(err).Msg("dropping websocket subscriber")
			conn.Close()
			delete(p.conns, conn)
		}
	}
}

// closeAll closes every subscriber connection.
func (p *Publisher) closeAll() {
	p.connMu.Lock()
	defer p.connMu.Unlock()
	for conn := range p.conns {
		conn.Close()
		delete(p.conns, conn)
	}
}
