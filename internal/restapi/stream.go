package restapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/terra-clan/projecthub/internal/models"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// StatsSource computes the current proposal statistics
type StatsSource interface {
	ProposalStats(ctx context.Context) (models.ProposalStats, error)
}

// StatsMessage is one frame of the statistics stream
type StatsMessage struct {
	Type string               `json:"type"`
	Data models.ProposalStats `json:"data"`
}

// StatsHub pushes proposal statistics to connected admin dashboards
type StatsHub struct {
	source StatsSource

	mu      sync.Mutex
	clients map[chan models.ProposalStats]struct{}
}

// NewStatsHub creates a hub reading from source
func NewStatsHub(source StatsSource) *StatsHub {
	return &StatsHub{
		source:  source,
		clients: make(map[chan models.ProposalStats]struct{}),
	}
}

// Clients returns the number of connected dashboards
func (h *StatsHub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Notify recomputes the statistics and pushes them to every client. Slow
// clients only ever receive the latest frame.
func (h *StatsHub) Notify(ctx context.Context) {
	h.mu.Lock()
	n := len(h.clients)
	h.mu.Unlock()
	if n == 0 {
		return
	}

	st, err := h.source.ProposalStats(ctx)
	if err != nil {
		slog.Error("failed to compute proposal stats", "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.clients {
		select {
		case <-ch:
		default:
		}
		ch <- st
	}
}

func (h *StatsHub) register(initial models.ProposalStats) chan models.ProposalStats {
	ch := make(chan models.ProposalStats, 1)
	ch <- initial
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *StatsHub) unregister(ch chan models.ProposalStats) {
	h.mu.Lock()
	delete(h.clients, ch)
	h.mu.Unlock()
}

// ServeHTTP upgrades the request and streams statistics until the client leaves
func (h *StatsHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	st, err := h.source.ProposalStats(r.Context())
	if err != nil {
		slog.Error("failed to compute proposal stats", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to compute statistics")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("failed to upgrade to websocket", "error", err)
		return
	}
	defer conn.Close()

	ch := h.register(st)
	defer h.unregister(ch)

	slog.Info("stats stream connected", "remote_addr", r.RemoteAddr)

	// Reader: only control frames are expected; any error ends the stream
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(512)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			slog.Info("stats stream disconnected", "remote_addr", r.RemoteAddr)
			return
		case st := <-ch:
			data, err := json.Marshal(StatsMessage{Type: "stats", Data: st})
			if err != nil {
				slog.Error("failed to marshal stats message", "error", err)
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				slog.Debug("failed to write stats message", "error", err)
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
