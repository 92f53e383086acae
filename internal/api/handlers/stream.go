package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2/sse"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/RMahshie/tinfoil/pkg/models"
)

const (
	streamBuffer = 64
	writeWait    = 10 * time.Second
	pingPeriod   = 30 * time.Second
)

// EventSource hands out event subscriptions
type EventSource interface {
	Subscribe(buffer int) (<-chan models.Event, func())
}

// BillboardSource builds the billboard payload
type BillboardSource interface {
	Billboard(ctx context.Context) (*models.Billboard, error)
}

// StreamHandler pushes engine events to browsers
type StreamHandler struct {
	events    EventSource
	billboard BillboardSource
	upgrader  websocket.Upgrader
}

// NewStreamHandler creates a new stream handler. allowedOrigins limits
// WebSocket upgrades; empty allows any origin.
func NewStreamHandler(events EventSource, billboard BillboardSource, allowedOrigins []string) *StreamHandler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return &StreamHandler{
		events:    events,
		billboard: billboard,
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return len(allowed) == 0 || origin == "" || allowed[origin]
		}},
	}
}

// StreamEvents is the SSE handler for /api/stream
func (h *StreamHandler) StreamEvents(ctx context.Context, _ *struct{}, send sse.Sender) {
	events, cancel := h.events.Subscribe(streamBuffer)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := send.Data(ev); err != nil {
				log.Debug().Err(err).Msg("SSE client went away")
				return
			}
		}
	}
}

// ServeBillboard upgrades to a WebSocket and pushes the billboard on
// connect and after every finalized session
func (h *StreamHandler) ServeBillboard(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("Billboard upgrade failed")
		return
	}
	defer conn.Close()

	events, cancel := h.events.Subscribe(streamBuffer)
	defer cancel()

	ctx, stop := context.WithCancel(r.Context())
	defer stop()

	// The read loop only notices the client closing
	go func() {
		defer stop()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := h.pushBillboard(ctx, conn); err != nil {
		return
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.Type != models.EventSessionFinalized {
				continue
			}
			if err := h.pushBillboard(ctx, conn); err != nil {
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

func (h *StreamHandler) pushBillboard(ctx context.Context, conn *websocket.Conn) error {
	b, err := h.billboard.Billboard(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to build billboard")
		return nil
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(b)
}
