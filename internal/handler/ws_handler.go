package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/pathlight/assessment-backend/internal/engine"
	"github.com/pathlight/assessment-backend/internal/middleware"
	"github.com/pathlight/assessment-backend/internal/model"
	ws "github.com/pathlight/assessment-backend/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams the per-second session countdown.
type WSHandler struct {
	engine   *engine.Engine
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(eng *engine.Engine, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		engine:   eng,
		log:      log.With().Str("component", "ws_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// CountdownStream godoc
// WS /ws/v1/sessions/:session_id/countdown?token=...
// Pushes the remaining seconds once per second until the session settles.
// The stream is advisory; the store's deadline stays authoritative.
func (h *WSHandler) CountdownStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session ID"})
		return
	}

	status, err := h.engine.Status(c.Request.Context(), sessionID, claims.OwnerID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	if status.State == model.SessionStateActive && status.RemainingSeconds == nil {
		ws.WriteError(conn, "session has no deadline")
		return
	}

	// Read pump: forward pings to the write loop and detect the client
	// going away. Only the loop below writes to conn; gorilla permits a
	// single concurrent writer per connection.
	closed := make(chan struct{})
	pings := make(chan struct{}, 1)
	go func() {
		defer close(closed)
		for {
			var req ws.RequestEnvelope
			if err := ws.ReadJSON(conn, &req); err != nil {
				return
			}
			if req.Action == ws.ActionPing {
				select {
				case pings <- struct{}{}:
				default: // a pong is already pending, coalesce
				}
			}
		}
	}()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case <-c.Request.Context().Done():
			return
		case <-pings:
			if err := ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong}); err != nil {
				return
			}
		case <-ticker.C:
			status, err := h.engine.Status(c.Request.Context(), sessionID, claims.OwnerID)
			if err != nil {
				ws.WriteError(conn, "session read failed")
				return
			}
			if status.State != model.SessionStateActive {
				ws.WriteTyped(conn, ws.SettledResponse{
					Event: ws.EventSettled,
					State: string(status.State),
				})
				return
			}
			if status.RemainingSeconds == nil {
				continue
			}
			if err := ws.WriteTyped(conn, ws.TickResponse{
				Event:            ws.EventTick,
				RemainingSeconds: *status.RemainingSeconds,
			}); err != nil {
				return
			}
		}
	}
}
