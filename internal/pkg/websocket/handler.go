package websocket

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// ParticipantFunc resolves the "role:id" key of the authenticated caller.
type ParticipantFunc func(c *gin.Context) (string, bool)

// Handler upgrades authenticated requests and attaches them to the hub
type Handler struct {
	hub         *Hub
	participant ParticipantFunc
	upgrader    websocket.Upgrader
	logger      zerolog.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(hub *Hub, participant ParticipantFunc, allowedOrigins []string, logger zerolog.Logger) *Handler {
	return &Handler{
		hub:         hub,
		participant: participant,
		upgrader:    newUpgrader(allowedOrigins),
		logger:      logger,
	}
}

// HandleConnection godoc
// @Summary Open the push channel
// @Description Upgrades to a WebSocket that receives message.created and message.read events for the caller. The token may be passed as ?token=.
// @Tags messages
// @Security BearerAuth
// @Param token query string false "Access token when headers cannot be set"
// @Success 101 {string} string "Switching Protocols"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Router /ws [get]
func (h *Handler) HandleConnection(c *gin.Context) {
	key, ok := h.participant(c)
	if !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error
		h.logger.Warn().Err(err).Str("participant", key).Msg("Failed to upgrade connection to WebSocket")
		return
	}

	client := &Client{
		hub:    h.hub,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		key:    key,
		logger: h.logger,
	}
	if !h.hub.add(client) {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}
