package ws

import (
	"context"
	"net/http"
	"strings"

	"quantprep/internal/pkg/jwt"
	"quantprep/internal/pkg/logger"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Owner reports whether a user may watch a session.
type Owner interface {
	Owns(ctx context.Context, userID uuid.UUID, sessionID uuid.UUID) bool
}

type Handler struct {
	hub    *Hub
	tokens jwt.Service
	owner  Owner
	log    *logger.Logger
}

func NewHandler(hub *Hub, tokens jwt.Service, owner Owner, log *logger.Logger) *Handler {
	return &Handler{hub: hub, tokens: tokens, owner: owner, log: log}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// HandleSessionWS streams countdown and progress events for one session.
// Browsers cannot set headers on a websocket handshake, so the access token
// may also come from the token query parameter.
func (h *Handler) HandleSessionWS(c fiber.Ctx) error {
	if h == nil || h.hub == nil {
		return fiber.ErrServiceUnavailable
	}

	sessionID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid session id")
	}

	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		auth := strings.TrimSpace(c.Get("Authorization"))
		if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
			token = strings.TrimSpace(auth[7:])
		}
	}
	if token == "" {
		return fiber.ErrUnauthorized
	}
	claims, err := h.tokens.ValidateAccessToken(token)
	if err != nil {
		return fiber.ErrUnauthorized
	}
	if h.owner != nil && !h.owner.Owns(c.Context(), claims.UserID, sessionID) {
		return fiber.ErrNotFound
	}

	fiberHandler := adaptor.HTTPHandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.log.Warn("ws upgrade failed", "session_id", sessionID, "error", err)
			return
		}

		client := NewClient(h.hub, conn, sessionID)
		h.hub.Register(client)
		go client.WritePump()
		go client.ReadPump()
	})

	return fiberHandler(c)
}
