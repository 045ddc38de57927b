package ws

import (
	"log/slog"
	"net/http"
	"strings"

	"relay-lab/auth"
	"relay-lab/domain"
	"relay-lab/runtime"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // In production, validate the origin here.
	},
}

// Handler upgrades HTTP requests to websocket sessions. The upgrade itself
// is authenticated: the identity later bound by register-user comes from the
// token validated here, never from event data alone.
type Handler struct {
	log        *slog.Logger
	hub        *runtime.Hub
	bufferSize int
}

func NewHandler(log *slog.Logger, hub *runtime.Hub, bufferSize int) *Handler {
	return &Handler{log: log, hub: hub, bufferSize: bufferSize}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	claims, err := auth.ValidateToken(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		h.log.Debug("websocket upgrade failed", "error", err)
		return
	}

	session := NewSession(domain.ConnID(uuid.NewString()), conn, h.log, h.bufferSize)
	hubSession := h.hub.Connect(session.ID(), claims.UserID, session)

	go session.writePump()
	go session.readPump(h.hub, hubSession)
}

// bearerToken reads the Authorization header, falling back to the "token"
// query parameter because browser websocket clients cannot set headers.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return r.URL.Query().Get("token")
}
