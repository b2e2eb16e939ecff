package ws

import (
	"net/http"

	"jobmatch/internal/logger"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type Handler struct {
	hub      *Hub
	log      *zap.Logger
	upgrader websocket.Upgrader
}

func NewHandler(hub *Hub, log *zap.Logger) *Handler {
	return &Handler{
		hub: hub,
		log: logger.OrNop(log),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// HandleDiscoveryWS upgrades the request and subscribes the client to
// discovery events. Repeated search_term query parameters narrow the
// subscription to those terms.
func (h *Handler) HandleDiscoveryWS(c fiber.Ctx) error {
	if h == nil || h.hub == nil {
		return fiber.ErrServiceUnavailable
	}

	return adaptor.HTTPHandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		terms := r.URL.Query()["search_term"]
		conn, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.log.Warn("ws upgrade failed", zap.Error(err))
			return
		}

		client := NewClient(h.hub, conn, terms...)
		h.hub.Register(client)
		go client.WritePump()
		go client.ReadPump()
	})(c)
}
