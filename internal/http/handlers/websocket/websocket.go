package websocket

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	ws "github.com/superbearblog/media-service/internal/websocket"
)

// Serve upgrades the connection and attaches it to the hub
// @Summary WebSocket endpoint for live cleanup events
// @Description Streams cleanup.started, cleanup.completed and media.deleted events to connected admin dashboards.
// @Tags websocket
// @Router /ws/admin [get]
func Serve(hub *ws.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := ws.Upgrader().Upgrade(w, r, nil)
		if err != nil {
			slog.Error("WebSocket upgrade failed", slog.String("error", err.Error()))
			return
		}

		client := ws.NewClient(conn, uuid.New().String(), hub)
		hub.RegisterClient(client)
		client.Start()
	}
}
