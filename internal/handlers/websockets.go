package handlers

import (
	"net/http"
	"time"

	"camwatch/internal/logger"

	"github.com/gorilla/websocket"
)

const viewerTimeout = 60 * time.Second

var Upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type Viewers interface {
	Register(client *websocket.Conn)
	Unregister(client *websocket.Conn)
}

// ViewWebsocketHandler registers a viewer with the hub and keeps the
// connection until the viewer goes away.
func ViewWebsocketHandler(hub Viewers, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		connection, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Error("WebSocket upgrade error: %v", err)
			return
		}
		connection.SetReadLimit(512)
		connection.SetReadDeadline(time.Now().Add(viewerTimeout))
		connection.SetPongHandler(func(appData string) error {
			connection.SetReadDeadline(time.Now().Add(viewerTimeout))
			return nil
		})

		hub.Register(connection)
		defer hub.Unregister(connection)

		for {
			if _, _, err := connection.ReadMessage(); err != nil {
				log.Info("Viewer disconnected: %v", err)
				break
			}
			connection.SetReadDeadline(time.Now().Add(viewerTimeout))
		}
	}
}
