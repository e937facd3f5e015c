package main

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	streamWriteWait  = 5 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = streamPongWait * 9 / 10

	defaultStreamInterval = 500 * time.Millisecond
	minStreamInterval     = 100 * time.Millisecond
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Origins are already open through CORS; the token is what guards access
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleMountStream pushes the mount status over a WebSocket every
// ?interval_ms= (default 500) until the client goes away.
func (s *Server) handleMountStream(w http.ResponseWriter, r *http.Request) {
	interval := defaultStreamInterval
	if ms := queryInt(r, "interval_ms", 0); ms > 0 {
		interval = time.Duration(ms) * time.Millisecond
	}
	if interval < minStreamInterval {
		interval = minStreamInterval
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client
		log.Printf("Status stream upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	// The client sends nothing but control frames; reading is required to
	// process pongs and notice a close.
	gone := make(chan struct{})
	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(streamPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(streamPongWait))
	})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	ping := time.NewTicker(streamPingPeriod)
	defer ping.Stop()

	send := func() error {
		conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
		return conn.WriteJSON(mountStatus{
			Snapshot: s.tracker.Snapshot(),
			Port:     s.tracker.PortName(),
		})
	}

	if err := send(); err != nil {
		return
	}
	for {
		select {
		case <-ticker.C:
			if err := send(); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(streamWriteWait)); err != nil {
				return
			}
		case <-gone:
			return
		case <-s.closing:
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(streamWriteWait))
			return
		}
	}
}
