package main

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/unklstewy/skytrack/internal/auth"
	"github.com/unklstewy/skytrack/pkg/serial"
)

// TestMountStream tests the WebSocket status stream.
func TestMountStream(t *testing.T) {
	env := newTestEnv(t)
	ts := httptest.NewServer(env.server)
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/mount/stream?interval_ms=100"

	t.Run("Unauthorized", func(t *testing.T) {
		_, resp, err := websocket.DefaultDialer.Dial(url, nil)
		if err == nil {
			t.Fatal("Expected the dial to fail without a token")
		}
		if resp == nil || resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("Expected 401, got %v", resp)
		}
	})

	header := http.Header{}
	header.Set("Authorization", "Bearer "+env.token(t, 1, auth.RoleViewer))
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	for i := 0; i < 2; i++ {
		var status mountStatus
		if err := conn.ReadJSON(&status); err != nil {
			t.Fatalf("Frame %d: ReadJSON failed: %v", i, err)
		}
		if !status.Connected || status.Port != serial.SimulatorPortName {
			t.Errorf("Frame %d: expected a connected simulator, got %+v", i, status)
		}
	}

	t.Run("Query token", func(t *testing.T) {
		c, _, err := websocket.DefaultDialer.Dial(url+"&access_token="+env.token(t, 2, auth.RoleViewer), nil)
		if err != nil {
			t.Fatalf("Dial failed: %v", err)
		}
		c.Close()
	})

	env.server.Close()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			var closeErr *websocket.CloseError
			if !errors.As(err, &closeErr) || closeErr.Code != websocket.CloseGoingAway {
				t.Errorf("Expected a going-away close, got %v", err)
			}
			break
		}
	}
}
