package transcript

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func fakeAssemblyServer(t *testing.T, onAudio func(conn *websocket.Conn, n int)) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "key" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if r.URL.Query().Get("sample_rate") != "16000" || r.URL.Query().Get("encoding") != "pcm_s16le" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteJSON(map[string]any{"type": "Begin", "id": "sess", "expires_at": time.Now().Unix()})
		n := 0
		for {
			mt, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if mt == websocket.BinaryMessage {
				n++
				onAudio(conn, n)
				continue
			}
			if strings.Contains(string(msg), "Terminate") {
				_ = conn.WriteJSON(map[string]any{"type": "Turn", "turn_order": 1, "transcript": "Second turn.", "end_of_turn": true})
				_ = conn.WriteJSON(map[string]any{"type": "Termination", "audio_duration_seconds": 1.5})
				return
			}
		}
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestAssemblyAI_StreamsTurnsAndDrainsOnClose(t *testing.T) {
	srv := fakeAssemblyServer(t, func(conn *websocket.Conn, n int) {
		switch n {
		case 1:
			_ = conn.WriteJSON(map[string]any{"type": "Turn", "turn_order": 0, "transcript": "first", "end_of_turn": false})
		case 2:
			_ = conn.WriteJSON(map[string]any{"type": "Turn", "turn_order": 0, "transcript": "First turn.", "end_of_turn": true, "turn_is_formatted": true})
		}
	})
	defer srv.Close()

	a := NewAssemblyAI("key", nil)
	a.URL = wsURL(srv)
	stream, err := a.Open(context.Background())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := stream.Send(pcmFrame(160, 1000)); err != nil {
		t.Fatalf("send: %v", err)
	}
	select {
	case got := <-stream.Updates():
		if got != "first" {
			t.Fatalf("first update = %q", got)
		}
	case <-time.After(time.Second):
		t.Fatalf("no update")
	}
	_ = stream.Send(pcmFrame(160, 1000))
	select {
	case got := <-stream.Updates():
		if got != "First turn." {
			t.Fatalf("second update = %q", got)
		}
	case <-time.After(time.Second):
		t.Fatalf("no formatted update")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	final, err := stream.Close(ctx)
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if final != "First turn. Second turn." {
		t.Fatalf("final = %q", final)
	}
}

func TestAssemblyAI_RejectsMissingKey(t *testing.T) {
	a := NewAssemblyAI("", nil)
	if _, err := a.Open(context.Background()); err == nil {
		t.Fatalf("expected error with empty key")
	}
}

func TestAssemblyAI_DialFailure(t *testing.T) {
	srv := fakeAssemblyServer(t, func(*websocket.Conn, int) {})
	defer srv.Close()
	a := NewAssemblyAI("wrong", nil)
	a.URL = wsURL(srv)
	if _, err := a.Open(context.Background()); err == nil {
		t.Fatalf("expected handshake failure")
	}
}
