package signal

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dkeye/PartyCast/internal/app"
	"github.com/dkeye/PartyCast/internal/core"
	"github.com/dkeye/PartyCast/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type connectCall struct {
	origin, agent, name string
}

type fakeLobby struct {
	mu       sync.Mutex
	connects []connectCall
	frames   chan string
	left     chan domain.MemberID
}

func newFakeLobby() *fakeLobby {
	return &fakeLobby{
		frames: make(chan string, 8),
		left:   make(chan domain.MemberID, 8),
	}
}

func (f *fakeLobby) Connect(origin, agent, name string, conn core.SignalConnection) (domain.MemberID, error) {
	if name == "nobody" {
		return 0, app.ErrInvalidName
	}
	f.mu.Lock()
	f.connects = append(f.connects, connectCall{origin, agent, name})
	f.mu.Unlock()
	_ = conn.TrySend(core.Frame(`{"type":"Connection.DATA_PUSH"}`))
	return 7, nil
}

func (f *fakeLobby) Disconnect(id domain.MemberID, _ core.SignalConnection) {
	f.left <- id
}

func (f *fakeLobby) Handle(_ domain.MemberID, _ core.SignalConnection, frame []byte) error {
	f.frames <- string(frame)
	return nil
}

func (f *fakeLobby) calls() []connectCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]connectCall(nil), f.connects...)
}

func newServer(t *testing.T, lobby Lobby, limiter *HandshakeLimiter) string {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctl := NewSignalWSController(lobby, limiter, Options{PingPeriod: time.Second})
	r := gin.New()
	r.GET("/ws", func(c *gin.Context) { ctl.HandleSignal(context.Background(), c) })
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func dial(url string, name string) (*websocket.Conn, *http.Response, error) {
	h := http.Header{}
	h.Set("User-Agent", "test-agent")
	if name != "" {
		h.Set(HeaderUsername, name)
	}
	return websocket.DefaultDialer.Dial(url, h)
}

func TestHandleSignal(t *testing.T) {
	t.Run("handshake and frames", func(t *testing.T) {
		lobby := newFakeLobby()
		url := newServer(t, lobby, nil)

		ws, _, err := dial(url, "Alice")
		if err != nil {
			t.Fatal(err)
		}
		_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, data, err := ws.ReadMessage()
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(string(data), "DATA_PUSH") {
			t.Fatalf("first frame = %s", data)
		}

		calls := lobby.calls()
		if len(calls) != 1 {
			t.Fatalf("connects = %v", calls)
		}
		if calls[0] != (connectCall{"127.0.0.1", "test-agent", "Alice"}) {
			t.Fatalf("connect = %+v", calls[0])
		}

		if err := ws.WriteMessage(websocket.TextMessage, []byte(`{"type":"x"}`)); err != nil {
			t.Fatal(err)
		}
		select {
		case got := <-lobby.frames:
			if got != `{"type":"x"}` {
				t.Fatalf("frame = %s", got)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("frame not delivered")
		}

		_ = ws.Close()
		select {
		case id := <-lobby.left:
			if id != 7 {
				t.Fatalf("disconnect id = %d", id)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("disconnect not reported")
		}
	})

	t.Run("name falls back to address", func(t *testing.T) {
		lobby := newFakeLobby()
		ws, _, err := dial(newServer(t, lobby, nil), "")
		if err != nil {
			t.Fatal(err)
		}
		defer ws.Close()
		_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))
		if _, _, err := ws.ReadMessage(); err != nil {
			t.Fatal(err)
		}
		if calls := lobby.calls(); len(calls) != 1 || calls[0].name != "127.0.0.1" {
			t.Fatalf("connects = %v", calls)
		}
	})

	t.Run("invalid name closes with 1003", func(t *testing.T) {
		ws, _, err := dial(newServer(t, newFakeLobby(), nil), "nobody")
		if err != nil {
			t.Fatal(err)
		}
		defer ws.Close()
		_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, _, err = ws.ReadMessage()
		var ce *websocket.CloseError
		if !errors.As(err, &ce) {
			t.Fatalf("err = %v, want close error", err)
		}
		if ce.Code != websocket.CloseUnsupportedData || ce.Text != "Invalid name provided" {
			t.Fatalf("close = %d %q", ce.Code, ce.Text)
		}
	})

	t.Run("rate limited", func(t *testing.T) {
		url := newServer(t, newFakeLobby(), NewHandshakeLimiter(1, time.Minute))
		ws, _, err := dial(url, "Bob")
		if err != nil {
			t.Fatal(err)
		}
		defer ws.Close()

		_, resp, err := dial(url, "Bob")
		if !errors.Is(err, websocket.ErrBadHandshake) {
			t.Fatalf("err = %v, want bad handshake", err)
		}
		if resp == nil || resp.StatusCode != http.StatusTooManyRequests {
			t.Fatalf("resp = %v", resp)
		}
	})
}

func TestWsSignalConnClosed(t *testing.T) {
	c := &WsSignalConn{send: make(chan core.Frame, 1), closed: true}
	if err := c.TrySend(core.Frame("x")); !errors.Is(err, core.ErrConnClosed) {
		t.Fatalf("err = %v", err)
	}
}

func TestWsSignalConnBackpressure(t *testing.T) {
	c := &WsSignalConn{send: make(chan core.Frame, 1)}
	if err := c.TrySend(core.Frame("a")); err != nil {
		t.Fatal(err)
	}
	if err := c.TrySend(core.Frame("b")); !errors.Is(err, ErrBackpressure) {
		t.Fatalf("err = %v", err)
	}
}

func TestHandshakeBlankNameFallsBack(t *testing.T) {
	for _, header := range []string{"", "   "} {
		r := httptest.NewRequest(http.MethodGet, "/ws", nil)
		r.RemoteAddr = "10.0.0.5:4000"
		r.Header.Set(HeaderUsername, header)
		r.Header.Set("User-Agent", "android")

		origin, agent, name := handshake(r)
		if origin != "10.0.0.5" || agent != "android" || name != "10.0.0.5" {
			t.Errorf("header %q: origin=%q agent=%q name=%q", header, origin, agent, name)
		}
	}
}

func TestHandshakeTrimsName(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/ws", nil)
	r.RemoteAddr = "10.0.0.5:4000"
	r.Header.Set(HeaderUsername, "  Carol ")
	if _, _, name := handshake(r); name != "Carol" {
		t.Fatalf("name = %q", name)
	}
}
