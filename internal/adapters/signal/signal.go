package signal

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dkeye/PartyCast/internal/app"
	"github.com/dkeye/PartyCast/internal/core"
	"github.com/dkeye/PartyCast/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	HeaderUsername = "PartyCast-Username"
	closeBadName   = "Invalid name provided"
)

var ErrBackpressure = core.ErrBackpressure

// Lobby is what the websocket controller needs from the party lobby.
type Lobby interface {
	Connect(origin, agent, name string, conn core.SignalConnection) (domain.MemberID, error)
	Disconnect(id domain.MemberID, conn core.SignalConnection)
	Handle(id domain.MemberID, conn core.SignalConnection, frame []byte) error
}

type Options struct {
	ReadLimit  int64
	PingPeriod time.Duration
	SendBuffer int
}

type SignalWSController struct {
	Lobby   Lobby
	Limiter *HandshakeLimiter
	opts    Options
}

func NewSignalWSController(lobby Lobby, limiter *HandshakeLimiter, opts Options) *SignalWSController {
	if opts.ReadLimit <= 0 {
		opts.ReadLimit = 32768
	}
	if opts.PingPeriod <= 0 {
		opts.PingPeriod = 54 * time.Second
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 64
	}
	return &SignalWSController{Lobby: lobby, Limiter: limiter, opts: opts}
}

type WsSignalConn struct {
	conn *websocket.Conn
	send chan core.Frame
	addr string

	mu     sync.RWMutex
	closed bool
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return core.ErrConnClosed
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

func (c *WsSignalConn) RemoteAddr() string { return c.addr }

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handshake resolves the caller's identity. The remote IP is the origin and
// the fallback name when the username header is missing or blank.
func handshake(r *http.Request) (origin, agent, name string) {
	origin = r.RemoteAddr
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		origin = host
	}
	agent = r.UserAgent()
	name = strings.TrimSpace(r.Header.Get(HeaderUsername))
	if name == "" {
		name = origin
	}
	return origin, agent, name
}

func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	sid := core.SessionID(c.GetString("session_id"))
	origin, agent, name := handshake(c.Request)

	if ctl.Limiter != nil && !ctl.Limiter.Allow(origin) {
		log.Warn().Str("module", "signal").Str("sid", string(sid)).Str("origin", origin).Msg("handshake rate limited")
		c.AbortWithStatus(http.StatusTooManyRequests)
		return
	}
	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("origin", origin).Msg("new WS connection")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}

	conn := &WsSignalConn{
		conn: ws,
		send: make(chan core.Frame, ctl.opts.SendBuffer),
		addr: origin,
	}

	id, err := ctl.Lobby.Connect(origin, agent, name, conn)
	switch {
	case errors.Is(err, app.ErrInvalidName):
		log.Warn().Str("module", "signal").Str("sid", string(sid)).Msg("rejected connection without a name")
		closeWith(ws, websocket.CloseUnsupportedData, closeBadName)
		conn.Close()
		return
	case err != nil:
		log.Error().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("connect failed")
		closeWith(ws, websocket.CloseGoingAway, "")
		conn.Close()
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	go ctl.writePump(ctx, conn)
	go func() {
		defer cancel()
		ctl.readPump(ctx, sid, id, conn)
	}()
}

func closeWith(ws *websocket.Conn, code int, text string) {
	msg := websocket.FormatCloseMessage(code, text)
	_ = ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
}
