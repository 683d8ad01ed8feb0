package app

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dkeye/PartyCast/internal/core"
	"github.com/dkeye/PartyCast/internal/domain"
	"github.com/dkeye/PartyCast/internal/protocol"
)

type fakeVolume struct {
	level float64
	muted bool
}

func (v *fakeVolume) Level() float64 { return v.level }
func (v *fakeVolume) Muted() bool { return v.muted }
func (v *fakeVolume) SetLevel(x float64) { v.level = x }
func (v *fakeVolume) SetMuted(x bool) { v.muted = x }

type fakeDevice struct {
	mu       sync.Mutex
	played   []string
	onEnded  []func()
	paused   int
	resumed  int
	kills    int
	position time.Duration
	volume   *fakeVolume
	playErr  error
}

func (d *fakeDevice) Prepare(string) error { return nil }

func (d *fakeDevice) Play(path string, onEnded func()) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.playErr != nil {
		return d.playErr
	}
	d.played = append(d.played, path)
	d.onEnded = append(d.onEnded, onEnded)
	return nil
}

func (d *fakeDevice) Pause() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.paused++
}

func (d *fakeDevice) Resume() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.resumed++
}

func (d *fakeDevice) Kill() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.kills++
}

func (d *fakeDevice) Position() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.position
}

func (d *fakeDevice) VolumeControl() (core.VolumeControl, bool) {
	if d.volume == nil {
		return nil, false
	}
	return d.volume, true
}

// end fires the end-of-media callback of the i-th Play call.
func (d *fakeDevice) end(i int) {
	d.mu.Lock()
	fn := d.onEnded[i]
	d.mu.Unlock()
	fn()
}

func (d *fakeDevice) playedPaths() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.played...)
}

type fakeConn struct {
	mu     sync.Mutex
	frames [][]byte
	closed bool
	full   bool
	addr   string
}

func (c *fakeConn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return core.ErrConnClosed
	}
	if c.full {
		return core.ErrBackpressure
	}
	c.frames = append(c.frames, append([]byte(nil), f...))
	return nil
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *fakeConn) RemoteAddr() string { return c.addr }

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

type wireMsg struct {
	ID       json.RawMessage `json:"id"`
	Type     string          `json:"type"`
	Status   protocol.Status `json:"status"`
	Message  string          `json:"message"`
	Data     json.RawMessage `json:"data"`
	ClientID int             `json:"clientId"`
}

func (c *fakeConn) messages(t *testing.T) []wireMsg {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]wireMsg, 0, len(c.frames))
	for _, f := range c.frames {
		var m wireMsg
		if err := json.Unmarshal(f, &m); err != nil {
			t.Fatalf("bad frame %s: %v", f, err)
		}
		out = append(out, m)
	}
	return out
}

func (c *fakeConn) reset() {
	c.mu.Lock()
	c.frames = nil
	c.mu.Unlock()
}

func (c *fakeConn) types(t *testing.T) []string {
	t.Helper()
	var out []string
	for _, m := range c.messages(t) {
		out = append(out, m.Type)
	}
	return out
}

// frameTypes is types without a *testing.T, for use inside listeners.
func (c *fakeConn) frameTypes() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, f := range c.frames {
		var m struct {
			Type string `json:"type"`
		}
		if json.Unmarshal(f, &m) == nil {
			out = append(out, m.Type)
		}
	}
	return out
}

// lastResponse returns the most recent LobbyCtl.RESPONSE.
func (c *fakeConn) lastResponse(t *testing.T) wireMsg {
	t.Helper()
	msgs := c.messages(t)
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Type == protocol.TypeResponse {
			return msgs[i]
		}
	}
	t.Fatalf("no response among %v", c.types(t))
	return wireMsg{}
}

type fakeCatalog struct {
	entries []domain.CatalogEntry
	err     error
}

func (c *fakeCatalog) Reload(context.Context) ([]domain.CatalogEntry, error) {
	return c.entries, c.err
}

func (c *fakeCatalog) Lookup(id domain.CatalogEntryID) (domain.CatalogEntry, bool) {
	for _, e := range c.entries {
		if e.ID == id {
			return e, true
		}
	}
	return domain.CatalogEntry{}, false
}

func songs(titles ...string) []domain.CatalogEntry {
	out := make([]domain.CatalogEntry, 0, len(titles))
	for i, title := range titles {
		out = append(out, domain.CatalogEntry{
			ID:       domain.CatalogEntryID(i + 1),
			Title:    title,
			Artist:   "artist",
			Duration: 180000,
			Path:     "/music/" + title + ".mp3",
		})
	}
	return out
}

type recordingEvents struct {
	lobby int
	queue int
}

func (e *recordingEvents) lobbyUpdated() { e.lobby++ }
func (e *recordingEvents) queueUpdated() { e.queue++ }

type fakeBoard struct {
	inputs []string
	err    error
	panics bool
}

func (b *fakeBoard) Generate() any { return []string{"vote"} }

func (b *fakeBoard) HandleInput(id string, _ []byte) (string, error) {
	if b.panics {
		panic("board exploded")
	}
	if b.err != nil {
		return "", b.err
	}
	b.inputs = append(b.inputs, id)
	return "accepted " + id, nil
}

var errBoard = errors.New("board is closed")

// startLobby runs a lobby over songs A..D until the test ends.
func startLobby(t *testing.T, dev *fakeDevice, opts ...func(*Options)) *Lobby {
	t.Helper()
	o := Options{
		Title:   "party",
		Port:    10784,
		Catalog: &fakeCatalog{entries: songs("A", "B", "C", "D")},
		Device:  dev,
	}
	for _, fn := range opts {
		fn(&o)
	}
	l, err := NewLobby(o)
	if err != nil {
		t.Fatalf("NewLobby: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = l.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	if err := l.Reload(context.Background()); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	return l
}

func connect(t *testing.T, l *Lobby, origin, agent, name string) (domain.MemberID, *fakeConn) {
	t.Helper()
	c := &fakeConn{addr: origin}
	id, err := l.Connect(origin, agent, name, c)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	return id, c
}

func send(t *testing.T, l *Lobby, id domain.MemberID, c *fakeConn, frame string) {
	t.Helper()
	if err := l.Handle(id, c, []byte(frame)); err != nil {
		t.Fatalf("Handle: %v", err)
	}
}

// inspect reads lobby state on its goroutine.
func inspect(t *testing.T, l *Lobby, fn func()) {
	t.Helper()
	if err := l.do(fn); err != nil {
		t.Fatalf("do: %v", err)
	}
}

func waitFor(t *testing.T, l *Lobby, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		var okNow bool
		inspect(t, l, func() { okNow = cond() })
		if okNow {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached")
}
