package signal

import (
	"testing"
	"time"
)

func TestHandshakeLimiterWindow(t *testing.T) {
	rl := NewHandshakeLimiter(2, time.Minute)
	now := time.Unix(1000, 0)
	rl.now = func() time.Time { return now }

	if !rl.Allow("10.0.0.2") || !rl.Allow("10.0.0.2") {
		t.Fatal("first two attempts must pass")
	}
	if rl.Allow("10.0.0.2") {
		t.Fatal("third attempt inside the window must be blocked")
	}
	if !rl.Allow("10.0.0.3") {
		t.Fatal("origins are limited separately")
	}

	now = now.Add(61 * time.Second)
	if !rl.Allow("10.0.0.2") {
		t.Fatal("attempt after the window must pass")
	}
}
