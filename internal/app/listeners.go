package app

import (
	"slices"
	"sync"

	"github.com/dkeye/PartyCast/internal/core"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/panics"
)

type listenerSet struct {
	mu    sync.Mutex
	items []core.Listener
}

func (ls *listenerSet) add(l core.Listener) {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	ls.items = append(ls.items, l)
}

func (ls *listenerSet) remove(l core.Listener) {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	ls.items = slices.DeleteFunc(ls.items, func(x core.Listener) bool { return x == l })
}

// notify calls fn for every listener registered at call time.
// A panicking listener is logged and skipped.
func (ls *listenerSet) notify(event string, fn func(core.Listener)) {
	ls.mu.Lock()
	snapshot := slices.Clone(ls.items)
	ls.mu.Unlock()

	for _, l := range snapshot {
		if r := panics.Try(func() { fn(l) }); r != nil {
			log.Error().Err(r.AsError()).Str("module", "app.listeners").Str("event", event).Msg("listener failed")
		}
	}
}
