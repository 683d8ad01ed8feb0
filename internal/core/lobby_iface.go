package core

import (
	"context"

	"github.com/dkeye/PartyCast/internal/domain"
	"github.com/dkeye/PartyCast/internal/protocol"
)

// Catalog is the song collection the lobby serves requests from.
type Catalog interface {
	// Reload rescans the source. It may be slow and runs off the lobby goroutine.
	Reload(ctx context.Context) ([]domain.CatalogEntry, error)
	Lookup(id domain.CatalogEntryID) (domain.CatalogEntry, bool)
}

// Listener observes lobby changes. Calls run on the lobby goroutine with
// copies of the state, so implementations must not block or call back into the lobby.
type Listener interface {
	OnConnected(title string)
	OnMemberJoined(m domain.Member)
	OnMemberLeft(m domain.Member)
	OnMemberUpdated(m domain.Member)
	OnLobbyStateChanged(s protocol.Lobby)
	OnQueueUpdated(l protocol.Looper)
	OnCatalogUpdated(entries []domain.CatalogEntry)
}

// NopListener can be embedded to implement only some callbacks.
type NopListener struct{}

func (NopListener) OnConnected(string) {}
func (NopListener) OnMemberJoined(domain.Member) {}
func (NopListener) OnMemberLeft(domain.Member) {}
func (NopListener) OnMemberUpdated(domain.Member) {}
func (NopListener) OnLobbyStateChanged(protocol.Lobby) {}
func (NopListener) OnQueueUpdated(protocol.Looper) {}
func (NopListener) OnCatalogUpdated([]domain.CatalogEntry) {}
