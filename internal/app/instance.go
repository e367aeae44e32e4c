package app

import (
	"sync"

	"github.com/savr-devTeam/savr.ai/internal/broadcast"
	"github.com/savr-devTeam/savr.ai/internal/dragdrop"
	"github.com/savr-devTeam/savr.ai/internal/pantry"
	"github.com/savr-devTeam/savr.ai/internal/storage"
	"github.com/savr-devTeam/savr.ai/internal/week"
)

// ChannelName scopes the shared broadcast channel to one user.
func ChannelName(userID string) string {
	return week.ChannelName + ":" + userID
}

// Instance is one open planning view: a week board, a pantry and the
// drag-drop routing between them, kept in sync with the user's other views.
type Instance struct {
	ID     string
	UserID string

	Week   *week.Store
	Pantry *pantry.Store
	Drops  *dragdrop.Controller

	hub *broadcast.Hub

	mu          sync.Mutex
	mounted     bool
	channel     *broadcast.Channel
	unsubscribe func()
}

// NewInstance loads the persisted week and pantry from s. hub may be nil, in
// which case the instance runs alone.
func NewInstance(id, userID string, s storage.Storage, hub *broadcast.Hub) *Instance {
	ws := week.NewStore(s)
	return &Instance{
		ID:     id,
		UserID: userID,
		Week:   ws,
		Pantry: pantry.NewStore(s),
		Drops:  dragdrop.NewController(ws),
		hub:    hub,
	}
}

// Mount joins the user's channel, wires commit publishing and remote updates,
// and runs one pantry sync against the loaded week. Mount is idempotent.
func (i *Instance) Mount() {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.mounted {
		return
	}
	i.mounted = true

	var bc *week.Broadcaster
	if i.hub != nil {
		i.channel = i.hub.Open(ChannelName(i.UserID))
		bc = week.NewBroadcaster(i.channel)
	} else {
		bc = week.NewBroadcaster(nil)
	}

	// Pantry storage is shared with the receivers, so sync it before they
	// hear about the new week.
	i.unsubscribe = i.Week.OnCommit(func(g week.Grid) {
		i.Pantry.AutoSyncFromPlan(g)
		bc.Publish(g)
	})
	bc.OnReceive(func(g week.Grid) {
		i.Week.Apply(g)
		// The sender already synced the shared pantry; pick up its list first.
		i.Pantry.Load()
		i.Pantry.AutoSyncFromPlan(g)
	})

	i.Pantry.AutoSyncFromPlan(i.Week.Grid())
}

// Unmount leaves the channel and stops publishing. Unmount is idempotent.
func (i *Instance) Unmount() {
	i.mu.Lock()
	defer i.mu.Unlock()
	if !i.mounted {
		return
	}
	i.mounted = false
	if i.unsubscribe != nil {
		i.unsubscribe()
		i.unsubscribe = nil
	}
	i.channel.Close()
	i.channel = nil
}

// Synced reports whether the instance is connected to other views.
func (i *Instance) Synced() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.channel != nil
}

// Snapshot is the state a client renders.
type Snapshot struct {
	ID     string        `json:"id"`
	Week   week.Grid     `json:"week"`
	Pantry []pantry.Item `json:"pantry"`
	Synced bool          `json:"synced"`
}

// Snapshot returns the current week and the pantry as last persisted by any
// of the user's views.
func (i *Instance) Snapshot() Snapshot {
	items := i.Pantry.Load()
	if items == nil {
		items = []pantry.Item{}
	}
	return Snapshot{ID: i.ID, Week: i.Week.Grid(), Pantry: items, Synced: i.Synced()}
}
