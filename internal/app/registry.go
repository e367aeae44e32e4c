package app

import (
	"sync"

	"github.com/google/uuid"

	"github.com/savr-devTeam/savr.ai/internal/broadcast"
	"github.com/savr-devTeam/savr.ai/internal/storage"
)

// Registry tracks the open instances of every user.
type Registry struct {
	base storage.Storage
	hub  *broadcast.Hub

	mu        sync.RWMutex
	instances map[string]*Instance
}

// NewRegistry creates a Registry. Each user gets base namespaced by user id.
func NewRegistry(base storage.Storage, hub *broadcast.Hub) *Registry {
	return &Registry{base: base, hub: hub, instances: make(map[string]*Instance)}
}

// Hub returns the broadcast hub shared by all instances.
func (r *Registry) Hub() *broadcast.Hub {
	return r.hub
}

// UserStorage returns the storage namespace of userID.
func (r *Registry) UserStorage(userID string) storage.Storage {
	return storage.WithPrefix(r.base, userID)
}

// Open creates and mounts a new instance for userID.
func (r *Registry) Open(userID string) *Instance {
	inst := NewInstance(uuid.NewString(), userID, r.UserStorage(userID), r.hub)
	inst.Mount()

	r.mu.Lock()
	r.instances[inst.ID] = inst
	r.mu.Unlock()
	return inst
}

// Get returns the instance with id if it belongs to userID.
func (r *Registry) Get(userID, id string) (*Instance, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inst, ok := r.instances[id]
	if !ok || inst.UserID != userID {
		return nil, false
	}
	return inst, true
}

// Close unmounts and forgets the instance. It reports whether it existed.
func (r *Registry) Close(userID, id string) bool {
	r.mu.Lock()
	inst, ok := r.instances[id]
	if ok && inst.UserID == userID {
		delete(r.instances, id)
	} else {
		ok = false
	}
	r.mu.Unlock()

	if ok {
		inst.Unmount()
	}
	return ok
}

// ForUser lists the open instances of userID.
func (r *Registry) ForUser(userID string) []*Instance {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Instance
	for _, inst := range r.instances {
		if inst.UserID == userID {
			out = append(out, inst)
		}
	}
	return out
}

// Count returns the number of open instances across all users.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.instances)
}

// CloseAll unmounts every instance.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	all := r.instances
	r.instances = make(map[string]*Instance)
	r.mu.Unlock()

	for _, inst := range all {
		inst.Unmount()
	}
}
