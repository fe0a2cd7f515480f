package game

import (
	"sort"
	"sync"
)

// Registry is the in-memory mapping of room IDs to rooms. IDs are
// monotonically increasing and never reused, even after deletion.
type Registry struct {
	mu     sync.RWMutex
	rooms  map[int64]*Room
	nextID int64
}

// NewRegistry returns an empty registry
func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[int64]*Room),
	}
}

// Create allocates a room with the next identifier and registers it
func (r *Registry) Create(name string, creatorID int64, betAmount, maxPlayers int, password string) *Room {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	room := &Room{
		ID:         r.nextID,
		Name:       name,
		CreatorID:  creatorID,
		BetAmount:  betAmount,
		MaxPlayers: maxPlayers,
		password:   password,
		Status:     StatusWaiting,
		Phase:      PhaseWaiting,
	}

	r.rooms[room.ID] = room
	return room
}

// Get returns the room with the given ID
func (r *Registry) Get(id int64) (*Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.rooms[id]
	return room, ok
}

// Delete removes the room with the given ID. Deleting an unknown ID is
// a no-op.
func (r *Registry) Delete(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.rooms, id)
}

// list snapshots the current rooms. Callers must not hold any room lock
// they expect other goroutines to release.
func (r *Registry) list() []*Room {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rooms := make([]*Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		rooms = append(rooms, room)
	}

	return rooms
}

// Summaries returns the lobby projection of every room, ordered by ID.
// Room locks are taken one at a time, never while holding the registry
// lock.
func (r *Registry) Summaries() []*Summary {
	rooms := r.list()

	summaries := make([]*Summary, 0, len(rooms))
	for _, room := range rooms {
		summaries = append(summaries, room.Summary())
	}

	// map iteration order is random
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].ID < summaries[j].ID
	})

	return summaries
}
