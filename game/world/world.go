package world

import (
	"sort"
	"sync"

	"go.uber.org/zap"
)

// WorldManager manages all active Room instances.
type WorldManager struct {
	mu     sync.RWMutex
	rooms  map[string]*Room
	opts   RoomOptions
	setup  func(*Room)
	logger *zap.Logger
}

// NewWorldManager creates a WorldManager. setup, if not nil, runs on every
// new room before its loop starts (obstacles, player, spawner).
func NewWorldManager(opts RoomOptions, setup func(*Room), logger *zap.Logger) *WorldManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WorldManager{
		rooms:  make(map[string]*Room),
		opts:   opts,
		setup:  setup,
		logger: logger,
	}
}

// GetOrCreate returns the Room for id, creating and starting it if needed.
func (wm *WorldManager) GetOrCreate(id string) *Room {
	// Fast path: room already exists.
	wm.mu.RLock()
	room, ok := wm.rooms[id]
	wm.mu.RUnlock()
	if ok {
		return room
	}

	// Slow path: create a new room.
	wm.mu.Lock()
	defer wm.mu.Unlock()
	// Double-check after acquiring write lock.
	if room, ok = wm.rooms[id]; ok {
		return room
	}
	room = NewRoom(id, wm.opts, wm.logger)
	if wm.setup != nil {
		wm.setup(room)
	}
	wm.rooms[id] = room
	go room.Run()
	wm.logger.Info("room created", zap.String("room_id", id))
	return room
}

// Get returns the Room for id, or nil if it does not exist.
func (wm *WorldManager) Get(id string) *Room {
	wm.mu.RLock()
	defer wm.mu.RUnlock()
	return wm.rooms[id]
}

// Rooms returns the active rooms ordered by id.
func (wm *WorldManager) Rooms() []*Room {
	wm.mu.RLock()
	out := make([]*Room, 0, len(wm.rooms))
	for _, r := range wm.rooms {
		out = append(out, r)
	}
	wm.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Destroy stops and removes the Room for id.
func (wm *WorldManager) Destroy(id string) {
	wm.mu.Lock()
	room, ok := wm.rooms[id]
	if ok {
		delete(wm.rooms, id)
	}
	wm.mu.Unlock()
	if ok {
		room.Stop()
		wm.logger.Info("room destroyed", zap.String("room_id", id))
	}
}

// ActiveRoomCount returns the number of active rooms.
func (wm *WorldManager) ActiveRoomCount() int {
	wm.mu.RLock()
	defer wm.mu.RUnlock()
	return len(wm.rooms)
}

// StopAll stops all active rooms (used at server shutdown).
func (wm *WorldManager) StopAll() {
	wm.mu.Lock()
	rooms := make([]*Room, 0, len(wm.rooms))
	for _, r := range wm.rooms {
		rooms = append(rooms, r)
	}
	wm.rooms = make(map[string]*Room)
	wm.mu.Unlock()
	for _, r := range rooms {
		r.Stop()
	}
}
