package ws

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitritashenov-cyber/video-chat/pkg/metrics"
)

const (
	clientIDLen  = 8
	admitRetries = 16
)

var (
	// ErrNoClientID means the ID space within one room was exhausted.
	ErrNoClientID = errors.New("could not allocate a unique client id")

	errRoomCondemned = errors.New("room condemned")
)

// newClientID returns a short opaque token; uniqueness only matters within
// one room's membership, which Admit enforces with a retry loop.
func newClientID() string {
	return uuid.NewString()[:clientIDLen]
}

// Hub is the room registry: all membership mutation goes through Admit and
// Remove, delivery reads a snapshot and never mutates.
type Hub struct {
	log      *slog.Logger
	met      *metrics.Signaling
	sendWait time.Duration

	mu    sync.RWMutex
	rooms map[string]*Room // active rooms by key
}

// NewHub sets up the hub with logger + metrics
func NewHub(logger *slog.Logger, met *metrics.Signaling, sendWait time.Duration) *Hub {
	return &Hub{log: logger, met: met, sendWait: sendWait, rooms: map[string]*Room{}}
}

// room returns the Room for a key, creating it if needed
func (h *Hub) room(key string) *Room {
	h.mu.Lock()
	defer h.mu.Unlock()
	rm := h.rooms[key]
	if rm == nil {
		rm = newRoom(key)
		h.rooms[key] = rm
		h.met.RoomsActive.Inc()
		h.log.Info("room.created", "room", key)
	}
	return rm
}

func (h *Hub) lookup(key string) *Room {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.rooms[key]
}

// Admit adds a connection to a room, creating the room lazily, and returns
// the generated client ID plus the effective display name.
func (h *Hub) Admit(roomKey, displayName string, c *Conn) (string, string, error) {
	for {
		rm := h.room(roomKey)
		id, name, err := rm.admit(displayName, c)
		if errors.Is(err, errRoomCondemned) {
			// lost a race with the remove that emptied this room
			continue
		}
		if err != nil {
			return "", "", err
		}
		h.met.ClientsConnected.Inc()
		h.log.Info("client.joined", "room", roomKey, "client", id, "username", name, "members", rm.size())
		return id, name, nil
	}
}

// Snapshot lists a room's members excluding one client ID.
func (h *Hub) Snapshot(roomKey, excluding string) []Peer {
	rm := h.lookup(roomKey)
	if rm == nil {
		return nil
	}
	return rm.peers(excluding)
}

// Remove deregisters a client. Removing an absent member or a member of an
// absent room is a no-op; disconnect races make double-removal expected.
// A room emptied here is deleted from the registry in the same step.
func (h *Hub) Remove(roomKey, clientID string) {
	rm := h.lookup(roomKey)
	if rm == nil {
		return
	}
	removed, emptied := rm.drop(clientID)
	if !removed {
		return
	}
	h.met.ClientsConnected.Dec()
	h.log.Info("client.left", "room", roomKey, "client", clientID, "members", rm.size())
	if emptied {
		h.mu.Lock()
		if h.rooms[roomKey] == rm {
			delete(h.rooms, roomKey)
		}
		h.mu.Unlock()
		h.met.RoomsActive.Dec()
		h.log.Info("room.removed", "room", roomKey)
	}
}

// Deliver sends payload to the recipients selected by t and reports the
// client IDs that failed. Failures are not retried and membership is not
// touched; pruning is the caller's job via Remove.
func (h *Hub) Deliver(roomKey string, payload []byte, t Target) []string {
	rm := h.lookup(roomKey)
	if rm == nil {
		return nil
	}

	var failed []string
	for id, c := range rm.recipients(t) {
		if err := c.Send(payload); err != nil {
			h.met.DeliveryFailures.Inc()
			h.log.Warn("deliver.failed", "room", roomKey, "client", id, "err", err)
			failed = append(failed, id)
		}
	}
	return failed
}

// Rooms reports the number of active rooms (health endpoint).
func (h *Hub) Rooms() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

// CloseAll closes every connection so each session drains through its
// normal teardown path. Used on process shutdown.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	rooms := make([]*Room, 0, len(h.rooms))
	for _, rm := range h.rooms {
		rooms = append(rooms, rm)
	}
	h.mu.RUnlock()

	for _, rm := range rooms {
		rm.mu.RLock()
		conns := make([]*Conn, 0, len(rm.members))
		for _, m := range rm.members {
			conns = append(conns, m.conn)
		}
		rm.mu.RUnlock()
		for _, c := range conns {
			_ = c.Close()
		}
	}
}
