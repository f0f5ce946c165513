package ws

import "sync"

// Target selects the recipient set for one delivery.
type Target struct {
	to      string // non-empty: exactly this member
	exclude string // all-except mode: this member is skipped
}

// To addresses a single member.
func To(id string) Target { return Target{to: id} }

// AllExcept addresses every member but the sender.
func AllExcept(sender string) Target { return Target{exclude: sender} }

type member struct {
	name string
	conn *Conn // non-owning; the session controls the connection's lifecycle
}

// Room holds one room's membership under its own lock so unrelated rooms
// never serialize on each other.
type Room struct {
	key string

	mu      sync.RWMutex
	members map[string]member
	closed  bool // emptied and removed from the hub; admits must re-create
}

func newRoom(key string) *Room {
	return &Room{key: key, members: map[string]member{}}
}

// admit picks a client ID unique within the room and inserts the member.
// Returns errRoomCondemned if the room was emptied concurrently, in which
// case the caller retries against a fresh room entry.
func (r *Room) admit(name string, c *Conn) (string, string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return "", "", errRoomCondemned
	}

	var id string
	for i := 0; ; i++ {
		if i == admitRetries {
			return "", "", ErrNoClientID
		}
		id = newClientID()
		if _, taken := r.members[id]; !taken {
			break
		}
	}

	if name == "" {
		name = "user-" + id[:4]
	}
	r.members[id] = member{name: name, conn: c}
	return id, name, nil
}

// drop removes a member if present. Reports whether anything was removed and
// whether the room emptied as a result; an emptied room is condemned in the
// same step so a racing admit cannot resurrect it.
func (r *Room) drop(id string) (removed, emptied bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.members[id]; !ok {
		return false, false
	}
	delete(r.members, id)
	if len(r.members) == 0 {
		r.closed = true
		return true, true
	}
	return true, false
}

// peers lists current members excluding one ID
func (r *Room) peers(excluding string) []Peer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Peer, 0, len(r.members))
	for id, m := range r.members {
		if id == excluding {
			continue
		}
		out = append(out, Peer{ID: id, Username: m.name})
	}
	return out
}

// recipients snapshots the connections matching t. Delivery itself happens
// outside the room lock; a member vanishing mid-broadcast surfaces as a
// failed send, not a crash.
func (r *Room) recipients(t Target) map[string]*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := map[string]*Conn{}
	if t.to != "" {
		if m, ok := r.members[t.to]; ok && t.to != t.exclude {
			out[t.to] = m.conn
		}
		return out
	}
	for id, m := range r.members {
		if id == t.exclude {
			continue
		}
		out[id] = m.conn
	}
	return out
}

func (r *Room) size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members)
}
