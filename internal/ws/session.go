package ws

import (
	"context"
	"log/slog"
	"net/http"
)

type sessionState int

const (
	stateConnecting sessionState = iota
	stateAnnouncing
	stateRelaying
	stateClosing
	stateClosed
)

func (s sessionState) String() string {
	switch s {
	case stateConnecting:
		return "connecting"
	case stateAnnouncing:
		return "announcing"
	case stateRelaying:
		return "relaying"
	case stateClosing:
		return "closing"
	default:
		return "closed"
	}
}

// Session drives one connection through the signaling protocol:
// accept, announce, relay loop, teardown.
type Session struct {
	hub  *Hub
	conn *Conn
	log  *slog.Logger

	room  string
	id    string
	name  string
	state sessionState
}

// ServeWS handles a new GET /ws/{room}?username=NAME connection
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	roomKey := r.PathValue("room")
	if roomKey == "" {
		http.Error(w, "room required", http.StatusBadRequest)
		return
	}
	username := r.URL.Query().Get("username")

	sock, err := Accept(w, r)
	if err != nil {
		// accept failed while connecting: no registry state to undo
		h.log.Error("ws.accept", "room", roomKey, "err", err)
		return
	}
	sock.SetReadLimit(maxMessageSize)

	s := &Session{
		hub:  h,
		conn: NewConn(sock, h.sendWait),
		log:  h.log,
		room: roomKey,
		name: username,
	}
	s.run(r.Context())
}

func (s *Session) run(ctx context.Context) {
	go s.conn.WriteLoop(ctx)

	if err := s.announce(); err != nil {
		// not admitted, so nothing to remove
		s.log.Error("session.announce", "room", s.room, "err", err)
		_ = s.conn.Close()
		s.state = stateClosed
		return
	}

	s.relay(ctx)

	s.state = stateClosing
	s.hub.Remove(s.room, s.id)
	_ = s.conn.Close()
	s.state = stateClosed
	s.log.Debug("session.done", "room", s.room, "client", s.id, "state", s.state)
}

// announce admits the connection, sends it the current roster, and notifies
// existing peers. Peer notification is best-effort; only a failed Admit
// aborts the session.
func (s *Session) announce() error {
	id, name, err := s.hub.Admit(s.room, s.name, s.conn)
	if err != nil {
		return err
	}
	s.state = stateAnnouncing
	s.id, s.name = id, name

	peers := s.hub.Snapshot(s.room, s.id)
	if err := s.conn.Send(encodeExisting(peers, s.id, s.name)); err != nil {
		s.log.Warn("session.roster", "room", s.room, "client", s.id, "err", err)
	}

	notice := encodeNewClient(Peer{ID: s.id, Username: s.name})
	if failed := s.hub.Deliver(s.room, notice, AllExcept(s.id)); len(failed) > 0 {
		s.log.Warn("session.notify", "room", s.room, "client", s.id, "failed", len(failed))
	}

	s.state = stateRelaying
	return nil
}

// relay loops on inbound messages until the transport drops.
func (s *Session) relay(ctx context.Context) {
	for {
		data, ok := s.conn.Read(ctx)
		if !ok {
			return
		}
		msg, err := parseInbound(data)
		if err != nil {
			// a malformed payload costs one message, never the session
			s.log.Debug("session.malformed", "room", s.room, "client", s.id, "err", err)
			continue
		}
		s.route(msg)
	}
}

// route envelopes one parsed message, computes its recipient set, and hands
// it to the hub. Recipients that failed delivery are pruned here; that is
// the only dead-connection sweep.
func (s *Session) route(msg inbound) {
	var payload []byte
	target := AllExcept(s.id)

	switch msg.kind {
	case kindChat:
		if msg.chat == "" {
			return
		}
		payload = encodeChat(s.id, s.name, msg.chat)
		s.hub.met.MessagesRelayed.WithLabelValues("chat").Inc()
	case kindSignal:
		payload = encodeSignal(s.id, s.name, msg.fields)
		if msg.to != "" {
			target = Target{to: msg.to, exclude: s.id}
		}
		s.hub.met.MessagesRelayed.WithLabelValues("signal").Inc()
	}

	for _, fid := range s.hub.Deliver(s.room, payload, target) {
		s.hub.Remove(s.room, fid)
	}
}
