package ws

import (
	"encoding/json"
	"errors"
	"strings"
)

// Peer is one room member as seen on the wire.
type Peer struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Server -> client roster sent once on join.
type existingMsg struct {
	Type         string `json:"type"`
	Clients      []Peer `json:"clients"`
	YourID       string `json:"your_id"`
	YourUsername string `json:"your_username"`
}

// Server -> client notice that a peer joined.
type newClientMsg struct {
	Type   string `json:"type"`
	Client Peer   `json:"client"`
}

// Server -> client chat envelope.
type chatMsg struct {
	From         string `json:"from"`
	FromUsername string `json:"from_username"`
	Chat         string `json:"chat"`
}

type inboundKind int

const (
	kindChat inboundKind = iota
	kindSignal
)

var errNotObject = errors.New("payload is not a JSON object")

// inbound is one parsed client message. A message carrying a "chat" key is
// chat; any other object is an opaque negotiation signal, optionally
// addressed via "to". Everything else about a signal stays uninterpreted.
type inbound struct {
	kind   inboundKind
	chat   string
	to     string
	fields map[string]json.RawMessage
}

func parseInbound(data []byte) (inbound, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return inbound{}, err
	}
	if fields == nil {
		return inbound{}, errNotObject
	}

	if raw, ok := fields["chat"]; ok {
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return inbound{}, err
		}
		return inbound{kind: kindChat, chat: strings.TrimSpace(text)}, nil
	}

	msg := inbound{kind: kindSignal, fields: fields}
	if raw, ok := fields["to"]; ok {
		// optional target; a non-string value falls back to broadcast
		_ = json.Unmarshal(raw, &msg.to)
	}
	return msg, nil
}

func encodeExisting(peers []Peer, selfID, selfName string) []byte {
	if peers == nil {
		peers = []Peer{}
	}
	b, _ := json.Marshal(existingMsg{
		Type:         "existing",
		Clients:      peers,
		YourID:       selfID,
		YourUsername: selfName,
	})
	return b
}

func encodeNewClient(p Peer) []byte {
	b, _ := json.Marshal(newClientMsg{Type: "new_client", Client: p})
	return b
}

func encodeChat(fromID, fromName, text string) []byte {
	b, _ := json.Marshal(chatMsg{From: fromID, FromUsername: fromName, Chat: text})
	return b
}

// encodeSignal re-encodes the original fields verbatim and stamps the
// provenance fields on top. The provenance always wins over anything the
// sender may have put in "from"/"from_username".
func encodeSignal(fromID, fromName string, fields map[string]json.RawMessage) []byte {
	out := make(map[string]json.RawMessage, len(fields)+2)
	for k, v := range fields {
		out[k] = v
	}
	out["from"], _ = json.Marshal(fromID)
	out["from_username"], _ = json.Marshal(fromName)
	b, _ := json.Marshal(out)
	return b
}
