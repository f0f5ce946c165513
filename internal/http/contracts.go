package httpx

import (
	"context"

	"github.com/dmitritashenov-cyber/video-chat/internal/store"
)

// Collaborator contracts the handlers consume. The signaling core never
// touches these; they are wired here and implemented by internal/store and
// internal/inbox.

type UserDirectory interface {
	Authenticate(ctx context.Context, username, password string) (store.AuthResult, error)
	Exists(ctx context.Context, username string) (bool, error)
	Count(ctx context.Context) (int, error)
}

type RoomAssigner interface {
	RoomForUser(ctx context.Context, username string) (string, error)
}

type Inbox interface {
	Append(ctx context.Context, username, text string) error
	Drain(ctx context.Context, username string) ([]string, error)
}

// RoomCounter is the hub's read-only surface for the health endpoint.
type RoomCounter interface {
	Rooms() int
}
