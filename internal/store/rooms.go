package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// RoomForUser returns the user's stable room assignment, minting one on
// first call. The assignment survives restarts; concurrent first calls
// converge on whichever insert won.
func (p *Postgres) RoomForUser(ctx context.Context, username string) (string, error) {
	username = normUsername(username)

	var roomID string
	err := p.pool.QueryRow(ctx, `
		SELECT room_id FROM room_assignments WHERE username = $1
	`, username).Scan(&roomID)
	if err == nil {
		return roomID, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", err
	}

	roomID = uuid.NewString()[:8]
	_, err = p.pool.Exec(ctx, `
		INSERT INTO room_assignments (username, room_id)
		VALUES ($1, $2)
		ON CONFLICT (username) DO NOTHING
	`, username, roomID)
	if err != nil {
		return "", err
	}

	// read back in case a concurrent insert won
	err = p.pool.QueryRow(ctx, `
		SELECT room_id FROM room_assignments WHERE username = $1
	`, username).Scan(&roomID)
	if err != nil {
		return "", err
	}
	p.log.Info("room.assigned", "username", username, "room", roomID)
	return roomID, nil
}
