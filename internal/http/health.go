package httpx

import (
	"net/http"

	"log/slog"
)

// Health reports liveness plus the relay's basic occupancy counts.
type Health struct {
	Log   *slog.Logger
	Hub   RoomCounter
	Users UserDirectory
}

type healthResp struct {
	Status      string `json:"status"`
	ActiveRooms int    `json:"active_rooms"`
	TotalUsers  int    `json:"total_users"`
}

func (h *Health) Get(w http.ResponseWriter, r *http.Request) {
	users, err := h.Users.Count(r.Context())
	if err != nil {
		h.Log.Error("health.users", "err", err)
		http.Error(w, "unhealthy", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, healthResp{
		Status:      "healthy",
		ActiveRooms: h.Hub.Rooms(),
		TotalUsers:  users,
	})
}
