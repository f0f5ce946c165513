package httpx

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/dmitritashenov-cyber/video-chat/internal/store"
	"github.com/dmitritashenov-cyber/video-chat/pkg/auth"
)

// AuthAPI is the token flow for non-browser clients; it shares the user
// directory with the form flow.
type AuthAPI struct {
	Users UserDirectory
	JWT   *auth.JWT
}

type loginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}
type tokenResp struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	Created  bool   `json:"created"`
}

// Login verifies (or registers) credentials and returns a JWT
func (a *AuthAPI) Login(w http.ResponseWriter, r *http.Request) {
	var req loginReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad payload", http.StatusBadRequest)
		return
	}
	if !validUsername(req.Username) || len(req.Password) < 3 {
		http.Error(w, "invalid username or password", http.StatusBadRequest)
		return
	}

	res, err := a.Users.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if res == store.AuthWrongPassword {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	// Issue token for 24hrs
	tok, _ := a.JWT.Sign(req.Username, 24*time.Hour)
	writeJSON(w, tokenResp{Token: tok, Username: req.Username, Created: res == store.AuthCreated})
}

// Me returns the authenticated username
func (a *AuthAPI) Me(w http.ResponseWriter, r *http.Request) {
	username := auth.Username(r.Context())
	if username == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	writeJSON(w, map[string]string{"username": username})
}

// send JSON with proper headers
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
