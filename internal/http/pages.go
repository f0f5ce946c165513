package httpx

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"unicode"

	"log/slog"

	"github.com/dmitritashenov-cyber/video-chat/internal/store"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTmpl = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Pages serves the login/dashboard form flow.
type Pages struct {
	Log   *slog.Logger
	Users UserDirectory
	Rooms RoomAssigner
	Inbox Inbox
}

// validUsername: at least 3 chars, letters/digits plus _ and -, and at
// least one letter or digit.
func validUsername(u string) bool {
	if len(u) < 3 {
		return false
	}
	alnum := 0
	for _, r := range u {
		switch {
		case r == '_' || r == '-':
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			alnum++
		default:
			return false
		}
	}
	return alnum > 0
}

// Login renders the sign-in page.
func (p *Pages) Login(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTmpl.ExecuteTemplate(w, "login.html", nil); err != nil {
		p.Log.Error("page.login", "err", err)
	}
}

// DoLogin handles the sign-in form: first login registers, later logins
// verify the password.
func (p *Pages) DoLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	username := r.PostFormValue("username")
	password := r.PostFormValue("password")

	if !validUsername(username) {
		http.Error(w, "username must be at least 3 characters and contain only letters, numbers, _, or -", http.StatusBadRequest)
		return
	}
	if len(password) < 3 {
		http.Error(w, "password must be at least 3 characters", http.StatusBadRequest)
		return
	}

	res, err := p.Users.Authenticate(r.Context(), username, password)
	if err != nil {
		p.Log.Error("login.authenticate", "username", username, "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if res == store.AuthWrongPassword {
		http.Error(w, "wrong password", http.StatusUnauthorized)
		return
	}

	http.Redirect(w, r, "/dashboard?user="+url.QueryEscape(username), http.StatusFound)
}

type dashboardData struct {
	User     string
	RoomLink string
	Inbox    []string
}

// Dashboard shows the user's persistent room link and drains their inbox.
func (p *Pages) Dashboard(w http.ResponseWriter, r *http.Request) {
	username := r.URL.Query().Get("user")
	ok, err := p.Users.Exists(r.Context(), username)
	if err != nil {
		p.Log.Error("dashboard.exists", "username", username, "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, "user not authenticated", http.StatusUnauthorized)
		return
	}

	roomID, err := p.Rooms.RoomForUser(r.Context(), username)
	if err != nil {
		p.Log.Error("dashboard.room", "username", username, "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	notes, err := p.Inbox.Drain(r.Context(), username)
	if err != nil {
		// inbox trouble should not block the page
		p.Log.Warn("dashboard.inbox", "username", username, "err", err)
		notes = nil
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	data := dashboardData{
		User:     username,
		RoomLink: "/static/room.html?room=" + url.QueryEscape(roomID),
		Inbox:    notes,
	}
	if err := pageTmpl.ExecuteTemplate(w, "dashboard.html", data); err != nil {
		p.Log.Error("page.dashboard", "err", err)
	}
}

// SendLink queues a room invite in another user's inbox. Unknown recipients
// redirect silently so usernames cannot be enumerated.
func (p *Pages) SendLink(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	sender := r.PostFormValue("sender")
	recipient := r.PostFormValue("recipient")
	link := r.PostFormValue("link")

	ok, err := p.Users.Exists(r.Context(), sender)
	if err != nil || !ok {
		http.Error(w, "sender not authenticated", http.StatusUnauthorized)
		return
	}

	back := "/dashboard?user=" + url.QueryEscape(sender)

	ok, err = p.Users.Exists(r.Context(), recipient)
	if err != nil || !ok {
		p.Log.Warn("send_link.unknown_recipient", "sender", sender, "recipient", recipient)
		http.Redirect(w, r, back, http.StatusFound)
		return
	}

	if recipient != sender {
		note := fmt.Sprintf("From %s: %s", sender, link)
		if err := p.Inbox.Append(r.Context(), recipient, note); err != nil {
			p.Log.Error("send_link.append", "recipient", recipient, "err", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		p.Log.Info("send_link.sent", "sender", sender, "recipient", recipient)
	}

	http.Redirect(w, r, back, http.StatusFound)
}
