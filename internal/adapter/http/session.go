package http

import (
	"net/http"

	"github.com/couchcryptid/pandora-dashboard/internal/dashboard"
)

// SessionCookie carries the browser session id.
const SessionCookie = "pandora_session"

// session returns the request's session id, issuing a new cookie when the
// request has none or an invalid one.
func session(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(SessionCookie); err == nil && dashboard.ValidSessionID(c.Value) {
		return c.Value
	}
	id := dashboard.NewSessionID()
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}
