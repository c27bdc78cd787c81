package session

import (
	"net/http"
	"time"
)

const (
	CookieName = "__Host-reader-session"
)

// CookieOptions defines how session cookies are issued.
type CookieOptions struct {
	Path     string
	Secure   bool
	SameSite http.SameSite
}

// normalize applies safe defaults without breaking callers
func (o CookieOptions) normalize() CookieOptions {
	if o.Path == "" {
		o.Path = "/" // required for __Host-
	}
	if o.SameSite == 0 {
		o.SameSite = http.SameSiteStrictMode
	}
	return o
}

// SetCookie hands the session token to a browser client. The cookie dies
// with the session: its Expires is the session's absolute deadline.
func SetCookie(w http.ResponseWriter, sessionID string, expiresAt time.Time, opts CookieOptions) {
	opts = opts.normalize()

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    sessionID,
		Path:     opts.Path,
		Expires:  expiresAt,
		MaxAge:   int(time.Until(expiresAt).Seconds()),
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: opts.SameSite,
	})
}

// ClearCookie removes the session cookie from the client.
func ClearCookie(w http.ResponseWriter, opts CookieOptions) {
	opts = opts.normalize()

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     opts.Path,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: opts.SameSite,
	})
}

// IDFromCookie returns the session token carried by r, if any.
func IDFromCookie(r *http.Request) string {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return c.Value
}
