package session

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/personalcms/web/internal/domain"
)

// Options controls the attributes of the session cookie
type Options struct {
	Domain string
	Secure bool
	MaxAge time.Duration
}

// Store reads and writes the auth_token cookie for a single request.
// Writes are visible to later reads in the same request, and only the last
// write of a request reaches the browser.
type Store struct {
	c       *gin.Context
	opts    Options
	overlay *string
}

// New binds a cookie store to the request in c
func New(c *gin.Context, opts Options) *Store {
	if opts.MaxAge <= 0 {
		opts.MaxAge = domain.SessionLifetime
	}
	return &Store{c: c, opts: opts}
}

// Set stores token as the session credential
func (s *Store) Set(token string) {
	s.write(&http.Cookie{
		Name:     domain.SessionCookieName,
		Value:    token,
		Path:     "/",
		Domain:   s.opts.Domain,
		MaxAge:   int(s.opts.MaxAge / time.Second),
		Expires:  time.Now().Add(s.opts.MaxAge),
		HttpOnly: true,
		Secure:   s.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	s.overlay = &token
}

// Get returns the session token, if any
func (s *Store) Get() (string, bool) {
	if s.overlay != nil {
		return *s.overlay, *s.overlay != ""
	}
	cookie, err := s.c.Request.Cookie(domain.SessionCookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}

// Token returns the session token or domain.ErrSessionMissing
func (s *Store) Token() (string, error) {
	token, ok := s.Get()
	if !ok {
		return "", domain.ErrSessionMissing
	}
	return token, nil
}

// Clear deletes the session cookie; clearing an absent cookie is a no-op for the browser
func (s *Store) Clear() {
	s.write(&http.Cookie{
		Name:     domain.SessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   s.opts.Domain,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   s.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	empty := ""
	s.overlay = &empty
}

// write replaces any Set-Cookie already queued for the session cookie
func (s *Store) write(cookie *http.Cookie) {
	h := s.c.Writer.Header()
	prefix := cookie.Name + "="

	var kept []string
	for _, v := range h.Values("Set-Cookie") {
		if !strings.HasPrefix(v, prefix) {
			kept = append(kept, v)
		}
	}
	h.Del("Set-Cookie")
	for _, v := range kept {
		h.Add("Set-Cookie", v)
	}

	http.SetCookie(s.c.Writer, cookie)
}
