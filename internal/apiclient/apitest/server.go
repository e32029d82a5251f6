// Package apitest runs an in-process stand-in for the backend API: the OAuth
// login redirect and the bearer-authenticated profile endpoint.
package apitest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt"

	"github.com/personalcms/web/internal/apipaths"
	"github.com/personalcms/web/internal/domain"
)

// Server mimics the backend: HS256 tokens with the user id as subject.
type Server struct {
	*httptest.Server

	secret []byte

	mu          sync.Mutex
	users       map[string]domain.User // by id
	static      map[string]string      // opaque token -> user id
	failStatus  int
	rawBody     string
	delay       time.Duration
	seenTokens  []string
	callbackURL string
	loginToken  string
	loginError  string
}

// NewServer starts a fake backend that is closed with the test
func NewServer(t testing.TB) *Server {
	t.Helper()

	s := &Server{
		secret: []byte("apitest-secret"),
		users:  make(map[string]domain.User),
		static: make(map[string]string),
	}

	mux := http.NewServeMux()
	mux.HandleFunc(apipaths.AuthMe, s.handleMe)
	mux.HandleFunc(apipaths.AuthLogin, s.handleLogin)
	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)

	return s
}

// AddUser registers u and returns a signed token for it
func (s *Server) AddUser(u domain.User) string {
	s.mu.Lock()
	s.users[u.ID] = u
	s.mu.Unlock()

	claims := jwt.StandardClaims{
		Subject:   u.ID,
		IssuedAt:  time.Now().Unix(),
		ExpiresAt: time.Now().Add(30 * time.Minute).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		panic(fmt.Sprintf("apitest: sign token: %v", err))
	}
	return signed
}

// ExpiredToken returns a correctly signed token that has already expired
func (s *Server) ExpiredToken(userID string) string {
	claims := jwt.StandardClaims{
		Subject:   userID,
		ExpiresAt: time.Now().Add(-time.Minute).Unix(),
	}
	signed, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	return signed
}

// RegisterToken maps an opaque token to u
func (s *Server) RegisterToken(token string, u domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
	s.static[token] = u.ID
}

// FailWith makes every profile request answer status
func (s *Server) FailWith(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failStatus = status
}

// RespondRaw makes every profile request answer 200 with body
func (s *Server) RespondRaw(body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rawBody = body
}

// Delay holds every profile response for d
func (s *Server) Delay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
}

// SeenTokens lists the bearer tokens presented to the profile endpoint
func (s *Server) SeenTokens() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.seenTokens...)
}

// CompleteLoginWith makes the login endpoint redirect to callbackURL with token
func (s *Server) CompleteLoginWith(callbackURL, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callbackURL = callbackURL
	s.loginToken = token
	s.loginError = ""
}

// DenyLoginWith makes the login endpoint redirect to callbackURL with an error
func (s *Server) DenyLoginWith(callbackURL, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callbackURL = callbackURL
	s.loginToken = ""
	s.loginError = reason
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	target, token, reason := s.callbackURL, s.loginToken, s.loginError
	s.mu.Unlock()

	if target == "" {
		http.Error(w, "login not configured", http.StatusServiceUnavailable)
		return
	}

	q := url.Values{}
	if reason != "" {
		q.Set("error", reason)
	} else {
		q.Set("access_token", token)
	}
	http.Redirect(w, r, target+"?"+q.Encode(), http.StatusFound)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")

	s.mu.Lock()
	s.seenTokens = append(s.seenTokens, token)
	failStatus, rawBody, delay := s.failStatus, s.rawBody, s.delay
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}
	if failStatus != 0 {
		http.Error(w, `{"detail":"forced failure"}`, failStatus)
		return
	}
	if rawBody != "" {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(rawBody))
		return
	}

	user, ok := s.lookup(token)
	if !ok {
		http.Error(w, `{"detail":"Could not validate credentials"}`, http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(user)
}

func (s *Server) lookup(token string) (domain.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.static[token]; ok {
		u, ok := s.users[id]
		return u, ok
	}

	claims := &jwt.StandardClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return domain.User{}, false
	}
	u, ok := s.users[claims.Subject]
	return u, ok
}
