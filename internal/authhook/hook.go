package authhook

import (
	"context"
	"log/slog"
	"net/url"
	"sync"

	"github.com/personalcms/web/internal/domain"
)

// Query parameters the backend may append when redirecting back to a page.
const (
	TokenParam = "token"
	ErrorParam = "error"
)

// CookieStore persists the session token
type CookieStore interface {
	Set(token string)
	Get() (string, bool)
	Clear()
}

// Navigator changes the browser location. Replace rewrites the current
// entry, Push adds a new one.
type Navigator interface {
	Replace(path string)
	Push(path string)
}

// ProfileFetcher resolves a token into a user
type ProfileFetcher interface {
	Me(ctx context.Context, token string) (*domain.User, error)
}

// UserStore receives the resolved user
type UserStore interface {
	SetUser(token string, user *domain.User)
}

// Deps are the collaborators of a Hook
type Deps struct {
	Cookies   CookieStore
	Navigator Navigator
	API       ProfileFetcher
	Users     UserStore
	Logger    *slog.Logger
}

// State is what a page observes
type State struct {
	User    *domain.User
	Loading bool
}

type fetchResult struct {
	user *domain.User
	err  error
}

// Hook resolves the current visitor from the URL and the session cookie.
// Mount runs once; the profile fetch runs in the background and its outcome
// is applied by Wait on the caller's goroutine, so state has a single writer.
type Hook struct {
	location *url.URL
	deps     Deps

	once   sync.Once
	mu     sync.Mutex
	state  State
	token  string
	result chan fetchResult
	cancel context.CancelFunc
}

// New creates a hook for a page at location
func New(location *url.URL, deps Deps) *Hook {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	loc := *location
	return &Hook{
		location: &loc,
		deps:     deps,
		state:    State{Loading: true},
	}
}

// Mount inspects the location and starts resolving the user. Calls after the first are no-ops.
func (h *Hook) Mount(ctx context.Context) {
	h.once.Do(func() {
		q := h.location.Query()

		if token := q.Get(TokenParam); token != "" {
			h.deps.Cookies.Set(token)
			h.deps.Navigator.Replace(withoutParam(h.location, TokenParam))
			h.startFetch(ctx, token)
			return
		}

		if reason := q.Get(ErrorParam); reason != "" {
			h.deps.Logger.ErrorContext(ctx, "Auth error", "error", domain.WrapAuthProvider(reason))
			h.finish(nil)
			return
		}

		if token, ok := h.deps.Cookies.Get(); ok {
			h.startFetch(ctx, token)
			return
		}

		h.finish(nil)
	})
}

// Wait blocks until the profile fetch settles or ctx is done, then returns the state.
// A state still Loading means ctx expired first.
func (h *Hook) Wait(ctx context.Context) State {
	h.mu.Lock()
	ch := h.result
	h.mu.Unlock()

	if ch != nil {
		select {
		case r := <-ch:
			h.apply(ctx, r)
		case <-ctx.Done():
		}
	}
	return h.State()
}

// State returns the current state
func (h *Hook) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Logout forgets the user, deletes the session cookie and navigates home.
// Safe to call at any time, including while a fetch is in flight.
func (h *Hook) Logout() {
	h.mu.Lock()
	token := h.token
	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
	h.result = nil
	h.state = State{}
	h.mu.Unlock()

	if token == "" {
		token, _ = h.deps.Cookies.Get()
	}
	h.deps.Cookies.Clear()
	if h.deps.Users != nil && token != "" {
		h.deps.Users.SetUser(token, nil)
	}
	h.deps.Navigator.Push("/")
}

// Close abandons an in-flight fetch
func (h *Hook) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
}

func (h *Hook) startFetch(ctx context.Context, token string) {
	fetchCtx, cancel := context.WithCancel(ctx)
	ch := make(chan fetchResult, 1)

	h.mu.Lock()
	h.token = token
	h.result = ch
	h.cancel = cancel
	h.mu.Unlock()

	go func() {
		user, err := h.deps.API.Me(fetchCtx, token)
		ch <- fetchResult{user: user, err: err}
	}()
}

func (h *Hook) apply(ctx context.Context, r fetchResult) {
	if r.err != nil {
		h.deps.Logger.ErrorContext(ctx, "Error fetching user", "error", r.err)
		h.Logout()
		return
	}

	h.mu.Lock()
	token := h.token
	h.result = nil
	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
	h.mu.Unlock()

	if h.deps.Users != nil {
		h.deps.Users.SetUser(token, r.user)
	}
	h.finish(r.user)
}

func (h *Hook) finish(user *domain.User) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.state = State{User: user, Loading: false}
}

// withoutParam returns the request URI of u with name removed from the query
func withoutParam(u *url.URL, name string) string {
	q := u.Query()
	q.Del(name)

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if encoded := q.Encode(); encoded != "" {
		return path + "?" + encoded
	}
	return path
}
