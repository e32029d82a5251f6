package authhook

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/personalcms/web/internal/domain"
	"github.com/personalcms/web/internal/userstore"
)

type fakeCookies struct {
	mu      sync.Mutex
	value   string
	present bool
	writes  []string
}

func (f *fakeCookies) Set(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.value, f.present = token, true
	f.writes = append(f.writes, "set:"+token)
}

func (f *fakeCookies) Get() (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value, f.present
}

func (f *fakeCookies) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.value, f.present = "", false
	f.writes = append(f.writes, "clear")
}

type fakeNav struct {
	replaced []string
	pushed   []string
}

func (n *fakeNav) Replace(path string) { n.replaced = append(n.replaced, path) }
func (n *fakeNav) Push(path string)    { n.pushed = append(n.pushed, path) }

type fakeAPI struct {
	mu      sync.Mutex
	users   map[string]*domain.User
	err     error
	block   chan struct{}
	calls   []string
	cookies *fakeCookies
	// cookieAtCall records the cookie value observed when the fetch was issued
	cookieAtCall []string
}

func (a *fakeAPI) Me(ctx context.Context, token string) (*domain.User, error) {
	a.mu.Lock()
	a.calls = append(a.calls, token)
	if a.cookies != nil {
		value, _ := a.cookies.Get()
		a.cookieAtCall = append(a.cookieAtCall, value)
	}
	a.mu.Unlock()

	if a.block != nil {
		select {
		case <-a.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if a.err != nil {
		return nil, a.err
	}
	if u, ok := a.users[token]; ok {
		return u, nil
	}
	return nil, domain.WrapProfileStatus(401, "unauthorized")
}

func (a *fakeAPI) Calls() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.calls...)
}

var alice = &domain.User{ID: "11111111-1111-1111-1111-111111111111", Username: "alice"}

type fixture struct {
	cookies *fakeCookies
	nav     *fakeNav
	api     *fakeAPI
	users   *userstore.Store
}

func newFixture() *fixture {
	cookies := &fakeCookies{}
	return &fixture{
		cookies: cookies,
		nav:     &fakeNav{},
		api:     &fakeAPI{users: map[string]*domain.User{"tok": alice}, cookies: cookies},
		users:   userstore.New(time.Hour),
	}
}

func (f *fixture) hook(t *testing.T, rawURL string) *Hook {
	t.Helper()
	u, err := url.Parse(rawURL)
	require.NoError(t, err)
	return New(u, Deps{Cookies: f.cookies, Navigator: f.nav, API: f.api, Users: f.users})
}

func TestHook_InitialState(t *testing.T) {
	f := newFixture()
	h := f.hook(t, "http://app/")

	st := h.State()
	assert.True(t, st.Loading)
	assert.Nil(t, st.User)
}

func TestHook_TokenParam(t *testing.T) {
	f := newFixture()
	h := f.hook(t, "http://app/?token=tok&tab=posts")

	h.Mount(context.Background())
	st := h.Wait(context.Background())

	assert.False(t, st.Loading)
	require.NotNil(t, st.User)
	assert.Equal(t, "alice", st.User.Username)

	assert.Equal(t, []string{"set:tok"}, f.cookies.writes)
	assert.Equal(t, []string{"tok"}, f.api.cookieAtCall, "cookie must be written before the fetch")
	assert.Equal(t, []string{"/?tab=posts"}, f.nav.replaced)
	assert.Empty(t, f.nav.pushed)

	cached, ok := f.users.User("tok")
	require.True(t, ok)
	assert.Equal(t, "alice", cached.Username)
}

func TestHook_ErrorParam(t *testing.T) {
	f := newFixture()
	f.cookies.Set("tok")
	f.cookies.writes = nil
	h := f.hook(t, "http://app/?error=access_denied")

	h.Mount(context.Background())
	st := h.Wait(context.Background())

	assert.False(t, st.Loading)
	assert.Nil(t, st.User)
	assert.Empty(t, f.api.Calls(), "error parameter is terminal")
	assert.Empty(t, f.cookies.writes)
}

func TestHook_ExistingCookie(t *testing.T) {
	f := newFixture()
	f.cookies.Set("tok")
	h := f.hook(t, "http://app/")

	h.Mount(context.Background())
	st := h.Wait(context.Background())

	require.NotNil(t, st.User)
	assert.Equal(t, "alice", st.User.Username)
	assert.Empty(t, f.nav.replaced)
}

func TestHook_NoCredentials(t *testing.T) {
	f := newFixture()
	h := f.hook(t, "http://app/")

	h.Mount(context.Background())
	st := h.Wait(context.Background())

	assert.False(t, st.Loading)
	assert.Nil(t, st.User)
	assert.Empty(t, f.api.Calls())
}

func TestHook_FetchFailureLogsOut(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"non-2xx", domain.WrapProfileStatus(500, "boom")},
		{"network", domain.WrapNetworkOperation("GET /api/v1/auth/me", errors.New("refused"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.api.err = tt.err
			f.cookies.Set("tok")
			f.users.SetUser("tok", alice)
			h := f.hook(t, "http://app/dashboard")

			h.Mount(context.Background())
			st := h.Wait(context.Background())

			assert.False(t, st.Loading)
			assert.Nil(t, st.User)
			_, present := f.cookies.Get()
			assert.False(t, present)
			assert.Equal(t, []string{"/"}, f.nav.pushed)

			_, cached := f.users.User("tok")
			assert.False(t, cached)
		})
	}
}

func TestHook_MountRunsOnce(t *testing.T) {
	f := newFixture()
	f.cookies.Set("tok")
	h := f.hook(t, "http://app/")

	h.Mount(context.Background())
	h.Mount(context.Background())
	h.Wait(context.Background())
	h.Mount(context.Background())

	assert.Equal(t, []string{"tok"}, f.api.Calls())
}

func TestHook_WaitTimesOutWhileLoading(t *testing.T) {
	f := newFixture()
	f.api.block = make(chan struct{})
	f.cookies.Set("tok")
	h := f.hook(t, "http://app/")
	defer h.Close()

	h.Mount(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	st := h.Wait(ctx)
	assert.True(t, st.Loading)

	close(f.api.block)
	st = h.Wait(context.Background())
	assert.False(t, st.Loading)
	require.NotNil(t, st.User)
}

func TestHook_LogoutDuringFetch(t *testing.T) {
	f := newFixture()
	f.api.block = make(chan struct{})
	f.cookies.Set("tok")
	h := f.hook(t, "http://app/")

	h.Mount(context.Background())
	h.Logout()

	st := h.Wait(context.Background())
	assert.False(t, st.Loading)
	assert.Nil(t, st.User)
	assert.Equal(t, []string{"/"}, f.nav.pushed)
	_, present := f.cookies.Get()
	assert.False(t, present)
}

func TestHook_LogoutWithoutMount(t *testing.T) {
	f := newFixture()
	f.cookies.Set("tok")
	f.users.SetUser("tok", alice)
	h := f.hook(t, "http://app/alice")

	h.Logout()

	assert.Nil(t, h.State().User)
	_, cached := f.users.User("tok")
	assert.False(t, cached)
	assert.Equal(t, []string{"/"}, f.nav.pushed)
}

func TestWithoutParam(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"http://app/?token=x", "/"},
		{"http://app?token=x", "/"},
		{"http://app/bob?token=x&a=1", "/bob?a=1"},
		{"http://app/a%20b?token=x", "/a%20b"},
	}

	for _, tt := range tests {
		u, _ := url.Parse(tt.raw)
		if got := withoutParam(u, TokenParam); got != tt.want {
			t.Errorf("withoutParam(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}
