package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/personalcms/web/internal/domain"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newContext(cookie string) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	if cookie != "" {
		c.Request.AddCookie(&http.Cookie{Name: domain.SessionCookieName, Value: cookie})
	}
	return c, w
}

func sessionCookies(w *httptest.ResponseRecorder) []*http.Cookie {
	var out []*http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == domain.SessionCookieName {
			out = append(out, c)
		}
	}
	return out
}

func TestStore_Set(t *testing.T) {
	c, w := newContext("")
	s := New(c, Options{Secure: true})

	s.Set("abc123")

	cookies := sessionCookies(w)
	require.Len(t, cookies, 1)
	cookie := cookies[0]
	assert.Equal(t, "abc123", cookie.Value)
	assert.Equal(t, "/", cookie.Path)
	assert.True(t, cookie.HttpOnly)
	assert.True(t, cookie.Secure)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	assert.Equal(t, int(7*24*time.Hour/time.Second), cookie.MaxAge)

	token, ok := s.Get()
	assert.True(t, ok)
	assert.Equal(t, "abc123", token)
}

func TestStore_SetIsIdempotentAndLastWriteWins(t *testing.T) {
	c, w := newContext("")
	s := New(c, Options{})
	c.Writer.Header().Add("Set-Cookie", "theme=dark; Path=/")

	s.Set("first")
	s.Set("second")
	s.Set("second")

	cookies := sessionCookies(w)
	require.Len(t, cookies, 1)
	assert.Equal(t, "second", cookies[0].Value)
	assert.False(t, cookies[0].Secure)

	// unrelated cookies survive the rewrite
	assert.Contains(t, w.Header().Values("Set-Cookie"), "theme=dark; Path=/")
}

func TestStore_Get(t *testing.T) {
	tests := []struct {
		name   string
		cookie string
		want   string
		wantOK bool
	}{
		{"present", "tok123", "tok123", true},
		{"absent", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newContext(tt.cookie)
			got, ok := New(c, Options{}).Get()
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("Get() = (%q, %v), want (%q, %v)", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestStore_ClearTwiceMatchesClearOnce(t *testing.T) {
	once, wOnce := newContext("tok123")
	New(once, Options{}).Clear()

	twice, wTwice := newContext("tok123")
	s := New(twice, Options{})
	s.Clear()
	s.Clear()

	assert.Equal(t, wOnce.Header().Values("Set-Cookie"), wTwice.Header().Values("Set-Cookie"))

	cookies := sessionCookies(wTwice)
	require.Len(t, cookies, 1)
	assert.Equal(t, "", cookies[0].Value)
	assert.Less(t, cookies[0].MaxAge, 0)

	_, ok := s.Get()
	assert.False(t, ok)
}

func TestStore_ClearAfterSetInSameRequest(t *testing.T) {
	c, w := newContext("")
	s := New(c, Options{Domain: "example.com"})

	s.Set("abc123")
	s.Clear()

	cookies := sessionCookies(w)
	require.Len(t, cookies, 1)
	assert.Less(t, cookies[0].MaxAge, 0)
	assert.Equal(t, "example.com", cookies[0].Domain)

	_, ok := s.Get()
	assert.False(t, ok)
}

func TestStore_Token(t *testing.T) {
	c, _ := newContext("")
	s := New(c, Options{})

	_, err := s.Token()
	assert.ErrorIs(t, err, domain.ErrSessionMissing)

	s.Set("abc123")
	token, err := s.Token()
	require.NoError(t, err)
	assert.Equal(t, "abc123", token)

	s.Clear()
	_, err = s.Token()
	assert.ErrorIs(t, err, domain.ErrSessionMissing)

	c, _ = newContext("tok123")
	token, err = New(c, Options{}).Token()
	require.NoError(t, err)
	assert.Equal(t, "tok123", token)
}
