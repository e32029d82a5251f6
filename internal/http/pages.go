package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/personalcms/web/internal/apipaths"
	"github.com/personalcms/web/internal/domain"
	"github.com/personalcms/web/internal/httputil"
	"github.com/personalcms/web/internal/metrics"
	"github.com/personalcms/web/internal/session"
	"github.com/personalcms/web/internal/validation"
)

// pageData is what every template receives
type pageData struct {
	Title     string
	SiteTitle string
	LoginURL  string
	Username  string
	User      *domain.User
}

func (s *Server) page(title string) pageData {
	return pageData{
		Title:     title,
		SiteTitle: s.config.SiteTitle,
		LoginURL:  s.api.LoginURL(),
	}
}

// navigator records where the auth hook wants the browser to go; the
// handler turns that into a redirect once the hook settles.
type navigator struct {
	target string
}

func (n *navigator) Replace(path string) { n.target = path }
func (n *navigator) Push(path string)    { n.target = path }

// home resolves the visitor and either shows the login control or sends them to their dashboard
func (s *Server) home(c *gin.Context) {
	nav := &navigator{}
	hook := s.newHook(c, nav)
	defer hook.Close()

	hook.Mount(c.Request.Context())

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.config.Auth.ResolveTimeout)
	defer cancel()
	state := hook.Wait(ctx)

	switch {
	case state.Loading:
		// The fetch outlived the resolve timeout. Ask the browser to try again
		// at the cleaned URL; the cookie is already written.
		target := nav.target
		if target == "" {
			target = c.Request.URL.RequestURI()
		}
		c.Header("Refresh", "1; url="+target)
		c.HTML(http.StatusOK, "loading.html", s.page("Loading"))
	case state.User != nil:
		c.Redirect(http.StatusSeeOther, apipaths.Dashboard(state.User.Username))
	case nav.target != "" && nav.target != c.Request.URL.RequestURI():
		c.Redirect(http.StatusSeeOther, nav.target)
	default:
		c.HTML(http.StatusOK, "home.html", s.page("Home"))
	}
}

// login starts the OAuth flow on the backend
func (s *Server) login(c *gin.Context) {
	c.Redirect(http.StatusFound, s.api.LoginURL())
}

// callback finishes a login: store the token, resolve the profile, go to the dashboard
func (s *Server) callback(c *gin.Context) {
	ctx := c.Request.Context()

	user, outcome, err := s.completeLogin(c, s.cookies(c))
	s.metrics.RecordLogin(outcome)
	if err != nil {
		slog.ErrorContext(ctx, "Login failed", "outcome", outcome, "error", err)
		c.Redirect(http.StatusSeeOther, apipaths.Home)
		return
	}

	slog.InfoContext(ctx, "Login completed", "username", user.Username, "user_id", user.ID)
	c.Redirect(http.StatusSeeOther, apipaths.Dashboard(user.Username))
}

func (s *Server) completeLogin(c *gin.Context, cookies *session.Store) (*domain.User, string, error) {
	var query validation.CallbackQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		if reason := httputil.QueryValue(c, "error"); reason != "" {
			return nil, metrics.LoginProviderError, domain.WrapAuthProvider(reason)
		}
		return nil, metrics.LoginInvalidQuery, validation.FromBinding("callback query", err)
	}

	// The cookie goes out with this response before the profile is known;
	// a failed fetch below overwrites it with a deletion.
	cookies.Set(query.AccessToken)

	user, err := s.api.Me(c.Request.Context(), query.AccessToken)
	if err != nil {
		cookies.Clear()
		s.users.SetUser(query.AccessToken, nil)
		return nil, metrics.LoginProfileError, err
	}

	s.users.SetUser(query.AccessToken, user)
	return user, metrics.LoginSuccess, nil
}

// dashboard greets the user named by the path. Only the presence of a
// session cookie is checked; the token is not matched against the name.
func (s *Server) dashboard(c *gin.Context) {
	name, err := httputil.RouteUser(c)
	if err != nil {
		c.HTML(http.StatusNotFound, "not_found.html", s.page("Not found"))
		return
	}

	token, err := s.cookies(c).Token()
	if err != nil {
		slog.InfoContext(c.Request.Context(), "Dashboard requires a session", "route_user", name, "error", err)
		c.Redirect(http.StatusSeeOther, apipaths.Home)
		return
	}

	data := s.page(name)
	data.Username = name
	if user, ok := s.users.User(token); ok && strings.EqualFold(user.Username, name) {
		data.User = user
	}
	c.HTML(http.StatusOK, "dashboard.html", data)
}

// logout clears the session and returns home
func (s *Server) logout(c *gin.Context) {
	nav := &navigator{}
	s.newHook(c, nav).Logout()

	slog.InfoContext(c.Request.Context(), "Logged out")
	c.Redirect(http.StatusSeeOther, nav.target)
}
