package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/personalcms/web/internal/apipaths"
)

// setupRoutes configures all page routes
func (s *Server) setupRoutes() {
	// Health check endpoint
	s.engine.GET(apipaths.Health, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "personalcms-web",
		})
	})

	if s.metrics != nil {
		s.engine.GET(apipaths.Metrics, gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))
	}

	// Pages
	s.engine.GET(apipaths.Home, s.home)
	s.engine.GET(apipaths.Callback, s.callback)
	s.engine.GET(apipaths.Login, s.login)
	// POST only; a GET would let any page log the visitor out
	s.engine.POST(apipaths.Logout, s.logout)

	// Single-segment paths are dashboards
	s.engine.GET("/:user", s.dashboard)

	s.engine.NoRoute(func(c *gin.Context) {
		c.HTML(http.StatusNotFound, "not_found.html", s.page("Not found"))
	})
}
