package httputil

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
)

// RouteUser validates and returns the username segment of a dashboard URL
func RouteUser(c *gin.Context) (string, error) {
	name := strings.TrimSpace(c.Param("user"))
	if name == "" {
		return "", fmt.Errorf("invalid username")
	}
	return name, nil
}

// QueryValue returns a trimmed query parameter, or "" when absent
func QueryValue(c *gin.Context, key string) string {
	return strings.TrimSpace(c.Query(key))
}
