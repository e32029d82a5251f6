package apipaths

import "net/url"

// Backend API surface consumed by the frontend. Used by the API client and by the login control.

const (
	AuthLogin = "/api/v1/auth/login"
	AuthMe    = "/api/v1/auth/me"
)

// Frontend routes. Every single-segment path is a dashboard, so apart from
// /callback the fixed routes live under a prefix no username can take.
const (
	Home     = "/"
	Callback = "/callback"
	Login    = "/auth/login"
	Logout   = "/auth/logout"
	Health   = "/-/healthz"
	Metrics  = "/-/metrics"
)

func Dashboard(username string) string { return "/" + url.PathEscape(username) }
