package server

import "github.com/jrsteele09/go-oauth-relay/oauth2"

// Route path constants
const (
	RouteRelay   = "/{$}"
	RouteHealth  = "/healthz"
	RouteMetrics = "/metrics"
)

// Values of the ?page= parameter on RouteRelay
const (
	PageMain     = "main"
	PageRedirect = "redirect"
)

// Query parameters on the provider callback
const (
	ParamPage  = "page"
	ParamCode  = oauth2.ParamCode
	ParamError = oauth2.ParamError
)
