package server

func (s *Server) initRoutes() {
	s.RegisterRouteFunc("GET "+RouteRelay, ChainMiddleware(s.PageHandler(), s.RelayMiddleware()...))

	s.RegisterRouteFunc("GET "+RouteHealth, ChainMiddleware(s.HealthHandler(), s.RecoverMiddleware))
	s.RegisterRouteHandler("GET "+RouteMetrics, s.deps.Metrics.Handler())
}
