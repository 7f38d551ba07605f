package http

// registerV1Routes sets up /api/v1. Export routes sit behind bearer auth
// when a token is configured; /healthz and /metrics stay open.
func (s *Server) registerV1Routes(bearerToken string) {
	v1 := s.engine.Group("/api/v1")
	v1.Use(apiVersionMiddleware())
	if bearerToken != "" {
		v1.Use(bearerAuthMiddleware(bearerToken))
	}

	exp := v1.Group("/exports")
	{
		exp.GET("", s.handleV1ListExports)
		exp.GET("/latest", s.handleV1LatestExport)
		exp.GET("/:name", s.handleV1GetExport)
		exp.GET("/:name/download", s.handleV1DownloadExport)
	}
}
