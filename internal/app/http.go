package app

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// NewRouterWithServer returns an http.Handler (Gin engine) with routes wired to the given Server.
func NewRouterWithServer(s *Server) http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())

	// Health checks, also used to pre-warm serverless instances
	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/api/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	// Every method reaches the relay so that non-POST calls get its 405.
	r.Any("/webhook", gin.WrapH(s))
	r.Any("/api/webhook", gin.WrapH(s))

	return r
}

// RouterFromEnv creates a Server from env and returns a Gin router wired to it.
func RouterFromEnv() (http.Handler, error) {
	srv, err := ServerFromEnv()
	if err != nil {
		return nil, err
	}
	return NewRouterWithServer(srv), nil
}
