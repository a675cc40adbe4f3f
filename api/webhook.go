package handler

import (
	"net/http"
	"sync"

	"github.com/initify/giteehook/internal/app"
)

var (
	routerOnce sync.Once
	router     http.Handler
	routerErr  error
)

// loadRouter builds the router once per function instance so the
// installation token cache and startup warnings survive across requests.
func loadRouter() (http.Handler, error) {
	routerOnce.Do(func() {
		router, routerErr = app.RouterFromEnv()
	})
	return router, routerErr
}

// Handler is the Vercel serverless function entrypoint for Gitee webhooks.
func Handler(w http.ResponseWriter, r *http.Request) {
	h, err := loadRouter()
	if err != nil {
		http.Error(w, "config error", http.StatusInternalServerError)
		return
	}
	// Delegate to the shared Gin router.
	h.ServeHTTP(w, r)
}
