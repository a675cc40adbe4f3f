package main

import (
	"log"
	"net/http"
	"os"
	"time"

	"github.com/initify/giteehook/internal/app"
)

func main() {
	srv, err := app.ServerFromEnv()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	addr := ":8080"
	if v := os.Getenv("PORT"); v != "" {
		addr = ":" + v
	}
	hs := &http.Server{
		Addr:              addr,
		Handler:           app.NewRouterWithServer(srv),
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Printf("gitee relay listening on %s", addr)
	log.Fatal(hs.ListenAndServe())
}
