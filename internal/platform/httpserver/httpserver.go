package httpserver

import (
	"net/http"
	"time"
)

// ShutdownTimeout bounds graceful drain on SIGINT/SIGTERM.
const ShutdownTimeout = 10 * time.Second

// New builds an HTTP server with sane defaults for this project. Handler
// timeouts are enforced per-route by middleware; these guard the connection.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
