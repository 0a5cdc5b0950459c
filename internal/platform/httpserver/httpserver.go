package httpserver

import (
	"net/http"
	"time"
)

// New builds an HTTP server with sane defaults for the ledger call surface.
// Ledger operations are synchronous and bounded, so short timeouts are safe.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
