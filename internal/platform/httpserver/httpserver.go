package httpserver

import (
	"net/http"
	"time"
)

// New builds the ledger's HTTP server. Read-header and idle timeouts are
// bounded here; per-request deadlines come from the timeout middleware.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       time.Minute,
	}
}
