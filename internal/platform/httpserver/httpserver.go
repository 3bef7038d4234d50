package httpserver

import (
	"net/http"
	"time"
)

// New builds the API server. Write timeout is generous because trail queries
// and full-profile exports can page through a lot of rows.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
