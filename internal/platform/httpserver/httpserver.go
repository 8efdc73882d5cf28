package httpserver

import (
	"net/http"
	"time"
)

// New builds the API server. The read timeout is generous because document
// submissions carry whole OCR texts in the body; the write timeout stays
// unset because the log-stream endpoint holds its connection open.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       time.Minute,
		IdleTimeout:       2 * time.Minute,
	}
}
