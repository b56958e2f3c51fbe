package config

import (
	"fmt"
	"net/http"
	"os"
	"time"
)

// NewHTTPServer creates and returns a configured *http.Server.
// It uses SERVER_PORT env var if set, otherwise defaults to 8080.
// writeTimeout should sit above the platform ceiling so the ceiling's own
// response can still be written.
func NewHTTPServer(handler http.Handler, writeTimeout time.Duration) *http.Server {
	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}
	return &http.Server{
		Addr:              fmt.Sprintf(":%s", port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      writeTimeout,
	}
}

// MetricsAddr returns the listen address of the Prometheus endpoint.
func MetricsAddr() string {
	port := os.Getenv("METRICS_PORT")
	if port == "" {
		port = "2112"
	}
	return fmt.Sprintf(":%s", port)
}
