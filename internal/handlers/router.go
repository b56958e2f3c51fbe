package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/jonno85/bin-relay/internal/middleware"
)

const ProcessBinPath = "/api/process-bin"

var (
	allowedMethods = []string{http.MethodPost, http.MethodOptions, http.MethodGet}
	allowedHeaders = []string{
		"X-CSRF-Token", "X-Requested-With", "Accept", "Accept-Version", "Content-Length",
		"Content-MD5", "Content-Type", "Date", "X-Api-Version", "X-Filename",
	}
)

func NewRouter(relayHandler *RelayHandler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestLogger)
	r.Use(middleware.Recoverer(relayHandler.Relay.Config().Development()))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: allowedMethods,
		AllowedHeaders: allowedHeaders,
		ExposedHeaders: []string{middleware.RequestIDHeader},
		MaxAge:         300,
	}))
	r.MethodNotAllowed(MethodNotAllowed)

	r.Get("/health", HealthCheck)
	r.Get("/v1/stats", relayHandler.Stats)
	r.Method(http.MethodPost, ProcessBinPath, relayHandler.WithPlatformCeiling(http.HandlerFunc(relayHandler.ProcessBin)))
	r.Options(ProcessBinPath, Preflight)
	return r
}

func HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// Preflight answers OPTIONS requests that the CORS middleware passed through.
func Preflight(w http.ResponseWriter, r *http.Request) {
	h := w.Header()
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", strings.Join(allowedMethods, ", "))
	h.Set("Access-Control-Allow-Headers", strings.Join(allowedHeaders, ", "))
	w.WriteHeader(http.StatusNoContent)
}
