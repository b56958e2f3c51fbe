// Package main runs the relay: it accepts binary uploads, forwards them to the
// processing API and answers with the metrics and a CSV rendering of them.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jonno85/bin-relay/internal/adapter"
	"github.com/jonno85/bin-relay/internal/config"
	"github.com/jonno85/bin-relay/internal/handlers"
	"github.com/jonno85/bin-relay/internal/service"
)

// setupHTTPServer builds the relay server and starts the Prometheus metrics server beside it.
func setupHTTPServer(cfg config.RelayConfig, relayService *service.RelayService) *http.Server {
	router := handlers.NewRouter(&handlers.RelayHandler{Relay: relayService})

	go func() {
		addr := config.MetricsAddr()
		slog.Info("Starting Prometheus metrics server", "addr", addr)
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(addr, mux); err != nil {
			slog.Error("Prometheus metrics server error", "err", err)
		}
	}()

	return config.NewHTTPServer(router, cfg.PlatformTimeout+5*time.Second)
}

// gracefulShutdown lets in-flight uploads finish, then closes the outcome store.
func gracefulShutdown(server *http.Server, cfg config.RelayConfig, recorder adapter.OutcomeRecorder) {
	slog.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.PlatformTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "err", err)
	} else {
		slog.Info("Server exited gracefully")
	}

	if err := recorder.Close(); err != nil {
		slog.Error("Failed to close outcome store", "err", err)
	} else {
		slog.Info("Outcome store closed")
	}
}

func main() {
	config.LoadDotEnv()
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: config.LogLevel()})))

	cfg, err := config.LoadRelayConfig()
	if err != nil {
		slog.Error("Invalid configuration", "err", err)
		os.Exit(1)
	}

	clients := config.NewAppClients(cfg)
	relayService := service.NewRelayService(cfg, clients)
	server := setupHTTPServer(cfg, relayService)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("Starting server", "addr", server.Addr, "upstream", cfg.UpstreamURL,
			"relayTimeout", cfg.RelayTimeout.String(), "platformTimeout", cfg.PlatformTimeout.String())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server error", "err", err)
			quit <- syscall.SIGTERM
		}
	}()

	<-quit
	gracefulShutdown(server, cfg, clients.Recorder)
}
