package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/net/http2"

	"github.com/dizzybeaver/lambda-execution-engine/internal/config"
	"github.com/dizzybeaver/lambda-execution-engine/internal/gateway"
	"github.com/dizzybeaver/lambda-execution-engine/internal/handler"
	"github.com/dizzybeaver/lambda-execution-engine/internal/handlers"
	"github.com/dizzybeaver/lambda-execution-engine/internal/homeassistant"
	"github.com/dizzybeaver/lambda-execution-engine/internal/middleware"
	"github.com/dizzybeaver/lambda-execution-engine/internal/ratelimit"
	"github.com/dizzybeaver/lambda-execution-engine/pkg/logger"
)

const (
	version         = "1.0.0"
	shutdownTimeout = 30 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
		File:   cfg.Logging.File,
	})
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	log.WithFields(map[string]interface{}{
		"version":             version,
		"port":                cfg.Server.Port,
		"fast_path_enabled":   cfg.Gateway.FastPathEnabled,
		"promotion_threshold": cfg.Gateway.PromotionThreshold,
		"upstream":            cfg.HomeAssistant.BaseURL,
	}).Info("Starting gateway")

	// Assemble the dispatch engine. The gateway context owns all shared
	// state; nothing here lives in package-level globals.
	routes := gateway.NewRouteTable(handlers.DefaultRoutes())

	var bucket *ratelimit.TokenBucket
	if cfg.RateLimit.Enabled {
		bucket = ratelimit.NewTokenBucket(cfg.RateLimit.Capacity, cfg.RateLimit.RefillPerSecond)
		log.WithFields(map[string]interface{}{
			"capacity":          cfg.RateLimit.Capacity,
			"refill_per_second": cfg.RateLimit.RefillPerSecond,
		}).Info("Upstream rate limiting enabled")
	}

	var client *homeassistant.Client
	var registry *gateway.HandlerRegistry
	gw := gateway.Assemble(routes, gateway.Options{
		PromotionThreshold: cfg.Gateway.PromotionThreshold,
		FastPathEnabled:    cfg.Gateway.FastPathEnabled,
	}, log, func(gw *gateway.Gateway) *gateway.HandlerRegistry {
		client = homeassistant.NewClient(cfg.HomeAssistant, cfg.Breaker, gw.Breakers, bucket, log)
		registry = handlers.BuildRegistry(handlers.Deps{
			Config:   cfg,
			Client:   client,
			Breakers: gw.Breakers,
			Metrics:  gw.Metrics,
			FastPath: gw.FastPath,
			Logger:   log,
		})
		return registry
	})

	// Fail fast on a route table that names a module or entry point the
	// registry does not carry.
	if err := gateway.ValidateRoutes(routes, registry); err != nil {
		log.WithError(err).Fatal("Route table validation failed")
	}
	log.Infof("Route table validated: %d interfaces", routes.Size())

	router := buildHTTPRouter(cfg, gw, client, log)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	useTLS := cfg.Server.TLSCertFile != "" && cfg.Server.TLSKeyFile != ""
	if useTLS {
		if err := http2.ConfigureServer(server, &http2.Server{
			MaxConcurrentStreams: 250,
			IdleTimeout:          300 * time.Second,
		}); err != nil {
			log.WithError(err).Fatal("Failed to configure HTTP/2")
		}
		log.Info("HTTP/2 support enabled")
	}

	go func() {
		var err error
		if useTLS {
			log.WithField("port", cfg.Server.Port).Info("Starting HTTPS server")
			err = server.ListenAndServeTLS(cfg.Server.TLSCertFile, cfg.Server.TLSKeyFile)
		} else {
			log.WithField("port", cfg.Server.Port).Info("Starting HTTP server")
			err = server.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("Server failed")
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down gateway")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Error("Forced shutdown")
	}
	log.Info("Gateway stopped")
}

// buildHTTPRouter wires the public directive endpoint, health probes and the
// token-protected admin surface.
func buildHTTPRouter(cfg *config.Config, gw *gateway.Gateway, client *homeassistant.Client, log *logger.Logger) *mux.Router {
	router := mux.NewRouter()

	directive := handler.NewDirectiveHandler(gw, log)
	router.HandleFunc("/directive", directive.Handle).Methods(http.MethodPost)

	health := handler.NewHealthHandler(version, func() error {
		_, err := client.Ping()
		return err
	})
	router.HandleFunc("/health/live", health.LivenessHandler).Methods(http.MethodGet)
	router.HandleFunc("/health/ready", health.ReadinessHandler).Methods(http.MethodGet)

	admin := router.PathPrefix("/admin").Subrouter()
	admin.Use(middleware.NewAuthMiddleware(cfg.Auth, log).Handler)
	handler.NewAdminHandler(gw, log).Register(admin)

	return router
}
