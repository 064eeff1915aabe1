// Package main is the entry point for the API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goopenai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/brickchat/backend/internal/config"
	"github.com/brickchat/backend/internal/handler"
	"github.com/brickchat/backend/internal/llm"
	"github.com/brickchat/backend/internal/middleware"
	"github.com/brickchat/backend/internal/relay"
	"github.com/brickchat/backend/internal/service"
	"github.com/brickchat/backend/internal/store"
	"github.com/brickchat/backend/internal/stream"
	"github.com/brickchat/backend/internal/tts"
	"github.com/brickchat/backend/pkg/logger"
	"github.com/brickchat/backend/pkg/tracing"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("starting API server")

	// Initialize tracing if enabled
	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "brickchat-backend", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Open the chat database
	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		log.Error("failed to open database", zap.Error(err))
		os.Exit(1)
	}
	defer st.Close()

	// Connect the lifecycle relay when NATS is configured
	var rel *relay.Relay
	if cfg.NATSURL != "" {
		rel, err = relay.Connect(ctx, relay.Config{
			URL:      cfg.NATSURL,
			CAFile:   cfg.NATSCAFile,
			CertFile: cfg.NATSCertFile,
			KeyFile:  cfg.NATSKeyFile,
			Token:    cfg.NATSToken,
		}, log)
		if err != nil {
			log.Warn("failed to connect relay, lifecycle events disabled", zap.Error(err))
		} else {
			defer rel.Close()
		}
	}

	// Initialize the upstream model client
	var llmClient llm.Client
	var modelName string
	switch cfg.Provider {
	case "anthropic":
		llmClient, err = llm.NewAnthropicClient(cfg.AnthropicAPIKey, cfg.AnthropicModel)
		modelName = cfg.AnthropicModel
	default:
		llmClient, err = llm.NewOpenAIClient(cfg.AgentToken, cfg.AgentBaseURL, cfg.AgentModel)
		modelName = cfg.AgentModel
	}
	if err != nil {
		log.Error("failed to create model client",
			zap.String("provider", cfg.Provider),
			zap.Error(err))
		os.Exit(1)
	}

	// Initialize speech pipeline
	var cleanClient *goopenai.Client
	if cfg.AgentToken != "" && cfg.AgentBaseURL != "" {
		cleanCfg := goopenai.DefaultConfig(cfg.AgentToken)
		cleanCfg.BaseURL = cfg.AgentBaseURL
		cleanClient = goopenai.NewClientWithConfig(cleanCfg)
	}
	cleaner, err := tts.NewCleaner(cleanClient, cfg.TTSCleanModel, cfg.TTSCacheSize, log.Logger)
	if err != nil {
		log.Error("failed to create text cleaner", zap.Error(err))
		os.Exit(1)
	}
	speech := tts.NewPipeline(cleaner, tts.NewDeepgram(cfg.DeepgramAPIKey), log.Logger)

	// Initialize services
	orch := stream.NewOrchestrator(llmClient, st, stream.DefaultSignatures(), log.Logger)
	chatSvc := service.NewChatService(st, orch, rel, cfg.Provider, modelName, cfg.AgentEndpoint, log)
	threadSvc := service.NewThreadService(st, log)

	// Initialize handlers
	healthHandler := handler.NewHealthHandler(st, rel)
	chatHandler := handler.NewChatHandler(chatSvc, log)
	threadHandler := handler.NewThreadHandler(threadSvc, log)
	ttsHandler := handler.NewTTSHandler(speech, log)

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"Link", "X-Correlation-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	// API routes with authentication
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		r.Route("/chat", func(r chi.Router) {
			r.Post("/send", chatHandler.Send)
			r.Get("/config", chatHandler.Config)
			r.Post("/feedback", threadHandler.Feedback)

			// The bare {id} is a user id, the nested form a thread id;
			// chi requires one wildcard name per segment.
			r.Route("/threads", func(r chi.Router) {
				r.Get("/{id}", threadHandler.List)
				r.Get("/{id}/messages", threadHandler.Messages)
			})
		})

		r.Post("/tts/speak-stream", ttsHandler.SpeakStream)
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}
