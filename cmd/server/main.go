package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/novameet/meeting-agent-service/internal/adapters/realtime"
	"github.com/novameet/meeting-agent-service/internal/config"
	"github.com/novameet/meeting-agent-service/internal/handler"
	"github.com/novameet/meeting-agent-service/internal/repository"
	"github.com/novameet/meeting-agent-service/internal/services/agent"
	"github.com/novameet/meeting-agent-service/internal/services/call"
	"github.com/novameet/meeting-agent-service/internal/services/meeting"
	"github.com/novameet/meeting-agent-service/pkg/logger"
	"github.com/novameet/meeting-agent-service/pkg/redis"
	"go.uber.org/zap"
)

// Server represents the meeting agent service server
type Server struct {
	config         *config.Config
	router         *mux.Router
	handlerManager *handler.HandlerManager
}

// NewServer wires repositories, the provider client and services into an
// HTTP server. Provider credentials are validated up front: a service that
// cannot verify webhooks or issue call tokens should not start.
func NewServer(cfg *config.Config) (*Server, error) {
	if err := cfg.ValidateProvider(); err != nil {
		return nil, fmt.Errorf("invalid provider configuration: %w", err)
	}

	repos, err := repository.NewRepositoryManager()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize repositories: %w", err)
	}

	provider, err := realtime.NewAPIClient(realtime.ClientConfig{
		APIKey:       cfg.ProviderAPIKey,
		APISecret:    cfg.ProviderAPISecret,
		BaseURL:      cfg.ProviderBaseURL,
		OpenAIAPIKey: cfg.OpenAIAPIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize provider client: %w", err)
	}

	// Redis is optional. Without it, call tokens are minted fresh per
	// request instead of served from cache.
	var cache *redis.Service
	if cfg.RedisHost != "" {
		cache, err = redis.NewService(&redis.RedisConfig{
			Host:     cfg.RedisHost,
			Port:     cfg.RedisPort,
			Password: cfg.RedisPassword,
		})
		if err != nil {
			logger.Base().Warn("redis unavailable, token caching disabled", zap.Error(err))
			cache = nil
		}
	}

	agents := agent.NewService(repos)
	meetings := meeting.NewService(repos, provider, cfg, cache)
	calls := call.NewService(repos, provider, cfg)

	router := mux.NewRouter()
	handlerManager := handler.NewHandlerManager(cfg, agents, meetings, calls)
	handlerManager.SetupAllRoutes(router)

	return &Server{
		config:         cfg,
		router:         router,
		handlerManager: handlerManager,
	}, nil
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%s", s.config.Port)

	server := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.Base().Info("Starting server", zap.String("addr", addr))
	return server.ListenAndServe()
}

func main() {
	// Load .env for local development; production env vars win.
	if err := godotenv.Load(); err != nil {
		log.Printf("Info: .env file not found or skipped (expected in production): %v", err)
	}

	if _, err := logger.Init(os.Getenv("LOG_ENV")); err != nil {
		log.Printf("Failed to initialize zap logger, falling back to std log: %v", err)
	}
	defer logger.Sync()

	cfg := config.LoadFromEnv()

	server, err := NewServer(cfg)
	if err != nil {
		logger.Base().Fatal("Failed to create server", zap.Error(err))
	}
	logger.Base().Info("Server initialized successfully", zap.String("port", cfg.Port))

	if err := server.Start(); err != nil {
		logger.Base().Fatal("Server failed to start", zap.Error(err))
	}
}
