package common

import (
	"context"
	"fmt"
	"log"
	"strings"

	"rent-ledger-go/internal/authz"
	"rent-ledger-go/internal/config"
	"rent-ledger-go/internal/database"
	"rent-ledger-go/internal/events"
	"rent-ledger-go/internal/models"
	"rent-ledger-go/internal/obligation"
	"rent-ledger-go/internal/registry"
	"rent-ledger-go/internal/rental"
	"rent-ledger-go/internal/token"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// init loads environment variables from .env file if it exists
func init() {
	// Try to load .env file - if it doesn't exist, that's okay
	// Environment variables can be set via other means (shell export, docker, etc.)
	if err := godotenv.Load(); err != nil {
		log.Printf("Note: No .env file found or unable to load it: %v\n", err)
	}
}

// Services bundles everything a command-line tool needs.
type Services struct {
	Store       *database.Service
	Tokens      token.Service
	Rental      *rental.Service
	Registry    *registry.Service
	Obligations *obligation.Service
	Publisher   events.Publisher
	Config      *models.Config
}

func InitializeLogger() (*zap.Logger, func()) {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	zap.ReplaceGlobals(logger)

	cleanup := func() {
		if err := logger.Sync(); err != nil {
			if !isIgnorableSyncError(err) {
				log.Printf("Failed to sync logger: %v\n", err)
			}
		}
	}

	return logger, cleanup
}

// isIgnorableSyncError filters the harmless errors zap returns when
// syncing stderr on some platforms.
func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "invalid argument") ||
		strings.Contains(msg, "inappropriate ioctl for device") ||
		strings.Contains(msg, "bad file descriptor")
}

// InitializeServices wires the substrate, ports and ledger services.
func InitializeServices(ctx context.Context) (*Services, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	store, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database service: %w", err)
	}

	var publisher events.Publisher = events.LogPublisher{}
	if cfg.Mirror.StackURL != "" {
		mirror, err := events.NewFormanceMirror(ctx, cfg.Mirror)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("failed to initialize formance mirror: %w", err)
		}
		publisher = events.Multi{events.LogPublisher{}, mirror}
	}

	tokens := token.NewService()
	verifier := authz.ContextVerifier{}

	return &Services{
		Store:       store,
		Tokens:      tokens,
		Rental:      rental.NewService(store, tokens, verifier, publisher),
		Registry:    registry.NewService(store, verifier, publisher, cfg.Ledger.RegistryTTL),
		Obligations: obligation.NewService(store, verifier, publisher),
		Publisher:   publisher,
		Config:      cfg,
	}, nil
}

// Close releases everything InitializeServices opened.
func (s *Services) Close() {
	s.Store.Close()
}
