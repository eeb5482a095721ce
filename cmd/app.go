package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/kozaktomas/face-registry/internal/config"
	"github.com/kozaktomas/face-registry/internal/database"
	"github.com/kozaktomas/face-registry/internal/database/mariadb"
	"github.com/kozaktomas/face-registry/internal/database/postgres"
	"github.com/kozaktomas/face-registry/internal/detector"
	"github.com/kozaktomas/face-registry/internal/matching"
	"github.com/kozaktomas/face-registry/internal/similarity"
)

// app holds what every command needs to talk to the registry.
type app struct {
	cfg      *config.Config
	service  *matching.Service
	detector *detector.Client
	pool     io.Closer
}

// openApp loads configuration, connects the identity store and builds the
// matching service. Callers must Close the returned app.
func openApp(ctx context.Context) (*app, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.Database.URL == "" {
		return nil, errors.New("DATABASE_URL environment variable is required")
	}

	pool, err := openStore(ctx, &cfg.Database, cfg.Matching.Dimension)
	if err != nil {
		return nil, err
	}

	store, err := database.GetIdentityStore(ctx)
	if err != nil {
		pool.Close()
		return nil, err
	}

	client := detector.NewClient(cfg.Detector.URL, cfg.Detector.MinConfidence, cfg.Detector.MaxImageSide)
	svc := matching.New(client, store, matching.Options{
		Threshold: cfg.Matching.Threshold,
		Ranker:    newRanker(cfg.Matching),
		Logger:    config.NewLogger(cfg.Log, os.Stderr),
	})

	return &app{cfg: cfg, service: svc, detector: client, pool: pool}, nil
}

// openDetectorOnly builds a service without an identity store. Only Compare
// may be called on it.
func openDetectorOnly() (*app, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	client := detector.NewClient(cfg.Detector.URL, cfg.Detector.MinConfidence, cfg.Detector.MaxImageSide)
	svc := matching.New(client, nil, matching.Options{
		Threshold: cfg.Matching.Threshold,
		Logger:    config.NewLogger(cfg.Log, os.Stderr),
	})
	return &app{cfg: cfg, service: svc, detector: client}, nil
}

// openStore connects the configured backend and registers it as the active
// identity store.
func openStore(ctx context.Context, cfg *config.DatabaseConfig, dim int) (io.Closer, error) {
	switch cfg.Driver {
	case "mysql":
		pool, repo, err := mariadb.Open(ctx, cfg, dim)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize MariaDB: %w", err)
		}
		database.RegisterIdentityStore("mysql", func() database.IdentityStore { return repo })
		return pool, nil
	default:
		pool, repo, err := postgres.Open(ctx, cfg, dim)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
		}
		database.RegisterIdentityStore("postgres", func() database.IdentityStore { return repo })
		return pool, nil
	}
}

func newRanker(cfg config.MatchingConfig) similarity.Ranker {
	if cfg.Index == "hnsw" {
		return similarity.NewHNSW(cfg.HNSWTopK)
	}
	return similarity.Linear{}
}

// Close releases the database pool.
func (a *app) Close() {
	if a.pool != nil {
		a.pool.Close()
	}
}

// readImage reads an image file given on the command line.
func readImage(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	return data, nil
}

// outcomeError turns a failed result into a command error so the process
// exits non-zero.
func outcomeError(out matching.Outcome) error {
	if out.Success {
		return nil
	}
	return fmt.Errorf("%s (%s, operation %s)", out.Message, out.Kind, out.OperationID)
}
