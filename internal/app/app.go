// Package app builds the service dependencies selected by the configuration.
// The API, the worker and the CLI share it so every entry point wires the
// same backends.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/dvloznov/spending-dashboard/internal/config"
	infraBQ "github.com/dvloznov/spending-dashboard/internal/infra/bigquery"
	"github.com/dvloznov/spending-dashboard/internal/infra/memory"
	"github.com/dvloznov/spending-dashboard/internal/infra/sqlite"
	"github.com/dvloznov/spending-dashboard/internal/ingest"
	"github.com/dvloznov/spending-dashboard/internal/normalizer"
	"github.com/dvloznov/spending-dashboard/internal/statements"
	"github.com/dvloznov/spending-dashboard/internal/store"
	"github.com/rs/zerolog"
)

// Services holds the long-lived dependencies of one process.
type Services struct {
	Repo       store.Repository
	Statements statements.Store
	Normalizer normalizer.Normalizer
	Ingest     *ingest.Service

	closers []func() error
}

// New opens the configured repository, statement store and normalizer.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Services, error) {
	s := &Services{}

	repo, err := OpenRepository(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	s.Repo = repo
	s.closers = append(s.closers, repo.Close)

	stmts, closeStmts, err := OpenStatements(ctx, cfg)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.Statements = stmts
	if closeStmts != nil {
		s.closers = append(s.closers, closeStmts)
	}

	norm, err := NewNormalizer(ctx, cfg, log)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.Normalizer = norm

	s.Ingest = ingest.NewService(repo, stmts, norm, log)
	return s, nil
}

// Close releases everything New opened, newest first.
func (s *Services) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

// OpenRepository returns the transaction repository named by cfg.DataBackend.
func OpenRepository(ctx context.Context, cfg *config.Config, log zerolog.Logger) (store.Repository, error) {
	switch cfg.DataBackend {
	case config.BackendMemory:
		log.Warn().Msg("Using in-memory storage; data is lost on restart")
		return memory.NewRepository(), nil
	case config.BackendSQLite:
		repo, err := sqlite.NewRepository(cfg.SQLiteDBPath, log)
		if err != nil {
			return nil, fmt.Errorf("open sqlite repository: %w", err)
		}
		log.Info().Str("path", cfg.SQLiteDBPath).Msg("Using SQLite storage")
		return repo, nil
	case config.BackendBigQuery:
		repo, err := infraBQ.NewRepository(ctx, cfg.BigQueryProject, cfg.BigQueryDataset)
		if err != nil {
			return nil, fmt.Errorf("open bigquery repository: %w", err)
		}
		log.Info().
			Str("project", cfg.BigQueryProject).
			Str("dataset", cfg.BigQueryDataset).
			Msg("Using BigQuery storage")
		return repo, nil
	default:
		return nil, fmt.Errorf("unknown data backend %q", cfg.DataBackend)
	}
}

// OpenStatements returns a GCS store when a bucket is configured and a local
// directory store otherwise. The returned close func may be nil.
func OpenStatements(ctx context.Context, cfg *config.Config) (statements.Store, func() error, error) {
	if cfg.StatementsBucket != "" {
		gcs, err := statements.NewGCSStore(ctx, cfg.StatementsBucket)
		if err != nil {
			return nil, nil, fmt.Errorf("open statement bucket: %w", err)
		}
		return gcs, gcs.Close, nil
	}
	dir, err := statements.NewDirStore(cfg.StatementsDir)
	if err != nil {
		return nil, nil, fmt.Errorf("open statement directory: %w", err)
	}
	return dir, nil, nil
}

// NewNormalizer builds the configured normalization strategy.
func NewNormalizer(ctx context.Context, cfg *config.Config, log zerolog.Logger) (normalizer.Normalizer, error) {
	var completer normalizer.Completer
	if cfg.Normalizer == config.NormalizerLLM {
		gemini, err := normalizer.NewGeminiCompleter(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, fmt.Errorf("create completion client: %w", err)
		}
		completer = gemini
	}
	return normalizer.New(cfg, completer, log)
}
