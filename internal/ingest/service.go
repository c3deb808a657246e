// Package ingest stores uploaded statements, normalizes them and persists the result.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dvloznov/spending-dashboard/internal/domain"
	"github.com/dvloznov/spending-dashboard/internal/normalizer"
	"github.com/dvloznov/spending-dashboard/internal/statements"
	"github.com/dvloznov/spending-dashboard/internal/store"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// DefaultWriteConcurrency bounds the concurrent writes of one upload.
const DefaultWriteConcurrency = 16

// ErrNoStatementStore is returned by operations that need stored statements when none is configured.
var ErrNoStatementStore = errors.New("no statement store configured")

// Upload is one statement file handed to the service.
type Upload struct {
	Filename string
	Data     []byte
	// Period overrides the period derived from Filename.
	Period domain.Period
}

// Result describes one processed statement.
type Result struct {
	File         string        `json:"file"`
	Files        []string      `json:"files,omitempty"`
	Period       domain.Period `json:"period"`
	StatementURI string        `json:"statement_uri,omitempty"`
	Count        int           `json:"count"`
	Replaced     int           `json:"replaced,omitempty"`
}

// Service runs the ingestion pipelines.
type Service struct {
	repo       store.Repository
	statements statements.Store
	normalizer normalizer.Normalizer
	log        zerolog.Logger

	// WriteConcurrency bounds concurrent writes per statement; <=0 means unbounded.
	WriteConcurrency int
	// Now is the clock used for upload timestamps and filename fallback.
	Now func() time.Time
}

// NewService wires the pipeline dependencies. stmts may be nil.
func NewService(repo store.Repository, stmts statements.Store, norm normalizer.Normalizer, log zerolog.Logger) *Service {
	return &Service{
		repo:             repo,
		statements:       stmts,
		normalizer:       norm,
		log:              log,
		WriteConcurrency: DefaultWriteConcurrency,
		Now:              time.Now,
	}
}

// HasStatementStore reports whether raw statements are kept.
func (s *Service) HasStatementStore() bool {
	return s.statements != nil
}

// Ingest stores, normalizes and persists a single upload.
func (s *Service) Ingest(ctx context.Context, userID string, up Upload) (Result, error) {
	state, err := s.newState(userID, up)
	if err != nil {
		return Result{}, err
	}

	p := NewPipeline(
		&StoreStatementStep{Statements: s.statements},
		&NormalizeStep{Normalizer: s.normalizer, Log: s.log},
		&PersistStep{Repo: s.repo, Limit: s.WriteConcurrency},
	)
	return s.run(ctx, p, state)
}

// IngestBatch processes every upload concurrently and waits for all of them.
// Results keep the order of uploads; the first failure is returned.
func (s *Service) IngestBatch(ctx context.Context, userID string, uploads []Upload) ([]Result, error) {
	results := make([]Result, len(uploads))

	var g errgroup.Group
	for i, up := range uploads {
		g.Go(func() error {
			res, err := s.Ingest(ctx, userID, up)
			if err != nil {
				return fmt.Errorf("%s: %w", up.Filename, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

// Store keeps the raw statement without normalizing it, for asynchronous processing.
func (s *Service) Store(ctx context.Context, userID string, up Upload) (Result, error) {
	if s.statements == nil {
		return Result{}, ErrNoStatementStore
	}
	state, err := s.newState(userID, up)
	if err != nil {
		return Result{}, err
	}
	return s.run(ctx, NewPipeline(&StoreStatementStep{Statements: s.statements}), state)
}

// IngestStored normalizes and persists a statement that was stored earlier.
func (s *Service) IngestStored(ctx context.Context, userID string, period domain.Period, uri string) (Result, error) {
	if s.statements == nil {
		return Result{}, ErrNoStatementStore
	}
	state := &PipelineState{
		UserID:       userID,
		Period:       period,
		Filename:     statements.Filename(uri),
		StatementURI: uri,
		UploadedAt:   s.Now(),
	}

	p := NewPipeline(
		&FetchStatementStep{Statements: s.statements},
		&NormalizeStep{Normalizer: s.normalizer, Log: s.log},
		&PersistStep{Repo: s.repo, Limit: s.WriteConcurrency},
	)
	return s.run(ctx, p, state)
}

// Reingest re-normalizes every stored statement of a period and replaces the
// period's data with their union. Nothing is deleted unless all of them normalize.
func (s *Service) Reingest(ctx context.Context, userID string, period domain.Period) (Result, error) {
	if s.statements == nil {
		return Result{}, ErrNoStatementStore
	}
	if _, err := domain.ParsePeriod(string(period)); err != nil {
		return Result{}, err
	}
	uris, err := s.statements.List(ctx, userID, period)
	if err != nil {
		return Result{}, fmt.Errorf("list statements: %w", err)
	}

	now := s.Now()
	parts := make([]*PipelineState, len(uris))
	var g errgroup.Group
	for i, uri := range uris {
		state := &PipelineState{
			UserID:       userID,
			Period:       period,
			StatementURI: uri,
			UploadedAt:   now,
		}
		parts[i] = state
		g.Go(func() error {
			return NewPipeline(
				&FetchStatementStep{Statements: s.statements},
				&NormalizeStep{Normalizer: s.normalizer, Log: s.log},
			).Execute(ctx, state)
		})
	}
	if err := g.Wait(); err != nil {
		return Result{Period: period}, err
	}

	names := make([]string, len(parts))
	for i, part := range parts {
		names[i] = part.Filename
	}
	merged := &PipelineState{
		UserID:     userID,
		Period:     period,
		Filename:   strings.Join(names, ","),
		UploadedAt: now,
	}
	p := NewPipeline(
		&ReplacePeriodStep{Repo: s.repo},
		&PersistStatementsStep{Parts: parts, Persist: PersistStep{Repo: s.repo, Limit: s.WriteConcurrency}},
	)
	res, err := s.run(ctx, p, merged)
	res.Files = names
	return res, err
}

func (s *Service) newState(userID string, up Upload) (*PipelineState, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("user id is required")
	}
	period := up.Period
	if period == "" {
		period = domain.PeriodFromFilename(up.Filename, s.Now())
	}
	if _, err := domain.ParsePeriod(string(period)); err != nil {
		return nil, err
	}
	name := up.Filename
	if name == "" {
		name = string(period) + ".csv"
	}
	return &PipelineState{
		UserID:     userID,
		Period:     period,
		Filename:   name,
		Raw:        up.Data,
		UploadedAt: s.Now(),
	}, nil
}

func (s *Service) run(ctx context.Context, p *Pipeline, state *PipelineState) (Result, error) {
	log := s.log.With().
		Str("user_id", state.UserID).
		Str("period", string(state.Period)).
		Str("file", state.Filename).
		Logger()

	err := p.Execute(ctx, state)
	res := Result{
		File:         state.Filename,
		Period:       state.Period,
		StatementURI: state.StatementURI,
		Count:        state.Saved,
		Replaced:     state.Replaced,
	}
	if err != nil {
		log.Error().Err(err).Int("saved", state.Saved).Msg("Statement ingestion failed")
		return res, err
	}

	log.Info().
		Int("saved", state.Saved).
		Int("replaced", state.Replaced).
		Str("statement_uri", state.StatementURI).
		Msg("Statement ingested")
	return res, nil
}
