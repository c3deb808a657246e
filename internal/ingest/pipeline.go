package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dvloznov/spending-dashboard/internal/domain"
	"github.com/dvloznov/spending-dashboard/internal/normalizer"
	"github.com/dvloznov/spending-dashboard/internal/statements"
	"github.com/dvloznov/spending-dashboard/internal/store"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// PipelineStep represents a single step in the ingestion pipeline.
type PipelineStep interface {
	Execute(ctx context.Context, state *PipelineState) error
}

// PipelineState holds the shared state across all pipeline steps.
type PipelineState struct {
	UserID       string
	Period       domain.Period
	Filename     string
	Raw          []byte
	StatementURI string
	UploadedAt   time.Time

	Transactions []domain.Transaction
	Replaced     int
	Saved        int
}

// StoreStatementStep keeps the raw file so it can be normalized again later.
type StoreStatementStep struct {
	Statements statements.Store
}

func (s *StoreStatementStep) Execute(ctx context.Context, state *PipelineState) error {
	if s.Statements == nil || state.StatementURI != "" {
		return nil
	}
	uri, err := s.Statements.Put(ctx, state.UserID, state.Period, state.Filename, state.Raw)
	if err != nil {
		return fmt.Errorf("store statement: %w", err)
	}
	state.StatementURI = uri
	return nil
}

// FetchStatementStep loads the raw file behind StatementURI.
type FetchStatementStep struct {
	Statements statements.Store
}

func (s *FetchStatementStep) Execute(ctx context.Context, state *PipelineState) error {
	data, err := s.Statements.Fetch(ctx, state.StatementURI)
	if err != nil {
		return fmt.Errorf("fetch statement: %w", err)
	}
	state.Raw = data
	if state.Filename == "" {
		state.Filename = statements.Filename(state.StatementURI)
	}
	return nil
}

// NormalizeStep turns the raw CSV text into transactions.
type NormalizeStep struct {
	Normalizer normalizer.Normalizer
	Log        zerolog.Logger
}

func (s *NormalizeStep) Execute(ctx context.Context, state *PipelineState) error {
	txs, err := s.Normalizer.Normalize(ctx, string(state.Raw))
	if err != nil {
		return fmt.Errorf("normalize %s: %w", state.Filename, err)
	}
	if len(txs) == 0 {
		s.Log.Warn().
			Str("file", state.Filename).
			Str("period", string(state.Period)).
			Msg("Statement produced no transactions")
	}
	state.Transactions = txs
	return nil
}

// ReplacePeriodStep removes what is already stored for the period. An empty period is fine.
type ReplacePeriodStep struct {
	Repo store.Repository
}

func (s *ReplacePeriodStep) Execute(ctx context.Context, state *PipelineState) error {
	n, err := s.Repo.DeleteTransactions(ctx, state.UserID, state.Period)
	if errors.Is(err, store.ErrNotFound) {
		n, err = 0, nil
	}
	if err != nil {
		return fmt.Errorf("clear period %s: %w", state.Period, err)
	}
	state.Replaced = n
	return nil
}

// PersistStep writes every transaction concurrently and waits for all of them.
// The first failure is returned; records already written stay written.
type PersistStep struct {
	Repo  store.Repository
	Limit int
}

func (s *PersistStep) Execute(ctx context.Context, state *PipelineState) error {
	var (
		g     errgroup.Group
		saved atomic.Int64
	)
	if s.Limit > 0 {
		g.SetLimit(s.Limit)
	}

	for _, tx := range state.Transactions {
		rec := domain.StoredTransaction{
			Transaction: tx,
			UserID:      state.UserID,
			Period:      state.Period,
			UploadedAt:  state.UploadedAt,
			Source:      state.Filename,
		}
		g.Go(func() error {
			if err := s.Repo.SaveTransaction(ctx, rec); err != nil {
				return err
			}
			saved.Add(1)
			return nil
		})
	}

	err := g.Wait()
	state.Saved = int(saved.Load())
	if err != nil {
		return fmt.Errorf("persist transactions: %w", err)
	}
	return nil
}

// PersistStatementsStep persists several normalized statements into one period.
// Each record keeps the name of the statement it came from.
type PersistStatementsStep struct {
	Parts   []*PipelineState
	Persist PersistStep
}

func (s *PersistStatementsStep) Execute(ctx context.Context, state *PipelineState) error {
	for _, part := range s.Parts {
		err := s.Persist.Execute(ctx, part)
		state.Saved += part.Saved
		if err != nil {
			return fmt.Errorf("%s: %w", part.Filename, err)
		}
	}
	return nil
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []PipelineStep
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps in the pipeline sequentially.
func (p *Pipeline) Execute(ctx context.Context, state *PipelineState) error {
	for i, step := range p.steps {
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("pipeline step %d failed: %w", i+1, err)
		}
	}
	return nil
}
