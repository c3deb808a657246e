package inmemory

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dvloznov/spending-dashboard/internal/domain"
	"github.com/dvloznov/spending-dashboard/internal/infra/memory"
	"github.com/dvloznov/spending-dashboard/internal/ingest"
	"github.com/dvloznov/spending-dashboard/internal/jobs"
	"github.com/dvloznov/spending-dashboard/internal/normalizer"
	"github.com/dvloznov/spending-dashboard/internal/statements"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestQueue(t *testing.T) (*Queue, *Store) {
	t.Helper()
	store := NewStore()
	q := NewQueue(10, 2, store, zerolog.Nop())
	t.Cleanup(func() { _ = q.Close() })
	return q, store
}

func waitForStatus(t *testing.T, store *Store, jobID string, status jobs.JobStatus) *jobs.NormalizeStatementJob {
	t.Helper()
	var last *jobs.NormalizeStatementJob
	require.Eventually(t, func() bool {
		j, err := store.GetJob(context.Background(), jobID)
		if err != nil {
			return false
		}
		last = j
		return j.Status == status
	}, 5*time.Second, 5*time.Millisecond)
	return last
}

func TestQueue_ProcessesJob(t *testing.T) {
	q, store := newTestQueue(t)
	ctx := context.Background()

	require.NoError(t, q.Start(ctx, func(ctx context.Context, job jobs.Job) error {
		job.(*jobs.NormalizeStatementJob).Saved = 7
		return nil
	}))

	job := &jobs.NormalizeStatementJob{UserID: "alice", Period: "2024-01", StatementURI: "file:///tmp/a.csv"}
	require.NoError(t, q.PublishNormalizeStatement(ctx, job))
	require.NotEmpty(t, job.JobID)
	assert.Equal(t, jobs.JobStatusPending, job.Status)

	done := waitForStatus(t, store, job.JobID, jobs.JobStatusCompleted)
	assert.Equal(t, 7, done.Saved)
	assert.NotNil(t, done.StartedAt)
	assert.NotNil(t, done.CompletedAt)
	assert.Empty(t, done.Error)
}

func TestQueue_FailedJobRunsOnce(t *testing.T) {
	q, store := newTestQueue(t)
	ctx := context.Background()

	var calls atomic.Int32
	require.NoError(t, q.Start(ctx, func(ctx context.Context, job jobs.Job) error {
		calls.Add(1)
		return errors.New("model unavailable")
	}))

	job := &jobs.NormalizeStatementJob{UserID: "alice", Period: "2024-01"}
	require.NoError(t, q.PublishNormalizeStatement(ctx, job))

	failed := waitForStatus(t, store, job.JobID, jobs.JobStatusFailed)
	assert.Equal(t, "model unavailable", failed.Error)
	assert.NotNil(t, failed.CompletedAt)

	// give a stray re-enqueue the chance to show up
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

// failingRepo fails the nth save once.
type failingRepo struct {
	*memory.Repository
	failOn int32
	saves  atomic.Int32
}

func (r *failingRepo) SaveTransaction(ctx context.Context, rec domain.StoredTransaction) error {
	if r.saves.Add(1) == r.failOn {
		return errors.New("write timeout")
	}
	return r.Repository.SaveTransaction(ctx, rec)
}

func TestQueue_PartialPersistIsNotRepeated(t *testing.T) {
	ctx := context.Background()
	repo := &failingRepo{Repository: memory.NewRepository(), failOn: 2}
	stmts, err := statements.NewDirStore(filepath.Join(t.TempDir(), "statements"))
	require.NoError(t, err)

	svc := ingest.NewService(repo, stmts, normalizer.NewCSVNormalizer("R$", zerolog.Nop()), zerolog.Nop())
	svc.WriteConcurrency = 1

	csv := "Date,Description,Category,Type,Value\n" +
		"2024-03-01,MARKET,Food,Expense,R$ 10\n" +
		"2024-03-02,UBER TRIP,Transport,Expense,R$ 20\n" +
		"2024-03-03,NETFLIX,Subscriptions,Expense,R$ 30\n"
	stored, err := svc.Store(ctx, "alice", ingest.Upload{Filename: "card-2024-03.csv", Data: []byte(csv)})
	require.NoError(t, err)

	q, store := newTestQueue(t)
	require.NoError(t, q.Start(ctx, jobs.NewIngestHandler(svc, zerolog.Nop())))

	job := &jobs.NormalizeStatementJob{UserID: "alice", Period: stored.Period, StatementURI: stored.StatementURI}
	require.NoError(t, q.PublishNormalizeStatement(ctx, job))

	failed := waitForStatus(t, store, job.JobID, jobs.JobStatusFailed)
	assert.Contains(t, failed.Error, "write timeout")

	time.Sleep(50 * time.Millisecond)
	got, err := repo.ListTransactions(ctx, "alice")
	require.NoError(t, err)
	// the failed write is lost; the other two stay and nothing is written twice
	assert.Len(t, got, 2)
	assert.Equal(t, int32(3), repo.saves.Load())
}

func TestQueue_HandlerPanicFailsJob(t *testing.T) {
	q, store := newTestQueue(t)
	ctx := context.Background()

	require.NoError(t, q.Start(ctx, func(ctx context.Context, job jobs.Job) error {
		panic("boom")
	}))

	job := &jobs.NormalizeStatementJob{UserID: "alice", Period: "2024-01"}
	require.NoError(t, q.PublishNormalizeStatement(ctx, job))

	failed := waitForStatus(t, store, job.JobID, jobs.JobStatusFailed)
	assert.Contains(t, failed.Error, "panicked")
}

func TestQueue_Closed(t *testing.T) {
	q, _ := newTestQueue(t)

	require.NoError(t, q.Stop(context.Background()))
	require.NoError(t, q.Stop(context.Background()))

	err := q.PublishNormalizeStatement(context.Background(), &jobs.NormalizeStatementJob{})
	assert.Error(t, err)
	assert.Error(t, q.Start(context.Background(), func(context.Context, jobs.Job) error { return nil }))
}
