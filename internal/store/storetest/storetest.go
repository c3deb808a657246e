// Package storetest holds behaviour tests shared by store.Repository backends.
package storetest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dvloznov/spending-dashboard/internal/domain"
	"github.com/dvloznov/spending-dashboard/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Record builds a valid record for tests.
func Record(userID string, period domain.Period, desc string, value float64) domain.StoredTransaction {
	return domain.StoredTransaction{
		Transaction: domain.Transaction{
			Date:        string(period) + "-05",
			Description: desc,
			Category:    "Food",
			Type:        domain.TypeExpense,
			Value:       value,
		},
		UserID:     userID,
		Period:     period,
		UploadedAt: time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC),
		Source:     "statement-" + string(period) + ".csv",
	}
}

// Run exercises a repository created fresh by newRepo for every subtest.
func Run(t *testing.T, newRepo func(t *testing.T) store.Repository) {
	t.Run("save and list", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		require.NoError(t, repo.SaveTransaction(ctx, Record("alice", "2024-01", "MARKET", 50)))
		require.NoError(t, repo.SaveTransaction(ctx, Record("alice", "2024-02", "RENT", 900.5)))
		require.NoError(t, repo.SaveTransaction(ctx, Record("bob", "2024-01", "BAKERY", 3)))

		got, err := repo.ListTransactions(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, got, 2)

		byDesc := map[string]domain.StoredTransaction{}
		for _, rec := range got {
			assert.NotEmpty(t, rec.ID)
			assert.Equal(t, "alice", rec.UserID)
			byDesc[rec.Description] = rec
		}
		rent := byDesc["RENT"]
		assert.Equal(t, domain.Period("2024-02"), rent.Period)
		assert.InDelta(t, 900.5, rent.Value, 1e-9)
		assert.Equal(t, "2024-02-05", rent.Date)
		assert.Equal(t, "Food", rent.Category)
		assert.Equal(t, domain.TypeExpense, rent.Type)
		assert.Equal(t, "statement-2024-02.csv", rent.Source)
		assert.True(t, rent.UploadedAt.Equal(time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC)))
	})

	t.Run("unknown user has no records", func(t *testing.T) {
		repo := newRepo(t)

		got, err := repo.ListTransactions(context.Background(), "nobody")
		require.NoError(t, err)
		assert.Empty(t, got)

		periods, err := repo.ListPeriods(context.Background(), "nobody")
		require.NoError(t, err)
		assert.Empty(t, periods)
	})

	t.Run("invalid records are rejected", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		noUser := Record("", "2024-01", "x", 1)
		assert.Error(t, repo.SaveTransaction(ctx, noUser))

		badPeriod := Record("alice", "2024-1", "x", 1)
		assert.Error(t, repo.SaveTransaction(ctx, badPeriod))

		noTimestamp := Record("alice", "2024-01", "x", 1)
		noTimestamp.UploadedAt = time.Time{}
		assert.Error(t, repo.SaveTransaction(ctx, noTimestamp))
	})

	t.Run("periods are distinct and ascending", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		for _, p := range []domain.Period{"2024-03", "2023-12", "2024-03", "2024-01"} {
			require.NoError(t, repo.SaveTransaction(ctx, Record("alice", p, "x", 1)))
		}

		periods, err := repo.ListPeriods(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, []domain.Period{"2023-12", "2024-01", "2024-03"}, periods)
	})

	t.Run("delete removes only the given period", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		require.NoError(t, repo.SaveTransaction(ctx, Record("alice", "2024-01", "a", 1)))
		require.NoError(t, repo.SaveTransaction(ctx, Record("alice", "2024-01", "b", 2)))
		require.NoError(t, repo.SaveTransaction(ctx, Record("alice", "2024-02", "c", 3)))
		require.NoError(t, repo.SaveTransaction(ctx, Record("bob", "2024-01", "d", 4)))

		removed, err := repo.DeleteTransactions(ctx, "alice", "2024-01")
		require.NoError(t, err)
		assert.Equal(t, 2, removed)

		got, err := repo.ListTransactions(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "c", got[0].Description)

		bob, err := repo.ListTransactions(ctx, "bob")
		require.NoError(t, err)
		assert.Len(t, bob, 1)

		removed, err = repo.DeleteTransactions(ctx, "alice", "2020-01")
		assert.ErrorIs(t, err, store.ErrNotFound)
		assert.Zero(t, removed)

		removed, err = repo.DeleteTransactions(ctx, "carol", "2024-01")
		assert.ErrorIs(t, err, store.ErrNotFound)
		assert.Zero(t, removed)
	})

	t.Run("concurrent saves", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		const n = 20
		var wg sync.WaitGroup
		errs := make(chan error, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- repo.SaveTransaction(ctx, Record("alice", "2024-05", "x", 1))
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		got, err := repo.ListTransactions(ctx, "alice")
		require.NoError(t, err)
		assert.Len(t, got, n)
	})
}
