package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/dvloznov/spending-dashboard/internal/domain"
	"github.com/dvloznov/spending-dashboard/internal/store"
	mock_store "github.com/dvloznov/spending-dashboard/internal/store/mocks"
	"github.com/dvloznov/spending-dashboard/internal/store/storetest"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadByPeriod(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mock_store.NewMockRepository(ctrl)
	repo.EXPECT().ListTransactions(gomock.Any(), "alice").Return([]domain.StoredTransaction{
		storetest.Record("alice", "2024-02", "b", 2),
		storetest.Record("alice", "2024-01", "a", 1),
		storetest.Record("alice", "2024-02", "c", 3),
	}, nil)

	data, err := store.LoadByPeriod(context.Background(), repo, "alice")
	require.NoError(t, err)

	assert.Equal(t, []domain.Period{"2024-01", "2024-02"}, data.Periods())
	require.Len(t, data["2024-02"], 2)
	assert.Equal(t, "b", data["2024-02"][0].Description)
}

func TestLoadByPeriod_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	boom := errors.New("backend down")
	repo := mock_store.NewMockRepository(ctrl)
	repo.EXPECT().ListTransactions(gomock.Any(), "alice").Return(nil, boom)

	_, err := store.LoadByPeriod(context.Background(), repo, "alice")
	assert.ErrorIs(t, err, boom)
}

func TestValidate(t *testing.T) {
	ok := storetest.Record("alice", "2024-01", "x", 1)
	assert.NoError(t, store.Validate(ok))

	negative := ok
	negative.Value = -1
	err := store.Validate(negative)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "negative")

	blank := domain.StoredTransaction{}
	err = store.Validate(blank)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "user id is required")
	assert.Contains(t, err.Error(), "upload timestamp is required")
}
