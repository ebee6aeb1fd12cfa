package transactions

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newRecord(sessionID string, op Operation, created time.Time) *Record {
	return &Record{
		ID:         uuid.New(),
		SessionID:  sessionID,
		Operation:  op,
		Sender:     "0x" + "ab",
		Amount:     "1",
		AmountMist: 1_000_000_000,
		Digest:     uuid.NewString(),
		Status:     StatusPending,
		CreatedAt:  created,
		UpdatedAt:  created,
	}
}

func newSQLiteRepository(t *testing.T) Repository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "records.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return NewGormRepository(db)
}

func repositories(t *testing.T) map[string]Repository {
	return map[string]Repository{
		"memory": NewMemoryRepository(),
		"gorm":   newSQLiteRepository(t),
	}
}

func TestRepositoryListOrdering(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			base := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

			first := newRecord("s1", OperationRemittance, base)
			second := newRecord("s1", OperationBuyListing, base.Add(time.Minute))
			other := newRecord("s2", OperationRemittance, base.Add(2*time.Minute))
			for _, rec := range []*Record{first, second, other} {
				require.NoError(t, repo.Create(ctx, rec))
			}

			list, err := repo.ListBySession(ctx, "s1", ListFilter{})
			require.NoError(t, err)
			require.Len(t, list, 2)
			assert.Equal(t, second.ID, list[0].ID)
			assert.Equal(t, first.ID, list[1].ID)

			filtered, err := repo.ListBySession(ctx, "s1", ListFilter{Operation: OperationRemittance})
			require.NoError(t, err)
			require.Len(t, filtered, 1)
			assert.Equal(t, first.ID, filtered[0].ID)

			limited, err := repo.ListBySession(ctx, "s1", ListFilter{Limit: 1})
			require.NoError(t, err)
			require.Len(t, limited, 1)

			pending, err := repo.ListPending(ctx, 0)
			require.NoError(t, err)
			require.Len(t, pending, 3)
			assert.Equal(t, first.ID, pending[0].ID)
			assert.Equal(t, other.ID, pending[2].ID)
		})
	}
}

func TestRepositoryUpdateStatus(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
			rec := newRecord("s1", OperationRemittance, now)
			require.NoError(t, repo.Create(ctx, rec))

			cp := uint64(42)
			err := repo.UpdateStatus(ctx, rec.ID, StatusPending, StatusUpdate{
				Status:     StatusConfirmed,
				Checkpoint: &cp,
				At:         now.Add(time.Second),
			})
			require.NoError(t, err)

			got, err := repo.Get(ctx, rec.ID)
			require.NoError(t, err)
			assert.Equal(t, StatusConfirmed, got.Status)
			require.NotNil(t, got.Checkpoint)
			assert.Equal(t, uint64(42), *got.Checkpoint)
			require.NotNil(t, got.ConfirmedAt)

			err = repo.UpdateStatus(ctx, rec.ID, StatusPending, StatusUpdate{Status: StatusFailed, At: now})
			assert.ErrorIs(t, err, ErrStaleStatus)

			err = repo.UpdateStatus(ctx, uuid.New(), StatusPending, StatusUpdate{Status: StatusFailed, At: now})
			assert.ErrorIs(t, err, ErrRecordNotFound)

			pending, err := repo.ListPending(ctx, 10)
			require.NoError(t, err)
			assert.Empty(t, pending)
		})
	}
}

func TestRepositoryDeleteBySession(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			now := time.Now().UTC()
			keep := newRecord("keep", OperationRemittance, now)
			drop := newRecord("drop", OperationRemittance, now)
			require.NoError(t, repo.Create(ctx, keep))
			require.NoError(t, repo.Create(ctx, drop))

			require.NoError(t, repo.DeleteBySession(ctx, "drop"))

			_, err := repo.Get(ctx, drop.ID)
			assert.ErrorIs(t, err, ErrRecordNotFound)
			_, err = repo.Get(ctx, keep.ID)
			assert.NoError(t, err)
		})
	}
}

func TestStatusMachine(t *testing.T) {
	m := NewStatusMachine()
	assert.True(t, m.CanTransition(string(StatusPending), string(StatusConfirmed)))
	assert.True(t, m.CanTransition(string(StatusPending), string(StatusFailed)))
	assert.False(t, m.CanTransition(string(StatusConfirmed), string(StatusFailed)))
	assert.True(t, m.IsTerminal(string(StatusFailed)))
}
