package transactions

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/creachadair/jrpc2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"carbon-scribe/project-portal/dapp-portal-backend/pkg/sui"
)

type MockReader struct {
	mock.Mock
}

func (m *MockReader) GetTransactionBlock(ctx context.Context, digest string) (*sui.TransactionBlockResponse, error) {
	args := m.Called(ctx, digest)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sui.TransactionBlockResponse), args.Error(1)
}

func newTestTracker(repo Repository, reader TransactionReader, now time.Time) *Tracker {
	tr := NewTracker(repo, reader, zap.NewNop(), nil, TrackerConfig{ConfirmationTimeout: time.Minute})
	tr.now = func() time.Time { return now }
	return tr
}

func TestReconcileSettlesRecords(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	repo := NewMemoryRepository()

	ok := newRecord("s1", OperationRemittance, now.Add(-10*time.Second))
	bad := newRecord("s1", OperationBuyListing, now.Add(-5*time.Second))
	for _, rec := range []*Record{ok, bad} {
		require.NoError(t, repo.Create(ctx, rec))
	}

	reader := new(MockReader)
	reader.On("GetTransactionBlock", mock.Anything, ok.Digest).Return(&sui.TransactionBlockResponse{
		Digest:     ok.Digest,
		Checkpoint: "1234",
		Effects:    &sui.TransactionEffects{Status: sui.ExecutionStatus{Status: sui.StatusSuccess}},
	}, nil)
	reader.On("GetTransactionBlock", mock.Anything, bad.Digest).Return(&sui.TransactionBlockResponse{
		Digest:  bad.Digest,
		Effects: &sui.TransactionEffects{Status: sui.ExecutionStatus{Status: sui.StatusFailure, Error: "InsufficientCoinBalance"}},
	}, nil)

	summary, err := newTestTracker(repo, reader, now).Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, ReconcileSummary{Checked: 2, Confirmed: 1, Failed: 1}, summary)

	got, err := repo.Get(ctx, ok.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, got.Status)
	require.NotNil(t, got.Checkpoint)
	assert.Equal(t, uint64(1234), *got.Checkpoint)

	got, err = repo.Get(ctx, bad.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, got.Status)
	require.NotNil(t, got.FailureReason)
	assert.Equal(t, "InsufficientCoinBalance", *got.FailureReason)

	reader.AssertExpectations(t)
}

func TestReconcileKeepsUnseenUntilTimeout(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	repo := NewMemoryRepository()

	fresh := newRecord("s1", OperationRemittance, now.Add(-10*time.Second))
	stale := newRecord("s1", OperationRemittance, now.Add(-2*time.Minute))
	for _, rec := range []*Record{fresh, stale} {
		require.NoError(t, repo.Create(ctx, rec))
	}

	reader := new(MockReader)
	reader.On("GetTransactionBlock", mock.Anything, fresh.Digest).Return(&sui.TransactionBlockResponse{Digest: fresh.Digest}, nil)
	reader.On("GetTransactionBlock", mock.Anything, stale.Digest).Return(nil, jrpc2.Errorf(jrpc2.Code(-32602), "Could not find the referenced transaction"))

	summary, err := newTestTracker(repo, reader, now).Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Pending)
	assert.Equal(t, 1, summary.Failed)

	got, err := repo.Get(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)

	got, err = repo.Get(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, got.Status)
}

func TestReconcileCountsLookupErrors(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	repo := NewMemoryRepository()
	rec := newRecord("s1", OperationRemittance, now)
	require.NoError(t, repo.Create(ctx, rec))

	reader := new(MockReader)
	reader.On("GetTransactionBlock", mock.Anything, rec.Digest).Return(nil, errors.New("connection refused"))

	summary, err := newTestTracker(repo, reader, now).Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Errors)

	got, err := repo.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)
}

func TestTrackerStartStop(t *testing.T) {
	tr := NewTracker(NewMemoryRepository(), new(MockReader), zap.NewNop(), nil, TrackerConfig{Schedule: "@every 1h"})
	require.NoError(t, tr.Start(context.Background()))
	assert.Error(t, tr.Start(context.Background()))
	tr.Stop()
	tr.Stop()

	bad := NewTracker(NewMemoryRepository(), new(MockReader), zap.NewNop(), nil, TrackerConfig{Schedule: "not a schedule"})
	assert.Error(t, bad.Start(context.Background()))
}
