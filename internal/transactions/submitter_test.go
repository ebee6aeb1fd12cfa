package transactions

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"carbon-scribe/project-portal/dapp-portal-backend/internal/outcome"
	"carbon-scribe/project-portal/dapp-portal-backend/internal/session"
	"carbon-scribe/project-portal/dapp-portal-backend/internal/session/sessiontest"
	"carbon-scribe/project-portal/dapp-portal-backend/internal/txbuilder"
)

func transferTx(t *testing.T) *txbuilder.Transaction {
	t.Helper()
	tx, err := txbuilder.Transfer("0x2e366e507933e182ce9b758df6d0d24cd50702dd2081f9737d83e09b8232fdeb", sessiontest.Recipient, 1_000_000_000)
	require.NoError(t, err)
	return tx
}

func TestSubmitRecordsPending(t *testing.T) {
	repo := NewMemoryRepository()
	submitter := NewSubmitter(repo, zap.NewNop(), nil)
	sess, signer := sessiontest.Connected(t)
	tx := transferTx(t)

	signer.On("SignAndExecute", mock.Anything, tx).Return(sessiontest.Success("digest-1"), nil).Once()

	rec, err := submitter.Submit(context.Background(), Submission{
		Session:    sess,
		Operation:  OperationRemittance,
		Recipient:  sessiontest.Recipient,
		Amount:     "1",
		AmountMist: 1_000_000_000,
		Tx:         tx,
	})
	require.NoError(t, err)
	assert.Equal(t, StatusPending, rec.Status)
	assert.Equal(t, "digest-1", rec.Digest)
	assert.Equal(t, sessiontest.Account, rec.Sender)
	assert.NotEmpty(t, rec.Effects)

	stored, err := repo.ListBySession(context.Background(), sess.ID, ListFilter{})
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, rec.ID, stored[0].ID)
	signer.AssertExpectations(t)
}

func TestSubmitFailedEffects(t *testing.T) {
	repo := NewMemoryRepository()
	submitter := NewSubmitter(repo, zap.NewNop(), nil)
	sess, signer := sessiontest.Connected(t)
	tx := transferTx(t)

	reason := "MoveAbort(MoveLocation { module: remittance }, 3) in command 1"
	signer.On("SignAndExecute", mock.Anything, tx).Return(sessiontest.Failure("digest-2", reason), nil).Once()

	rec, err := submitter.Submit(context.Background(), Submission{Session: sess, Operation: OperationRemittance, Tx: tx})
	require.Error(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, StatusFailed, rec.Status)
	require.NotNil(t, rec.FailureReason)
	assert.Equal(t, reason, *rec.FailureReason)

	var failure *outcome.Failure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, NoticeTransactionFailed, failure.Notice)
	assert.Equal(t, outcome.KindContractAborted, failure.Kind())
	require.NotNil(t, failure.Cause.AbortCode)
	assert.Equal(t, uint64(3), *failure.Cause.AbortCode)
}

func TestSubmitWalletError(t *testing.T) {
	repo := NewMemoryRepository()
	submitter := NewSubmitter(repo, zap.NewNop(), nil)
	sess, signer := sessiontest.Connected(t)
	tx := transferTx(t)

	signer.On("SignAndExecute", mock.Anything, tx).Return(nil, errors.New("Insufficient gas for transaction")).Once()

	msgs := outcome.DefaultMessages.With(outcome.Messages{
		outcome.KindUnknown: "Error sending remittance. Please try again.",
	})
	rec, err := submitter.Submit(context.Background(), Submission{Session: sess, Operation: OperationRemittance, Tx: tx, Messages: msgs})
	assert.Nil(t, rec)
	assert.ErrorIs(t, err, outcome.ErrInsufficientFunds)
	assert.EqualError(t, err, "Insufficient balance for transaction.")

	stored, err := repo.ListBySession(context.Background(), sess.ID, ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestSubmitWithoutWallet(t *testing.T) {
	submitter := NewSubmitter(NewMemoryRepository(), zap.NewNop(), nil)
	sess := sessiontest.NewSession(t)

	_, err := submitter.Submit(context.Background(), Submission{Session: sess, Operation: OperationRemittance, Tx: transferTx(t)})
	assert.ErrorIs(t, err, session.ErrWalletNotConnected)
}
