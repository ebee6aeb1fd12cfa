package remittance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"carbon-scribe/project-portal/dapp-portal-backend/internal/outcome"
	"carbon-scribe/project-portal/dapp-portal-backend/internal/session"
	"carbon-scribe/project-portal/dapp-portal-backend/internal/session/sessiontest"
	"carbon-scribe/project-portal/dapp-portal-backend/internal/transactions"
	"carbon-scribe/project-portal/dapp-portal-backend/internal/txbuilder"
	"carbon-scribe/project-portal/dapp-portal-backend/pkg/sui"
)

const testPackage = "0x2e366e507933e182ce9b758df6d0d24cd50702dd2081f9737d83e09b8232fdeb"

type MockChain struct {
	mock.Mock
}

func (m *MockChain) GetBalance(ctx context.Context, owner, coinType string) (*sui.Balance, error) {
	args := m.Called(ctx, owner, coinType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sui.Balance), args.Error(1)
}

type scheduled struct {
	delay time.Duration
	fn    func()
}

type fixture struct {
	service   *Service
	chain     *MockChain
	repo      transactions.Repository
	sess      *session.Session
	signer    *sessiontest.MockSigner
	scheduled []scheduled
}

func newFixture(t *testing.T, balanceMist uint64) *fixture {
	t.Helper()
	f := &fixture{chain: new(MockChain), repo: transactions.NewMemoryRepository()}
	submitter := transactions.NewSubmitter(f.repo, zap.NewNop(), nil)
	f.service = NewService(f.chain, submitter, f.repo, zap.NewNop(), nil, Config{
		PackageID:    testPackage,
		RefreshDelay: DefaultRefreshDelay,
	})
	f.service.afterFunc = func(d time.Duration, fn func()) {
		f.scheduled = append(f.scheduled, scheduled{delay: d, fn: fn})
	}
	f.sess, f.signer = sessiontest.Connected(t)
	f.sess.SetBalance(sessiontest.Account, balanceMist, time.Now())
	return f
}

func isTransfer(amount uint64) any {
	return mock.MatchedBy(func(tx *txbuilder.Transaction) bool {
		want, err := txbuilder.Transfer(testPackage, sessiontest.Recipient, amount)
		if err != nil || len(tx.Inputs) != len(want.Inputs) {
			return false
		}
		for i := range want.Inputs {
			if want.Inputs[i].Pure == nil || tx.Inputs[i].Pure == nil || want.Inputs[i].Pure.Bytes != tx.Inputs[i].Pure.Bytes {
				return false
			}
		}
		return true
	})
}

func TestSendSucceeds(t *testing.T) {
	f := newFixture(t, 2_500_000_000)
	ctx := context.Background()

	f.signer.On("SignAndExecute", mock.Anything, isTransfer(1_000_000_000)).
		Return(sessiontest.Success("digest-ok"), nil).Once()

	rec, err := f.service.Send(ctx, f.sess, SendRequest{Recipient: sessiontest.Recipient, Amount: "1"})
	require.NoError(t, err)
	assert.Equal(t, "1", rec.Amount)
	assert.Equal(t, uint64(1_000_000_000), rec.AmountMist)
	assert.Equal(t, transactions.StatusPending, rec.Status)
	assert.False(t, f.sess.Busy())
	assert.Equal(t, SendRequest{}, f.service.Draft(f.sess))

	history, err := f.service.History(ctx, f.sess, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, rec.ID, history[0].ID)
	assert.Equal(t, "Just now", history[0].Age)
	assert.Equal(t, sui.ShortAddress(sessiontest.Recipient), history[0].ShortRecipient)

	require.Len(t, f.scheduled, 1)
	assert.Equal(t, 2*time.Second, f.scheduled[0].delay)

	f.chain.On("GetBalance", mock.Anything, sessiontest.Account, sui.SUICoinType).
		Return(&sui.Balance{CoinType: sui.SUICoinType, TotalBalance: "1499000000"}, nil).Once()
	f.scheduled[0].fn()

	bal, _, ok := f.sess.Balance()
	require.True(t, ok)
	assert.Equal(t, uint64(1_499_000_000), bal)

	f.signer.AssertExpectations(t)
	f.chain.AssertExpectations(t)
}

func TestSendRejectsOverBalance(t *testing.T) {
	f := newFixture(t, 2_500_000_000)

	_, err := f.service.Send(context.Background(), f.sess, SendRequest{Recipient: sessiontest.Recipient, Amount: "10"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Insufficient balance. You have 2.5000 SUI", verr.Field("amount"))
	assert.Contains(t, err.Error(), "2.5000")

	f.signer.AssertNotCalled(t, "SignAndExecute", mock.Anything, mock.Anything)
	assert.Empty(t, f.scheduled)
}

func TestSendUserRejected(t *testing.T) {
	f := newFixture(t, 2_500_000_000)
	req := SendRequest{Recipient: sessiontest.Recipient, Amount: "1"}

	f.signer.On("SignAndExecute", mock.Anything, mock.Anything).
		Return(nil, errors.New("User rejected the request")).Once()

	rec, err := f.service.Send(context.Background(), f.sess, req)
	assert.Nil(t, rec)

	var failure *outcome.Failure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, outcome.KindUserCancelled, failure.Kind())
	assert.Equal(t, outcome.DefaultMessages[outcome.KindUserCancelled], failure.Notice)

	assert.False(t, f.sess.Busy())
	assert.Equal(t, req, f.service.Draft(f.sess))
	assert.Empty(t, f.scheduled)

	history, err := f.service.History(context.Background(), f.sess, 0)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestSendUnknownFailureUsesRemittanceCopy(t *testing.T) {
	f := newFixture(t, 2_500_000_000)
	f.signer.On("SignAndExecute", mock.Anything, mock.Anything).
		Return(nil, errors.New("socket hang up")).Once()

	_, err := f.service.Send(context.Background(), f.sess, SendRequest{Recipient: sessiontest.Recipient, Amount: "0.5"})
	assert.EqualError(t, err, MsgSendFailed)
}

func TestSendFailedEffects(t *testing.T) {
	f := newFixture(t, 2_500_000_000)
	f.signer.On("SignAndExecute", mock.Anything, mock.Anything).
		Return(sessiontest.Failure("digest-bad", "InsufficientGas"), nil).Once()

	rec, err := f.service.Send(context.Background(), f.sess, SendRequest{Recipient: sessiontest.Recipient, Amount: "1"})
	require.Error(t, err)
	assert.EqualError(t, err, transactions.NoticeTransactionFailed)
	require.NotNil(t, rec)
	assert.Equal(t, transactions.StatusFailed, rec.Status)
	assert.Empty(t, f.scheduled)
}

func TestSendValidation(t *testing.T) {
	tests := []struct {
		name  string
		req   SendRequest
		field string
		want  string
	}{
		{"missing recipient", SendRequest{Amount: "1"}, "recipient", MsgRecipientRequired},
		{"short address", SendRequest{Recipient: "0x1234", Amount: "1"}, "recipient", MsgInvalidAddress},
		{"no prefix", SendRequest{Recipient: sessiontest.Recipient[2:] + "ab", Amount: "1"}, "recipient", MsgInvalidAddress},
		{"missing amount", SendRequest{Recipient: sessiontest.Recipient}, "amount", MsgAmountRequired},
		{"not a number", SendRequest{Recipient: sessiontest.Recipient, Amount: "abc"}, "amount", MsgInvalidAmount},
		{"negative", SendRequest{Recipient: sessiontest.Recipient, Amount: "-1"}, "amount", MsgInvalidAmount},
		{"zero", SendRequest{Recipient: sessiontest.Recipient, Amount: "0"}, "amount", MsgInvalidAmount},
		{"below one mist", SendRequest{Recipient: sessiontest.Recipient, Amount: "0.0000000001"}, "amount", MsgInvalidAmount},
		{"huge exponent", SendRequest{Recipient: sessiontest.Recipient, Amount: "1e20000000"}, "amount", MsgInvalidAmount},
		{"tiny exponent", SendRequest{Recipient: sessiontest.Recipient, Amount: "1e-20000000"}, "amount", MsgInvalidAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, 2_500_000_000)
			_, err := f.service.Send(context.Background(), f.sess, tt.req)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.want, verr.Field(tt.field))
			f.signer.AssertNotCalled(t, "SignAndExecute", mock.Anything, mock.Anything)
		})
	}
}

func TestSendRequiresWallet(t *testing.T) {
	f := newFixture(t, 0)
	sess := sessiontest.NewSession(t)

	_, err := f.service.Send(context.Background(), sess, SendRequest{Recipient: sessiontest.Recipient, Amount: "1"})
	assert.ErrorIs(t, err, session.ErrWalletNotConnected)
	assert.EqualError(t, err, "Please connect your wallet first")
}

func TestSendWhileBusy(t *testing.T) {
	f := newFixture(t, 2_500_000_000)
	release, err := f.sess.Begin()
	require.NoError(t, err)
	defer release()

	_, err = f.service.Send(context.Background(), f.sess, SendRequest{Recipient: sessiontest.Recipient, Amount: "1"})
	assert.ErrorIs(t, err, session.ErrBusy)
	f.signer.AssertNotCalled(t, "SignAndExecute", mock.Anything, mock.Anything)
}

func TestBalanceFetchesWhenUnknown(t *testing.T) {
	f := newFixture(t, 0)
	sess, _ := sessiontest.Connected(t)

	f.chain.On("GetBalance", mock.Anything, sessiontest.Account, sui.SUICoinType).
		Return(&sui.Balance{TotalBalance: "2500000000"}, nil).Once()

	view, err := f.service.Balance(context.Background(), sess, false)
	require.NoError(t, err)
	assert.Equal(t, "2.5000", view.Balance)

	view, err = f.service.Balance(context.Background(), sess, false)
	require.NoError(t, err)
	assert.Equal(t, uint64(2_500_000_000), view.BalanceMist)
	f.chain.AssertNumberOfCalls(t, "GetBalance", 1)
}

func TestRefreshBalanceError(t *testing.T) {
	f := newFixture(t, 0)
	f.chain.On("GetBalance", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("timeout"))

	_, err := f.service.RefreshBalance(context.Background(), f.sess)
	assert.Error(t, err)
}
