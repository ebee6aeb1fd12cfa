package remittance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"carbon-scribe/project-portal/dapp-portal-backend/internal/metrics"
	"carbon-scribe/project-portal/dapp-portal-backend/internal/outcome"
	"carbon-scribe/project-portal/dapp-portal-backend/internal/session"
	"carbon-scribe/project-portal/dapp-portal-backend/internal/transactions"
	"carbon-scribe/project-portal/dapp-portal-backend/internal/txbuilder"
	"carbon-scribe/project-portal/dapp-portal-backend/pkg/sui"
)

// BalanceReader reads coin balances from the chain.
type BalanceReader interface {
	GetBalance(ctx context.Context, owner, coinType string) (*sui.Balance, error)
}

// Config configures the remittance flow.
type Config struct {
	PackageID string
	// RefreshDelay is how long after a successful send the balance is
	// fetched again. Zero refreshes immediately.
	RefreshDelay time.Duration
}

// DefaultRefreshDelay gives the fullnode time to index the transfer.
const DefaultRefreshDelay = 2 * time.Second

const refreshTimeout = 10 * time.Second

var sendMessages = outcome.DefaultMessages.With(outcome.Messages{
	outcome.KindUnknown: MsgSendFailed,
})

// Service runs the remittance flow.
type Service struct {
	chain     BalanceReader
	submitter *transactions.Submitter
	repo      transactions.Repository
	config    Config
	logger    *zap.Logger
	metrics   *metrics.Metrics

	now       func() time.Time
	afterFunc func(time.Duration, func())
}

func NewService(chain BalanceReader, submitter *transactions.Submitter, repo transactions.Repository, logger *zap.Logger, m *metrics.Metrics, config Config) *Service {
	if config.RefreshDelay < 0 {
		config.RefreshDelay = 0
	}
	return &Service{
		chain:     chain,
		submitter: submitter,
		repo:      repo,
		config:    config,
		logger:    logger,
		metrics:   m,
		now:       time.Now,
		afterFunc: func(d time.Duration, f func()) { time.AfterFunc(d, f) },
	}
}

// RefreshBalance fetches the connected account's SUI balance and stores it
// on the session.
func (s *Service) RefreshBalance(ctx context.Context, sess *session.Session) (uint64, error) {
	account := sess.Account()
	if account == "" {
		return 0, session.ErrWalletNotConnected
	}

	bal, err := s.chain.GetBalance(ctx, account, sui.SUICoinType)
	if err != nil {
		s.metrics.BalanceRefresh(false)
		s.logger.Warn("Failed to fetch balance", zap.String("account", account), zap.Error(err))
		return 0, fmt.Errorf("failed to fetch balance: %w", err)
	}
	mist, err := bal.Mist()
	if err != nil {
		s.metrics.BalanceRefresh(false)
		return 0, fmt.Errorf("invalid balance %q: %w", bal.TotalBalance, err)
	}

	s.metrics.BalanceRefresh(true)
	if !sess.SetBalance(account, mist, s.now()) {
		s.logger.Debug("Dropped balance for a disconnected account", zap.String("session_id", sess.ID))
	}
	return mist, nil
}

// ScheduleRefresh refreshes the balance after the configured delay.
func (s *Service) ScheduleRefresh(sess *session.Session) {
	s.afterFunc(s.config.RefreshDelay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()
		if _, err := s.RefreshBalance(ctx, sess); err != nil && !errors.Is(err, session.ErrWalletNotConnected) {
			s.logger.Warn("Scheduled balance refresh failed", zap.String("session_id", sess.ID), zap.Error(err))
		}
	})
}

// Balance returns the cached balance, fetching it when refresh is set or
// nothing is cached yet.
func (s *Service) Balance(ctx context.Context, sess *session.Session, refresh bool) (*BalanceView, error) {
	account := sess.Account()
	if account == "" {
		return nil, session.ErrWalletNotConnected
	}

	mist, at, ok := sess.Balance()
	if refresh || !ok {
		if _, err := s.RefreshBalance(ctx, sess); err != nil {
			return nil, err
		}
		mist, at, _ = sess.Balance()
	}
	return &BalanceView{
		Account:     account,
		BalanceMist: mist,
		Balance:     sui.FormatSUI(mist, 4),
		UpdatedAt:   &at,
	}, nil
}

// Draft returns the form stored on the session.
func (s *Service) Draft(sess *session.Session) SendRequest {
	return draftOf(sess).Get()
}

// Validate checks req against the session's last known balance and returns
// the amount in MIST.
func (s *Service) Validate(ctx context.Context, sess *session.Session, req SendRequest) (uint64, error) {
	verr := &ValidationError{}

	recipient := strings.TrimSpace(req.Recipient)
	switch {
	case recipient == "":
		verr.add("recipient", MsgRecipientRequired)
	case !sui.IsValidAddress(recipient):
		verr.add("recipient", MsgInvalidAddress)
	}

	var mist uint64
	amount := strings.TrimSpace(req.Amount)
	if amount == "" {
		verr.add("amount", MsgAmountRequired)
	} else if parsed, err := sui.ParseSUI(amount); err != nil || parsed == 0 {
		verr.add("amount", MsgInvalidAmount)
	} else {
		balance, _, ok := sess.Balance()
		if !ok {
			fetched, err := s.RefreshBalance(ctx, sess)
			if err != nil {
				return 0, err
			}
			balance = fetched
		}
		if parsed > balance {
			verr.add("amount", fmt.Sprintf(MsgInsufficient, sui.FormatSUI(balance, 4)))
		}
		mist = parsed
	}

	if len(verr.Fields) > 0 {
		return 0, verr
	}
	return mist, nil
}

// Send transfers req.Amount SUI to req.Recipient through the connected
// wallet. Validation failures return *ValidationError without contacting
// the wallet; wallet and chain failures return *outcome.Failure. When the
// chain executed the transfer but reported failure, the failed record is
// returned with the error.
func (s *Service) Send(ctx context.Context, sess *session.Session, req SendRequest) (*transactions.Record, error) {
	if sess.Account() == "" {
		return nil, session.ErrWalletNotConnected
	}

	mist, err := s.Validate(ctx, sess, req)
	if err != nil {
		return nil, err
	}

	release, err := sess.Begin()
	if err != nil {
		return nil, err
	}
	defer release()

	draft := draftOf(sess)
	draft.set(req)

	recipient, _ := sui.NormalizeAddress(strings.TrimSpace(req.Recipient))
	tx, err := txbuilder.Transfer(s.config.PackageID, recipient, mist)
	if err != nil {
		return nil, fmt.Errorf("failed to build transfer: %w", err)
	}

	rec, err := s.submitter.Submit(ctx, transactions.Submission{
		Session:    sess,
		Operation:  transactions.OperationRemittance,
		Recipient:  recipient,
		Amount:     strings.TrimSpace(req.Amount),
		AmountMist: mist,
		Tx:         tx,
		Messages:   sendMessages,
	})
	if err != nil {
		return rec, err
	}

	draft.clear()
	s.ScheduleRefresh(sess)

	s.logger.Info("Remittance sent",
		zap.String("session_id", sess.ID),
		zap.String("recipient", recipient),
		zap.Uint64("amount_mist", mist),
		zap.String("digest", rec.Digest),
	)
	return rec, nil
}

// History returns the session's remittances, newest first.
func (s *Service) History(ctx context.Context, sess *session.Session, limit int) ([]HistoryItem, error) {
	records, err := s.repo.ListBySession(ctx, sess.ID, transactions.ListFilter{
		Operation: transactions.OperationRemittance,
		Limit:     limit,
	})
	if err != nil {
		return nil, err
	}

	now := s.now()
	items := make([]HistoryItem, 0, len(records))
	for _, rec := range records {
		items = append(items, HistoryItem{
			Record:         rec,
			ShortRecipient: rec.ShortRecipient(),
			ShortDigest:    sui.ShortAddress(rec.Digest),
			Age:            transactions.FormatAge(now, rec.CreatedAt),
		})
	}
	return items, nil
}

// Records returns the session's remittance records for export.
func (s *Service) Records(ctx context.Context, sess *session.Session) ([]transactions.Record, error) {
	return s.repo.ListBySession(ctx, sess.ID, transactions.ListFilter{Operation: transactions.OperationRemittance})
}

// Record returns one of the session's records.
func (s *Service) Record(ctx context.Context, sess *session.Session, id uuid.UUID) (*transactions.Record, error) {
	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.SessionID != sess.ID {
		return nil, transactions.ErrRecordNotFound
	}
	return rec, nil
}
