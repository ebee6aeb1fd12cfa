package transactions

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"carbon-scribe/project-portal/dapp-portal-backend/internal/metrics"
	"carbon-scribe/project-portal/dapp-portal-backend/internal/outcome"
	"carbon-scribe/project-portal/dapp-portal-backend/internal/session"
	"carbon-scribe/project-portal/dapp-portal-backend/internal/txbuilder"
	"carbon-scribe/project-portal/dapp-portal-backend/pkg/sui"
)

// NoticeTransactionFailed is shown when the wallet executed the transaction
// but the chain reported a failure.
const NoticeTransactionFailed = "Transaction failed"

// Submission is one transaction ready for the wallet.
type Submission struct {
	Session    *session.Session
	Operation  Operation
	Recipient  string
	Amount     string
	AmountMist uint64
	Tx         *txbuilder.Transaction
	Messages   outcome.Messages
}

// Submitter hands transactions to the session's wallet and records what
// came back. Wallet failures are returned as *outcome.Failure.
type Submitter struct {
	repo    Repository
	logger  *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewSubmitter(repo Repository, logger *zap.Logger, m *metrics.Metrics) *Submitter {
	return &Submitter{repo: repo, logger: logger, metrics: m, now: time.Now}
}

// Submit signs and executes sub.Tx once. On success the returned record is
// pending, or failed when the wallet reported failed effects; in the latter
// case the record is returned together with a failure.
func (s *Submitter) Submit(ctx context.Context, sub Submission) (*Record, error) {
	signer, err := sub.Session.Signer()
	if err != nil {
		return nil, err
	}

	start := s.now()
	resp, err := signer.SignAndExecute(ctx, sub.Tx)
	took := s.now().Sub(start)
	if err != nil {
		failure := outcome.NewFailure(err, sub.Messages)
		s.metrics.ObserveSubmission(string(sub.Operation), string(failure.Kind()), took)
		s.logger.Warn("Wallet submission failed",
			zap.String("session_id", sub.Session.ID),
			zap.String("operation", string(sub.Operation)),
			zap.String("kind", string(failure.Kind())),
			zap.Error(err),
		)
		return nil, failure
	}

	now := s.now()
	rec := &Record{
		ID:         uuid.New(),
		SessionID:  sub.Session.ID,
		Operation:  sub.Operation,
		Sender:     signer.Address(),
		Recipient:  sub.Recipient,
		Amount:     sub.Amount,
		AmountMist: sub.AmountMist,
		Digest:     resp.Digest,
		Status:     StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if resp.Effects != nil {
		if raw, err := json.Marshal(resp.Effects); err == nil {
			rec.Effects = datatypes.JSON(raw)
		}
	}

	var failure *outcome.Failure
	if resp.Effects != nil && resp.Effects.Status.Status == sui.StatusFailure {
		reason := resp.Effects.Status.Error
		rec.Status = StatusFailed
		rec.FailureReason = &reason
		failure = &outcome.Failure{
			Cause:  outcome.Classify(reason, nil),
			Notice: NoticeTransactionFailed,
		}
	}

	if err := s.repo.Create(ctx, rec); err != nil {
		s.logger.Error("Failed to store transaction record",
			zap.String("digest", rec.Digest),
			zap.Error(err),
		)
		return nil, err
	}

	if failure != nil {
		s.metrics.ObserveSubmission(string(sub.Operation), string(failure.Kind()), took)
		s.metrics.RecordTransition(string(StatusFailed))
		s.logger.Warn("Transaction executed with failure",
			zap.String("digest", rec.Digest),
			zap.String("reason", *rec.FailureReason),
		)
		return rec, failure
	}

	s.metrics.ObserveSubmission(string(sub.Operation), "success", took)
	s.logger.Info("Transaction submitted",
		zap.String("session_id", sub.Session.ID),
		zap.String("operation", string(sub.Operation)),
		zap.String("digest", rec.Digest),
	)
	return rec, nil
}
