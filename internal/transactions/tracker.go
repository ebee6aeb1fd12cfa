package transactions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"carbon-scribe/project-portal/dapp-portal-backend/internal/metrics"
	"carbon-scribe/project-portal/dapp-portal-backend/pkg/sui"
	"carbon-scribe/project-portal/dapp-portal-backend/pkg/workflows"
)

// TransactionReader looks transactions up on chain.
type TransactionReader interface {
	GetTransactionBlock(ctx context.Context, digest string) (*sui.TransactionBlockResponse, error)
}

// TrackerConfig configures confirmation tracking.
type TrackerConfig struct {
	Schedule            string        `json:"schedule"`
	ConfirmationTimeout time.Duration `json:"confirmation_timeout"`
	BatchSize           int           `json:"batch_size"`
}

// DefaultTrackerConfig returns default configuration
func DefaultTrackerConfig() TrackerConfig {
	return TrackerConfig{
		Schedule:            "@every 10s",
		ConfirmationTimeout: 5 * time.Minute,
		BatchSize:           100,
	}
}

// ReconcileSummary counts what one pass did.
type ReconcileSummary struct {
	Checked   int `json:"checked"`
	Confirmed int `json:"confirmed"`
	Failed    int `json:"failed"`
	Pending   int `json:"pending"`
	Errors    int `json:"errors"`
}

// Tracker polls the chain for pending records and settles them.
type Tracker struct {
	repo    Repository
	chain   TransactionReader
	machine *workflows.StateMachine
	config  TrackerConfig
	logger  *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	cron    *cron.Cron
	mu      sync.Mutex
	running bool
}

func NewTracker(repo Repository, chain TransactionReader, logger *zap.Logger, m *metrics.Metrics, config TrackerConfig) *Tracker {
	defaults := DefaultTrackerConfig()
	if config.Schedule == "" {
		config.Schedule = defaults.Schedule
	}
	if config.ConfirmationTimeout <= 0 {
		config.ConfirmationTimeout = defaults.ConfirmationTimeout
	}
	if config.BatchSize <= 0 {
		config.BatchSize = defaults.BatchSize
	}
	return &Tracker{
		repo:    repo,
		chain:   chain,
		machine: NewStatusMachine(),
		config:  config,
		logger:  logger,
		metrics: m,
		now:     time.Now,
		cron:    cron.New(cron.WithSeconds()),
	}
}

// Start schedules Reconcile on the configured cron spec.
func (t *Tracker) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running {
		return fmt.Errorf("confirmation tracker already running")
	}

	_, err := t.cron.AddFunc(t.config.Schedule, func() {
		runCtx, cancel := context.WithTimeout(ctx, time.Minute)
		defer cancel()
		if _, err := t.Reconcile(runCtx); err != nil {
			t.logger.Error("Reconcile pass failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("invalid tracker schedule %q: %w", t.config.Schedule, err)
	}

	t.logger.Info("Starting confirmation tracker", zap.String("schedule", t.config.Schedule))
	t.cron.Start()
	t.running = true
	return nil
}

// Stop stops scheduling and waits for a running pass to finish.
func (t *Tracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running {
		return
	}

	t.logger.Info("Stopping confirmation tracker")
	ctx := t.cron.Stop()
	<-ctx.Done()
	t.running = false
}

// Reconcile checks one batch of pending records against the chain.
func (t *Tracker) Reconcile(ctx context.Context) (ReconcileSummary, error) {
	var summary ReconcileSummary
	t.metrics.ReconcileRun()

	pending, err := t.repo.ListPending(ctx, t.config.BatchSize)
	if err != nil {
		return summary, err
	}

	for i := range pending {
		rec := &pending[i]
		summary.Checked++

		status, update, err := t.check(ctx, rec)
		if err != nil {
			summary.Errors++
			t.logger.Warn("Failed to check transaction",
				zap.String("digest", rec.Digest),
				zap.Error(err),
			)
			continue
		}
		if status == StatusPending {
			summary.Pending++
			continue
		}

		if err := t.machine.Transition(string(rec.Status), string(status)); err != nil {
			summary.Errors++
			continue
		}
		if err := t.repo.UpdateStatus(ctx, rec.ID, rec.Status, update); err != nil {
			if errors.Is(err, ErrStaleStatus) {
				continue
			}
			summary.Errors++
			t.logger.Error("Failed to update transaction record", zap.String("digest", rec.Digest), zap.Error(err))
			continue
		}

		t.metrics.RecordTransition(string(status))
		switch status {
		case StatusConfirmed:
			summary.Confirmed++
		case StatusFailed:
			summary.Failed++
		}
		t.logger.Info("Transaction settled",
			zap.String("digest", rec.Digest),
			zap.String("status", string(status)),
		)
	}

	return summary, nil
}

func (t *Tracker) check(ctx context.Context, rec *Record) (Status, StatusUpdate, error) {
	now := t.now()

	resp, err := t.chain.GetTransactionBlock(ctx, rec.Digest)
	if err != nil && !sui.IsNotFound(err) {
		return StatusPending, StatusUpdate{}, err
	}

	if err != nil || resp.Effects == nil {
		if now.Sub(rec.CreatedAt) > t.config.ConfirmationTimeout {
			reason := fmt.Sprintf("not confirmed within %s", t.config.ConfirmationTimeout)
			return StatusFailed, StatusUpdate{Status: StatusFailed, FailureReason: &reason, At: now}, nil
		}
		return StatusPending, StatusUpdate{}, nil
	}

	update := StatusUpdate{At: now}
	if raw, err := json.Marshal(resp.Effects); err == nil {
		update.Effects = datatypes.JSON(raw)
	}
	if cp, ok := resp.CheckpointNumber(); ok {
		update.Checkpoint = &cp
	}

	if resp.Effects.Succeeded() {
		update.Status = StatusConfirmed
		return StatusConfirmed, update, nil
	}

	reason := resp.Effects.Status.Error
	if reason == "" {
		reason = "execution failed"
	}
	update.Status = StatusFailed
	update.FailureReason = &reason
	return StatusFailed, update, nil
}
