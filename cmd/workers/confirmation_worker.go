package main

import (
	"context"
	"time"

	"go.uber.org/zap"

	"carbon-scribe/project-portal/dapp-portal-backend/internal/transactions"
)

// Reconciler settles pending transaction records.
type Reconciler interface {
	Start(ctx context.Context) error
	Stop()
	Reconcile(ctx context.Context) (transactions.ReconcileSummary, error)
}

// ConfirmationWorker drives the confirmation tracker outside the API
// process, against the shared record database.
type ConfirmationWorker struct {
	tracker Reconciler
	logger  *zap.Logger
	config  ConfirmationWorkerConfig
	done    chan struct{}
}

// ConfirmationWorkerConfig configuration for the confirmation worker
type ConfirmationWorkerConfig struct {
	// StartupTimeout bounds the pass run before the schedule starts.
	StartupTimeout time.Duration
}

// DefaultConfirmationWorkerConfig returns default configuration
func DefaultConfirmationWorkerConfig() ConfirmationWorkerConfig {
	return ConfirmationWorkerConfig{
		StartupTimeout: time.Minute,
	}
}

func NewConfirmationWorker(tracker Reconciler, logger *zap.Logger, config ConfirmationWorkerConfig) *ConfirmationWorker {
	return &ConfirmationWorker{
		tracker: tracker,
		logger:  logger,
		config:  config,
		done:    make(chan struct{}),
	}
}

// RunOnce runs a single reconcile pass.
func (w *ConfirmationWorker) RunOnce(ctx context.Context) (transactions.ReconcileSummary, error) {
	ctx, cancel := context.WithTimeout(ctx, w.config.StartupTimeout)
	defer cancel()

	summary, err := w.tracker.Reconcile(ctx)
	if err != nil {
		w.logger.Error("Reconcile pass failed", zap.Error(err))
		return summary, err
	}
	w.logger.Info("Reconcile pass finished",
		zap.Int("checked", summary.Checked),
		zap.Int("confirmed", summary.Confirmed),
		zap.Int("failed", summary.Failed),
		zap.Int("pending", summary.Pending),
		zap.Int("errors", summary.Errors))
	return summary, nil
}

// Start settles what is already pending, then runs the tracker schedule
// until ctx is cancelled or Stop is called.
func (w *ConfirmationWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting confirmation worker")

	// Process any pending records immediately
	_, _ = w.RunOnce(ctx)

	if err := w.tracker.Start(ctx); err != nil {
		return err
	}
	defer w.tracker.Stop()

	select {
	case <-ctx.Done():
		w.logger.Info("Confirmation worker shutting down")
	case <-w.done:
		w.logger.Info("Confirmation worker stopped")
	}
	return nil
}

// Stop stops the confirmation worker
func (w *ConfirmationWorker) Stop() {
	close(w.done)
}
