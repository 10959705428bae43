package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/debit-ledger/internal/domain/shared"
	"github.com/panjf2000/ants/v2"
)

// WorkerPoolProcessingService runs envelopes on an ants pool in front of another
// ProcessingService. Decoding and the idempotency lookups run concurrently; the apply
// itself stays serialized inside the wrapped service.
type WorkerPoolProcessingService struct {
	baseService ProcessingService
	pool        *ants.Pool
	logger      *slog.Logger
}

type WorkerPoolConfig struct {
	Size int
}

func NewWorkerPoolProcessingService(
	baseService ProcessingService,
	config WorkerPoolConfig,
	logger *slog.Logger,
) (*WorkerPoolProcessingService, error) {
	pool, err := ants.NewPool(config.Size)
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}

	return &WorkerPoolProcessingService{
		baseService: baseService,
		pool:        pool,
		logger:      logger,
	}, nil
}

// ProcessTransaction submits the envelope to the pool and waits for its result.
func (s *WorkerPoolProcessingService) ProcessTransaction(ctx context.Context, envelope *shared.TransactionEnvelope) error {
	logger := s.logger
	if envelope.CorrelationID != "" {
		logger = s.logger.With("correlation_id", envelope.CorrelationID)
	}

	logger.Debug("Submitting transaction to worker pool",
		"transaction_id", envelope.TransactionID.String(),
		"source_account", envelope.SourceAccount.String(),
	)

	resultChan := make(chan error, 1)
	envelopeCopy := *envelope

	err := s.pool.Submit(func() {
		resultChan <- s.baseService.ProcessTransaction(ctx, &envelopeCopy)
	})
	if err != nil {
		logger.Error("Failed to submit transaction to worker pool",
			"transaction_id", envelope.TransactionID.String(),
			"error", err,
		)
		return err
	}

	select {
	case err := <-resultChan:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown gracefully shuts down the worker pool.
func (s *WorkerPoolProcessingService) Shutdown() {
	s.logger.Info("Shutting down worker pool", "running_workers", s.pool.Running())
	s.pool.Release()
}

// Running returns the number of running workers in the pool.
func (s *WorkerPoolProcessingService) Running() int {
	return s.pool.Running()
}

// Capacity returns the capacity of the worker pool.
func (s *WorkerPoolProcessingService) Capacity() int {
	return s.pool.Cap()
}
