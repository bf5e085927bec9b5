package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/DavideCamp/match-cv/internal/models"
	"github.com/DavideCamp/match-cv/internal/repositories"
)

// Dispatcher runs item processing off the request path on a bounded worker
// pool, so a large bulk upload cannot overwhelm the embedding or vector
// store backends.
type Dispatcher interface {
	Dispatch(batchID uuid.UUID, itemIDs []uuid.UUID)
	Release()
}

type dispatcher struct {
	pool      *ants.Pool
	ingestor  Ingestor
	batchRepo repositories.BatchRepository
	logger    *zap.Logger
}

func NewDispatcher(ingestor Ingestor, batchRepo repositories.BatchRepository, concurrency int, logger *zap.Logger) (Dispatcher, error) {
	if concurrency < 1 {
		concurrency = 1
	}

	pool, err := ants.NewPool(concurrency)
	if err != nil {
		return nil, err
	}

	return &dispatcher{
		pool:      pool,
		ingestor:  ingestor,
		batchRepo: batchRepo,
		logger:    logger,
	}, nil
}

// Dispatch implements Dispatcher. Fire and forget: the caller has already
// received its 202, item outcomes are observed through the batch status.
// Submit blocks while the pool is full, so the loop runs on its own
// goroutine and Dispatch returns without waiting for pool capacity.
func (d *dispatcher) Dispatch(batchID uuid.UUID, itemIDs []uuid.UUID) {
	go func() {
		for _, itemID := range itemIDs {
			itemID := itemID
			err := d.pool.Submit(func() {
				// Item processing outlives the request context on purpose.
				_ = d.ingestor.ProcessItem(context.Background(), itemID)
			})
			if err != nil {
				d.failItem(batchID, itemID, err)
			}
		}
	}()

	d.logger.Info("batch dispatched",
		zap.String("batch_id", batchID.String()),
		zap.Int("items", len(itemIDs)),
	)
}

// failItem records a submit failure on the item so the batch still reaches a
// terminal state. An item that never made it onto the pool would otherwise
// stay PENDING forever.
func (d *dispatcher) failItem(batchID, itemID uuid.UUID, submitErr error) {
	d.logger.Error("failed to dispatch upload item",
		zap.String("batch_id", batchID.String()),
		zap.String("item_id", itemID.String()),
		zap.Error(submitErr),
	)

	message := fmt.Sprintf("dispatch failed: %v", submitErr)
	if err := d.batchRepo.MarkItemTerminal(itemID, models.StatusFailed, message); err != nil {
		d.logger.Error("failed to record dispatch failure",
			zap.String("item_id", itemID.String()),
			zap.Error(err),
		)
		return
	}

	if _, err := d.batchRepo.RecomputeBatchStatus(batchID); err != nil {
		d.logger.Error("failed to recompute batch status",
			zap.String("batch_id", batchID.String()),
			zap.Error(err),
		)
	}
}

// Release implements Dispatcher. In-flight items finish; queued ones are
// dropped.
func (d *dispatcher) Release() {
	d.pool.Release()
}
