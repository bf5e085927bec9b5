package repositories

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/DavideCamp/match-cv/internal/models"
)

var ErrNotFound = errors.New("record not found")

type BatchRepository interface {
	CreateWithItems(batch *models.UploadBatch) error
	FindByID(id uuid.UUID) (*models.UploadBatch, error)
	FindItemByID(itemID uuid.UUID) (*models.UploadItem, error)
	MarkItemRunning(itemID uuid.UUID) error
	MarkItemTerminal(itemID uuid.UUID, status models.UploadStatus, errorMessage string) error
	RecomputeBatchStatus(batchID uuid.UUID) (*models.UploadBatch, error)
}

type batchRepository struct {
	db *gorm.DB
}

func NewBatchRepository(db *gorm.DB) BatchRepository {
	return &batchRepository{db: db}
}

// CreateWithItems implements BatchRepository. The batch and every item are
// inserted in one transaction so the batch record is complete before any
// item processing can start.
func (r *batchRepository) CreateWithItems(batch *models.UploadBatch) error {
	if err := r.db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(batch).Error
	}); err != nil {
		return fmt.Errorf("failed to create upload batch: %w", err)
	}

	return nil
}

// FindByID implements BatchRepository. Items are returned in creation order.
func (r *batchRepository) FindByID(id uuid.UUID) (*models.UploadBatch, error) {
	var batch models.UploadBatch
	err := r.db.
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Where("id = ?", id).
		First(&batch).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("batch %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find batch: %w", err)
	}

	return &batch, nil
}

// FindItemByID implements BatchRepository.
func (r *batchRepository) FindItemByID(itemID uuid.UUID) (*models.UploadItem, error) {
	var item models.UploadItem
	if err := r.db.Where("id = ?", itemID).First(&item).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("upload item %s: %w", itemID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find upload item: %w", err)
	}

	return &item, nil
}

// MarkItemRunning implements BatchRepository.
func (r *batchRepository) MarkItemRunning(itemID uuid.UUID) error {
	result := r.db.Model(&models.UploadItem{}).
		Where("id = ?", itemID).
		Updates(map[string]interface{}{
			"status":     models.StatusRunning,
			"started_at": time.Now(),
		})

	if result.Error != nil {
		return fmt.Errorf("failed to mark item running: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return fmt.Errorf("upload item %s: %w", itemID, ErrNotFound)
	}

	return nil
}

// MarkItemTerminal implements BatchRepository.
func (r *batchRepository) MarkItemTerminal(itemID uuid.UUID, status models.UploadStatus, errorMessage string) error {
	if !status.IsTerminal() {
		return fmt.Errorf("status %s is not terminal", status)
	}

	result := r.db.Model(&models.UploadItem{}).
		Where("id = ?", itemID).
		Updates(map[string]interface{}{
			"status":        status,
			"error_message": errorMessage,
			"completed_at":  time.Now(),
		})

	if result.Error != nil {
		return fmt.Errorf("failed to mark item terminal: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return fmt.Errorf("upload item %s: %w", itemID, ErrNotFound)
	}

	return nil
}

// RecomputeBatchStatus implements BatchRepository. The batch row is locked
// for the duration of the transaction so two items completing at the same
// moment serialize their recomputes instead of losing one.
func (r *batchRepository) RecomputeBatchStatus(batchID uuid.UUID) (*models.UploadBatch, error) {
	var batch models.UploadBatch

	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", batchID).
			First(&batch).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return fmt.Errorf("batch %s: %w", batchID, ErrNotFound)
			}
			return fmt.Errorf("failed to lock batch: %w", err)
		}

		var items []models.UploadItem
		if err := tx.Where("batch_id = ?", batchID).Find(&items).Error; err != nil {
			return fmt.Errorf("failed to load batch items: %w", err)
		}

		progress := models.DeriveBatchProgress(items)

		updates := map[string]interface{}{
			"status":          progress.Status,
			"processed_files": progress.ProcessedFiles,
			"failed_files":    progress.FailedFiles,
			"updated_at":      time.Now(),
		}
		if batch.StartedAt == nil && progress.Status != models.StatusPending {
			updates["started_at"] = time.Now()
		}
		if batch.CompletedAt == nil &&
			(progress.Status == models.StatusSuccess ||
				progress.Status == models.StatusFailed ||
				progress.Status == models.StatusPartial) {
			updates["completed_at"] = time.Now()
		}

		if err := tx.Model(&batch).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update batch status: %w", err)
		}

		batch.Status = progress.Status
		batch.ProcessedFiles = progress.ProcessedFiles
		batch.FailedFiles = progress.FailedFiles
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &batch, nil
}
