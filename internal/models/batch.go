package models

import (
	"time"

	"github.com/google/uuid"
)

type UploadStatus string

const (
	StatusPending UploadStatus = "PENDING"
	StatusRunning UploadStatus = "RUNNING"
	StatusSuccess UploadStatus = "SUCCESS"
	StatusFailed  UploadStatus = "FAILED"
	// StatusPartial is batch-only: all items terminal, mixed outcomes.
	StatusPartial UploadStatus = "PARTIAL"
)

// IsTerminal reports whether an item status is final.
func (s UploadStatus) IsTerminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

type UploadBatch struct {
	ID             uuid.UUID    `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Status         UploadStatus `gorm:"type:text;not null;default:'PENDING';index" json:"status"`
	TotalFiles     int          `gorm:"not null;default:0" json:"total_files"`
	ProcessedFiles int          `gorm:"not null;default:0" json:"processed_files"`
	FailedFiles    int          `gorm:"not null;default:0" json:"failed_files"`
	StartedAt      *time.Time   `gorm:"type:timestamp" json:"started_at,omitempty"`
	CompletedAt    *time.Time   `gorm:"type:timestamp" json:"completed_at,omitempty"`
	CreatedAt      time.Time    `gorm:"type:timestamp;default:now()" json:"created_at"`
	UpdatedAt      time.Time    `gorm:"type:timestamp;default:now()" json:"updated_at"`

	Items []UploadItem `gorm:"foreignKey:BatchID" json:"items"`
}

func (b *UploadBatch) TableName() string {
	return "upload_batches"
}

type UploadItem struct {
	ID           uuid.UUID    `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	BatchID      uuid.UUID    `gorm:"type:uuid;not null;index" json:"batch_id"`
	DocumentID   *uuid.UUID   `gorm:"type:uuid" json:"document_id,omitempty"`
	Filename     string       `gorm:"type:text" json:"filename"`
	Status       UploadStatus `gorm:"type:text;not null;default:'PENDING';index" json:"status"`
	ErrorMessage string       `gorm:"type:text" json:"error_message,omitempty"`
	StartedAt    *time.Time   `gorm:"type:timestamp" json:"started_at,omitempty"`
	CompletedAt  *time.Time   `gorm:"type:timestamp" json:"completed_at,omitempty"`
	CreatedAt    time.Time    `gorm:"type:timestamp;default:now()" json:"created_at"`
}

func (i *UploadItem) TableName() string {
	return "upload_items"
}

// BatchProgress is the batch-level view derived from item states.
type BatchProgress struct {
	Status         UploadStatus
	ProcessedFiles int
	FailedFiles    int
}

// DeriveBatchProgress recomputes batch status and counters from the full set
// of item states. It is applied after every item completion instead of
// patching counters incrementally, so two items finishing at the same moment
// cannot leave the batch in a stale state.
func DeriveBatchProgress(items []UploadItem) BatchProgress {
	var succeeded, failed, started int
	for _, item := range items {
		switch item.Status {
		case StatusSuccess:
			succeeded++
		case StatusFailed:
			failed++
		case StatusRunning:
			started++
		}
	}

	progress := BatchProgress{
		ProcessedFiles: succeeded + failed,
		FailedFiles:    failed,
	}

	total := len(items)
	switch {
	case total > 0 && succeeded == total:
		progress.Status = StatusSuccess
	case total > 0 && failed == total:
		progress.Status = StatusFailed
	case succeeded+failed == total && total > 0:
		progress.Status = StatusPartial
	case started+succeeded+failed > 0:
		progress.Status = StatusRunning
	default:
		progress.Status = StatusPending
	}

	return progress
}
