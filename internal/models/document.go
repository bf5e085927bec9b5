package models

import (
	"time"

	"github.com/google/uuid"
)

type Document struct {
	ID               uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Filename         string     `gorm:"type:text" json:"filename"`
	OriginalFileName string     `gorm:"type:text" json:"original_filename"`
	FilePath         string     `gorm:"type:text" json:"file_path"`
	CandidateName    string     `gorm:"type:text" json:"candidate_name"`
	Email            string     `gorm:"type:text;index" json:"email"`
	RawText          string     `gorm:"type:text" json:"-"`
	Metadata         string     `gorm:"type:jsonb;default:'{}'" json:"metadata"`
	IngestedAt       *time.Time `gorm:"type:timestamp" json:"ingested_at,omitempty"`
	CreatedAt        time.Time  `gorm:"type:timestamp;default:now()" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"type:timestamp;default:now()" json:"updated_at"`
}

func (d *Document) TableName() string {
	return "documents"
}
