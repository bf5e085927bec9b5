package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/DavideCamp/match-cv/internal/models"
)

type DocumentRepository interface {
	Create(document *models.Document) error
	FindByID(id uuid.UUID) (*models.Document, error)
	FindByIDs(ids []uuid.UUID) ([]models.Document, error)
	UpdateIngestion(id uuid.UUID, rawText, metadata, candidateName, email string) error
	Delete(id uuid.UUID) error
	SearchFulltext(ctx context.Context, category models.Category, query string, topN int) ([]models.CandidateMatch, error)
}

type documentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &documentRepository{db: db}
}

// Create implements DocumentRepository.
func (d *documentRepository) Create(document *models.Document) error {
	if err := d.db.Create(&document).Error; err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}

	return nil
}

// FindByID implements DocumentRepository.
func (d *documentRepository) FindByID(id uuid.UUID) (*models.Document, error) {
	var doc models.Document
	if err := d.db.Where("id = ?", id).First(&doc).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("document %s: %w", id, ErrNotFound)
		}

		return nil, fmt.Errorf("failed to find document: %w", err)
	}

	return &doc, nil
}

// FindByIDs implements DocumentRepository.
func (d *documentRepository) FindByIDs(ids []uuid.UUID) ([]models.Document, error) {
	var docs []models.Document
	if err := d.db.Where("id IN ?", ids).Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("failed to find documents: %w", err)
	}

	return docs, nil
}

// UpdateIngestion implements DocumentRepository.
func (d *documentRepository) UpdateIngestion(id uuid.UUID, rawText, metadata, candidateName, email string) error {
	result := d.db.Model(&models.Document{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"raw_text":       rawText,
			"metadata":       metadata,
			"candidate_name": candidateName,
			"email":          email,
			"ingested_at":    time.Now(),
			"updated_at":     time.Now(),
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update document ingestion: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return fmt.Errorf("document %s: %w", id, ErrNotFound)
	}

	return nil
}

// Delete implements DocumentRepository.
func (d *documentRepository) Delete(id uuid.UUID) error {
	result := d.db.Where("id = ?", id).Delete(&models.Document{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete document: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return fmt.Errorf("document %s: %w", id, ErrNotFound)
	}

	return nil
}

// fulltextVector builds the weighted tsvector expression for one category.
// Skill queries weight raw text and metadata equally; experience favors the
// raw text timeline; education favors structured metadata.
func fulltextVector(category models.Category) string {
	textWeight, metaWeight := "A", "A"
	switch category {
	case models.CategoryExperience:
		metaWeight = "B"
	case models.CategoryEducation:
		textWeight = "B"
	}

	return fmt.Sprintf(
		"setweight(to_tsvector('simple', coalesce(raw_text, '')), '%s') || "+
			"setweight(to_tsvector('simple', coalesce(metadata::text, '')), '%s')",
		textWeight, metaWeight,
	)
}

// SearchFulltext implements DocumentRepository. Raw scores are Postgres
// ts_rank values; comparable within one result set only.
func (d *documentRepository) SearchFulltext(ctx context.Context, category models.Category, query string, topN int) ([]models.CandidateMatch, error) {
	if topN < 1 {
		topN = 1
	}

	vector := fulltextVector(category)
	sql := fmt.Sprintf(
		"SELECT id, ts_rank(%s, plainto_tsquery('simple', ?)) AS rank "+
			"FROM documents "+
			"WHERE %s @@ plainto_tsquery('simple', ?) "+
			"ORDER BY rank DESC, id ASC LIMIT ?",
		vector, vector,
	)

	var rows []struct {
		ID   uuid.UUID
		Rank float64
	}
	if err := d.db.WithContext(ctx).Raw(sql, query, query, topN).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to run fulltext search: %w", err)
	}

	matches := make([]models.CandidateMatch, 0, len(rows))
	for _, row := range rows {
		matches = append(matches, models.CandidateMatch{
			DocumentID: row.ID,
			Category:   category,
			Source:     models.SourceFulltext,
			RawScore:   row.Rank,
		})
	}

	return matches, nil
}
