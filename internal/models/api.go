package models

import "time"

type UploadResponse struct {
	ID           string `json:"id"`
	Filename     string `json:"filename"`
	OriginalName string `json:"original_name"`
}

type SearchRequest struct {
	JobOfferText string  `json:"job_offer_text"`
	Weights      Weights `json:"weights"`
	TopK         int     `json:"top_k"`
}

type SearchResponse struct {
	Results       []DocumentScore `json:"results"`
	Degraded      bool            `json:"degraded"`
	FailedSources []string        `json:"failed_sources,omitempty"`
}

type BulkUploadItem struct {
	ItemID     string `json:"item_id"`
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
	Status     string `json:"status"`
}

type BulkUploadResponse struct {
	BatchID    string           `json:"batch_id"`
	Status     string           `json:"status"`
	TotalFiles int              `json:"total_files"`
	Items      []BulkUploadItem `json:"items"`
}

type BatchItemStatus struct {
	ItemID       string     `json:"item_id"`
	DocumentID   *string    `json:"document_id,omitempty"`
	Filename     string     `json:"filename"`
	Status       string     `json:"status"`
	ErrorMessage string     `json:"error_message,omitempty"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

type BatchStatusResponse struct {
	BatchID        string            `json:"batch_id"`
	Status         string            `json:"status"`
	TotalFiles     int               `json:"total_files"`
	ProcessedFiles int               `json:"processed_files"`
	FailedFiles    int               `json:"failed_files"`
	StartedAt      *time.Time        `json:"started_at,omitempty"`
	CompletedAt    *time.Time        `json:"completed_at,omitempty"`
	Items          []BatchItemStatus `json:"items"`
}
