package entities

import (
	"time"

	"github.com/google/uuid"
)

type JobStatus string

// Stable values, stored as-is in the receipt_jobs.status column.
const (
	JobStatusQueued      JobStatus = "QUEUED"
	JobStatusProcessing  JobStatus = "PROCESSING"
	JobStatusNeedsReview JobStatus = "NEEDS_REVIEW"
	JobStatusCompleted   JobStatus = "COMPLETED"
	JobStatusConfirmed   JobStatus = "CONFIRMED"
	JobStatusFailed      JobStatus = "FAILED"
)

type ReceiptJob struct {
	ID     uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	UserID uuid.UUID `gorm:"index" json:"user_id"`
	Status JobStatus `gorm:"index;default:'QUEUED'" json:"status"`

	OriginalName string `json:"original_name"`
	MimeType     string `json:"mime_type"`
	FileSize     int64  `json:"file_size"`
	StoragePath  string `json:"storage_path"`

	OCRText       *string  `gorm:"type:text" json:"ocr_text,omitempty"`
	OCRConfidence *float64 `json:"ocr_confidence,omitempty"`

	// Extracted fields, populated by the worker and editable while the job
	// is in NEEDS_REVIEW or COMPLETED.
	Merchant             *string    `json:"merchant,omitempty"`
	Date                 *time.Time `json:"date,omitempty"`
	TotalAmount          *float64   `json:"total_amount,omitempty"`
	TaxAmount            *float64   `json:"tax_amount,omitempty"`
	Items                []byte     `gorm:"type:jsonb" json:"items,omitempty"`
	Currency             *string    `json:"currency,omitempty"`
	Category             *string    `json:"category,omitempty"`
	CategoryCode         *string    `json:"category_code,omitempty"`
	IsDeductible         *bool      `json:"is_deductible,omitempty"`
	ExtractionConfidence *float64   `json:"extraction_confidence,omitempty"`

	// Set exactly once, inside the confirm transaction.
	TransactionID *uuid.UUID `gorm:"type:uuid" json:"transaction_id,omitempty"`

	Attempts    int     `gorm:"default:0" json:"attempts"`
	MaxAttempts int     `gorm:"default:3" json:"max_attempts"`
	LastError   *string `gorm:"type:text" json:"last_error,omitempty"`

	ProcessingStartedAt *time.Time `json:"processing_started_at,omitempty"`
	ProcessedAt         *time.Time `json:"processed_at,omitempty"`
	DiscardedAt         *time.Time `gorm:"index" json:"discarded_at,omitempty"`

	Timestamp
}

// FieldCorrection records one user edit to an extracted field, kept for
// audit and future extraction tuning.
type FieldCorrection struct {
	ID             uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	JobID          uuid.UUID `gorm:"type:uuid;index" json:"job_id"`
	UserID         uuid.UUID `gorm:"type:uuid" json:"user_id"`
	FieldName      string    `json:"field_name"`
	OriginalValue  string    `gorm:"type:text" json:"original_value"`
	CorrectedValue string    `gorm:"type:text" json:"corrected_value"`

	Timestamp
}
