package entities

import (
	"time"

	"github.com/google/uuid"
)

type Transaction struct {
	ID           uuid.UUID  `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	UserID       uuid.UUID  `gorm:"index" json:"user_id"`
	Merchant     string     `json:"merchant"`
	Description  string     `json:"description,omitempty"`
	Date         time.Time  `gorm:"index" json:"date"`
	TotalAmount  float64    `json:"total_amount"`
	TaxAmount    float64    `json:"tax_amount"`
	Category     string     `json:"category,omitempty"`
	IsDeductible bool       `json:"is_deductible"`
	ReceiptJobID *uuid.UUID `gorm:"type:uuid" json:"receipt_job_id,omitempty"`

	Timestamp
}
