package entities

import (
	"time"

	"github.com/google/uuid"
)

const (
	InsightTypeQuietLeak = "QUIET_LEAK"
	InsightTypeTaxDrag   = "TAX_DRAG"
	InsightTypeSpike     = "SPIKE"
	InsightTypeDuplicate = "DUPLICATE"
	InsightTypeDeduction = "DEDUCTION"
)

// InsightRun is one cached generation pass over a (user, range) window.
type InsightRun struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	UserID      uuid.UUID `gorm:"index" json:"user_id"`
	RangeDays   int       `gorm:"index" json:"range_days"`
	GeneratedAt time.Time `json:"generated_at"`

	Insights []*Insight `gorm:"foreignKey:RunID" json:"insights"`

	Timestamp
}

type Insight struct {
	ID     uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	RunID  uuid.UUID `gorm:"type:uuid;index" json:"run_id"`
	UserID uuid.UUID `gorm:"index" json:"user_id"`

	Type          string `json:"type"`
	Title         string `json:"title"`
	Summary       string `gorm:"type:text" json:"summary"`
	SeverityScore int    `json:"severity_score"`

	// JSON array of transaction id strings backing the claim.
	SupportingTransactionIDs []byte `gorm:"type:jsonb" json:"supporting_transaction_ids"`

	// User-set, survives regeneration via key matching.
	Dismissed bool `json:"dismissed"`
	Pinned    bool `json:"pinned"`

	// Optional explanation object (reason, metrics, suggestion), JSON-encoded.
	Explanation []byte `gorm:"type:jsonb" json:"explanation,omitempty"`

	Timestamp
}
