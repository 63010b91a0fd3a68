package domain

import (
	"errors"
	"time"
)

var (
	MessageSuccessGetInsights   = "insights retrieved successfully"
	MessageSuccessPatchInsight  = "insight updated successfully"
	MessageSuccessInsightDigest = "insight digest sent"

	MessageFailedGetInsights   = "failed to retrieve insights"
	MessageFailedPatchInsight  = "failed to update insight"
	MessageFailedInsightDigest = "failed to send insight digest"

	ErrInsightNotFound = errors.New("insight not found")
)

type (
	// UserContext carries the tax profile the deduction generator needs.
	UserContext struct {
		IsFreelancer     bool    `json:"is_freelancer"`
		EstimatedTaxRate float64 `json:"estimated_tax_rate"`
	}

	InsightMetric struct {
		Name      string  `json:"name"`
		Actual    float64 `json:"actual"`
		Threshold float64 `json:"threshold"`
	}

	InsightExplanation struct {
		Reason     string          `json:"reason"`
		Metrics    []InsightMetric `json:"metrics,omitempty"`
		Suggestion string          `json:"suggestion,omitempty"`
	}

	InsightResponse struct {
		ID                       string              `json:"id"`
		Type                     string              `json:"type"`
		Title                    string              `json:"title"`
		Summary                  string              `json:"summary"`
		SeverityScore            int                 `json:"severity_score"`
		SupportingTransactionIDs []string            `json:"supporting_transaction_ids"`
		Dismissed                bool                `json:"dismissed"`
		Pinned                   bool                `json:"pinned"`
		Explanation              *InsightExplanation `json:"explanation,omitempty"`
	}

	GetInsightsResponse struct {
		RangeDays   int               `json:"range_days"`
		GeneratedAt time.Time         `json:"generated_at"`
		FromCache   bool              `json:"from_cache"`
		Insights    []InsightResponse `json:"insights"`
	}

	PatchInsightRequest struct {
		Pinned    *bool `json:"pinned"`
		Dismissed *bool `json:"dismissed"`
	}
)
