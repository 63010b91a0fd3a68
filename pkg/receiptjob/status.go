package receiptjob

import (
	"github.com/mattleonard16/taxhelper-sub000/entities"
)

// DefaultConfidenceThreshold routes extraction results to auto-accept vs
// human review.
const DefaultConfidenceThreshold = 0.7

// transitions is the closed set of legal status moves. Discard is handled
// separately since it is legal from every non-CONFIRMED state.
var transitions = map[entities.JobStatus][]entities.JobStatus{
	entities.JobStatusQueued:      {entities.JobStatusProcessing},
	entities.JobStatusProcessing:  {entities.JobStatusNeedsReview, entities.JobStatusCompleted, entities.JobStatusFailed, entities.JobStatusQueued},
	entities.JobStatusNeedsReview: {entities.JobStatusConfirmed},
	entities.JobStatusCompleted:   {entities.JobStatusConfirmed},
	entities.JobStatusFailed:      {entities.JobStatusQueued},
	entities.JobStatusConfirmed:   {},
}

// CanTransition reports whether moving from one status to another is legal.
func CanTransition(from, to entities.JobStatus) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// DetermineStatusFromConfidence picks the post-extraction status: a missing
// or sub-threshold confidence needs a human.
func DetermineStatusFromConfidence(confidence *float64, threshold float64) entities.JobStatus {
	if threshold <= 0 {
		threshold = DefaultConfidenceThreshold
	}
	if confidence == nil || *confidence < threshold {
		return entities.JobStatusNeedsReview
	}
	return entities.JobStatusCompleted
}

// editable reports whether extracted fields may still be changed.
func editable(status entities.JobStatus) bool {
	return status == entities.JobStatusNeedsReview || status == entities.JobStatusCompleted
}
