package insight

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/mattleonard16/taxhelper-sub000/entities"
)

// matchKey identifies an insight across regenerations: its type plus the
// sorted transaction ids backing it. Database identity changes every run;
// this key does not.
func matchKey(insightType string, ids []string) string {
	return insightType + ":" + strings.Join(sortedIDs(ids), ",")
}

func entityMatchKey(in *entities.Insight) string {
	var ids []string
	if len(in.SupportingTransactionIDs) > 0 {
		_ = json.Unmarshal(in.SupportingTransactionIDs, &ids)
	}
	return matchKey(in.Type, ids)
}

// MergeInsightState carries pinned/dismissed from a prior run onto freshly
// generated insights whose match key survives, so regenerating never loses
// user intent.
func MergeInsightState(prior []*entities.Insight, fresh []*entities.Insight) {
	if len(prior) == 0 {
		return
	}
	state := make(map[string]*entities.Insight, len(prior))
	for _, p := range prior {
		state[entityMatchKey(p)] = p
	}
	for _, f := range fresh {
		if p, ok := state[entityMatchKey(f)]; ok {
			f.Pinned = p.Pinned
			f.Dismissed = p.Dismissed
		}
	}
}

// IsFresh decides whether a cached run can be served: within TTL and no
// transaction mutated since generation.
func IsFresh(generatedAt time.Time, latestTransactionUpdate *time.Time, now time.Time, ttl time.Duration) bool {
	if now.Sub(generatedAt) >= ttl {
		return false
	}
	if latestTransactionUpdate != nil && !latestTransactionUpdate.Before(generatedAt) {
		return false
	}
	return true
}
