package insight

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mattleonard16/taxhelper-sub000/entities"
)

func insightWith(insightType string, ids []string) *entities.Insight {
	encoded, _ := json.Marshal(ids)
	return &entities.Insight{
		ID:                       uuid.New(),
		Type:                     insightType,
		SupportingTransactionIDs: encoded,
	}
}

func TestIsFresh(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	ttl := time.Hour

	recent := now.Add(-10 * time.Minute)
	old := now.Add(-2 * time.Hour)
	exactlyTTL := now.Add(-ttl)
	updateBefore := recent.Add(-time.Minute)
	updateAfter := recent.Add(time.Minute)

	cases := []struct {
		name        string
		generatedAt time.Time
		latest      *time.Time
		want        bool
	}{
		{"recent, no transactions", recent, nil, true},
		{"recent, last update before generation", recent, &updateBefore, true},
		{"recent, transaction updated after generation", recent, &updateAfter, false},
		{"past TTL", old, nil, false},
		{"exactly at TTL", exactlyTTL, nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsFresh(tc.generatedAt, tc.latest, now, ttl); got != tc.want {
				t.Errorf("IsFresh = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestMergeInsightStatePreservesByKey(t *testing.T) {
	idA, idB := uuid.NewString(), uuid.NewString()

	pinned := insightWith(entities.InsightTypeDuplicate, []string{idA, idB})
	pinned.Pinned = true
	dismissed := insightWith(entities.InsightTypeQuietLeak, []string{idA})
	dismissed.Dismissed = true
	prior := []*entities.Insight{pinned, dismissed}

	// Same duplicate, ids in the opposite order: identity must survive.
	samePair := insightWith(entities.InsightTypeDuplicate, []string{idB, idA})
	sameLeak := insightWith(entities.InsightTypeQuietLeak, []string{idA})
	newcomer := insightWith(entities.InsightTypeSpike, []string{idB})
	fresh := []*entities.Insight{samePair, sameLeak, newcomer}

	MergeInsightState(prior, fresh)

	if !samePair.Pinned {
		t.Error("pinned state lost across regeneration")
	}
	if !sameLeak.Dismissed {
		t.Error("dismissed state lost across regeneration")
	}
	if newcomer.Pinned || newcomer.Dismissed {
		t.Error("fresh insight must not inherit unrelated state")
	}
}

func TestMergeInsightStateDifferentTypeNoMatch(t *testing.T) {
	id := uuid.NewString()
	prior := insightWith(entities.InsightTypeQuietLeak, []string{id})
	prior.Pinned = true

	fresh := insightWith(entities.InsightTypeSpike, []string{id})
	MergeInsightState([]*entities.Insight{prior}, []*entities.Insight{fresh})

	if fresh.Pinned {
		t.Error("same ids under a different type must not match")
	}
}
