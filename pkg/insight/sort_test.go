package insight

import (
	"testing"

	"github.com/mattleonard16/taxhelper-sub000/entities"
)

func TestSortInsightsDisplayOrder(t *testing.T) {
	dismissed := &entities.Insight{Title: "dismissed", SeverityScore: 9, Dismissed: true}
	pinned := &entities.Insight{Title: "pinned", SeverityScore: 3, Pinned: true}
	plain := &entities.Insight{Title: "plain", SeverityScore: 7}

	insights := []*entities.Insight{dismissed, pinned, plain}
	SortInsights(insights)

	want := []string{"pinned", "plain", "dismissed"}
	for i, title := range want {
		if insights[i].Title != title {
			t.Errorf("position %d = %s, want %s", i, insights[i].Title, title)
		}
	}
}

func TestSortInsightsSeverityWithinBand(t *testing.T) {
	low := &entities.Insight{Title: "low", SeverityScore: 2}
	high := &entities.Insight{Title: "high", SeverityScore: 8}
	mid := &entities.Insight{Title: "mid", SeverityScore: 5}

	insights := []*entities.Insight{low, high, mid}
	SortInsights(insights)

	want := []string{"high", "mid", "low"}
	for i, title := range want {
		if insights[i].Title != title {
			t.Errorf("position %d = %s, want %s", i, insights[i].Title, title)
		}
	}
}

func TestSortInsightsStableOnTies(t *testing.T) {
	first := &entities.Insight{Title: "first", SeverityScore: 5}
	second := &entities.Insight{Title: "second", SeverityScore: 5}

	insights := []*entities.Insight{first, second}
	SortInsights(insights)

	if insights[0].Title != "first" || insights[1].Title != "second" {
		t.Error("equal severities must keep their original order")
	}
}

func TestSortInsightsDismissedPinnedGoesLast(t *testing.T) {
	// Dismissed wins over pinned: the user said go away.
	both := &entities.Insight{Title: "both", SeverityScore: 10, Pinned: true, Dismissed: true}
	plain := &entities.Insight{Title: "plain", SeverityScore: 1}

	insights := []*entities.Insight{both, plain}
	SortInsights(insights)

	if insights[1].Title != "both" {
		t.Error("a dismissed insight sorts last even when pinned")
	}
}
