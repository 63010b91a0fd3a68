package insight

import (
	"sort"

	"github.com/mattleonard16/taxhelper-sub000/entities"
)

// SortInsights orders for display: dismissed last, pinned first among the
// rest, severity descending within each band. Stable, so ties keep their
// original order.
func SortInsights(insights []*entities.Insight) {
	sort.SliceStable(insights, func(i, j int) bool {
		ri, rj := displayBand(insights[i]), displayBand(insights[j])
		if ri != rj {
			return ri < rj
		}
		return insights[i].SeverityScore > insights[j].SeverityScore
	})
}

func displayBand(in *entities.Insight) int {
	switch {
	case in.Dismissed:
		return 2
	case in.Pinned:
		return 0
	default:
		return 1
	}
}
