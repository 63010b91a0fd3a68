package insight

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/mattleonard16/taxhelper-sub000/domain"
	"github.com/mattleonard16/taxhelper-sub000/entities"
)

// Threshold constants shared by the gating logic and the explanations, so
// the displayed numbers can never drift from the detection rules.
const (
	quietLeakMaxAmount   = 20.0
	quietLeakMinCount    = 3
	quietLeakMinTotal    = 50.0
	quietLeakSeverityPer = 25.0

	taxDragMinSpend     = 100.0
	taxDragRateGate     = 0.09
	taxDragRateBaseline = 0.08

	spikeMultiplierGate = 2.0

	duplicateWindow   = 24 * time.Hour
	duplicateSeverity = 5

	maxSeverity = 10
)

// Candidate is a generated insight before persistence assigns identity.
type Candidate struct {
	Type           string
	Title          string
	Summary        string
	Severity       int
	TransactionIDs []string
	Explanation    *domain.InsightExplanation
}

// DetectQuietLeaks flags merchants where many small purchases quietly add
// up: every transaction at most $20, at least 3 of them, $50+ combined.
func DetectQuietLeaks(transactions []*entities.Transaction) []Candidate {
	type group struct {
		ids   []string
		total float64
	}
	groups := map[string]*group{}
	var order []string

	for _, txn := range transactions {
		if txn.TotalAmount > quietLeakMaxAmount {
			continue
		}
		g, ok := groups[txn.Merchant]
		if !ok {
			g = &group{}
			groups[txn.Merchant] = g
			order = append(order, txn.Merchant)
		}
		g.ids = append(g.ids, txn.ID.String())
		g.total += txn.TotalAmount
	}

	var out []Candidate
	for _, merchant := range order {
		g := groups[merchant]
		if len(g.ids) < quietLeakMinCount || g.total < quietLeakMinTotal {
			continue
		}
		severity := capSeverity(int(math.Floor(g.total / quietLeakSeverityPer)))
		out = append(out, Candidate{
			Type:           entities.InsightTypeQuietLeak,
			Title:          fmt.Sprintf("Small purchases at %s add up", merchant),
			Summary:        fmt.Sprintf("%d purchases of $%.2f or less at %s total $%.2f.", len(g.ids), quietLeakMaxAmount, merchant, g.total),
			Severity:       severity,
			TransactionIDs: g.ids,
			Explanation: &domain.InsightExplanation{
				Reason: fmt.Sprintf("repeated sub-$%.0f purchases at one merchant", quietLeakMaxAmount),
				Metrics: []domain.InsightMetric{
					{Name: "occurrences", Actual: float64(len(g.ids)), Threshold: quietLeakMinCount},
					{Name: "cumulativeTotal", Actual: round2(g.total), Threshold: quietLeakMinTotal},
				},
				Suggestion: fmt.Sprintf("Consider batching or cutting back visits to %s.", merchant),
			},
		})
	}
	return out
}

// DetectTaxDrag flags merchants whose effective tax rate eats into spend:
// $100+ total with an effective rate above 9%.
func DetectTaxDrag(transactions []*entities.Transaction) []Candidate {
	type group struct {
		ids   []string
		spent float64
		tax   float64
	}
	groups := map[string]*group{}
	var order []string

	for _, txn := range transactions {
		g, ok := groups[txn.Merchant]
		if !ok {
			g = &group{}
			groups[txn.Merchant] = g
			order = append(order, txn.Merchant)
		}
		g.ids = append(g.ids, txn.ID.String())
		g.spent += txn.TotalAmount
		g.tax += txn.TaxAmount
	}

	var out []Candidate
	for _, merchant := range order {
		g := groups[merchant]
		if g.spent < taxDragMinSpend {
			continue
		}
		rate := g.tax / g.spent
		if rate <= taxDragRateGate {
			continue
		}
		// Round the baseline diff before flooring so float noise cannot
		// shave a severity point.
		diff := math.Round((rate-taxDragRateBaseline)*10000) / 10000
		severity := capSeverity(int(math.Floor(diff * 100)))
		out = append(out, Candidate{
			Type:           entities.InsightTypeTaxDrag,
			Title:          fmt.Sprintf("High tax drag at %s", merchant),
			Summary:        fmt.Sprintf("You paid $%.2f tax on $%.2f at %s (%.1f%% effective rate).", g.tax, g.spent, merchant, rate*100),
			Severity:       severity,
			TransactionIDs: g.ids,
			Explanation: &domain.InsightExplanation{
				Reason: "effective tax rate above the flag threshold",
				Metrics: []domain.InsightMetric{
					{Name: "effectiveRate", Actual: round4(rate), Threshold: taxDragRateGate},
					{Name: "totalSpent", Actual: round2(g.spent), Threshold: taxDragMinSpend},
				},
				Suggestion: "Check whether any of this spend is tax-exempt or deductible.",
			},
		})
	}
	return out
}

// DetectSpikes flags transactions more than twice the average of all the
// others. Needs at least two transactions to have an average to beat.
func DetectSpikes(transactions []*entities.Transaction) []Candidate {
	if len(transactions) < 2 {
		return nil
	}

	var sum float64
	for _, txn := range transactions {
		sum += txn.TotalAmount
	}

	var out []Candidate
	for _, txn := range transactions {
		othersAvg := (sum - txn.TotalAmount) / float64(len(transactions)-1)
		if othersAvg <= 0 || txn.TotalAmount <= spikeMultiplierGate*othersAvg {
			continue
		}
		multiplier := txn.TotalAmount / othersAvg
		severity := capSeverity(int(math.Floor((multiplier - 1) * 2)))
		out = append(out, Candidate{
			Type:           entities.InsightTypeSpike,
			Title:          fmt.Sprintf("Unusual spend at %s", txn.Merchant),
			Summary:        fmt.Sprintf("$%.2f at %s is %.1fx your typical transaction.", txn.TotalAmount, txn.Merchant, multiplier),
			Severity:       severity,
			TransactionIDs: []string{txn.ID.String()},
			Explanation: &domain.InsightExplanation{
				Reason: "single transaction far above the average of the rest",
				Metrics: []domain.InsightMetric{
					{Name: "multiplier", Actual: round2(multiplier), Threshold: spikeMultiplierGate},
				},
				Suggestion: "Verify this charge is expected.",
			},
		})
	}
	return out
}

// DetectDuplicates flags probable double charges: same merchant, exact same
// amount, within 24 hours. Only the first qualifying pair per group is
// reported.
func DetectDuplicates(transactions []*entities.Transaction) []Candidate {
	type key struct {
		merchant string
		amount   float64
	}
	groups := map[key][]*entities.Transaction{}
	var order []key

	for _, txn := range transactions {
		k := key{merchant: txn.Merchant, amount: txn.TotalAmount}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], txn)
	}

	var out []Candidate
	for _, k := range order {
		members := groups[k]
		if len(members) < 2 {
			continue
		}
		pair := firstPairWithin(members, duplicateWindow)
		if pair == nil {
			continue
		}
		gap := pair[1].Date.Sub(pair[0].Date)
		if gap < 0 {
			gap = -gap
		}
		out = append(out, Candidate{
			Type:     entities.InsightTypeDuplicate,
			Title:    fmt.Sprintf("Possible duplicate charge at %s", k.merchant),
			Summary:  fmt.Sprintf("Two charges of $%.2f at %s within %s.", k.amount, k.merchant, gap.Round(time.Minute)),
			Severity: duplicateSeverity,
			TransactionIDs: []string{
				pair[0].ID.String(),
				pair[1].ID.String(),
			},
			Explanation: &domain.InsightExplanation{
				Reason: "identical amount at the same merchant within 24 hours",
				Metrics: []domain.InsightMetric{
					{Name: "hoursApart", Actual: round2(gap.Hours()), Threshold: duplicateWindow.Hours()},
				},
				Suggestion: "If this was a double charge, dispute one of the two.",
			},
		})
	}
	return out
}

func firstPairWithin(members []*entities.Transaction, window time.Duration) *[2]*entities.Transaction {
	for i := 0; i < len(members); i++ {
		for j := i + 1; j < len(members); j++ {
			gap := members[j].Date.Sub(members[i].Date)
			if gap < 0 {
				gap = -gap
			}
			if gap <= window {
				return &[2]*entities.Transaction{members[i], members[j]}
			}
		}
	}
	return nil
}

// GenerateAll runs every generator over the window, in a fixed order.
func GenerateAll(transactions []*entities.Transaction, userCtx domain.UserContext) []Candidate {
	var out []Candidate
	out = append(out, DetectQuietLeaks(transactions)...)
	out = append(out, DetectTaxDrag(transactions)...)
	out = append(out, DetectSpikes(transactions)...)
	out = append(out, DetectDuplicates(transactions)...)
	out = append(out, DetectDeductions(transactions, userCtx)...)
	return out
}

func capSeverity(v int) int {
	if v > maxSeverity {
		return maxSeverity
	}
	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

// sortedIDs returns a copy sorted lexicographically, for stable match keys.
func sortedIDs(ids []string) []string {
	out := make([]string, len(ids))
	copy(out, ids)
	sort.Strings(out)
	return out
}
