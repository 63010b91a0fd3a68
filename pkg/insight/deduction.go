package insight

import (
	"fmt"
	"math"
	"strings"

	"github.com/mattleonard16/taxhelper-sub000/domain"
	"github.com/mattleonard16/taxhelper-sub000/entities"
)

const defaultTaxRate = 0.25

// deductionRule maps merchant/description keywords to a deduction category
// and the portion of the spend that typically qualifies.
type deductionRule struct {
	Category       string
	Portion        float64
	FreelancerOnly bool
}

var deductionKeywords = []struct {
	Keyword string
	Rule    deductionRule
}{
	{"office depot", deductionRule{"Office Supplies", 1.0, true}},
	{"staples", deductionRule{"Office Supplies", 1.0, true}},
	{"adobe", deductionRule{"Software & Subscriptions", 1.0, true}},
	{"github", deductionRule{"Software & Subscriptions", 1.0, true}},
	{"zoom", deductionRule{"Software & Subscriptions", 1.0, true}},
	{"dropbox", deductionRule{"Software & Subscriptions", 1.0, true}},
	{"aws", deductionRule{"Software & Subscriptions", 1.0, true}},
	{"coursera", deductionRule{"Professional Development", 1.0, true}},
	{"udemy", deductionRule{"Professional Development", 1.0, true}},
	{"conference", deductionRule{"Professional Development", 1.0, true}},
	{"airline", deductionRule{"Business Travel", 1.0, true}},
	{"hotel", deductionRule{"Business Travel", 1.0, true}},
	{"airbnb", deductionRule{"Business Travel", 1.0, true}},
	{"uber", deductionRule{"Business Travel", 1.0, true}},
	{"restaurant", deductionRule{"Business Meals", 0.5, true}},
	{"coffee", deductionRule{"Business Meals", 0.5, true}},
	{"internet", deductionRule{"Phone & Internet", 0.5, true}},
	{"verizon", deductionRule{"Phone & Internet", 0.5, true}},
	{"at&t", deductionRule{"Phone & Internet", 0.5, true}},
	{"comcast", deductionRule{"Phone & Internet", 0.5, true}},
	{"goodwill", deductionRule{"Charitable Donations", 1.0, false}},
	{"red cross", deductionRule{"Charitable Donations", 1.0, false}},
	{"donation", deductionRule{"Charitable Donations", 1.0, false}},
	{"pharmacy", deductionRule{"Medical", 1.0, false}},
	{"cvs", deductionRule{"Medical", 1.0, false}},
	{"walgreens", deductionRule{"Medical", 1.0, false}},
}

// ClassifyDeduction maps a transaction to a deduction category given the
// user's tax context. Freelancer-only categories need IsFreelancer.
func ClassifyDeduction(merchant, description string, userCtx domain.UserContext) (deductionRule, bool) {
	haystack := strings.ToLower(merchant + " " + description)
	for _, entry := range deductionKeywords {
		if !strings.Contains(haystack, entry.Keyword) {
			continue
		}
		if entry.Rule.FreelancerOnly && !userCtx.IsFreelancer {
			continue
		}
		return entry.Rule, true
	}
	return deductionRule{}, false
}

// DetectDeductions aggregates classifiable spend per deduction category and
// estimates the tax savings at the user's rate.
func DetectDeductions(transactions []*entities.Transaction, userCtx domain.UserContext) []Candidate {
	taxRate := userCtx.EstimatedTaxRate
	if taxRate <= 0 || taxRate >= 1 {
		taxRate = defaultTaxRate
	}

	type group struct {
		ids       []string
		potential float64
	}
	groups := map[string]*group{}
	var order []string

	for _, txn := range transactions {
		if txn.IsDeductible {
			// Already marked by the user; no need to suggest it.
			continue
		}
		rule, ok := ClassifyDeduction(txn.Merchant, txn.Description, userCtx)
		if !ok {
			continue
		}
		g, found := groups[rule.Category]
		if !found {
			g = &group{}
			groups[rule.Category] = g
			order = append(order, rule.Category)
		}
		g.ids = append(g.ids, txn.ID.String())
		g.potential += txn.TotalAmount * rule.Portion
	}

	var out []Candidate
	for _, category := range order {
		g := groups[category]
		savings := g.potential * taxRate
		severity := int(math.Ceil(savings / 100))
		if severity < 1 {
			severity = 1
		}
		if severity > maxSeverity {
			severity = maxSeverity
		}
		out = append(out, Candidate{
			Type:           entities.InsightTypeDeduction,
			Title:          fmt.Sprintf("Potential %s deduction", category),
			Summary:        fmt.Sprintf("$%.2f of %s spend may be deductible, worth about $%.2f at your rate.", g.potential, category, savings),
			Severity:       severity,
			TransactionIDs: g.ids,
			Explanation: &domain.InsightExplanation{
				Reason: fmt.Sprintf("unmarked transactions matching %s keywords", category),
				Metrics: []domain.InsightMetric{
					{Name: "potentialDeduction", Actual: round2(g.potential), Threshold: 0},
					{Name: "estimatedSavings", Actual: round2(savings), Threshold: 0},
				},
				Suggestion: fmt.Sprintf("Review these transactions and mark the qualifying ones as %s.", category),
			},
		})
	}
	return out
}
