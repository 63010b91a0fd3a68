package extraction

import (
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.English)

// knownMerchants maps lowercase keywords to a canonical display name and a
// default category. Extendable without touching the parser.
var knownMerchants = map[string]struct {
	Name     string
	Category string
}{
	"starbucks":    {"Starbucks", "Meals"},
	"mcdonald":     {"McDonald's", "Meals"},
	"uber eats":    {"Uber Eats", "Meals"},
	"doordash":     {"DoorDash", "Meals"},
	"uber":         {"Uber", "Transport"},
	"lyft":         {"Lyft", "Transport"},
	"shell":        {"Shell", "Transport"},
	"chevron":      {"Chevron", "Transport"},
	"costco":       {"Costco", "Groceries"},
	"walmart":      {"Walmart", "Groceries"},
	"target":       {"Target", "Groceries"},
	"whole foods":  {"Whole Foods", "Groceries"},
	"trader joe":   {"Trader Joe's", "Groceries"},
	"amazon":       {"Amazon", "Shopping"},
	"best buy":     {"Best Buy", "Electronics"},
	"apple":        {"Apple", "Electronics"},
	"office depot": {"Office Depot", "Office Supplies"},
	"staples":      {"Staples", "Office Supplies"},
	"home depot":   {"Home Depot", "Home"},
	"cvs":          {"CVS", "Health"},
	"walgreens":    {"Walgreens", "Health"},
}

var merchantJunk = regexp.MustCompile(`[#*]|\s{2,}`)

// Longest keyword first so "uber eats" wins over "uber".
var merchantKeywords = func() []string {
	keys := make([]string, 0, len(knownMerchants))
	for k := range knownMerchants {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return len(keys[i]) > len(keys[j]) })
	return keys
}()

// NormalizeMerchant cleans an OCR'd merchant line into a display name and,
// when the merchant is known, a default category.
func NormalizeMerchant(raw string) (name, category string) {
	cleaned := strings.TrimSpace(merchantJunk.ReplaceAllString(raw, " "))
	lower := strings.ToLower(cleaned)
	for _, keyword := range merchantKeywords {
		if strings.Contains(lower, keyword) {
			info := knownMerchants[keyword]
			return info.Name, info.Category
		}
	}
	if cleaned == "" {
		return "", ""
	}
	return titleCaser.String(strings.ToLower(cleaned)), ""
}
