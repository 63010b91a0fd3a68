package extraction

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// TextParser is the deterministic first stage: OCR text in, best-effort
// fields out. It never errors; low confidence routes the job to review or
// to the model fallback instead.
type TextParser struct{}

func NewTextParser() *TextParser {
	return &TextParser{}
}

var (
	amountPattern = regexp.MustCompile(`(?i)\$?\s*(\d{1,6}(?:[.,]\d{2}))\b`)
	totalLine     = regexp.MustCompile(`(?i)\b(grand\s+total|total|amount\s+due|balance\s+due)\b`)
	subtotalLine  = regexp.MustCompile(`(?i)\bsub\s*-?\s*total\b`)
	taxLine       = regexp.MustCompile(`(?i)\b(sales\s+tax|tax|gst|hst|vat)\b`)
	datePattern   = regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2}|\d{1,2}/\d{1,2}/\d{2,4}|\d{1,2}-\d{1,2}-\d{2,4})\b`)
)

var dateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"01/02/06",
	"1/2/2006",
	"01-02-2006",
	"01-02-06",
}

func (p *TextParser) Parse(text string) Result {
	res := Result{Currency: "USD"}
	lines := splitLines(text)
	if len(lines) == 0 {
		return res
	}

	name, category := NormalizeMerchant(lines[0])
	res.Merchant = name
	res.Category = category

	for _, line := range lines {
		switch {
		case subtotalLine.MatchString(line):
			if v, ok := lastAmount(line); ok && res.Subtotal == nil {
				res.Subtotal = &v
			}
		case taxLine.MatchString(line):
			if v, ok := lastAmount(line); ok && res.Tax == nil {
				res.Tax = &v
			}
		case totalLine.MatchString(line):
			// Keep the largest candidate: "total" lines may repeat.
			if v, ok := lastAmount(line); ok {
				if res.Total == nil || v > *res.Total {
					res.Total = &v
				}
			}
		}
		if res.Date == nil {
			if m := datePattern.FindString(line); m != "" {
				if d, ok := parseDate(m); ok {
					res.Date = &d
				}
			}
		}
	}

	res.Items = parseItems(lines)
	res.Confidence = p.score(res, text)
	return res
}

// score weights the fields a confirmable receipt needs most.
func (p *TextParser) score(res Result, text string) float64 {
	score := 0.0
	if res.Merchant != "" {
		score += 0.3
	}
	if res.Total != nil {
		score += 0.35
	}
	if res.Date != nil {
		score += 0.2
	}
	if res.Tax != nil {
		score += 0.1
	}
	if len(res.Items) > 0 {
		score += 0.05
	}
	if len(strings.TrimSpace(text)) < 20 {
		score *= 0.5
	}
	return score
}

func splitLines(text string) []string {
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		if t := strings.TrimSpace(l); t != "" {
			lines = append(lines, t)
		}
	}
	return lines
}

func lastAmount(line string) (float64, bool) {
	matches := amountPattern.FindAllStringSubmatch(line, -1)
	if len(matches) == 0 {
		return 0, false
	}
	raw := strings.ReplaceAll(matches[len(matches)-1][1], ",", ".")
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func parseDate(raw string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, raw); err == nil {
			return d, true
		}
	}
	return time.Time{}, false
}

// parseItems treats interior lines ending in an amount, and not matching a
// summary keyword, as line items.
func parseItems(lines []string) []Item {
	var items []Item
	for i, line := range lines {
		if i == 0 || totalLine.MatchString(line) || subtotalLine.MatchString(line) || taxLine.MatchString(line) {
			continue
		}
		amount, ok := lastAmount(line)
		if !ok {
			continue
		}
		name := strings.TrimSpace(amountPattern.ReplaceAllString(line, ""))
		name = strings.Trim(name, " .-$")
		if name == "" {
			continue
		}
		items = append(items, Item{Name: name, Amount: amount, Quantity: 1})
	}
	return items
}
