package extraction

import (
	"testing"
	"time"
)

const sampleReceipt = `STARBUCKS #1234
123 Main St
Latte 5.50
Croissant 3.75
SUBTOTAL 9.25
TAX 0.83
TOTAL 10.08
01/15/2026`

func TestParseFullReceipt(t *testing.T) {
	res := NewTextParser().Parse(sampleReceipt)

	if res.Merchant != "Starbucks" {
		t.Errorf("merchant = %q, want Starbucks", res.Merchant)
	}
	if res.Category != "Meals" {
		t.Errorf("category = %q, want Meals", res.Category)
	}
	if res.Total == nil || *res.Total != 10.08 {
		t.Errorf("total = %v, want 10.08", res.Total)
	}
	if res.Subtotal == nil || *res.Subtotal != 9.25 {
		t.Errorf("subtotal = %v, want 9.25", res.Subtotal)
	}
	if res.Tax == nil || *res.Tax != 0.83 {
		t.Errorf("tax = %v, want 0.83", res.Tax)
	}
	want := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	if res.Date == nil || !res.Date.Equal(want) {
		t.Errorf("date = %v, want %v", res.Date, want)
	}
	if len(res.Items) != 2 || res.Items[0].Name != "Latte" || res.Items[0].Amount != 5.50 {
		t.Errorf("items = %+v", res.Items)
	}
	// merchant + total + date + tax + items = full marks.
	if res.Confidence < 0.99 {
		t.Errorf("confidence = %v, want ~1.0", res.Confidence)
	}
}

func TestParseKeepsLargestTotal(t *testing.T) {
	res := NewTextParser().Parse("SHELL\nTOTAL 12.00\nGRAND TOTAL 14.40")
	if res.Total == nil || *res.Total != 14.40 {
		t.Errorf("total = %v, want 14.40", res.Total)
	}
}

func TestParseIsoDate(t *testing.T) {
	res := NewTextParser().Parse("TARGET\nTOTAL 30.00\n2026-03-09")
	want := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	if res.Date == nil || !res.Date.Equal(want) {
		t.Errorf("date = %v, want %v", res.Date, want)
	}
}

func TestParseShortTextHalvesConfidence(t *testing.T) {
	long := NewTextParser().Parse("WALMART STORE RECEIPT PRINTOUT\nTOTAL 5.00")
	short := NewTextParser().Parse("WALMART")
	if short.Confidence >= long.Confidence {
		t.Errorf("short text confidence %v should be below %v", short.Confidence, long.Confidence)
	}
}

func TestParseEmptyText(t *testing.T) {
	res := NewTextParser().Parse("")
	if res.Confidence != 0 {
		t.Errorf("confidence = %v, want 0", res.Confidence)
	}
	if res.Merchant != "" || res.Total != nil {
		t.Errorf("empty text should extract nothing: %+v", res)
	}
}

func TestNormalizeMerchant(t *testing.T) {
	cases := []struct {
		raw          string
		wantName     string
		wantCategory string
	}{
		{"STARBUCKS #1234", "Starbucks", "Meals"},
		{"UBER EATS ORDER", "Uber Eats", "Meals"},
		{"UBER *TRIP", "Uber", "Transport"},
		{"WHOLE FOODS MKT", "Whole Foods", "Groceries"},
		{"JOE'S DINER", "Joe's Diner", ""},
		{"", "", ""},
	}
	for _, tc := range cases {
		name, category := NormalizeMerchant(tc.raw)
		if name != tc.wantName || category != tc.wantCategory {
			t.Errorf("NormalizeMerchant(%q) = (%q, %q), want (%q, %q)",
				tc.raw, name, category, tc.wantName, tc.wantCategory)
		}
	}
}
