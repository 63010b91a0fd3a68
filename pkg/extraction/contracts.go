package extraction

import (
	"context"
	"time"
)

// Input is everything an upload can hand to the extractor. OCRText may come
// from a client-side OCR pass; Image is the raw file when no text is given.
type Input struct {
	OCRText       string
	OCRConfidence *float64
	Image         []byte
	MimeType      string
}

type Item struct {
	Name     string  `json:"name"`
	Amount   float64 `json:"amount"`
	Quantity int     `json:"quantity,omitempty"`
}

// Result is the best-effort structured receipt. Confidence is in [0,1].
type Result struct {
	Merchant     string
	Date         *time.Time
	Subtotal     *float64
	Tax          *float64
	Total        *float64
	Items        []Item
	Currency     string
	Category     string
	CategoryCode string
	IsDeductible *bool
	Confidence   float64
}

// Extractor is the boundary the receipt job worker depends on.
type Extractor interface {
	Extract(ctx context.Context, in Input) (Result, error)
}
