package extraction

import "context"

// Adapter chains the deterministic parser with the model fallback: the
// parser always runs, the model only when the parser is not confident and a
// client is configured. The higher-confidence result wins.
type Adapter struct {
	parser            *TextParser
	gemini            *GeminiClient
	fallbackThreshold float64
}

func NewAdapter(parser *TextParser, gemini *GeminiClient, fallbackThreshold float64) *Adapter {
	if fallbackThreshold <= 0 {
		fallbackThreshold = 0.7
	}
	return &Adapter{
		parser:            parser,
		gemini:            gemini,
		fallbackThreshold: fallbackThreshold,
	}
}

func (a *Adapter) Extract(ctx context.Context, in Input) (Result, error) {
	parsed := a.parser.Parse(in.OCRText)

	// Client-supplied OCR confidence caps the parser score: garbage text
	// cannot produce a confident parse.
	if in.OCRConfidence != nil && parsed.Confidence > *in.OCRConfidence {
		parsed.Confidence = *in.OCRConfidence
	}

	if parsed.Confidence >= a.fallbackThreshold || !a.gemini.Configured() {
		return parsed, nil
	}

	modeled, err := a.gemini.Extract(ctx, in)
	if err != nil {
		// The parser result still stands if it found anything usable;
		// otherwise surface the model failure for classification.
		if parsed.Merchant != "" || parsed.Total != nil {
			return parsed, nil
		}
		return Result{}, err
	}
	if modeled.Confidence >= parsed.Confidence {
		return modeled, nil
	}
	return parsed, nil
}
