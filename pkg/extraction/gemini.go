package extraction

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"time"
)

const extractionPrompt = "You are a receipt parser. Analyze this receipt and respond ONLY with a valid JSON object " +
	"containing exactly these fields: 'merchant' (string), 'date' (string in YYYY-MM-DD format), " +
	"'subtotal' (number or null), 'tax' (number or null), 'total' (number), 'currency' (string), " +
	"'category' (string), 'categoryCode' (string), 'isDeductible' (boolean or null), " +
	"'items' (array of {name, amount, quantity}), and 'confidenceScore' (number between 0 and 1). " +
	"Do not include any explanations, markdown formatting, or extra text."

var jsonObjectPattern = regexp.MustCompile(`(?s)\{.*\}`)

// GeminiClient is the external-model fallback used when the deterministic
// parser is not confident enough.
type GeminiClient struct {
	apiKey     string
	model      string
	httpClient *http.Client
}

func NewGeminiClient(apiKey, model string) *GeminiClient {
	return &GeminiClient{
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Configured reports whether the fallback can be called at all.
func (c *GeminiClient) Configured() bool {
	return c != nil && c.apiKey != "" && c.model != ""
}

func (c *GeminiClient) Extract(ctx context.Context, in Input) (Result, error) {
	parts := []map[string]interface{}{
		{"text": extractionPrompt},
	}
	if in.OCRText != "" {
		parts = append(parts, map[string]interface{}{
			"text": "Receipt OCR text:\n" + in.OCRText,
		})
	}
	if len(in.Image) > 0 {
		mimeType := in.MimeType
		if mimeType == "" {
			mimeType = "image/jpeg"
		}
		parts = append(parts, map[string]interface{}{
			"inline_data": map[string]interface{}{
				"mime_type": mimeType,
				"data":      base64.StdEncoding.EncodeToString(in.Image),
			},
		})
	}

	requestBody := map[string]interface{}{
		"contents": []map[string]interface{}{
			{"parts": parts},
		},
		"generationConfig": map[string]interface{}{
			"temperature": 0.1,
			"topP":        0.8,
			"topK":        40,
		},
	}

	requestJSON, err := json.Marshal(requestBody)
	if err != nil {
		return Result{}, err
	}

	url := fmt.Sprintf(
		"https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent?key=%s",
		c.model, c.apiKey,
	)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(requestJSON))
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Result{}, ErrTimeout
		}
		var netErr interface{ Timeout() bool }
		if errors.As(err, &netErr) && netErr.Timeout() {
			return Result{}, ErrTimeout
		}
		return Result{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		switch resp.StatusCode {
		case http.StatusTooManyRequests:
			return Result{}, &RateLimitedError{RetryAfter: retryAfter(resp)}
		case http.StatusPaymentRequired, http.StatusForbidden:
			return Result{}, fmt.Errorf("%w: %s", ErrBudgetExceeded, string(bodyBytes))
		case http.StatusGatewayTimeout:
			return Result{}, ErrTimeout
		}
		return Result{}, fmt.Errorf("gemini API error: %s - %s", resp.Status, string(bodyBytes))
	}

	var geminiResp struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&geminiResp); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrParsing, err)
	}
	if len(geminiResp.Candidates) == 0 || len(geminiResp.Candidates[0].Content.Parts) == 0 {
		return Result{}, fmt.Errorf("%w: empty model response", ErrParsing)
	}

	return decodeModelOutput(geminiResp.Candidates[0].Content.Parts[0].Text)
}

func retryAfter(resp *http.Response) time.Duration {
	if raw := resp.Header.Get("Retry-After"); raw != "" {
		if secs, err := strconv.Atoi(raw); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return 0
}

func decodeModelOutput(text string) (Result, error) {
	text = stripFences(text)
	if m := jsonObjectPattern.FindString(text); m != "" {
		text = m
	}

	var doc any
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrParsing, err)
	}
	if err := validateModelOutput(doc); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrParsing, err)
	}

	var parsed struct {
		Merchant     string   `json:"merchant"`
		Date         string   `json:"date"`
		Subtotal     *float64 `json:"subtotal"`
		Tax          *float64 `json:"tax"`
		Total        float64  `json:"total"`
		Currency     string   `json:"currency"`
		Category     string   `json:"category"`
		CategoryCode string   `json:"categoryCode"`
		IsDeductible *bool    `json:"isDeductible"`
		Items        []Item   `json:"items"`
		Confidence   float64  `json:"confidenceScore"`
	}
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrParsing, err)
	}

	merchant, fallbackCategory := NormalizeMerchant(parsed.Merchant)
	category := parsed.Category
	if category == "" {
		category = fallbackCategory
	}
	currency := parsed.Currency
	if currency == "" {
		currency = "USD"
	}

	res := Result{
		Merchant:     merchant,
		Subtotal:     parsed.Subtotal,
		Tax:          parsed.Tax,
		Total:        &parsed.Total,
		Items:        parsed.Items,
		Currency:     currency,
		Category:     category,
		CategoryCode: parsed.CategoryCode,
		IsDeductible: parsed.IsDeductible,
		Confidence:   clamp01(parsed.Confidence),
	}
	if parsed.Date != "" {
		if d, ok := parseDate(parsed.Date); ok {
			res.Date = &d
		}
	}
	return res, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
