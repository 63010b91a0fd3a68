package extraction

import (
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// resultSchema constrains what the model may return; anything outside it is
// a PARSING_ERROR, never silently accepted.
const resultSchema = `{
  "type": "object",
  "required": ["merchant", "total", "confidenceScore"],
  "properties": {
    "merchant": {"type": "string", "minLength": 1},
    "date": {"type": "string"},
    "subtotal": {"type": ["number", "null"], "minimum": 0},
    "tax": {"type": ["number", "null"], "minimum": 0},
    "total": {"type": "number", "minimum": 0},
    "currency": {"type": "string"},
    "category": {"type": "string"},
    "categoryCode": {"type": "string"},
    "isDeductible": {"type": ["boolean", "null"]},
    "confidenceScore": {"type": "number", "minimum": 0, "maximum": 1},
    "items": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name", "amount"],
        "properties": {
          "name": {"type": "string"},
          "amount": {"type": "number"},
          "quantity": {"type": "integer", "minimum": 1}
        }
      }
    }
  }
}`

var compiledSchema = jsonschema.MustCompileString("receipt-result.json", resultSchema)

// validateModelOutput checks a decoded JSON document against the schema.
func validateModelOutput(doc any) error {
	return compiledSchema.Validate(doc)
}

// stripFences removes markdown code fences models like to wrap JSON in.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimSuffix(text, "```")
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(text, "```")
	}
	return strings.TrimSpace(text)
}
