package scanning

import (
	"encoding/json"
	"fmt"
	"strings"
)

// parseAIFields extracts one JSON object from vision-model output text.
// Models wrap answers in markdown fences or chatter around them often enough
// that this scans for the outermost braces instead of trusting the whole
// reply. A reply with no parseable object fails with ErrMalformedResponse;
// nothing partial is ever returned.
func parseAIFields(text string) (*AIFields, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return nil, ErrMalformedResponse
	}

	var fields AIFields
	if err := json.Unmarshal([]byte(text[start:end+1]), &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	fields.Date = strings.TrimSpace(fields.Date)
	fields.Time = strings.TrimSpace(fields.Time)
	fields.Merchant = strings.TrimSpace(fields.Merchant)
	fields.CategoryGuess = strings.TrimSpace(fields.CategoryGuess)
	fields.PaymentMethod = strings.TrimSpace(fields.PaymentMethod)
	fields.ItemsSummary = strings.TrimSpace(fields.ItemsSummary)
	for i, tag := range fields.Tags {
		fields.Tags[i] = strings.TrimSpace(tag)
	}

	return &fields, nil
}
