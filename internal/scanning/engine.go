// Package scanning turns receipt images and PDFs into structured transaction
// fields. It layers three kinds of recognition engines behind one orchestrator:
// on-device OCR, a local vision model, and a cloud vision model.
package scanning

import "context"

// Source identifies which engine tier produced a Result.
type Source string

const (
	SourceSystem   Source = "system"
	SourceLocalOCR Source = "local-ocr"
	SourceLocalAI  Source = "local-ai"
	SourceCloudAI  Source = "cloud-ai"
)

// OutputKind tags the variant an engine produced.
type OutputKind int

const (
	// OutputText is raw recognized text that still needs field extraction.
	OutputText OutputKind = iota
	// OutputFields is a structured guess produced directly by a vision model.
	OutputFields
)

// Output is the tagged union of the two engine output shapes. Exactly one of
// Text or Fields is meaningful, selected by Kind.
type Output struct {
	Kind   OutputKind
	Text   string
	Fields *AIFields
}

// AIFields is the structured guess a vision model returns for one receipt.
type AIFields struct {
	Date          string   `json:"date"`
	Time          string   `json:"time"`
	Merchant      string   `json:"merchant"`
	Amount        float64  `json:"amount"`
	CategoryGuess string   `json:"category_guess"`
	PaymentMethod string   `json:"payment_method"`
	ItemsSummary  string   `json:"items_summary"`
	Tags          []string `json:"tags"`
	IsReceipt     bool     `json:"is_receipt"`
}

// Engine is one recognition strategy. Scan always receives PNG bytes; input
// conversion happens before any engine runs.
type Engine interface {
	// Source names the tier for result attribution and logging.
	Source() Source
	// Scan recognizes one receipt image.
	Scan(ctx context.Context, png []byte) (*Output, error)
}

// Result is the canonical output of an extraction request. All engines
// normalize into this shape. Absent string fields are ""; Amount, when set, is
// a non-negative magnitude with two decimal places (sign is the caller's
// concern), Date is YYYY-MM-DD and Time is HH:MM, both already validated.
type Result struct {
	Date          string   `json:"date,omitempty"`
	Time          string   `json:"time,omitempty"`
	Amount        string   `json:"amount,omitempty"`
	Merchant      string   `json:"merchant,omitempty"`
	CategoryGuess string   `json:"category_guess,omitempty"`
	PaymentMethod string   `json:"payment_method,omitempty"`
	ItemsSummary  string   `json:"items_summary,omitempty"`
	TagsGuess     []string `json:"tags_guess,omitempty"`
	IsReceipt     bool     `json:"is_receipt"`
	Source        Source   `json:"source"`
}
