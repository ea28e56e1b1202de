// Package transaction owns the captured-transaction model, its persistence,
// and the capture service that turns an extraction result into a record ready
// for import into a personal finance tool.
package transaction

import "time"

// Transaction is one captured receipt, normalized for export. Amount is a
// non-negative magnitude in cents; the sign is applied at export time based on
// Type.
type Transaction struct {
	ID        string    `json:"id"`
	Date      string    `json:"date"` // YYYY-MM-DD
	Time      string    `json:"time,omitempty"`
	Amount    int       `json:"amount"`
	Type      string    `json:"type"` // "expense" or "income"
	Payee     string    `json:"payee,omitempty"`
	Category  string    `json:"category,omitempty"`
	Memo      string    `json:"memo,omitempty"`
	Tags      []string  `json:"tags,omitempty"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EntityCache holds the user's known lists imported from their finance tool.
// Categories encode hierarchy as "Parent:Child". The capture pipeline only
// reads these.
type EntityCache struct {
	Payees     []string `json:"payees"`
	Categories []string `json:"categories"`
	Tags       []string `json:"tags"`
}
