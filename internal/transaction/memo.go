package transaction

import (
	"fmt"
	"strings"
)

// MemoParts are the sub-fields assembled into a memo string.
type MemoParts struct {
	Time          string // HH:MM
	Method        string // extracted payment method
	Summary       string // items summary
	Notes         string // free-text user notes
	DefaultMethod string // configured default, used when Method is empty
}

// FormatMemo concatenates, in fixed order, a bracketed time tag, a bracketed
// payment-method tag, the items summary, and the notes, omitting absent parts.
// Deterministic and idempotent for identical inputs; nothing may reorder or
// duplicate the tags.
func FormatMemo(p MemoParts) string {
	var parts []string

	if p.Time != "" {
		parts = append(parts, fmt.Sprintf("[%s]", p.Time))
	}

	method := p.Method
	if method == "" {
		method = p.DefaultMethod
	}
	if method != "" {
		parts = append(parts, fmt.Sprintf("[%s]", method))
	}

	if p.Summary != "" {
		parts = append(parts, p.Summary)
	}
	if p.Notes != "" {
		parts = append(parts, p.Notes)
	}

	return strings.Join(parts, " ")
}
