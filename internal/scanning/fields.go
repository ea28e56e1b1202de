package scanning

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/hbgo/capture/internal/dates"
)

// Fields is what line-heuristic extraction can recover from plain OCR text.
// Category and tags are not derivable from raw text and are left for the
// caller to fill downstream. Absent fields are "", never an error: partial
// results are the expected common case.
type Fields struct {
	Date     string
	Time     string
	Amount   string
	Merchant string
}

var (
	// Digit dates with /-. separators, ISO dates, and month-name forms.
	dateTokenRegex = regexp.MustCompile(`(?i)(\d{1,2}[./-]\d{1,2}[./-]\d{2,4})|(\d{4}[./-]\d{1,2}[./-]\d{1,2})|(\d{1,2}\s+(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\s+\d{2,4})|((?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\s+\d{1,2}\s*,?\s*\d{2,4})`)

	clockRegex   = regexp.MustCompile(`(\d{1,2}):(\d{2})`)
	decimalRegex = regexp.MustCompile(`\d+\.\d{2}`)
	totalRegex   = regexp.MustCompile(`(?i)total`)

	// Receipt boilerplate that is never the merchant name.
	merchantStopRegex = regexp.MustCompile(`(?i)\b(welcome|receipt|tax invoice|abn|gst|date|time|total|subtotal|eftpos|credit|debit|card|change|cash|tel|ph|fax|vat|reg|number|transaction|order)\b`)

	// Lines opening with a date-like or currency-like token.
	dateOrPricePrefixRegex = regexp.MustCompile(`^(\d{1,2}[./-]|[$£€])`)
)

// ParseText segments raw multi-line OCR text into candidate fields using
// line-level heuristics. format controls ambiguous digit-date interpretation.
func ParseText(text string, format dates.Format) Fields {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}

	var out Fields
	for _, line := range lines {
		if out.Merchant == "" && isMerchantLine(line) {
			out.Merchant = line
		}
		if out.Date == "" {
			if m := dateTokenRegex.FindString(line); m != "" {
				out.Date = dates.NormalizeDate(m, format)
			}
		}
		if out.Time == "" {
			if m := clockRegex.FindStringSubmatch(line); m != nil {
				hour, _ := strconv.Atoi(m[1])
				minute, _ := strconv.Atoi(m[2])
				out.Time = fmt.Sprintf("%02d:%02d", hour, minute)
			}
		}
		if out.Amount == "" && totalRegex.MatchString(line) {
			out.Amount = decimalRegex.FindString(line)
		}
	}

	// No "total" line: the grand total is usually the largest dollar figure
	// on the receipt, larger than line items or tax.
	if out.Amount == "" {
		var max float64
		for _, line := range lines {
			for _, m := range decimalRegex.FindAllString(line, -1) {
				if v, err := strconv.ParseFloat(m, 64); err == nil && v > max {
					max = v
				}
			}
		}
		if max > 0 {
			out.Amount = fmt.Sprintf("%.2f", max)
		}
	}
	if out.Amount != "" {
		if v, err := strconv.ParseFloat(out.Amount, 64); err == nil {
			out.Amount = fmt.Sprintf("%.2f", v)
		}
	}

	return out
}

// isMerchantLine reports whether a line qualifies as the merchant name: long
// enough, free of boilerplate stopwords, and not a date or price. Absence of
// any qualifying line leaves the merchant unknown; amount lines are never
// promoted to a merchant guess.
func isMerchantLine(line string) bool {
	return len(line) > 2 &&
		!merchantStopRegex.MatchString(line) &&
		!dateOrPricePrefixRegex.MatchString(line) &&
		!dateTokenRegex.MatchString(line)
}
