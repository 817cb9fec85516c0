package services

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	domain "github.com/pagelift/api/internal/domain"
)

// Currency markers stripped from display prices before parsing or re-rendering.
// Longer tokens come first so "lei" is removed before a bare "l" could match.
var currencyMarkers = []string{
	"EUR", "USD", "GBP", "RON", "PLN", "SEK", "BGN", "HUF", "RSD",
	"lei", "zł", "kr", "лв", "Ft", "din",
	"€", "$", "£",
}

// PricingEngine computes order totals from the free-form price strings stored
// on content records. Amounts are advertising prices, not ledger entries, so
// float arithmetic with two-decimal formatting is sufficient.
type PricingEngine struct{}

// NewPricingEngine constructs a pricing engine.
func NewPricingEngine() *PricingEngine {
	return &PricingEngine{}
}

// AddOnSelections captures which optional add-ons the buyer ticked.
type AddOnSelections struct {
	Insurance bool
	Gadget    bool
}

// ParseAmount extracts a numeric amount from a free-form price string such as
// "€39,90" or "49.90 lei". Characters other than digits, comma, and dot are
// removed, the first comma becomes the decimal separator, and the longest
// leading float prefix is parsed. Unparseable input yields 0, never an error.
func (e *PricingEngine) ParseAmount(raw string) float64 {
	var cleaned strings.Builder
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == ',' || r == '.' {
			cleaned.WriteRune(r)
		}
	}
	normalized := strings.Replace(cleaned.String(), ",", ".", 1)
	return parseFloatPrefix(normalized)
}

// ComputeTotal sums the page price with shipping and selected add-ons.
// Shipping counts only when the record enables it; each add-on counts only
// when its config is enabled and the buyer selected it.
func (e *PricingEngine) ComputeTotal(content ContentRecord, selections AddOnSelections) float64 {
	total := e.ParseAmount(content.Price)
	if content.EnableShippingCost {
		total += e.ParseAmount(content.ShippingCost)
	}
	if selections.Insurance && content.Insurance != nil && content.Insurance.Enabled {
		total += e.ParseAmount(content.Insurance.Cost)
	}
	if selections.Gadget && content.Gadget != nil && content.Gadget.Enabled {
		total += e.ParseAmount(content.Gadget.Cost)
	}
	return total
}

// FormatAmount renders an amount with exactly two decimal places.
func (e *PricingEngine) FormatAmount(amount float64) string {
	return strconv.FormatFloat(amount, 'f', 2, 64)
}

// TotalDisplay formats the computed total for webhook payloads and
// confirmation views as "<amount> <symbol>".
func (e *PricingEngine) TotalDisplay(content ContentRecord, selections AddOnSelections) string {
	formatted := e.FormatAmount(e.ComputeTotal(content, selections))
	symbol := strings.TrimSpace(content.CurrencySymbol)
	if symbol == "" {
		return formatted
	}
	return formatted + " " + symbol
}

// StripCurrency removes known currency symbols and codes from a price string,
// leaving the bare amount for display components that render the symbol
// separately.
func (e *PricingEngine) StripCurrency(raw string) string {
	stripped := raw
	for _, marker := range currencyMarkers {
		stripped = strings.ReplaceAll(stripped, marker, "")
	}
	return strings.TrimFunc(stripped, unicode.IsSpace)
}

// DisplayPrice renders a stored price string with the record's currency symbol
// in its configured position. Empty prices render empty.
func (e *PricingEngine) DisplayPrice(content ContentRecord, raw string) string {
	amount := e.StripCurrency(raw)
	if amount == "" {
		return ""
	}
	symbol := strings.TrimSpace(content.CurrencySymbol)
	if symbol == "" {
		return amount
	}
	if content.CurrencyPosition == domain.CurrencyAfter {
		return fmt.Sprintf("%s %s", amount, symbol)
	}
	return fmt.Sprintf("%s%s", symbol, amount)
}

// parseFloatPrefix parses the longest leading substring that forms a valid
// decimal number, mirroring lenient client-side float parsing. Returns 0 when
// no prefix parses.
func parseFloatPrefix(s string) float64 {
	s = strings.TrimSpace(s)
	end := 0
	seenDot := false
scan:
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r == '.' && !seenDot:
			seenDot = true
		case (r == '+' || r == '-') && i == 0:
		default:
			break scan
		}
		end = i + 1
	}
	for end > 0 {
		if value, err := strconv.ParseFloat(s[:end], 64); err == nil {
			return value
		}
		end--
	}
	return 0
}
