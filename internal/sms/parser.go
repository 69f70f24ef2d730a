package sms

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// ParsedPayment is the structured part of a mobile-money notice.
type ParsedPayment struct {
	Amount    decimal.Decimal
	Reference string
}

var amountRe = regexp.MustCompile(`(?i)\bGH(?:S|C|¢|₵)\s*([0-9][0-9,]*(?:\.[0-9]{1,2})?)`)

// referenceRes are tried in order; notices often carry a free-text
// "Reference:" ahead of the provider id, so it is the last resort.
var referenceRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bFinancial\s+Transaction\s+Id\s*[:#]?\s*([A-Za-z0-9][A-Za-z0-9\-]*)`),
	regexp.MustCompile(`(?i)\bTransaction\s+ID\s*[:#]?\s*([A-Za-z0-9][A-Za-z0-9\-]*)`),
	regexp.MustCompile(`(?i)\bTrans\.?\s+ID\s*[:#]?\s*([A-Za-z0-9][A-Za-z0-9\-]*)`),
	regexp.MustCompile(`(?i)\bRef(?:erence)?\s*[:#]?\s*([A-Za-z0-9][A-Za-z0-9\-]*)`),
}

// ParsePaymentText extracts the received amount and provider reference. It
// reports false when either is missing or the amount is not positive.
func ParsePaymentText(message string) (ParsedPayment, bool) {
	amountMatch := amountRe.FindStringSubmatch(message)
	if amountMatch == nil {
		return ParsedPayment{}, false
	}
	var refMatch []string
	for _, re := range referenceRes {
		if refMatch = re.FindStringSubmatch(message); refMatch != nil {
			break
		}
	}
	if refMatch == nil {
		return ParsedPayment{}, false
	}

	amount, err := decimal.NewFromString(strings.ReplaceAll(amountMatch[1], ",", ""))
	if err != nil || !amount.IsPositive() {
		return ParsedPayment{}, false
	}

	reference := strings.TrimRight(refMatch[1], "-")
	if reference == "" {
		return ParsedPayment{}, false
	}
	return ParsedPayment{Amount: amount.Round(2), Reference: reference}, true
}
