package entity

import (
	"fmt"
	"strings"
)

// Exchange markets for mainland A-share codes.
const (
	ExchangeShanghai = "sh"
	ExchangeShenzhen = "sz"
	ExchangeBeijing  = "bj"
)

// ExchangeFor classifies a 6-digit code by its leading digits: 6xxxxx and
// 900xxx trade in Shanghai, 4xxxxx/8xxxxx/920xxx in Beijing, the rest in
// Shenzhen.
func ExchangeFor(code string) string {
	switch {
	case strings.HasPrefix(code, "6"), strings.HasPrefix(code, "900"):
		return ExchangeShanghai
	case strings.HasPrefix(code, "4"), strings.HasPrefix(code, "8"), strings.HasPrefix(code, "920"):
		return ExchangeBeijing
	default:
		return ExchangeShenzhen
	}
}

// ExchangeSuffix returns the marker appended to exported codes.
func ExchangeSuffix(code string) string {
	switch ExchangeFor(code) {
	case ExchangeShanghai:
		return ".SH"
	case ExchangeBeijing:
		return ".BJ"
	default:
		return ".SZ"
	}
}

// QualifiedCode is the export form of a code, e.g. "600000.SH".
func QualifiedCode(code string) string {
	return code + ExchangeSuffix(code)
}

// SecID is the market-qualified identifier the quote endpoints key on:
// market 1 for Shanghai, 0 otherwise.
func SecID(code string) string {
	market := "0"
	if ExchangeFor(code) == ExchangeShanghai {
		market = "1"
	}
	return market + "." + code
}

// QuoteURL builds the public quote-page link for a code.
func QuoteURL(code string) string {
	ex := ExchangeFor(code)
	if ex == ExchangeBeijing {
		return fmt.Sprintf("https://quote.eastmoney.com/bj/%s.html", code)
	}
	return fmt.Sprintf("https://quote.eastmoney.com/%s%s.html", ex, code)
}
