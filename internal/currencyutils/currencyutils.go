// Package currencyutils provides common currency and decimal operations used throughout the application.
package currencyutils

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	currencySymbols = regexp.MustCompile(`[€$£¥₹₽₩฿₫₴₸₺₪\s]`)
	currencyWords   = regexp.MustCompile(`(?i)^(rs\.?|inr|usd|eur|gbp|chf|rub)|(rupees?|rs\.?|inr|usd|eur|gbp|chf|rub|/-)$`)
	isoCode         = regexp.MustCompile(`^[A-Z]{3}$`)
)

var symbolToCode = map[string]string{
	"₹":      "INR",
	"RS":     "INR",
	"RS.":    "INR",
	"RUPEE":  "INR",
	"RUPEES": "INR",
	"$":      "USD",
	"€":      "EUR",
	"£":      "GBP",
	"¥":      "JPY",
	"₽":      "RUB",
}

// ParseAmount parses a string representation of an amount into a decimal value.
// It handles formats like "1,234.56", "1.234,56", "₹1,00,000", "Rs. 450/-" and "1234,56".
func ParseAmount(amountStr string) (decimal.Decimal, error) {
	standardized := StandardizeAmount(amountStr)
	if standardized == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}

	amount, err := decimal.NewFromString(standardized)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse amount '%s': %w", amountStr, err)
	}

	return amount, nil
}

// StandardizeAmount converts various currency string formats to a standard format that can be parsed by decimal.NewFromString
func StandardizeAmount(amountStr string) string {
	amountStr = currencySymbols.ReplaceAllString(amountStr, "")
	for {
		stripped := currencyWords.ReplaceAllString(amountStr, "")
		if stripped == amountStr {
			break
		}
		amountStr = stripped
	}

	if strings.Contains(amountStr, ",") && strings.Contains(amountStr, ".") {
		if strings.LastIndex(amountStr, ".") < strings.LastIndex(amountStr, ",") {
			// European format (1.234,56)
			amountStr = strings.ReplaceAll(amountStr, ".", "")
			amountStr = strings.ReplaceAll(amountStr, ",", ".")
		} else {
			amountStr = strings.ReplaceAll(amountStr, ",", "")
		}
	} else if strings.Contains(amountStr, ",") {
		parts := strings.Split(amountStr, ",")
		if len(parts) == 2 && len(parts[1]) <= 2 {
			// Comma used as decimal separator (1234,56)
			amountStr = strings.ReplaceAll(amountStr, ",", ".")
		} else {
			// Thousand or lakh separators (1,234 or 1,00,000)
			amountStr = strings.ReplaceAll(amountStr, ",", "")
		}
	}

	// Apostrophes used as thousand separators (1'234.56)
	amountStr = strings.ReplaceAll(amountStr, "'", "")

	return amountStr
}

// NormalizeCurrency maps a currency code or symbol to an upper-case ISO 4217 code.
// It returns fallback when the input is empty or not recognizable.
func NormalizeCurrency(currency, fallback string) string {
	c := strings.ToUpper(strings.TrimSpace(currency))
	if c == "" {
		return fallback
	}
	if code, ok := symbolToCode[c]; ok {
		return code
	}
	if isoCode.MatchString(c) {
		return c
	}
	return fallback
}

// HasScaleAtMost reports whether amount carries no more than scale fractional digits.
func HasScaleAtMost(amount decimal.Decimal, scale int32) bool {
	return amount.Truncate(scale).Equal(amount)
}

