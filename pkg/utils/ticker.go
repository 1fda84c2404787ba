package utils

import (
	"fmt"
	"regexp"
	"strings"
)

// US tickers: 1-5 letters, optionally a class suffix like BRK.B or BF-B.
var tickerPattern = regexp.MustCompile(`^[A-Z]{1,5}([.-][A-Z]{1,2})?$`)

// Common company-name aliases typed into search boxes.
var tickerAliases = map[string]string{
	"APPLE":     "AAPL",
	"MICROSOFT": "MSFT",
	"GOOGLE":    "GOOGL",
	"ALPHABET":  "GOOGL",
	"AMAZON":    "AMZN",
	"META":      "META",
	"FACEBOOK":  "META",
	"NVIDIA":    "NVDA",
	"TESLA":     "TSLA",
	"NETFLIX":   "NFLX",
	"BERKSHIRE": "BRK.B",
}

// NormalizeTicker normalizes user input to a canonical ticker.
// It handles aliases, uppercasing, whitespace and a leading $.
func NormalizeTicker(ticker string) string {
	ticker = strings.TrimSpace(strings.ToUpper(ticker))

	// Remove $ prefix if present (common in chat)
	ticker = strings.TrimPrefix(ticker, "$")

	if canonical, ok := tickerAliases[ticker]; ok {
		return canonical
	}
	return ticker
}

// ValidateTicker normalizes ticker and rejects anything that does not look
// like a listed symbol.
func ValidateTicker(ticker string) (string, error) {
	t := NormalizeTicker(ticker)
	if !tickerPattern.MatchString(t) {
		return "", fmt.Errorf("invalid ticker %q", ticker)
	}
	return t, nil
}

// ToYahooSymbol converts a class-share ticker to Yahoo's dash form (BRK.B → BRK-B).
func ToYahooSymbol(ticker string) string {
	return strings.ReplaceAll(NormalizeTicker(ticker), ".", "-")
}

// ToFMPSymbol converts a class-share ticker to FMP's form (BRK-B → BRK.B).
func ToFMPSymbol(ticker string) string {
	return strings.ReplaceAll(NormalizeTicker(ticker), "-", ".")
}

// NormalizeTickers normalizes and de-duplicates a list, preserving first-seen order.
// Invalid entries are dropped.
func NormalizeTickers(tickers []string) []string {
	seen := make(map[string]struct{}, len(tickers))
	out := make([]string, 0, len(tickers))
	for _, raw := range tickers {
		t, err := ValidateTicker(raw)
		if err != nil {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
