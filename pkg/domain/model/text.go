package model

import "strings"

// NotAvailable is the placeholder for empty or null-like cell values
const NotAvailable = "N/A"

var nullTexts = map[string]bool{
	"":              true,
	"nan":           true,
	"none":          true,
	"null":          true,
	"no value":      true,
	"not available": true,
	"na":            true,
	"n/a":           true,
}

// IsNullText returns true if a cell value means "no value"
func IsNullText(s string) bool {
	return nullTexts[strings.ToLower(strings.TrimSpace(s))]
}

// CleanText trims a cell value and replaces null-like values with NotAvailable
func CleanText(s string) string {
	if IsNullText(s) {
		return NotAvailable
	}
	return strings.TrimSpace(s)
}
