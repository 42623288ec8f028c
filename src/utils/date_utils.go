package utils

import (
	"time"
)

const DefaultDateFormat = "2006-01-02"

// ValidDate reports whether a date string matches the ledger date format.
func ValidDate(dateStr string) bool {
	_, err := time.Parse(DefaultDateFormat, dateStr)
	return err == nil
}

// Today returns the current date in the ledger date format.
func Today() string {
	return time.Now().Format(DefaultDateFormat)
}
