package service

import (
	"fmt"
	"time"
)

// newItemID derives an order/top-up id from the creation timestamp
// (with milliseconds, so back-to-back submissions stay distinct) and
// an account suffix, e.g. "D20260831154210482-3447". The prefix
// distinguishes the two collections at a glance.
func newItemID(prefix string, now time.Time, accountID int64) string {
	return fmt.Sprintf("%s%s%03d-%04d",
		prefix, now.Format("20060102150405"), now.Nanosecond()/1e6, accountID%10000)
}

// isDigits reports whether s is non-empty and all ASCII digits with a
// length within [minLen, maxLen].
func isDigits(s string, minLen, maxLen int) bool {
	if len(s) < minLen || len(s) > maxLen {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
