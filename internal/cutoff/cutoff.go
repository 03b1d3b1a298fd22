// Package cutoff decides when the history walk has gone back far enough.
package cutoff

import "time"

const (
	timestampLayout = "2006-01-02 15:04:05"
	dateLayout      = "2006-01-02"
	// Accepts single-digit month/day, e.g. "2024-1-1".
	lenientDateLayout = "2006-1-2"
)

// Reached reports whether oldestDT is at or before midnight of cutoffDate.
// An empty or unparsable argument never stops the loop: with no cutoff
// configured, or no timestamp to compare, it returns false.
func Reached(oldestDT, cutoffDate string) bool {
	if oldestDT == "" || cutoffDate == "" {
		return false
	}

	oldest, err := time.Parse(timestampLayout, oldestDT)
	if err != nil {
		return false
	}

	threshold, err := time.Parse(dateLayout, cutoffDate)
	if err != nil {
		threshold, err = time.Parse(lenientDateLayout, cutoffDate)
		if err != nil {
			return false
		}
	}

	return !oldest.After(threshold)
}
