package core

import (
	"math"
	"strconv"
	"strings"
	"time"
)

const dateLayout = "2 Jan 2006 at 3:04 PM"

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// FriendlyPercentage renders an attendance rate (0..1) as a whole percentage, eg. "83%".
// An absent rate renders as an empty string.
func FriendlyPercentage(rate *float64) string {
	if rate == nil {
		return ""
	}
	return strconv.FormatFloat(math.Round(*rate*100), 'f', 0, 64) + "%"
}

// FullName formats a person's name as "Last, First Other".
func FullName(firstName, lastName, otherNames string) string {
	return strings.TrimSpace(lastName + ", " + firstName + " " + otherNames)
}

// FormatDate renders a class meeting date, eg. "1 Mar 2024 at 10:00 AM".
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}
