package transactions

import (
	"fmt"
	"time"
)

// FormatAge renders how long ago t was: "Just now" under an hour, hours
// under a day, days under a week, otherwise the date.
func FormatAge(now, t time.Time) string {
	diff := now.Sub(t)
	switch {
	case diff < time.Hour:
		return "Just now"
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	default:
		return t.Format("Jan 2, 2006")
	}
}
