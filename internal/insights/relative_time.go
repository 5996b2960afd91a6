package insights

import (
	"fmt"
	"time"
)

// RelativeTime renders t relative to now the way the repository list shows
// "updated" times. Months are 30 days and years are 12 of those months.
func RelativeTime(t, now time.Time) string {
	diff := now.Sub(t)
	hours := int(diff / time.Hour)
	if hours < 1 {
		minutes := int(diff / time.Minute)
		if minutes < 1 {
			return "just now"
		}
		return fmt.Sprintf("%d minutes ago", minutes)
	}
	if hours < 24 {
		return fmt.Sprintf("%d hours ago", hours)
	}
	days := hours / 24
	if days < 30 {
		return fmt.Sprintf("%d days ago", days)
	}
	months := days / 30
	if months < 12 {
		return fmt.Sprintf("%d months ago", months)
	}
	return fmt.Sprintf("%d years ago", months/12)
}
