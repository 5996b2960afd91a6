// Package insights derives the chart data shown on the repository page from
// already-fetched GitHub statistics. Everything here is pure.
package insights

import (
	"math"
	"time"

	"ghimport/internal/github"
)

// DayActivity is one cell of the commit heatmap.
type DayActivity struct {
	Date      time.Time `json:"date"`
	Count     int       `json:"count"`
	WeekIndex int       `json:"week_index"`
	DayIndex  int       `json:"day_index"`
}

type CommitSummary struct {
	TotalCommits    int        `json:"total_commits"`
	AveragePerWeek  int        `json:"average_per_week"`
	MaxCommitsInDay int        `json:"max_commits_in_day"`
	MostActiveDay   *time.Time `json:"most_active_day"`
}

// Heatmap flattens weekly activity into days, keeping input order.
func Heatmap(activity []github.CommitActivity) []DayActivity {
	out := make([]DayActivity, 0, len(activity)*7)
	for wi, week := range activity {
		start := time.Unix(week.Week, 0).UTC()
		for di, count := range week.Days {
			out = append(out, DayActivity{
				Date:      start.AddDate(0, 0, di),
				Count:     count,
				WeekIndex: wi,
				DayIndex:  di,
			})
		}
	}
	return out
}

func Summarize(activity []github.CommitActivity) CommitSummary {
	if len(activity) == 0 {
		return CommitSummary{}
	}
	var s CommitSummary
	for _, week := range activity {
		s.TotalCommits += week.Total
	}
	s.AveragePerWeek = int(math.Round(float64(s.TotalCommits) / float64(len(activity))))

	days := Heatmap(activity)
	if len(days) == 0 {
		return s
	}
	best := -1
	for i, d := range days {
		if best < 0 || d.Count > days[best].Count {
			best = i
		}
	}
	s.MaxCommitsInDay = days[best].Count
	date := days[best].Date
	s.MostActiveDay = &date
	return s
}
