package insights

import (
	"math"
	"sort"
	"time"

	"ghimport/internal/github"
)

const (
	DefaultTopContributors = 10
	densityMonths          = 12
	densityAuthors         = 5
)

type RankedContributor struct {
	github.Contributor
	Percentage float64 `json:"percentage"`
}

// TopContributors returns the n largest contributors. Percentages are taken
// over every contributor, not just the returned ones.
func TopContributors(list []github.Contributor, n int) []RankedContributor {
	if n <= 0 {
		n = DefaultTopContributors
	}
	sorted := append([]github.Contributor(nil), list...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Contributions > sorted[j].Contributions
	})
	total := 0
	for _, c := range sorted {
		total += c.Contributions
	}
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	out := make([]RankedContributor, 0, len(sorted))
	for _, c := range sorted {
		var pct float64
		if total != 0 {
			pct = round1(float64(c.Contributions) * 100 / float64(total))
		}
		out = append(out, RankedContributor{Contributor: c, Percentage: pct})
	}
	return out
}

type Series struct {
	Name string `json:"name"`
	Data []int  `json:"data"`
}

type Density struct {
	Months []string `json:"months"`
	Series []Series `json:"series"`
}

// MonthlyDensity buckets the weekly commit counts of the five most active
// authors into the twelve calendar months ending with now's month.
func MonthlyDensity(stats []github.ContributorStats, now time.Time) Density {
	if len(stats) == 0 {
		return Density{Months: []string{}, Series: []Series{}}
	}
	loc := now.Location()
	type monthKey struct {
		year  int
		month time.Month
	}
	keys := make(map[monthKey]int, densityMonths)
	months := make([]string, 0, densityMonths)
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
	for i := densityMonths - 1; i >= 0; i-- {
		d := first.AddDate(0, -i, 0)
		keys[monthKey{d.Year(), d.Month()}] = len(months)
		months = append(months, d.Format("Jan"))
	}

	top := make([]github.ContributorStats, 0, len(stats))
	for _, s := range stats {
		if s.Author != nil {
			top = append(top, s)
		}
	}
	sort.SliceStable(top, func(i, j int) bool { return top[i].Total > top[j].Total })
	if len(top) > densityAuthors {
		top = top[:densityAuthors]
	}

	series := make([]Series, 0, len(top))
	for _, s := range top {
		data := make([]int, densityMonths)
		for _, w := range s.Weeks {
			if w.C <= 0 {
				continue
			}
			d := time.Unix(w.W, 0).In(loc)
			if idx, ok := keys[monthKey{d.Year(), d.Month()}]; ok {
				data[idx] += w.C
			}
		}
		series = append(series, Series{Name: s.Author.Login, Data: data})
	}
	return Density{Months: months, Series: series}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
