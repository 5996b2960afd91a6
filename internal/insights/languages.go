package insights

import (
	"sort"

	"ghimport/internal/github"
)

const OtherLanguageColor = "#ededed"

var languageColors = map[string]string{
	"JavaScript": "#f1e05a",
	"TypeScript": "#3178c6",
	"Vue":        "#41b883",
	"Python":     "#3572A5",
	"Java":       "#b07219",
	"C++":        "#f34b7d",
	"C":          "#555555",
	"C#":         "#178600",
	"PHP":        "#4F5D95",
	"Ruby":       "#701516",
	"Go":         "#00ADD8",
	"Rust":       "#dea584",
	"Swift":      "#F05138",
	"Kotlin":     "#A97BFF",
	"Dart":       "#00B4AB",
	"HTML":       "#e34c26",
	"CSS":        "#563d7c",
	"SCSS":       "#c6538c",
	"Shell":      "#89e051",
	"Dockerfile": "#384d54",
	"Makefile":   "#427819",
	"JSON":       "#292929",
	"YAML":       "#cb171e",
	"Markdown":   "#083fa1",
	"Other":      OtherLanguageColor,
}

type LanguageShare struct {
	Language   string  `json:"language"`
	Bytes      int     `json:"bytes"`
	Percentage float64 `json:"percentage"`
	Color      string  `json:"color"`
}

// LanguageColor returns the chart color for a language.
func LanguageColor(language string) string {
	if c, ok := languageColors[language]; ok {
		return c
	}
	return OtherLanguageColor
}

// LanguageComposition turns byte counts into percentage shares, largest
// first. Ties are broken by name so the output is stable.
func LanguageComposition(langs github.Languages) []LanguageShare {
	total := 0
	for _, b := range langs {
		total += b
	}
	out := make([]LanguageShare, 0, len(langs))
	for name, b := range langs {
		var pct float64
		if total > 0 {
			pct = float64(b) / float64(total) * 100
		}
		out = append(out, LanguageShare{
			Language:   name,
			Bytes:      b,
			Percentage: pct,
			Color:      LanguageColor(name),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Percentage != out[j].Percentage {
			return out[i].Percentage > out[j].Percentage
		}
		return out[i].Language < out[j].Language
	})
	return out
}
