package config

import "sort"

// CategoryWeights fixes the display order of command categories in /help and
// the generated README. Unlisted categories sort first, then by name.
var CategoryWeights = map[string]int{
	"Information":   0,
	"Configuration": 10,
	"Export":        20,
	"Maintenance":   30,
}

// SortCategories orders category names in place by weight, then name.
func SortCategories(cats []string) {
	sort.Slice(cats, func(i, j int) bool {
		wi, wj := CategoryWeights[cats[i]], CategoryWeights[cats[j]]
		if wi == wj {
			return cats[i] < cats[j]
		}
		return wi < wj
	})
}
