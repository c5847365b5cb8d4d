package training

import (
	"strings"
)

// Category tags the kind of session within a discipline.
type Category string

const (
	CategoryNone Category = ""

	CategoryRecovery    Category = "Pure Aerobic (Recovery)"
	CategorySteadyState Category = "Steady State (Z2)"
	CategoryTempo       Category = "Tempo/Sweet Spot"
	CategoryThreshold   Category = "Threshold Intervals"
	CategoryIntervals   Category = "Intervals"
	CategoryVO2Max      Category = "VO2max Intervals"
	CategoryLongRun     Category = "Long Run"
	CategoryTechnique   Category = "Technique"
	CategoryRacePace    Category = "Race Pace"

	CategoryMaxStrength Category = "Maximal Strength"
	CategoryHypertrophy Category = "Hypertrophy"
	CategoryPower       Category = "Power"
	CategoryCore        Category = "Core & Stability"

	CategoryYoga     Category = "Yoga"
	CategoryMobility Category = "Mobility"
)

// allowedCategories is the per-discipline table every record category is validated against.
var allowedCategories = map[Sport][]Category{
	SportSwim: {
		CategoryRecovery, CategorySteadyState, CategoryTechnique, CategoryTempo,
		CategoryThreshold, CategoryIntervals, CategoryRacePace,
	},
	SportBike: {
		CategoryRecovery, CategorySteadyState, CategoryTempo,
		CategoryThreshold, CategoryIntervals, CategoryVO2Max,
	},
	SportRun: {
		CategoryRecovery, CategorySteadyState, CategoryTempo,
		CategoryThreshold, CategoryIntervals, CategoryLongRun,
	},
	SportStrength: {
		CategoryMaxStrength, CategoryHypertrophy, CategoryPower, CategoryCore,
	},
	SportMobility: {
		CategoryYoga, CategoryMobility,
	},
}

// Categories returns a copy of the categories allowed for the discipline.
func (s Sport) Categories() []Category {
	allowed := allowedCategories[s]
	categories := make([]Category, len(allowed))
	copy(categories, allowed)
	return categories
}

// CategoryTable returns the allowed categories of every discipline.
func CategoryTable() map[Sport][]Category {
	table := make(map[Sport][]Category, len(Sports))
	for _, s := range Sports {
		table[s] = s.Categories()
	}
	return table
}

// ParseCategory matches raw (case-insensitive) against the categories allowed
// for sport. An empty raw value yields CategoryNone.
func ParseCategory(sport Sport, raw string) (Category, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return CategoryNone, nil
	}
	for _, c := range allowedCategories[sport] {
		if strings.EqualFold(string(c), raw) {
			return c, nil
		}
	}
	return CategoryNone, ErrUnknownCategory
}

func (c Category) IsRecovery() bool {
	return c == CategoryRecovery
}
