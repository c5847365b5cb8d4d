package training

import (
	"sort"
	"time"
)

type WeeklyBucket struct {
	WeekStart       string            `json:"weekStart"`
	Sessions        int               `json:"sessions"`
	DurationMinutes float64           `json:"durationMinutes"`
	Load            float64           `json:"load"`
	DistanceBySport map[Sport]float64 `json:"distanceBySport"`
	Provisional     bool              `json:"provisional"`
}

type SportWeeklyBucket struct {
	WeekStart       string       `json:"weekStart"`
	Sport           Sport        `json:"sport"`
	Sessions        int          `json:"sessions"`
	DurationMinutes float64      `json:"durationMinutes"`
	Load            float64      `json:"load"`
	Distance        float64      `json:"distance"`
	DistanceUnit    DistanceUnit `json:"distanceUnit"`
}

// WeekStart returns the Monday of the calendar week containing t, at UTC midnight.
func WeekStart(t time.Time) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

// AggregateByWeek sums the records into Monday-start weeks, ascending. Weeks
// without sessions between the first and the last one are present with zero sums.
func AggregateByWeek(records []WorkoutRecord) []WeeklyBucket {
	if len(records) == 0 {
		return []WeeklyBucket{}
	}

	sorted := SortRecords(records)
	first := WeekStart(sorted[0].Date)
	last := WeekStart(sorted[len(sorted)-1].Date)

	var buckets []WeeklyBucket
	index := make(map[string]int)
	for week := first; !week.After(last); week = week.AddDate(0, 0, 7) {
		key := week.Format(DateLayout)
		index[key] = len(buckets)
		buckets = append(buckets, WeeklyBucket{
			WeekStart:       key,
			DistanceBySport: map[Sport]float64{},
		})
	}

	for _, r := range sorted {
		b := &buckets[index[WeekStart(r.Date).Format(DateLayout)]]
		b.Sessions++
		b.DurationMinutes += r.DurationMinutes
		b.Load += r.Load()
		if r.Sport.DistanceUnit() != UnitNone {
			b.DistanceBySport[r.Sport] += r.Distance
		}
	}
	return buckets
}

// AggregateByWeekAndSport returns one bucket per week and discipline that has sessions,
// ordered by week then by discipline.
func AggregateByWeekAndSport(records []WorkoutRecord) []SportWeeklyBucket {
	buckets := []SportWeeklyBucket{}
	if len(records) == 0 {
		return buckets
	}

	type key struct {
		week  string
		sport Sport
	}
	index := make(map[key]int)
	for _, r := range SortRecords(records) {
		k := key{week: WeekStart(r.Date).Format(DateLayout), sport: r.Sport}
		i, ok := index[k]
		if !ok {
			i = len(buckets)
			index[k] = i
			buckets = append(buckets, SportWeeklyBucket{
				WeekStart:    k.week,
				Sport:        r.Sport,
				DistanceUnit: r.Sport.DistanceUnit(),
			})
		}
		b := &buckets[i]
		b.Sessions++
		b.DurationMinutes += r.DurationMinutes
		b.Load += r.Load()
		b.Distance += r.Distance
	}

	sort.SliceStable(buckets, func(i, j int) bool {
		if buckets[i].WeekStart != buckets[j].WeekStart {
			return buckets[i].WeekStart < buckets[j].WeekStart
		}
		return buckets[i].Sport.rank() < buckets[j].Sport.rank()
	})
	return buckets
}
