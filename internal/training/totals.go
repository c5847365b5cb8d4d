package training

type Totals struct {
	Sessions        int          `json:"sessions"`
	DurationMinutes float64      `json:"durationMinutes"`
	Distance        float64      `json:"distance"`
	DistanceUnit    DistanceUnit `json:"distanceUnit"`
	Load            float64      `json:"load"`
}

// TotalsBySport sums sessions per discipline. Disciplines without sessions are omitted.
func TotalsBySport(records []WorkoutRecord) map[Sport]Totals {
	totals := make(map[Sport]Totals)
	for _, r := range SortRecords(records) {
		t := totals[r.Sport]
		t.Sessions++
		t.DurationMinutes += r.DurationMinutes
		t.Distance += r.Distance
		t.DistanceUnit = r.Sport.DistanceUnit()
		t.Load += r.Load()
		totals[r.Sport] = t
	}
	return totals
}
