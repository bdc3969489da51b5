package route

import "math"

// Stats is the display view of a route.
type Stats struct {
	Houses   int     `json:"houses"`
	Distance float64 `json:"distance"`
	Time     float64 `json:"time"`
	Revenue  float64 `json:"revenue"`
	Fuel     float64 `json:"fuel"`
}

// StatsOf rounds a route for display: distance and time to a tenth,
// revenue and fuel to whole cash.
func StatsOf(r *Route) Stats {
	if r == nil {
		return Stats{}
	}
	return Stats{
		Houses:   len(r.Stops),
		Distance: math.Round(r.Distance*10) / 10,
		Time:     math.Round(r.Time*10) / 10,
		Revenue:  math.Round(r.Revenue),
		Fuel:     math.Round(r.Fuel),
	}
}

// Valid reports whether the route fits in the time budget.
func Valid(r *Route, budget float64) bool {
	if r == nil {
		return true
	}
	return r.Time <= budget
}

// Reachable counts the leading stops finished within budget hours when the
// route is driven in order.
func Reachable(r *Route, budget float64) int {
	elapsed := 0.0
	for i, s := range r.Stops {
		elapsed += s.Time
		if elapsed > budget {
			return i
		}
	}
	return r.Len()
}
