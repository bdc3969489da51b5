// Package route orders the day's selected houses into a single-van tour and
// projects its time, distance, revenue and fuel.
package route

import (
	"math"

	"github.com/talgya/poopster/internal/economy"
	"github.com/talgya/poopster/internal/town"
	"github.com/talgya/poopster/internal/weather"
)

// Stop is one house visit on the route.
type Stop struct {
	HouseID string  `json:"house_id"`
	X       int     `json:"x"`
	Y       int     `json:"y"`
	Leg     float64 `json:"leg"`     // Straight-line tiles from the previous stop
	Time    float64 `json:"time"`    // Drive plus scoop hours for this stop
	Revenue float64 `json:"revenue"` // Job price
}

// Route is an ordered plan for one day with cached projections.
type Route struct {
	Stops    []Stop       `json:"stops"`
	Distance float64      `json:"distance"`
	Time     float64      `json:"time"`
	Revenue  float64      `json:"revenue"`
	Fuel     float64      `json:"fuel"`
	Weather  weather.Kind `json:"weather"`
}

// Options carries what the projection depends on.
type Options struct {
	CenterX float64
	CenterY float64
	Model   *economy.Model
	Levels  economy.Levels
	Weather weather.Kind
}

// HouseIDs lists the stops in visiting order.
func (r *Route) HouseIDs() []string {
	ids := make([]string, len(r.Stops))
	for i, s := range r.Stops {
		ids[i] = s.HouseID
	}
	return ids
}

// Len returns the number of stops.
func (r *Route) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Stops)
}

// Clone deep-copies the route.
func (r *Route) Clone() *Route {
	if r == nil {
		return nil
	}
	c := *r
	c.Stops = append([]Stop(nil), r.Stops...)
	return &c
}

func dist(a, b Stop) float64 {
	return town.Distance(float64(a.X), float64(a.Y), float64(b.X), float64(b.Y))
}

// Plan builds a nearest-neighbour tour over the selected houses. The tour
// starts at the selected house closest to the centre; ties go to the house
// met first in the house list. Unknown ids are skipped. An empty selection
// yields a zero route.
func Plan(houses []*town.House, selected []string, opts Options) *Route {
	r := &Route{Stops: []Stop{}, Weather: opts.Weather}
	if len(selected) == 0 {
		return r
	}

	want := make(map[string]bool, len(selected))
	for _, id := range selected {
		want[id] = true
	}
	var unvisited []*town.House
	for _, h := range houses {
		if want[h.ID] {
			unvisited = append(unvisited, h)
		}
	}
	if len(unvisited) == 0 {
		return r
	}

	eco := opts.Model.Balance.Economy

	// Start from the house nearest the centre.
	start := 0
	best := math.Inf(1)
	for i, h := range unvisited {
		d := town.Distance(opts.CenterX, opts.CenterY, float64(h.X), float64(h.Y))
		if d < best {
			best = d
			start = i
		}
	}

	cur := unvisited[start]
	unvisited = append(unvisited[:start:start], unvisited[start+1:]...)
	r.Stops = append(r.Stops, Stop{HouseID: cur.ID, X: cur.X, Y: cur.Y, Revenue: cur.JobPrice(eco)})

	for len(unvisited) > 0 {
		next := 0
		best = math.Inf(1)
		for i, h := range unvisited {
			d := town.Distance(float64(cur.X), float64(cur.Y), float64(h.X), float64(h.Y))
			if d < best {
				best = d
				next = i
			}
		}
		cur = unvisited[next]
		unvisited = append(unvisited[:next:next], unvisited[next+1:]...)
		r.Stops = append(r.Stops, Stop{HouseID: cur.ID, X: cur.X, Y: cur.Y, Revenue: cur.JobPrice(eco)})
	}

	project(r, opts)
	return r
}

// Improve runs a 2-opt pass over a copy of the route: it keeps reversing the
// first interior segment whose reversal shortens the path until none does.
// The first and last stops stay put. Routes under four stops come back as is.
func Improve(r *Route, opts Options) *Route {
	if r.Len() < 4 {
		return r
	}
	out := r.Clone()
	s := out.Stops
	n := len(s)

	const eps = 1e-9
	for improved := true; improved; {
		improved = false
		for i := 1; i < n-2 && !improved; i++ {
			for j := i + 1; j < n-1; j++ {
				delta := dist(s[i-1], s[j]) + dist(s[i], s[j+1]) - dist(s[i-1], s[i]) - dist(s[j], s[j+1])
				if delta < -eps {
					reverse(s[i : j+1])
					improved = true
					break
				}
			}
		}
	}

	project(out, opts)
	return out
}

func reverse(s []Stop) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

// PathLength is the raw straight-line length of the tour.
func PathLength(r *Route) float64 {
	total := 0.0
	for i := 1; i < r.Len(); i++ {
		total += dist(r.Stops[i-1], r.Stops[i])
	}
	return total
}

// project refreshes legs and totals through the cost model.
func project(r *Route, opts Options) {
	legs := make([]float64, len(r.Stops))
	r.Revenue = 0
	for i := range r.Stops {
		if i > 0 {
			legs[i] = dist(r.Stops[i-1], r.Stops[i])
		}
		r.Stops[i].Leg = legs[i]
		r.Revenue += r.Stops[i].Revenue
	}

	est := opts.Model.Estimate(legs, opts.Levels, opts.Weather)
	for i, t := range est.StopTimes {
		r.Stops[i].Time = t
	}
	r.Distance = est.Distance
	r.Time = est.Time
	r.Fuel = est.Fuel
	r.Weather = opts.Weather
}
