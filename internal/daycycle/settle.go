// Package daycycle settles a finished working day: it decides which selected
// houses were serviced, books revenue and expenses, moves satisfaction, drops
// unhappy customers and rolls for new leads and flavor events.
package daycycle

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/talgya/poopster/internal/economy"
	"github.com/talgya/poopster/internal/entropy"
	"github.com/talgya/poopster/internal/route"
	"github.com/talgya/poopster/internal/town"
	"github.com/talgya/poopster/internal/weather"
)

// Input is everything a settlement reads. Nothing in it is modified.
type Input struct {
	Day      int
	Houses   []*town.House
	Route    *route.Route
	Selected []string
	Levels   economy.Levels
	Weather  weather.Kind
	TimeLeft float64 // Hours left on the clock when the day ended

	Model     *economy.Model
	Generator *town.Generator // nil disables leads
	RNG       entropy.Source
}

// Outcome is what happened at one selected house.
type Outcome struct {
	HouseID  string  `json:"house_id"`
	Serviced bool    `json:"serviced"`
	Late     bool    `json:"late,omitempty"`
	Revenue  float64 `json:"revenue"`
	Delta    int     `json:"delta"` // Satisfaction change
}

// Result is the settled day.
type Result struct {
	Day      int              `json:"day"`
	Weather  weather.Kind     `json:"weather"`
	Revenue  float64          `json:"revenue"`
	Expenses float64          `json:"expenses"`
	Bill     economy.Expenses `json:"bill"`
	Profit   float64          `json:"profit"`
	Serviced int              `json:"houses_serviced"`
	Missed   int              `json:"houses_missed"`

	Outcomes            []Outcome      `json:"outcomes"`
	SatisfactionChanges map[string]int `json:"satisfaction_changes"`
	Churned             []string       `json:"churned_houses"`
	NewLeads            []*town.House  `json:"new_leads"`
	Events              []string       `json:"events"`

	// Houses is the town after the day: updated, churned out, leads added.
	// The game adopts it and clears the field.
	Houses []*town.House `json:"-"`
}

// Headline is a one-line summary for logs and notifications.
func (r *Result) Headline() string {
	return fmt.Sprintf("Day %d: $%s profit, %d serviced, %d missed",
		r.Day, humanize.CommafWithDigits(r.Profit, 2), r.Serviced, r.Missed)
}

// Settle closes out a day. When the clock ran out before the day was ended
// every selected house counts as missed; otherwise the route is driven in
// order and only the stops reached within the day budget are serviced.
func Settle(in Input) *Result {
	bal := in.Model.Balance
	sat := bal.Satisfaction

	houses := town.CloneAll(in.Houses)
	byID := make(map[string]*town.House, len(houses))
	for _, h := range houses {
		byID[h.ID] = h
	}

	reached := make(map[string]bool)
	if in.TimeLeft > 0 && in.Route != nil {
		n := route.Reachable(in.Route, bal.Time.DayBudget)
		for _, s := range in.Route.Stops[:n] {
			reached[s.HouseID] = true
		}
	}

	res := &Result{
		Day:                 in.Day,
		Weather:             in.Weather,
		Outcomes:            []Outcome{},
		SatisfactionChanges: make(map[string]int),
		Churned:             []string{},
		NewLeads:            []*town.House{},
		Events:              []string{},
	}

	var serviced []*town.House
	for _, id := range in.Selected {
		h := byID[id]
		if h == nil {
			continue
		}

		out := Outcome{HouseID: id}
		if reached[id] {
			out.Serviced = true
			out.Revenue = h.JobPrice(bal.Economy)
			out.Delta = sat.Serviced
			h.LastServiced = in.Day
			h.NextServiceDay = in.Day + h.FrequencyDays
			res.Revenue += out.Revenue
			res.Serviced++
			serviced = append(serviced, h)
		} else {
			out.Late = in.Day-h.LastServiced > sat.LateAfterDays
			out.Delta = sat.Missed
			if out.Late {
				out.Delta = sat.Late
			}
			res.Missed++
		}
		h.Satisfaction += out.Delta
		res.SatisfactionChanges[id] = out.Delta
		res.Outcomes = append(res.Outcomes, out)
	}

	fuel := 0.0
	if in.Route != nil {
		fuel = in.Route.Fuel
	}
	res.Bill = in.Model.DayExpenses(res.Serviced, fuel, in.Levels, in.Weather)
	res.Expenses = res.Bill.Total
	res.Profit = res.Revenue - res.Expenses

	if ev := weather.EffectsFor(in.Weather, bal.Weather).Event; ev != "" {
		res.Events = append(res.Events, ev)
	}

	if h := convertPremium(serviced, in); h != nil {
		res.Events = append(res.Events, fmt.Sprintf("%s upgraded to premium service", h.Name))
	}

	houses, res.Churned = churn(houses, sat.ChurnThreshold)

	if lead := newLead(houses, in); lead != nil {
		houses = append(houses, lead)
		res.NewLeads = append(res.NewLeads, lead.Clone())
		res.Events = append(res.Events, fmt.Sprintf("New lead: %s on %s", lead.Name, lead.Address))
	}

	if ev := flavorEvent(in.RNG, bal.Progression.FlavorEventChance); ev != "" {
		res.Events = append(res.Events, ev)
	}

	res.Houses = houses
	return res
}

// convertPremium gives each serviced regular customer a shot at moving to
// premium pricing. At most one converts per day.
func convertPremium(serviced []*town.House, in Input) *town.House {
	if in.Levels.Level(economy.PremiumAddon) == 0 {
		return nil
	}
	p := in.Model.Catalog.Effect(economy.PremiumAddon, in.Levels)
	for _, h := range serviced {
		if h.Premium {
			continue
		}
		if entropy.Chance(in.RNG, p) {
			h.Premium = true
			return h
		}
	}
	return nil
}

func churn(houses []*town.House, threshold int) ([]*town.House, []string) {
	kept := houses[:0]
	churned := []string{}
	for _, h := range houses {
		if h.Satisfaction < threshold {
			churned = append(churned, h.ID)
			continue
		}
		kept = append(kept, h)
	}
	return kept, churned
}

func newLead(houses []*town.House, in Input) *town.House {
	if in.Generator == nil || len(houses) >= in.Generator.Town.MaxHouses {
		return nil
	}
	if !entropy.Chance(in.RNG, in.Model.LeadChance(in.Levels)) {
		return nil
	}
	return in.Generator.NewLead(houses)
}

var flavorPool = []string{
	"Road construction added a detour to the route",
	"A customer left a generous tip",
	"A friendly dog slowed down service",
	"GPS glitch caused a minor delay",
	"Coffee break boosted the crew's morale",
	"Traffic jam burned extra fuel",
	"A neighbor asked about signing up",
	"Bags were on sale at the supply store",
}

func flavorEvent(rng entropy.Source, chance float64) string {
	if !entropy.Chance(rng, chance) {
		return ""
	}
	return flavorPool[rng.Intn(len(flavorPool))]
}
