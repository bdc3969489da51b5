package engine

import (
	"time"

	"github.com/talgya/poopster/internal/daycycle"
	"github.com/talgya/poopster/internal/economy"
	"github.com/talgya/poopster/internal/route"
	"github.com/talgya/poopster/internal/town"
	"github.com/talgya/poopster/internal/weather"
)

// maxEvents bounds the in-memory event feed. Older events live in the store.
const maxEvents = 100

// Event is a notable occurrence in the business.
type Event struct {
	Day         int    `json:"day" db:"day"`
	Description string `json:"description" db:"description"`
	Category    string `json:"category" db:"category"` // "day", "weather", "milestone", "upgrade", "customer"
}

// Totals are the running lifetime counters.
type Totals struct {
	Revenue  float64 `json:"total_revenue"`
	Expenses float64 `json:"total_expenses"`
	Profit   float64 `json:"total_profit"`
	Serviced int     `json:"houses_serviced"`
	Missed   int     `json:"houses_missed"`
}

// State is the complete game. Only Game mutates it.
type State struct {
	Day           int                `json:"day"`
	Cash          float64            `json:"cash"`
	TimeLeft      float64            `json:"time_left"`
	DayActive     bool               `json:"is_day_active"`
	Houses        []*town.House      `json:"houses"`
	Selected      []string           `json:"selected_houses"`
	DailyCapacity int                `json:"daily_capacity"`
	Upgrades      economy.Levels     `json:"upgrades"`
	Totals        Totals             `json:"totals"`
	Weather       weather.Kind       `json:"weather"`
	Route         *route.Route       `json:"current_route"`
	WeekResults   []*daycycle.Result `json:"week_results"`
	LastResult    *daycycle.Result   `json:"last_result,omitempty"`
	Milestones    []float64          `json:"milestones"`
	Events        []Event            `json:"events"`
}

// clone deep-copies the parts of the state readers could otherwise race on.
func (s *State) clone() State {
	c := *s
	c.Houses = town.CloneAll(s.Houses)
	c.Selected = append([]string{}, s.Selected...)
	c.Upgrades = s.Upgrades.Clone()
	c.Route = s.Route.Clone()
	c.WeekResults = append([]*daycycle.Result{}, s.WeekResults...)
	c.Milestones = append([]float64{}, s.Milestones...)
	c.Events = append([]Event{}, s.Events...)
	return c
}

// SaveVersion is bumped when Saved changes shape incompatibly.
const SaveVersion = 1

// Saved is the persisted subset of the state. A day in progress is not
// saved; reloading always lands between days.
type Saved struct {
	Version       int            `json:"version"`
	Day           int            `json:"day"`
	Cash          float64        `json:"cash"`
	Houses        []*town.House  `json:"houses"`
	Upgrades      economy.Levels `json:"upgrades"`
	Totals        Totals         `json:"totals"`
	DailyCapacity int            `json:"daily_capacity"`
	Weather       weather.Kind   `json:"weather"`
	Milestones    []float64      `json:"milestones"`
	SavedAt       time.Time      `json:"saved_at"`
}

// CustomerUpdate edits the customer record of a house. Nil fields are left alone.
type CustomerUpdate struct {
	Name           *string `json:"name,omitempty"`
	Address        *string `json:"address,omitempty"`
	Notes          *string `json:"notes,omitempty"`
	NextServiceDay *int    `json:"next_service_day,omitempty"`
}

// Store persists finished days. Implementations must be safe to call from
// any goroutine; the game never calls them while holding its lock.
type Store interface {
	SaveGame(s Saved) error
	RecordDay(r *daycycle.Result) error
	RecordEvents(events []Event) error
}

// UpgradeStatus is one catalog line as the player sees it.
type UpgradeStatus struct {
	Kind        economy.Kind `json:"kind"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Level       int          `json:"level"`
	MaxLevel    int          `json:"max_level"`
	NextCost    float64      `json:"next_cost"`
	Maxed       bool         `json:"maxed"`
	Affordable  bool         `json:"affordable"`
}
