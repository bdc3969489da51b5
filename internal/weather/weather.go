// Package weather provides the day's weather and its effect on the route.
// Weather comes from a seeded simplex forecast, or from OpenWeatherMap when
// an API key is configured.
package weather

import (
	"fmt"

	"github.com/talgya/poopster/internal/config"
)

// Kind is the weather for one game day.
type Kind string

const (
	Clear Kind = "clear"
	Rain  Kind = "rain"
	Heat  Kind = "heat"
)

// Parse validates a weather name.
func Parse(s string) (Kind, error) {
	switch Kind(s) {
	case Clear, Rain, Heat:
		return Kind(s), nil
	case "":
		return Clear, nil
	default:
		return Clear, fmt.Errorf("unknown weather %q", s)
	}
}

// Effects are the multipliers a weather kind applies to a working day.
type Effects struct {
	DriveTime float64 // Multiplier on drive time between stops
	Fuel      float64 // Multiplier on fuel cost
	Expenses  float64 // Multiplier on the day's total expenses
	Event     string  // Flavor line for the day report, empty when unremarkable
}

// EffectsFor maps a weather kind to its multipliers.
func EffectsFor(k Kind, cfg config.Weather) Effects {
	e := Effects{DriveTime: 1, Fuel: 1, Expenses: 1}
	switch k {
	case Rain:
		e.DriveTime = cfg.RainTimeMultiplier
		e.Fuel = cfg.RainFuelMultiplier
		e.Expenses = cfg.RainExpenseMultiplier
		e.Event = "Rainy day increased supply costs"
	case Heat:
		e.Fuel = cfg.HeatFuelMultiplier
		e.Event = "Heat wave: missed houses are grumbling"
	}
	return e
}

// Source yields the weather for a given game day.
type Source interface {
	Forecast(day int) Kind
}
