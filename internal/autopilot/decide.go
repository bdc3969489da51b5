package autopilot

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

// Action names one step the bot can take.
type Action string

const (
	ActionNone     Action = "none"
	ActionUpgrade  Action = "upgrade"
	ActionAutoPlan Action = "autoplan"
	ActionDeselect Action = "deselect"
	ActionStartDay Action = "start_day"
	ActionEndDay   Action = "end_day"
)

// Decision is the bot's chosen step and why.
type Decision struct {
	Action    Action `json:"action"`
	Target    string `json:"target,omitempty"` // Upgrade kind or house id
	Rationale string `json:"rationale"`
}

// Policy tunes the rules.
type Policy struct {
	// Reserve is cash kept back when buying upgrades.
	Reserve float64
	// Patient lets the countdown run out instead of ending the day at once.
	Patient bool
	// Priority is the order upgrades are bought in.
	Priority []string
}

// DefaultPolicy buys capacity and speed first and keeps a small cushion.
func DefaultPolicy() Policy {
	return Policy{
		Reserve: 300,
		Priority: []string{
			"worker", "route_planner", "van_speed", "bag_capacity",
			"walking_speed", "marketing", "premium_addon",
		},
	}
}

// Decide picks the next step for the snapshot. Rules, in order:
// finish a running day, buy the first affordable upgrade by priority,
// fill an empty route, trim stops the budget cannot reach, then start the day.
func Decide(p Policy, snap *Snapshot) Decision {
	st := snap.Status

	if st.DayActive {
		if p.Patient && st.TimeLeft > 0 {
			return Decision{Action: ActionNone, Rationale: fmt.Sprintf("day %d running, %.1fh left", st.Day, st.TimeLeft)}
		}
		return Decision{Action: ActionEndDay, Rationale: fmt.Sprintf("closing day %d", st.Day)}
	}

	if u := pickUpgrade(p, snap); u != nil {
		return Decision{
			Action: ActionUpgrade,
			Target: u.Kind,
			Rationale: fmt.Sprintf("$%s of $%s on hand buys %s level %d",
				humanize.Commaf(u.NextCost), humanize.Commaf(st.Cash), u.Kind, u.Level+1),
		}
	}

	if len(st.Selected) == 0 && st.TotalCustomers > 0 {
		return Decision{Action: ActionAutoPlan, Rationale: fmt.Sprintf("%d route slots open", st.DailyCapacity)}
	}

	stops := snap.Route.Route.Stops
	if !snap.Route.Valid && len(stops) > 1 {
		last := stops[len(stops)-1]
		return Decision{
			Action: ActionDeselect,
			Target: last.HouseID,
			Rationale: fmt.Sprintf("route needs %.1fh of %.1fh, dropping the last stop",
				snap.Route.Route.Time, snap.Route.Budget),
		}
	}

	if len(st.Selected) == 0 {
		return Decision{Action: ActionNone, Rationale: "no customers to visit"}
	}
	return Decision{Action: ActionStartDay, Rationale: fmt.Sprintf("starting day %d with %d stops", st.Day, len(st.Selected))}
}

func pickUpgrade(p Policy, snap *Snapshot) *UpgradeInfo {
	byKind := make(map[string]*UpgradeInfo, len(snap.Upgrades))
	for i := range snap.Upgrades {
		byKind[snap.Upgrades[i].Kind] = &snap.Upgrades[i]
	}
	for _, kind := range p.Priority {
		u, ok := byKind[kind]
		if !ok || u.Maxed {
			continue
		}
		if snap.Status.Cash-u.NextCost >= p.Reserve {
			return u
		}
	}
	return nil
}
