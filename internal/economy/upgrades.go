// Package economy holds the upgrade catalog and the one cost model that both
// the route preview and the end-of-day settlement price their work with.
package economy

import (
	"math"
	"sort"

	"github.com/talgya/poopster/internal/config"
)

// Kind identifies an upgrade line.
type Kind string

const (
	BagCapacity  Kind = "bag_capacity"
	WalkingSpeed Kind = "walking_speed"
	VanSpeed     Kind = "van_speed"
	RoutePlanner Kind = "route_planner"
	Marketing    Kind = "marketing"
	Worker       Kind = "worker"
	PremiumAddon Kind = "premium_addon"
)

// Levels maps each owned upgrade to its level. Missing kinds are level 0.
type Levels map[Kind]int

// Level returns the level of k.
func (l Levels) Level(k Kind) int {
	if l == nil {
		return 0
	}
	return l[k]
}

// Clone copies the level map.
func (l Levels) Clone() Levels {
	out := make(Levels, len(l))
	for k, v := range l {
		out[k] = v
	}
	return out
}

// Upgrade is one purchasable line with its price curve and effect.
type Upgrade struct {
	Kind           Kind    `json:"kind"`
	Name           string  `json:"name"`
	Description    string  `json:"description"`
	BaseCost       float64 `json:"base_cost"`
	CostMultiplier float64 `json:"cost_multiplier"`
	MaxLevel       int     `json:"max_level"`

	effect func(level int) float64
}

// Cost is the price of buying the level after current.
func (u Upgrade) Cost(current int) float64 {
	return u.BaseCost * math.Pow(u.CostMultiplier, float64(current))
}

// Effect returns the multiplier or bonus the upgrade grants at level.
func (u Upgrade) Effect(level int) float64 {
	if level < 0 {
		level = 0
	}
	if level > u.MaxLevel {
		level = u.MaxLevel
	}
	return u.effect(level)
}

// Maxed reports whether level is the top of the line.
func (u Upgrade) Maxed(level int) bool {
	return level >= u.MaxLevel
}

type effectSpec struct {
	description string
	effect      func(level int) float64
}

func floorAt(floor, step float64) func(int) float64 {
	return func(level int) float64 {
		return math.Max(floor, 1-float64(level)*step)
	}
}

// effects binds each kind to its formula. Prices come from the balance.
func effects(mk config.Marketing) map[Kind]effectSpec {
	return map[Kind]effectSpec{
		BagCapacity:  {"Reduces supplies cost per job", floorAt(0.5, 0.1)},
		WalkingSpeed: {"Reduces time spent at each house", floorAt(0.5, 0.1)},
		VanSpeed:     {"Reduces driving time between houses", floorAt(0.6, 0.08)},
		RoutePlanner: {"Better route optimization", func(level int) float64 { return 1 - float64(level)*0.05 }},
		Marketing:    {"Increases chance of new leads", func(level int) float64 { return float64(level) * mk.LeadBonus }},
		Worker:       {"Doubles daily capacity", func(level int) float64 { return float64(level) * 2 }},
		PremiumAddon: {"Some houses upgrade to higher pricing", func(level int) float64 { return float64(level) * 0.3 }},
	}
}

// Catalog is the set of upgrades available in a game.
type Catalog struct {
	byKind map[Kind]Upgrade
}

// NewCatalog joins the balance price table with the effect formulas.
// Price rows for unknown kinds are ignored.
func NewCatalog(b config.Balance) *Catalog {
	fx := effects(b.Marketing)
	c := &Catalog{byKind: make(map[Kind]Upgrade, len(b.Upgrades))}
	for _, row := range b.Upgrades {
		k := Kind(row.Kind)
		spec, ok := fx[k]
		if !ok {
			continue
		}
		c.byKind[k] = Upgrade{
			Kind:           k,
			Name:           row.Name,
			Description:    spec.description,
			BaseCost:       row.BaseCost,
			CostMultiplier: row.CostMultiplier,
			MaxLevel:       row.MaxLevel,
			effect:         spec.effect,
		}
	}
	return c
}

// Get returns the upgrade for k.
func (c *Catalog) Get(k Kind) (Upgrade, bool) {
	u, ok := c.byKind[k]
	return u, ok
}

// All returns the upgrades sorted by kind.
func (c *Catalog) All() []Upgrade {
	out := make([]Upgrade, 0, len(c.byKind))
	for _, u := range c.byKind {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Kind < out[j].Kind })
	return out
}

// Effect returns the effect of k at the owned level. Unknown kinds report the
// level-0 neutral value of 1 for multipliers and 0 for bonuses.
func (c *Catalog) Effect(k Kind, levels Levels) float64 {
	u, ok := c.byKind[k]
	if !ok {
		return effects(config.Marketing{})[k].neutral()
	}
	return u.Effect(levels.Level(k))
}

func (s effectSpec) neutral() float64 {
	if s.effect == nil {
		return 0
	}
	return s.effect(0)
}
