// Town generation: lays out lots between the roads, places the starting
// customers and, later, finds room for new leads.
package town

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/talgya/poopster/internal/config"
	"github.com/talgya/poopster/internal/entropy"
)

// Generator creates houses for one town layout.
type Generator struct {
	Town  config.Town
	Tiers config.Tiers
	Grid  Grid
	RNG   entropy.Source
}

// NewGenerator builds a Generator from the balance.
func NewGenerator(b config.Balance, rng entropy.Source) *Generator {
	return &Generator{
		Town:  b.Town,
		Tiers: b.Tiers,
		Grid:  NewGrid(b.Town),
		RNG:   rng,
	}
}

// Generate places the starting houses on shuffled lots. A grid with fewer
// lots than StartingHouses yields as many houses as fit.
func (g *Generator) Generate() []*House {
	lots := g.Grid.Lots()
	g.RNG.Shuffle(len(lots), func(i, j int) {
		lots[i], lots[j] = lots[j], lots[i]
	})

	n := g.Town.StartingHouses
	if n > len(lots) {
		n = len(lots)
	}

	houses := make([]*House, 0, n)
	for _, lot := range lots[:n] {
		houses = append(houses, g.newHouse(lot))
	}
	return houses
}

// NewLead finds a free cell for a new customer. It returns nil when the town
// is full or every cell has a house within one step.
func (g *Generator) NewLead(existing []*House) *House {
	if len(existing) >= g.Town.MaxHouses {
		return nil
	}

	var free []Point
	for y := 0; y < g.Grid.Height; y++ {
		for x := 0; x < g.Grid.Width; x++ {
			p := Point{X: x, Y: y}
			if g.clearOf(p, existing) {
				free = append(free, p)
			}
		}
	}
	if len(free) == 0 {
		return nil
	}

	h := g.newHouse(free[g.RNG.Intn(len(free))])
	// An unproven relationship starts lower.
	h.Satisfaction = entropy.IntRange(g.RNG, 1, 2)
	return h
}

func (g *Generator) clearOf(p Point, existing []*House) bool {
	for _, h := range existing {
		if Chebyshev(p, h.Position()) <= 1 {
			return false
		}
	}
	return true
}

// TierAt picks a tier from the distance to the town centre: wealthy downtown,
// modest outskirts.
func (g *Generator) TierAt(p Point) Tier {
	cx, cy := g.Grid.Center()
	d := Distance(float64(p.X), float64(p.Y), cx, cy)
	switch {
	case d < g.Town.LargeRadius:
		return TierLarge
	case d < g.Town.MediumRadius:
		return TierMedium
	default:
		return TierSmall
	}
}

func (g *Generator) newHouse(p Point) *House {
	tier := g.TierAt(p)
	spec := tier.Spec(g.Tiers)

	premium := false
	if tier != TierSmall {
		premium = entropy.Chance(g.RNG, g.Town.PremiumChance)
	}

	name, address := g.customerName()
	return &House{
		ID:            uuid.NewString(),
		X:             p.X,
		Y:             p.Y,
		Tier:          tier,
		BasePrice:     spec.BasePrice,
		Dirtiness:     entropy.IntRange(g.RNG, 1, spec.MaxDirtiness),
		Satisfaction:  entropy.IntRange(g.RNG, 2, 4),
		Premium:       premium,
		FrequencyDays: spec.FrequencyDays,
		Name:          name,
		Address:       address,
	}
}

var (
	familyNames = []string{
		"Smith", "Johnson", "Williams", "Brown", "Davis", "Miller", "Wilson",
		"Moore", "Taylor", "Anderson", "Thomas", "Jackson", "White", "Harris",
		"Martin", "Thompson", "Garcia", "Martinez", "Robinson", "Clark",
	}
	householdKinds = []string{"Family", "Residence", "Home", "House"}
	streetNames    = []string{
		"Oak Street", "Maple Avenue", "Pine Road", "Elm Street", "Cedar Lane",
		"Birch Drive", "Willow Way", "Cherry Street", "Magnolia Avenue",
		"Sycamore Road", "Poplar Street", "Hickory Lane", "Walnut Drive",
		"Chestnut Way", "Ash Street", "Beech Avenue", "Spruce Road",
	}
)

// customerName produces a household name and street address.
func (g *Generator) customerName() (string, string) {
	name := familyNames[g.RNG.Intn(len(familyNames))] + " " + householdKinds[g.RNG.Intn(len(householdKinds))]
	addr := fmt.Sprintf("%d %s", 1+g.RNG.Intn(9999), streetNames[g.RNG.Intn(len(streetNames))])
	return name, addr
}
