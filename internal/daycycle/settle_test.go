package daycycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/poopster/internal/config"
	"github.com/talgya/poopster/internal/economy"
	"github.com/talgya/poopster/internal/entropy"
	"github.com/talgya/poopster/internal/route"
	"github.com/talgya/poopster/internal/town"
	"github.com/talgya/poopster/internal/weather"
)

// fixedDraw makes every probability roll land on f.
type fixedDraw float64

func (f fixedDraw) Float64() float64          { return float64(f) }
func (fixedDraw) Intn(int) int                { return 0 }
func (fixedDraw) Shuffle(int, func(i, j int)) {}

func houses() []*town.House {
	return []*town.House{
		{ID: "a", X: 0, Y: 0, BasePrice: 25, Dirtiness: 1, Satisfaction: 3, FrequencyDays: 7, Name: "Smith Family"},
		{ID: "b", X: 5, Y: 0, BasePrice: 45, Dirtiness: 2, Satisfaction: 3, FrequencyDays: 7, Name: "Brown Home"},
		{ID: "c", X: 10, Y: 0, BasePrice: 75, Dirtiness: 3, Satisfaction: 3, FrequencyDays: 14, Name: "Clark House"},
	}
}

func input(b config.Balance, hs []*town.House, day int, timeLeft float64) Input {
	m := economy.NewModel(b)
	ids := []string{"a", "b", "c"}
	cx, cy := town.NewGrid(b.Town).Center()
	r := route.Plan(hs, ids, route.Options{
		CenterX: cx,
		CenterY: cy,
		Model:   m,
		Weather: weather.Clear,
	})
	return Input{
		Day:      day,
		Houses:   hs,
		Route:    r,
		Selected: ids,
		Weather:  weather.Clear,
		TimeLeft: timeLeft,
		Model:    m,
		RNG:      fixedDraw(0.99),
	}
}

func TestSettleAllServiced(t *testing.T) {
	hs := houses()
	res := Settle(input(config.Default(), hs, 3, 4))

	assert.Equal(t, 3, res.Serviced)
	assert.Zero(t, res.Missed)
	assert.InDelta(t, 179.0, res.Revenue, 1e-9)
	// 3 jobs * 5 supplies + 10 tiles * 2 fuel.
	assert.InDelta(t, 35.0, res.Expenses, 1e-9)
	assert.InDelta(t, 144.0, res.Profit, 1e-9)

	for _, h := range res.Houses {
		assert.Equal(t, 5, h.Satisfaction)
		assert.Equal(t, 3, h.LastServiced)
		assert.Equal(t, 3+h.FrequencyDays, h.NextServiceDay)
	}
	assert.Equal(t, 3, hs[0].Satisfaction, "input houses untouched")
	assert.Empty(t, res.Churned)
}

func TestSettleExpiredDayMissesEverything(t *testing.T) {
	res := Settle(input(config.Default(), houses(), 1, 0))

	assert.Zero(t, res.Serviced)
	assert.Equal(t, 3, res.Missed)
	assert.Zero(t, res.Revenue)
	for _, o := range res.Outcomes {
		assert.False(t, o.Serviced)
		assert.False(t, o.Late, "day 1 is not late for a new customer")
		assert.Equal(t, -1, o.Delta)
	}
	for _, h := range res.Houses {
		assert.Equal(t, 2, h.Satisfaction)
		assert.Zero(t, h.LastServiced)
	}
}

func TestSettleLatePenalty(t *testing.T) {
	hs := houses()
	hs[0].LastServiced = 4
	res := Settle(input(config.Default(), hs, 5, 0))

	deltas := res.SatisfactionChanges
	assert.Equal(t, -1, deltas["a"], "serviced yesterday")
	assert.Equal(t, -4, deltas["b"])
	assert.Equal(t, -4, deltas["c"])
}

func TestSettlePartialCompletion(t *testing.T) {
	b := config.Default()
	b.Time.DayBudget = 0.5
	res := Settle(input(b, houses(), 2, 0.5))

	// Only the first stop (0.2h) fits; the next leg takes it to 0.9h.
	assert.Equal(t, 1, res.Serviced)
	assert.Equal(t, 2, res.Missed)
	assert.True(t, res.Outcomes[2].Serviced, "c is the first stop")
	assert.InDelta(t, 97.5, res.Revenue, 1e-9)
}

func TestSettleChurnsUnhappyHouses(t *testing.T) {
	hs := houses()
	hs[1].Satisfaction = 0
	res := Settle(input(config.Default(), hs, 1, 0))

	assert.Equal(t, []string{"b"}, res.Churned)
	require.Len(t, res.Houses, 2)
	assert.Nil(t, town.Find(res.Houses, "b"))
	assert.Len(t, hs, 3)
}

func TestSettleRainRaisesExpenses(t *testing.T) {
	in := input(config.Default(), houses(), 1, 4)
	in.Weather = weather.Rain
	res := Settle(in)

	assert.InDelta(t, 35.0*1.2, res.Expenses, 1e-9)
	assert.Contains(t, res.Events, "Rainy day increased supply costs")
}

func TestSettleLuckyDay(t *testing.T) {
	b := config.Default()
	in := input(b, houses(), 1, 4)
	in.RNG = fixedDraw(0)
	in.Levels = economy.Levels{economy.PremiumAddon: 1}
	in.Generator = town.NewGenerator(b, entropy.Seeded(1))

	res := Settle(in)

	premium := 0
	for _, id := range []string{"a", "b", "c"} {
		if town.Find(res.Houses, id).Premium {
			premium++
		}
	}
	assert.Equal(t, 1, premium, "one conversion per day")
	require.Len(t, res.NewLeads, 1)
	assert.Len(t, res.Houses, 4)
	assert.Contains(t, res.Events, flavorPool[0])

	lead := res.NewLeads[0]
	inTown := town.Find(res.Houses, lead.ID)
	require.NotNil(t, inTown)
	assert.NotSame(t, inTown, lead)
	inTown.Name = "Renamed"
	assert.NotEqual(t, "Renamed", lead.Name)
}

func TestSettleNoLeadWhenTownFull(t *testing.T) {
	b := config.Default()
	b.Town.MaxHouses = 3
	in := input(b, houses(), 1, 4)
	in.RNG = fixedDraw(0)
	in.Generator = town.NewGenerator(b, entropy.Seeded(1))

	res := Settle(in)
	assert.Empty(t, res.NewLeads)
	assert.Len(t, res.Houses, 3)
}

func TestHeadline(t *testing.T) {
	r := &Result{Day: 4, Profit: 1234.5, Serviced: 6, Missed: 2}
	assert.Equal(t, "Day 4: $1,234.5 profit, 6 serviced, 2 missed", r.Headline())
}
