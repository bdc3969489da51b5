package economy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/poopster/internal/config"
	"github.com/talgya/poopster/internal/weather"
)

func TestCatalogCostCurve(t *testing.T) {
	c := NewCatalog(config.Default())
	require.Len(t, c.All(), 7)

	bag, ok := c.Get(BagCapacity)
	require.True(t, ok)
	assert.Equal(t, 500.0, bag.Cost(0))
	assert.Equal(t, 750.0, bag.Cost(1))
	assert.Equal(t, 1125.0, bag.Cost(2))

	worker, ok := c.Get(Worker)
	require.True(t, ok)
	assert.Equal(t, 2000.0, worker.Cost(0))
	assert.False(t, worker.Maxed(0))
	assert.True(t, worker.Maxed(1))
}

func TestEffectFloors(t *testing.T) {
	c := NewCatalog(config.Default())

	assert.InDelta(t, 1.0, c.Effect(BagCapacity, nil), 1e-9)
	assert.InDelta(t, 0.7, c.Effect(BagCapacity, Levels{BagCapacity: 3}), 1e-9)
	assert.InDelta(t, 0.5, c.Effect(BagCapacity, Levels{BagCapacity: 5}), 1e-9)
	assert.InDelta(t, 0.5, c.Effect(BagCapacity, Levels{BagCapacity: 99}), 1e-9, "clamped at max level")

	assert.InDelta(t, 0.6, c.Effect(VanSpeed, Levels{VanSpeed: 5}), 1e-9)
	assert.InDelta(t, 0.85, c.Effect(RoutePlanner, Levels{RoutePlanner: 3}), 1e-9)
	assert.InDelta(t, 0.25, c.Effect(Marketing, Levels{Marketing: 5}), 1e-9)
}

func TestEffectForMissingPriceRow(t *testing.T) {
	b := config.Default()
	b.Upgrades = nil
	c := NewCatalog(b)

	assert.Empty(t, c.All())
	assert.Equal(t, 1.0, c.Effect(VanSpeed, Levels{VanSpeed: 3}))
	assert.Equal(t, 0.0, c.Effect(Marketing, Levels{Marketing: 3}))
}

func TestEstimateBaseline(t *testing.T) {
	m := NewModel(config.Default())

	est := m.Estimate([]float64{99, 5, 5}, nil, weather.Clear)
	require.Len(t, est.StopTimes, 3)
	assert.InDelta(t, 0.2, est.StopTimes[0], 1e-9, "first stop has no drive")
	assert.InDelta(t, 0.7, est.StopTimes[1], 1e-9)
	assert.InDelta(t, 10.0, est.Distance, 1e-9)
	assert.InDelta(t, 1.6, est.Time, 1e-9)
	assert.InDelta(t, 20.0, est.Fuel, 1e-9)
}

func TestEstimateUpgradesAndWeather(t *testing.T) {
	m := NewModel(config.Default())
	levels := Levels{RoutePlanner: 3, VanSpeed: 5, WalkingSpeed: 5}

	est := m.Estimate([]float64{0, 10}, levels, weather.Rain)
	// 10 tiles * 0.85 = 8.5 tiles; drive 8.5*0.1*0.6*1.2; scoop 0.1 each.
	assert.InDelta(t, 8.5, est.Distance, 1e-9)
	assert.InDelta(t, 0.1, est.StopTimes[0], 1e-9)
	assert.InDelta(t, 0.612+0.1, est.StopTimes[1], 1e-9)
	assert.InDelta(t, 8.5*2*1.1, est.Fuel, 1e-9)
}

func TestEstimateEmpty(t *testing.T) {
	est := NewModel(config.Default()).Estimate(nil, nil, weather.Clear)
	assert.Zero(t, est.Time)
	assert.Zero(t, est.Distance)
	assert.Zero(t, est.Fuel)
	assert.Empty(t, est.StopTimes)
}

func TestDayExpenses(t *testing.T) {
	m := NewModel(config.Default())

	e := m.DayExpenses(4, 10, nil, weather.Clear)
	assert.InDelta(t, 20.0, e.Supplies, 1e-9)
	assert.InDelta(t, 30.0, e.Total, 1e-9)
	assert.Zero(t, e.Wages)

	e = m.DayExpenses(4, 10, Levels{Worker: 1, BagCapacity: 5}, weather.Rain)
	assert.InDelta(t, 10*1.2, e.Supplies, 1e-9)
	assert.InDelta(t, 50*1.2, e.Wages, 1e-9)
	assert.InDelta(t, (10+10+50)*1.2, e.Total, 1e-9)
}

func TestLeadChanceAndCapacity(t *testing.T) {
	m := NewModel(config.Default())
	assert.InDelta(t, 0.1, m.LeadChance(nil), 1e-9)
	assert.InDelta(t, 0.2, m.LeadChance(Levels{Marketing: 2}), 1e-9)

	assert.Equal(t, 8, m.Capacity(nil))
	assert.Equal(t, 16, m.Capacity(Levels{Worker: 1}))
}
