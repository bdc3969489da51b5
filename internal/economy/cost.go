package economy

import (
	"github.com/talgya/poopster/internal/config"
	"github.com/talgya/poopster/internal/weather"
)

// Model prices a working day. Route previews and settlement both go through
// it so the projected and the charged numbers cannot drift apart.
type Model struct {
	Balance config.Balance
	Catalog *Catalog
}

// NewModel builds a cost model for the balance.
func NewModel(b config.Balance) *Model {
	return &Model{Balance: b, Catalog: NewCatalog(b)}
}

// Estimate is the projected cost of driving a route.
type Estimate struct {
	StopTimes []float64 `json:"stop_times"` // Drive plus scoop time per stop, in hours
	Distance  float64   `json:"distance"`   // Tiles, after route-planner savings
	Time      float64   `json:"time"`       // Hours
	Fuel      float64   `json:"fuel"`       // Cash
}

// Estimate prices a route given the straight-line leg length into each stop.
// legs[0] is the leg into the first stop and is treated as zero: the van
// starts the day parked there.
func (m *Model) Estimate(legs []float64, levels Levels, w weather.Kind) Estimate {
	fx := weather.EffectsFor(w, m.Balance.Weather)
	distMult := m.Catalog.Effect(RoutePlanner, levels)
	driveMult := m.Catalog.Effect(VanSpeed, levels) * fx.DriveTime
	scoop := m.Balance.Time.BaseScoopTime * m.Catalog.Effect(WalkingSpeed, levels)

	est := Estimate{StopTimes: make([]float64, len(legs))}
	for i, leg := range legs {
		if i == 0 {
			leg = 0
		}
		d := leg * distMult
		t := d*m.Balance.Time.TileDriveTime*driveMult + scoop
		est.StopTimes[i] = t
		est.Distance += d
		est.Time += t
	}
	est.Fuel = est.Distance * m.Balance.Economy.FuelCostPerTile * fx.Fuel
	return est
}

// Expenses is the day's cost breakdown.
type Expenses struct {
	Supplies float64 `json:"supplies"`
	Fuel     float64 `json:"fuel"`
	Wages    float64 `json:"wages"`
	Total    float64 `json:"total"`
}

// SuppliesPerJob is the bag cost of one visit after the bag-capacity discount.
func (m *Model) SuppliesPerJob(levels Levels) float64 {
	return m.Balance.Economy.SuppliesPerJob * m.Catalog.Effect(BagCapacity, levels)
}

// DayExpenses totals the cost of a day with the given number of completed jobs
// and route fuel. Weather multiplies the whole bill.
func (m *Model) DayExpenses(jobs int, fuel float64, levels Levels, w weather.Kind) Expenses {
	e := Expenses{
		Supplies: float64(jobs) * m.SuppliesPerJob(levels),
		Fuel:     fuel,
	}
	if levels.Level(Worker) > 0 {
		e.Wages = m.Balance.Economy.WorkerDailyWage
	}
	mult := weather.EffectsFor(w, m.Balance.Weather).Expenses
	e.Supplies *= mult
	e.Fuel *= mult
	e.Wages *= mult
	e.Total = e.Supplies + e.Fuel + e.Wages
	return e
}

// LeadChance is the probability of a new customer appearing overnight.
func (m *Model) LeadChance(levels Levels) float64 {
	return m.Balance.Marketing.BaseLeadChance + m.Catalog.Effect(Marketing, levels)
}

// Capacity is the number of houses the crew can take on in a day.
func (m *Model) Capacity(levels Levels) int {
	base := m.Balance.Economy.DailyCapacity
	if mult := m.Catalog.Effect(Worker, levels); mult > 1 {
		return int(float64(base) * mult)
	}
	return base
}
