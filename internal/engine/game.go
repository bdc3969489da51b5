package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/talgya/poopster/internal/config"
	"github.com/talgya/poopster/internal/daycycle"
	"github.com/talgya/poopster/internal/economy"
	"github.com/talgya/poopster/internal/entropy"
	"github.com/talgya/poopster/internal/route"
	"github.com/talgya/poopster/internal/town"
	"github.com/talgya/poopster/internal/weather"
)

// Rejected actions. The API maps these to 4xx responses.
var (
	ErrDayActive        = errors.New("a working day is in progress")
	ErrNoActiveDay      = errors.New("no working day in progress")
	ErrNoSelection      = errors.New("no houses selected")
	ErrCapacity         = errors.New("daily capacity reached")
	ErrUnknownHouse     = errors.New("unknown house")
	ErrUnknownUpgrade   = errors.New("unknown upgrade")
	ErrMaxLevel         = errors.New("upgrade already at max level")
	ErrInsufficientCash = errors.New("not enough cash")
)

// Options configure a Game.
type Options struct {
	Balance config.Balance
	RNG     entropy.Source // Defaults to crypto/rand
	Weather weather.Source // Defaults to a forecaster seeded from RNG
	Store   Store          // Optional

	// TickInterval is the real time per countdown tick. Zero disables the
	// clock; the day then only advances through Tick.
	TickInterval time.Duration
	// AutoEndDay settles the day as soon as the countdown reaches zero.
	AutoEndDay bool
}

// Game holds the state of one business and serialises every action on it.
type Game struct {
	mu    sync.Mutex
	state State

	bal     config.Balance
	model   *economy.Model
	gen     *town.Generator
	rng     entropy.Source
	weather weather.Source
	store   Store

	tickInterval time.Duration
	autoEndDay   bool
	weatherDay   int // Day state.Weather was forecast for
	ctx          context.Context
	cancel       context.CancelFunc
	clock        *Clock
}

// NewGame starts a fresh game, or resumes saved when it is non-nil and sane.
func NewGame(opts Options, saved *Saved) *Game {
	rng := opts.RNG
	if rng == nil {
		rng = entropy.Crypto()
	}
	src := opts.Weather
	if src == nil {
		src = weather.NewForecaster(int64(rng.Intn(1<<30)), opts.Balance.Weather)
	}

	ctx, cancel := context.WithCancel(context.Background())
	g := &Game{
		bal:          opts.Balance,
		model:        economy.NewModel(opts.Balance),
		gen:          town.NewGenerator(opts.Balance, rng),
		rng:          rng,
		weather:      src,
		store:        opts.Store,
		tickInterval: opts.TickInterval,
		autoEndDay:   opts.AutoEndDay,
		ctx:          ctx,
		cancel:       cancel,
	}

	if saved != nil && saved.Version == SaveVersion && saved.Day >= 1 {
		g.state = g.restored(saved)
		slog.Info("game resumed", "day", saved.Day, "cash", humanize.Commaf(saved.Cash), "houses", len(saved.Houses))
	} else {
		g.state = g.fresh()
		slog.Info("new game", "houses", len(g.state.Houses), "weather", g.state.Weather)
	}
	g.weatherDay = g.state.Day
	return g
}

func (g *Game) fresh() State {
	return State{
		Day:           1,
		Cash:          g.bal.Economy.StartingCash,
		Houses:        g.gen.Generate(),
		Selected:      []string{},
		DailyCapacity: g.bal.Economy.DailyCapacity,
		Upgrades:      economy.Levels{},
		Weather:       g.weather.Forecast(1),
		WeekResults:   []*daycycle.Result{},
		Milestones:    []float64{},
		Events:        []Event{},
	}
}

func (g *Game) restored(s *Saved) State {
	st := State{
		Day:           s.Day,
		Cash:          s.Cash,
		Houses:        town.CloneAll(s.Houses),
		Selected:      []string{},
		DailyCapacity: s.DailyCapacity,
		Upgrades:      s.Upgrades.Clone(),
		Totals:        s.Totals,
		Weather:       s.Weather,
		WeekResults:   []*daycycle.Result{},
		Milestones:    append([]float64{}, s.Milestones...),
		Events:        []Event{},
	}
	if st.DailyCapacity <= 0 {
		st.DailyCapacity = g.model.Capacity(st.Upgrades)
	}
	if _, err := weather.Parse(string(st.Weather)); err != nil || st.Weather == "" {
		st.Weather = g.weather.Forecast(st.Day)
	}
	return st
}

// Close stops the countdown and releases the game's background work.
func (g *Game) Close() {
	g.mu.Lock()
	c := g.clock
	g.clock = nil
	g.mu.Unlock()

	g.cancel()
	if c != nil {
		c.Stop()
	}
}

// Balance returns the configuration the game runs with.
func (g *Game) Balance() config.Balance {
	return g.bal
}

// Snapshot returns a deep copy of the state.
func (g *Game) Snapshot() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state.clone()
}

// Saved returns the persisted subset of the state.
func (g *Game) Saved() Saved {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.savedLocked()
}

func (g *Game) savedLocked() Saved {
	return Saved{
		Version:       SaveVersion,
		Day:           g.state.Day,
		Cash:          g.state.Cash,
		Houses:        town.CloneAll(g.state.Houses),
		Upgrades:      g.state.Upgrades.Clone(),
		Totals:        g.state.Totals,
		DailyCapacity: g.state.DailyCapacity,
		Weather:       g.state.Weather,
		Milestones:    append([]float64{}, g.state.Milestones...),
		SavedAt:       time.Now().UTC(),
	}
}

// SelectHouse adds a house to the day's selection. Selecting an already
// selected house is a no-op.
func (g *Game) SelectHouse(id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state.DayActive {
		return ErrDayActive
	}
	if town.Find(g.state.Houses, id) == nil {
		return fmt.Errorf("select %q: %w", id, ErrUnknownHouse)
	}
	if g.selectedLocked(id) {
		return nil
	}
	if len(g.state.Selected) >= g.state.DailyCapacity {
		return ErrCapacity
	}
	g.state.Selected = append(g.state.Selected, id)
	return nil
}

// DeselectHouse removes a house from the selection.
func (g *Game) DeselectHouse(id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state.DayActive {
		return ErrDayActive
	}
	g.state.Selected = without(g.state.Selected, id)
	return nil
}

func (g *Game) selectedLocked(id string) bool {
	for _, s := range g.state.Selected {
		if s == id {
			return true
		}
	}
	return false
}

func without(ids []string, id string) []string {
	out := ids[:0]
	for _, s := range ids {
		if s != id {
			out = append(out, s)
		}
	}
	return out
}

// AutoPlan fills the remaining capacity with the unselected houses that pay
// best for the time they take. It returns the ids it added.
func (g *Game) AutoPlan() ([]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state.DayActive {
		return nil, ErrDayActive
	}

	var pool []*town.House
	for _, h := range g.state.Houses {
		if !g.selectedLocked(h.ID) {
			pool = append(pool, h)
		}
	}
	score := func(h *town.House) float64 {
		return h.BasePrice / (float64(h.Dirtiness)*0.1 + 1)
	}
	sort.SliceStable(pool, func(i, j int) bool { return score(pool[i]) > score(pool[j]) })

	room := g.state.DailyCapacity - len(g.state.Selected)
	if room < 0 {
		room = 0
	}
	if room < len(pool) {
		pool = pool[:room]
	}

	added := make([]string, 0, len(pool))
	for _, h := range pool {
		g.state.Selected = append(g.state.Selected, h.ID)
		added = append(added, h.ID)
	}
	return added, nil
}

// routeOptions starts the van from the middle of the grid.
func (g *Game) routeOptions() route.Options {
	cx, cy := g.gen.Grid.Center()
	return route.Options{
		CenterX: cx,
		CenterY: cy,
		Model:   g.model,
		Levels:  g.state.Upgrades,
		Weather: g.state.Weather,
	}
}

func (g *Game) planLocked() *route.Route {
	opts := g.routeOptions()
	return route.Improve(route.Plan(g.state.Houses, g.state.Selected, opts), opts)
}

// PreviewRoute plans the current selection without changing anything. While
// a day is running it returns the committed route.
func (g *Game) PreviewRoute() *route.Route {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state.DayActive && g.state.Route != nil {
		return g.state.Route.Clone()
	}
	return g.planLocked()
}

// StartDay commits the route for the selection and starts the countdown.
func (g *Game) StartDay() (*route.Route, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state.DayActive {
		return nil, ErrDayActive
	}
	if len(g.state.Selected) == 0 {
		return nil, ErrNoSelection
	}

	// The forecast for today may still be in flight from the last settlement.
	if g.weatherDay != g.state.Day {
		g.state.Weather = g.weather.Forecast(g.state.Day)
		g.weatherDay = g.state.Day
	}

	r := g.planLocked()
	g.state.Route = r
	g.state.TimeLeft = g.bal.Time.DayBudget
	g.state.DayActive = true

	if g.tickInterval > 0 {
		day := g.state.Day
		c := NewClock(g.tickInterval, g.bal.Time.HoursPerTick, func(h float64) bool {
			return g.tickDay(day, h)
		})
		if g.autoEndDay {
			c.OnExpire = func() { g.expireDay(day) }
		}
		g.clock = c
		c.Start(g.ctx)
	}

	stats := route.StatsOf(r)
	slog.Info("day started",
		"day", g.state.Day,
		"houses", stats.Houses,
		"distance", stats.Distance,
		"hours", stats.Time,
		"projected_revenue", humanize.Commaf(stats.Revenue),
		"weather", g.state.Weather,
	)
	if !route.Valid(r, g.bal.Time.DayBudget) {
		slog.Warn("route exceeds the day budget", "hours", stats.Time, "budget", g.bal.Time.DayBudget)
	}
	return r.Clone(), nil
}

// Tick takes hours off the running day, stopping at zero. It reports whether
// the day still has time left. With AutoEndDay set, the tick that empties
// the clock also settles the day.
func (g *Game) Tick(hours float64) bool {
	g.mu.Lock()
	if g.tickLocked(hours) {
		g.mu.Unlock()
		return true
	}
	if !g.autoEndDay || !g.state.DayActive {
		g.mu.Unlock()
		return false
	}
	end := g.endDayLocked()
	g.mu.Unlock()

	g.finishDay(end)
	return false
}

func (g *Game) tickDay(day int, hours float64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state.Day != day {
		return false
	}
	return g.tickLocked(hours)
}

func (g *Game) tickLocked(hours float64) bool {
	if !g.state.DayActive {
		return false
	}
	g.state.TimeLeft -= hours
	if g.state.TimeLeft <= 0 {
		g.state.TimeLeft = 0
		return false
	}
	return true
}

// dayEnd carries what is left to do after the lock is released.
type dayEnd struct {
	result  *daycycle.Result
	clock   *Clock
	events  []Event
	nextDay int
}

// EndDay settles the running day and moves on to the next one.
func (g *Game) EndDay() (*daycycle.Result, error) {
	g.mu.Lock()
	if !g.state.DayActive {
		g.mu.Unlock()
		return nil, ErrNoActiveDay
	}
	end := g.endDayLocked()
	g.mu.Unlock()

	g.finishDay(end)
	return end.result, nil
}

func (g *Game) expireDay(day int) {
	g.mu.Lock()
	if !g.state.DayActive || g.state.Day != day {
		g.mu.Unlock()
		return
	}
	end := g.endDayLocked()
	g.mu.Unlock()

	g.finishDay(end)
}

// endDayLocked closes the day. Marking the day inactive first means a tick
// that is already waiting on the lock finds nothing to count down.
func (g *Game) endDayLocked() dayEnd {
	st := &g.state
	st.DayActive = false

	end := dayEnd{clock: g.clock}
	g.clock = nil

	res := daycycle.Settle(daycycle.Input{
		Day:       st.Day,
		Houses:    st.Houses,
		Route:     st.Route,
		Selected:  st.Selected,
		Levels:    st.Upgrades,
		Weather:   st.Weather,
		TimeLeft:  st.TimeLeft,
		Model:     g.model,
		Generator: g.gen,
		RNG:       g.rng,
	})
	end.result = res

	before := st.Totals.Profit
	st.Cash += res.Profit
	st.Totals.Revenue += res.Revenue
	st.Totals.Expenses += res.Expenses
	st.Totals.Profit += res.Profit
	st.Totals.Serviced += res.Serviced
	st.Totals.Missed += res.Missed
	st.Houses = res.Houses
	res.Houses = nil

	if len(st.WeekResults) > 0 && daycycle.WeekOf(st.WeekResults[0].Day) != daycycle.WeekOf(res.Day) {
		st.WeekResults = []*daycycle.Result{}
	}
	st.WeekResults = append(st.WeekResults, res)
	st.LastResult = res

	var events []Event
	events = append(events, Event{Day: res.Day, Description: res.Headline(), Category: "day"})
	for _, desc := range res.Events {
		events = append(events, Event{Day: res.Day, Description: desc, Category: "day"})
	}
	for _, id := range res.Churned {
		events = append(events, Event{Day: res.Day, Description: fmt.Sprintf("Customer %s cancelled service", id), Category: "customer"})
	}

	milestones := g.bal.Progression.ProfitMilestones
	for _, m := range daycycle.Crossed(before, st.Totals.Profit, milestones) {
		events = append(events, Event{
			Day:         res.Day,
			Description: fmt.Sprintf("Milestone reached: $%s total profit", humanize.Commaf(m)),
			Category:    "milestone",
		})
	}
	st.Milestones = daycycle.Milestones(st.Totals.Profit, milestones)
	g.appendEventsLocked(events)
	end.events = events

	st.Day++
	st.TimeLeft = 0
	st.Selected = []string{}
	st.Route = nil
	end.nextDay = st.Day

	slog.Info("day settled",
		"day", res.Day,
		"revenue", humanize.Commaf(res.Revenue),
		"expenses", humanize.Commaf(res.Expenses),
		"profit", humanize.Commaf(res.Profit),
		"serviced", res.Serviced,
		"missed", res.Missed,
		"churned", len(res.Churned),
		"leads", len(res.NewLeads),
		"cash", humanize.Commaf(st.Cash),
	)
	return end
}

// finishDay runs the slow tail of a settlement outside the lock: waiting
// for the clock, fetching the next forecast and saving.
func (g *Game) finishDay(end dayEnd) {
	if end.clock != nil {
		end.clock.Stop()
	}

	w := g.weather.Forecast(end.nextDay)

	g.mu.Lock()
	if g.state.Day == end.nextDay && g.weatherDay != end.nextDay {
		g.state.Weather = w
		g.weatherDay = end.nextDay
	}
	saved := g.savedLocked()
	g.mu.Unlock()

	g.persist(saved, end.result, end.events)
}

func (g *Game) persist(saved Saved, res *daycycle.Result, events []Event) {
	if g.store == nil {
		return
	}
	if res != nil {
		if err := g.store.RecordDay(res); err != nil {
			slog.Error("record day failed", "day", res.Day, "error", err)
		}
	}
	if err := g.store.RecordEvents(events); err != nil {
		slog.Error("record events failed", "error", err)
	}
	if err := g.store.SaveGame(saved); err != nil {
		slog.Error("save game failed", "day", saved.Day, "error", err)
	}
}

func (g *Game) appendEventsLocked(events []Event) {
	g.state.Events = append(g.state.Events, events...)
	if n := len(g.state.Events); n > maxEvents {
		g.state.Events = append([]Event{}, g.state.Events[n-maxEvents:]...)
	}
}

// PurchaseUpgrade buys the next level of an upgrade.
func (g *Game) PurchaseUpgrade(kind economy.Kind) (UpgradeStatus, error) {
	g.mu.Lock()

	u, ok := g.model.Catalog.Get(kind)
	if !ok {
		g.mu.Unlock()
		return UpgradeStatus{}, fmt.Errorf("purchase %q: %w", kind, ErrUnknownUpgrade)
	}
	level := g.state.Upgrades.Level(kind)
	if u.Maxed(level) {
		g.mu.Unlock()
		return UpgradeStatus{}, fmt.Errorf("purchase %s: %w", kind, ErrMaxLevel)
	}
	cost := u.Cost(level)
	if g.state.Cash < cost {
		g.mu.Unlock()
		return UpgradeStatus{}, fmt.Errorf("purchase %s for $%s: %w", kind, humanize.Commaf(cost), ErrInsufficientCash)
	}

	g.state.Cash -= cost
	g.state.Upgrades[kind] = level + 1
	if kind == economy.Worker {
		g.state.DailyCapacity = g.model.Capacity(g.state.Upgrades)
	}

	ev := Event{
		Day:         g.state.Day,
		Description: fmt.Sprintf("Bought %s level %d for $%s", u.Name, level+1, humanize.Commaf(cost)),
		Category:    "upgrade",
	}
	g.appendEventsLocked([]Event{ev})
	status := g.upgradeStatusLocked(u)
	saved := g.savedLocked()
	g.mu.Unlock()

	slog.Info("upgrade purchased", "kind", kind, "level", level+1, "cost", humanize.Commaf(cost))
	g.persist(saved, nil, []Event{ev})
	return status, nil
}

// Upgrades lists the catalog with the owned levels and next prices.
func (g *Game) Upgrades() []UpgradeStatus {
	g.mu.Lock()
	defer g.mu.Unlock()

	all := g.model.Catalog.All()
	out := make([]UpgradeStatus, 0, len(all))
	for _, u := range all {
		out = append(out, g.upgradeStatusLocked(u))
	}
	return out
}

func (g *Game) upgradeStatusLocked(u economy.Upgrade) UpgradeStatus {
	level := g.state.Upgrades.Level(u.Kind)
	s := UpgradeStatus{
		Kind:        u.Kind,
		Name:        u.Name,
		Description: u.Description,
		Level:       level,
		MaxLevel:    u.MaxLevel,
		Maxed:       u.Maxed(level),
	}
	if !s.Maxed {
		s.NextCost = u.Cost(level)
		s.Affordable = g.state.Cash >= s.NextCost
	}
	return s
}

// UpdateCustomer edits a house's customer record.
func (g *Game) UpdateCustomer(id string, upd CustomerUpdate) (*town.House, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	h := town.Find(g.state.Houses, id)
	if h == nil {
		return nil, fmt.Errorf("update %q: %w", id, ErrUnknownHouse)
	}
	if upd.Name != nil {
		h.Name = *upd.Name
	}
	if upd.Address != nil {
		h.Address = *upd.Address
	}
	if upd.Notes != nil {
		h.Notes = *upd.Notes
	}
	if upd.NextServiceDay != nil {
		h.NextServiceDay = *upd.NextServiceDay
	}
	return h.Clone(), nil
}

// DropCustomer removes a house from the town. Not allowed mid-day.
func (g *Game) DropCustomer(id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state.DayActive {
		return ErrDayActive
	}
	h := town.Find(g.state.Houses, id)
	if h == nil {
		return fmt.Errorf("drop %q: %w", id, ErrUnknownHouse)
	}

	kept := make([]*town.House, 0, len(g.state.Houses)-1)
	for _, x := range g.state.Houses {
		if x.ID != id {
			kept = append(kept, x)
		}
	}
	g.state.Houses = kept
	g.state.Selected = without(g.state.Selected, id)
	g.appendEventsLocked([]Event{{
		Day:         g.state.Day,
		Description: fmt.Sprintf("Dropped %s at %s", h.Name, h.Address),
		Category:    "customer",
	}})
	return nil
}

// Reset throws the business away and starts over with a new town.
func (g *Game) Reset() State {
	g.mu.Lock()
	c := g.clock
	g.clock = nil
	g.state = g.fresh()
	g.weatherDay = g.state.Day
	snap := g.state.clone()
	saved := g.savedLocked()
	g.mu.Unlock()

	if c != nil {
		c.Stop()
	}
	slog.Info("game reset", "houses", len(snap.Houses))
	g.persist(saved, nil, nil)
	return snap
}

// WeeklySummary totals the current week.
func (g *Game) WeeklySummary() daycycle.Summary {
	g.mu.Lock()
	defer g.mu.Unlock()
	return daycycle.Weekly(g.state.WeekResults)
}

// Roads lists the road cells of the town.
func (g *Game) Roads() []town.Point {
	return g.gen.Grid.Roads()
}

// Grid returns the town layout.
func (g *Game) Grid() town.Grid {
	return g.gen.Grid
}
