// Package config holds the game balance: time, economy, satisfaction, town layout,
// house tiers and the upgrade price table. Defaults mirror the shipped game; a YAML
// file and POOPSTER_* environment variables can override them.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Balance is the complete tunable configuration for one game.
type Balance struct {
	Time         Time          `yaml:"time" json:"time"`
	Economy      Economy       `yaml:"economy" json:"economy"`
	Satisfaction Satisfaction  `yaml:"satisfaction" json:"satisfaction"`
	Weather      Weather       `yaml:"weather" json:"weather"`
	Progression  Progression   `yaml:"progression" json:"progression"`
	Marketing    Marketing     `yaml:"marketing" json:"marketing"`
	Town         Town          `yaml:"town" json:"town"`
	Tiers        Tiers         `yaml:"tiers" json:"tiers"`
	Upgrades     []UpgradeCost `yaml:"upgrades" json:"upgrades"`
}

// Time settings, in game hours.
type Time struct {
	DayBudget     float64 `yaml:"day_budget" json:"day_budget"`
	TileDriveTime float64 `yaml:"tile_drive_time" json:"tile_drive_time"`
	BaseScoopTime float64 `yaml:"base_scoop_time" json:"base_scoop_time"`
	HoursPerTick  float64 `yaml:"hours_per_tick" json:"hours_per_tick"` // Countdown step per clock tick
}

type Economy struct {
	StartingCash      float64 `yaml:"starting_cash" json:"starting_cash"`
	FuelCostPerTile   float64 `yaml:"fuel_cost_per_tile" json:"fuel_cost_per_tile"`
	SuppliesPerJob    float64 `yaml:"supplies_per_job" json:"supplies_per_job"`
	WorkerDailyWage   float64 `yaml:"worker_daily_wage" json:"worker_daily_wage"`
	DailyCapacity     int     `yaml:"daily_capacity" json:"daily_capacity"`
	PremiumMultiplier float64 `yaml:"premium_multiplier" json:"premium_multiplier"`
	DirtinessPremium  float64 `yaml:"dirtiness_premium" json:"dirtiness_premium"` // Price bump per dirtiness point
}

type Satisfaction struct {
	Serviced       int `yaml:"serviced" json:"serviced"`
	Missed         int `yaml:"missed" json:"missed"`
	Late           int `yaml:"late" json:"late"`
	LateAfterDays  int `yaml:"late_after_days" json:"late_after_days"`
	ChurnThreshold int `yaml:"churn_threshold" json:"churn_threshold"`
}

type Weather struct {
	RainTimeMultiplier    float64 `yaml:"rain_time_multiplier" json:"rain_time_multiplier"`
	RainFuelMultiplier    float64 `yaml:"rain_fuel_multiplier" json:"rain_fuel_multiplier"`
	RainExpenseMultiplier float64 `yaml:"rain_expense_multiplier" json:"rain_expense_multiplier"`
	HeatFuelMultiplier    float64 `yaml:"heat_fuel_multiplier" json:"heat_fuel_multiplier"`
	ClearChance           float64 `yaml:"clear_chance" json:"clear_chance"`
	RainChance            float64 `yaml:"rain_chance" json:"rain_chance"`
}

type Progression struct {
	ProfitMilestones  []float64 `yaml:"profit_milestones" json:"profit_milestones"`
	FlavorEventChance float64   `yaml:"flavor_event_chance" json:"flavor_event_chance"`
}

type Marketing struct {
	BaseLeadChance float64 `yaml:"base_lead_chance" json:"base_lead_chance"`
	LeadBonus      float64 `yaml:"lead_bonus" json:"lead_bonus"`
}

// Town layout. Road bands repeat every LotSize+RoadWidth cells.
type Town struct {
	Width          int     `yaml:"width" json:"width"`
	Height         int     `yaml:"height" json:"height"`
	RoadWidth      int     `yaml:"road_width" json:"road_width"`
	LotSize        int     `yaml:"lot_size" json:"lot_size"`
	StartingHouses int     `yaml:"starting_houses" json:"starting_houses"`
	MaxHouses      int     `yaml:"max_houses" json:"max_houses"`
	LargeRadius    float64 `yaml:"large_radius" json:"large_radius"`
	MediumRadius   float64 `yaml:"medium_radius" json:"medium_radius"`
	PremiumChance  float64 `yaml:"premium_chance" json:"premium_chance"`
}

// TierSpec describes one house tier.
type TierSpec struct {
	Name          string  `yaml:"name" json:"name"`
	BasePrice     float64 `yaml:"base_price" json:"base_price"`
	MaxDirtiness  int     `yaml:"max_dirtiness" json:"max_dirtiness"`
	FrequencyDays int     `yaml:"frequency_days" json:"frequency_days"`
}

type Tiers struct {
	Small  TierSpec `yaml:"small" json:"small"`
	Medium TierSpec `yaml:"medium" json:"medium"`
	Large  TierSpec `yaml:"large" json:"large"`
}

// UpgradeCost is the price row for one upgrade kind. Effects live in code.
type UpgradeCost struct {
	Kind           string  `yaml:"kind" json:"kind"`
	Name           string  `yaml:"name" json:"name"`
	BaseCost       float64 `yaml:"base_cost" json:"base_cost"`
	CostMultiplier float64 `yaml:"cost_multiplier" json:"cost_multiplier"`
	MaxLevel       int     `yaml:"max_level" json:"max_level"`
}

// Default returns the shipped balance.
func Default() Balance {
	return Balance{
		Time: Time{
			DayBudget:     8,
			TileDriveTime: 0.1,
			BaseScoopTime: 0.2,
			HoursPerTick:  0.1,
		},
		Economy: Economy{
			StartingCash:      1000,
			FuelCostPerTile:   2,
			SuppliesPerJob:    5,
			WorkerDailyWage:   50,
			DailyCapacity:     8,
			PremiumMultiplier: 1.5,
			DirtinessPremium:  0.1,
		},
		Satisfaction: Satisfaction{
			Serviced:       2,
			Missed:         -1,
			Late:           -4,
			LateAfterDays:  1,
			ChurnThreshold: 0,
		},
		Weather: Weather{
			RainTimeMultiplier:    1.2,
			RainFuelMultiplier:    1.1,
			RainExpenseMultiplier: 1.2,
			HeatFuelMultiplier:    1.05,
			ClearChance:           0.7,
			RainChance:            0.15,
		},
		Progression: Progression{
			ProfitMilestones:  []float64{1000, 5000, 15000, 50000, 100000},
			FlavorEventChance: 0.15,
		},
		Marketing: Marketing{
			BaseLeadChance: 0.1,
			LeadBonus:      0.05,
		},
		Town: Town{
			Width:          20,
			Height:         12,
			RoadWidth:      2,
			LotSize:        3,
			StartingHouses: 20,
			MaxHouses:      50,
			LargeRadius:    3,
			MediumRadius:   6,
			PremiumChance:  0.1,
		},
		Tiers: Tiers{
			Small:  TierSpec{Name: "Small House", BasePrice: 25, MaxDirtiness: 3, FrequencyDays: 7},
			Medium: TierSpec{Name: "Medium House", BasePrice: 45, MaxDirtiness: 4, FrequencyDays: 7},
			Large:  TierSpec{Name: "Large House", BasePrice: 75, MaxDirtiness: 5, FrequencyDays: 14},
		},
		Upgrades: []UpgradeCost{
			{Kind: "bag_capacity", Name: "Bag Capacity", BaseCost: 500, CostMultiplier: 1.5, MaxLevel: 5},
			{Kind: "walking_speed", Name: "Walking Speed", BaseCost: 300, CostMultiplier: 1.4, MaxLevel: 5},
			{Kind: "van_speed", Name: "Van Speed", BaseCost: 400, CostMultiplier: 1.6, MaxLevel: 5},
			{Kind: "route_planner", Name: "Route Planner+", BaseCost: 800, CostMultiplier: 2.0, MaxLevel: 3},
			{Kind: "marketing", Name: "Marketing", BaseCost: 600, CostMultiplier: 1.8, MaxLevel: 5},
			{Kind: "worker", Name: "Hire Worker", BaseCost: 2000, CostMultiplier: 1.0, MaxLevel: 1},
			{Kind: "premium_addon", Name: "Premium Add-on", BaseCost: 1500, CostMultiplier: 1.0, MaxLevel: 1},
		},
	}
}

// Load reads a YAML balance file on top of the defaults. Fields missing from
// the file keep their default values.
func Load(path string) (Balance, error) {
	b := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return b, fmt.Errorf("read balance: %w", err)
	}
	if err := yaml.Unmarshal(raw, &b); err != nil {
		return b, fmt.Errorf("parse balance: %w", err)
	}
	if err := b.Validate(); err != nil {
		return b, err
	}
	return b, nil
}

// Validate rejects balances the simulation cannot run with.
func (b Balance) Validate() error {
	if b.Town.Width <= 0 || b.Town.Height <= 0 {
		return fmt.Errorf("town grid must be positive, got %dx%d", b.Town.Width, b.Town.Height)
	}
	if b.Town.RoadWidth < 0 || b.Town.LotSize <= 0 {
		return fmt.Errorf("invalid lot layout: road %d lot %d", b.Town.RoadWidth, b.Town.LotSize)
	}
	if b.Time.DayBudget <= 0 {
		return fmt.Errorf("day budget must be positive, got %v", b.Time.DayBudget)
	}
	if b.Economy.DailyCapacity <= 0 {
		return fmt.Errorf("daily capacity must be positive, got %d", b.Economy.DailyCapacity)
	}
	for _, t := range []TierSpec{b.Tiers.Small, b.Tiers.Medium, b.Tiers.Large} {
		if t.MaxDirtiness < 1 {
			return fmt.Errorf("tier %q: max dirtiness must be at least 1", t.Name)
		}
	}
	return nil
}
