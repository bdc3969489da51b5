package config

import (
	"os"
	"strconv"
)

// FromEnv applies POOPSTER_* overrides on top of b.
// Unset or unparsable variables leave the field alone.
func FromEnv(b Balance) Balance {
	if v, ok := envFloat("POOPSTER_STARTING_CASH"); ok && v >= 0 {
		b.Economy.StartingCash = v
	}
	if v, ok := envInt("POOPSTER_DAILY_CAPACITY"); ok && v > 0 {
		b.Economy.DailyCapacity = v
	}
	if v, ok := envFloat("POOPSTER_DAY_BUDGET"); ok && v > 0 {
		b.Time.DayBudget = v
	}
	if v, ok := envInt("POOPSTER_STARTING_HOUSES"); ok && v >= 0 {
		b.Town.StartingHouses = v
	}
	if v, ok := envInt("POOPSTER_MAX_HOUSES"); ok && v > 0 {
		b.Town.MaxHouses = v
	}

	// Difficulty presets apply after the individual overrides.
	switch os.Getenv("POOPSTER_DIFFICULTY") {
	case "casual":
		b.Economy.StartingCash *= 2
		b.Satisfaction.Late = b.Satisfaction.Missed
	case "hard":
		b.Economy.StartingCash /= 2
		b.Economy.FuelCostPerTile *= 1.5
	}

	return b
}

func envInt(key string) (int, bool) {
	val := os.Getenv(key)
	if val == "" {
		return 0, false
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, false
	}
	return n, true
}

func envFloat(key string) (float64, bool) {
	val := os.Getenv(key)
	if val == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
