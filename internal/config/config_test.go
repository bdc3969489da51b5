package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	b := Default()
	require.NoError(t, b.Validate())
	assert.Equal(t, 20, b.Town.Width)
	assert.Equal(t, 12, b.Town.Height)
	assert.Len(t, b.Upgrades, 7)
	assert.Less(t, b.Satisfaction.Late, b.Satisfaction.Missed, "late penalty must be harsher")
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "balance.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
economy:
  starting_cash: 250
town:
  width: 30
`), 0o644))

	b, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 250.0, b.Economy.StartingCash)
	assert.Equal(t, 30, b.Town.Width)
	// Untouched fields keep their defaults.
	assert.Equal(t, 12, b.Town.Height)
	assert.Equal(t, 5.0, b.Economy.SuppliesPerJob)
}

func TestLoadRejectsBrokenGrid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "balance.yaml")
	require.NoError(t, os.WriteFile(path, []byte("town:\n  width: 0\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestFromEnv(t *testing.T) {
	t.Setenv("POOPSTER_STARTING_CASH", "42")
	t.Setenv("POOPSTER_DAILY_CAPACITY", "not-a-number")
	t.Setenv("POOPSTER_MAX_HOUSES", "12")

	b := FromEnv(Default())
	assert.Equal(t, 42.0, b.Economy.StartingCash)
	assert.Equal(t, 8, b.Economy.DailyCapacity)
	assert.Equal(t, 12, b.Town.MaxHouses)
}

func TestFromEnvDifficulty(t *testing.T) {
	t.Setenv("POOPSTER_DIFFICULTY", "hard")

	b := FromEnv(Default())
	assert.Equal(t, 500.0, b.Economy.StartingCash)
	assert.InDelta(t, 3.0, b.Economy.FuelCostPerTile, 1e-9)
}
