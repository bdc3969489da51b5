package weather

import (
	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/talgya/poopster/internal/config"
)

// Forecaster derives weather from two simplex noise channels sampled along
// the day axis, so rainy and hot spells last a few days instead of flipping
// every morning. The same seed always produces the same calendar.
type Forecaster struct {
	cfg  config.Weather
	wet  opensimplex.Noise
	warm opensimplex.Noise
}

// Spell length is roughly 1/frequency days.
const spellFrequency = 0.35

// Noise values cluster around 0.5; stretch them before thresholding.
const noiseStretch = 2.2

// NewForecaster creates a deterministic forecaster.
func NewForecaster(seed int64, cfg config.Weather) *Forecaster {
	return &Forecaster{
		cfg:  cfg,
		wet:  opensimplex.NewNormalized(seed),
		warm: opensimplex.NewNormalized(seed + 1),
	}
}

// Forecast returns the weather for the given day.
func (f *Forecaster) Forecast(day int) Kind {
	x := float64(day) * spellFrequency
	wet := stretch(f.wet.Eval2(x, 0))
	warm := stretch(f.warm.Eval2(x, 0))

	heatChance := 1 - f.cfg.ClearChance - f.cfg.RainChance
	switch {
	case wet > 1-f.cfg.RainChance:
		return Rain
	case heatChance > 0 && warm > 1-heatChance:
		return Heat
	default:
		return Clear
	}
}

func stretch(v float64) float64 {
	v = (v-0.5)*noiseStretch + 0.5
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
