package town

import (
	"fmt"
	"strings"

	"github.com/talgya/poopster/internal/config"
)

// Tier classifies a house and drives its price and dirtiness range.
type Tier uint8

const (
	TierSmall Tier = iota
	TierMedium
	TierLarge
)

// String returns the wire name of the tier.
func (t Tier) String() string {
	switch t {
	case TierSmall:
		return "small"
	case TierMedium:
		return "medium"
	case TierLarge:
		return "large"
	default:
		return "unknown"
	}
}

// MarshalText encodes the tier by name.
func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText decodes a tier name.
func (t *Tier) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "small":
		*t = TierSmall
	case "medium":
		*t = TierMedium
	case "large":
		*t = TierLarge
	default:
		return fmt.Errorf("unknown tier %q", string(b))
	}
	return nil
}

// Spec returns the balance row for the tier.
func (t Tier) Spec(tiers config.Tiers) config.TierSpec {
	switch t {
	case TierLarge:
		return tiers.Large
	case TierMedium:
		return tiers.Medium
	default:
		return tiers.Small
	}
}

// House is one serviceable property and its customer record.
type House struct {
	ID        string  `json:"id"`
	X         int     `json:"x"`
	Y         int     `json:"y"`
	Tier      Tier    `json:"tier"`
	BasePrice float64 `json:"base_price"`

	// Dirtiness is in [1, tier max].
	Dirtiness int `json:"dirtiness"`

	// Satisfaction is a running score; it is only clamped for display.
	Satisfaction int  `json:"satisfaction"`
	Premium      bool `json:"premium"`

	// LastServiced is the game day of the last visit, 0 if never.
	LastServiced   int `json:"last_serviced"`
	FrequencyDays  int `json:"frequency_days"`
	NextServiceDay int `json:"next_service_day"`

	Name    string `json:"name"`
	Address string `json:"address"`
	Notes   string `json:"notes,omitempty"`
}

// Position returns the house cell.
func (h *House) Position() Point {
	return Point{X: h.X, Y: h.Y}
}

// JobPrice is what one visit earns: base price bumped per dirtiness point,
// times the premium multiplier for premium customers.
func (h *House) JobPrice(eco config.Economy) float64 {
	price := h.BasePrice * (1 + float64(h.Dirtiness)*eco.DirtinessPremium)
	if h.Premium {
		price *= eco.PremiumMultiplier
	}
	return price
}

// Overdue reports whether the house has gone longer than its service frequency.
func (h *House) Overdue(day int) bool {
	return h.NextServiceDay > 0 && day > h.NextServiceDay
}

// Clone returns a copy of the house.
func (h *House) Clone() *House {
	c := *h
	return &c
}

// CloneAll deep-copies a house list.
func CloneAll(hs []*House) []*House {
	out := make([]*House, len(hs))
	for i, h := range hs {
		out[i] = h.Clone()
	}
	return out
}

// Find returns the house with the given id, or nil.
func Find(hs []*House, id string) *House {
	for _, h := range hs {
		if h.ID == id {
			return h
		}
	}
	return nil
}

// AverageSatisfaction returns the mean satisfaction clamped to 0–100 for display.
// An empty town reports fallback.
func AverageSatisfaction(hs []*House, fallback float64) float64 {
	if len(hs) == 0 {
		return fallback
	}
	total := 0
	for _, h := range hs {
		total += h.Satisfaction
	}
	avg := float64(total) / float64(len(hs))
	if avg < 0 {
		return 0
	}
	if avg > 100 {
		return 100
	}
	return avg
}
