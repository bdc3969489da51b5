// Package autopilot implements a bot that plays the game through the HTTP
// API. Each cycle observes the game, decides on one action by fixed rules
// and acts through the mutating endpoints.
package autopilot

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Snapshot holds all data collected during an observation.
type Snapshot struct {
	Status   Status        `json:"status"`
	Upgrades []UpgradeInfo `json:"upgrades"`
	Route    RouteView     `json:"route"`
}

// Status mirrors GET /api/v1/status.
type Status struct {
	Day             int      `json:"day"`
	Week            int      `json:"week"`
	Cash            float64  `json:"cash"`
	TimeLeft        float64  `json:"time_left"`
	DayActive       bool     `json:"is_day_active"`
	Weather         string   `json:"weather"`
	DailyCapacity   int      `json:"daily_capacity"`
	Selected        []string `json:"selected_houses"`
	TotalCustomers  int      `json:"total_customers"`
	AvgSatisfaction float64  `json:"avg_satisfaction"`
	LastResult      *DayInfo `json:"last_result"`
}

// DayInfo is the part of a settled day the bot reads.
type DayInfo struct {
	Day      int     `json:"day"`
	Revenue  float64 `json:"revenue"`
	Expenses float64 `json:"expenses"`
	Profit   float64 `json:"profit"`
	Serviced int     `json:"houses_serviced"`
	Missed   int     `json:"houses_missed"`
}

// UpgradeInfo mirrors items from GET /api/v1/upgrades.
type UpgradeInfo struct {
	Kind     string  `json:"kind"`
	Level    int     `json:"level"`
	MaxLevel int     `json:"max_level"`
	NextCost float64 `json:"next_cost"`
	Maxed    bool    `json:"maxed"`
}

// RouteView mirrors GET /api/v1/route.
type RouteView struct {
	Route     PlannedRoute `json:"route"`
	Budget    float64      `json:"budget"`
	Valid     bool         `json:"valid"`
	Reachable int          `json:"reachable"`
}

// PlannedRoute is the previewed tour.
type PlannedRoute struct {
	Stops []RouteStop `json:"stops"`
	Time  float64     `json:"time"`
}

type RouteStop struct {
	HouseID string `json:"house_id"`
}

// Observer fetches game state from the API.
type Observer struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewObserver creates an Observer targeting the given API base URL.
func NewObserver(baseURL string) *Observer {
	return &Observer{
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Observe fetches the status, upgrade and route endpoints.
func (o *Observer) Observe(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{}

	if err := o.fetchJSON(ctx, "/api/v1/status", &snap.Status); err != nil {
		return nil, fmt.Errorf("fetch status: %w", err)
	}
	if err := o.fetchJSON(ctx, "/api/v1/upgrades", &snap.Upgrades); err != nil {
		return nil, fmt.Errorf("fetch upgrades: %w", err)
	}
	if err := o.fetchJSON(ctx, "/api/v1/route", &snap.Route); err != nil {
		return nil, fmt.Errorf("fetch route: %w", err)
	}

	return snap, nil
}

// Ready reports whether the status endpoint answers with 200.
func (o *Observer) Ready(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.BaseURL+"/api/v1/status", nil)
	if err != nil {
		return false
	}
	resp, err := o.HTTPClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// fetchJSON GETs a path and decodes the JSON response into target.
func (o *Observer) fetchJSON(ctx context.Context, path string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := o.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("GET %s returned %d: %s", path, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
