package autopilot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Outcome is what the server answered to an action.
type Outcome struct {
	Action Action
	Status int
	Body   []byte
}

// Actor executes decisions via the mutating API.
type Actor struct {
	BaseURL    string
	AdminKey   string
	HTTPClient *http.Client
}

// NewActor creates an Actor targeting the given API base URL with admin auth.
func NewActor(baseURL, adminKey string) *Actor {
	return &Actor{
		BaseURL:  baseURL,
		AdminKey: adminKey,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Act sends the request matching the decision. ActionNone is a no-op.
func (a *Actor) Act(ctx context.Context, d Decision) (*Outcome, error) {
	var (
		path    string
		payload any
	)
	switch d.Action {
	case ActionNone:
		return &Outcome{Action: ActionNone}, nil
	case ActionUpgrade:
		path, payload = "/api/v1/upgrade", map[string]string{"kind": d.Target}
	case ActionAutoPlan:
		path = "/api/v1/autoplan"
	case ActionDeselect:
		path, payload = "/api/v1/deselect", map[string]string{"house_id": d.Target}
	case ActionStartDay:
		path = "/api/v1/day/start"
	case ActionEndDay:
		path = "/api/v1/day/end"
	default:
		return nil, fmt.Errorf("unknown action %q", d.Action)
	}

	body := []byte("{}")
	if payload != nil {
		var err error
		if body, err = json.Marshal(payload); err != nil {
			return nil, fmt.Errorf("marshal %s: %w", d.Action, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if a.AdminKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.AdminKey)
	}

	resp, err := a.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("POST %s: %w", path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s failed (%d): %s", d.Action, resp.StatusCode, bytes.TrimSpace(respBody))
	}
	return &Outcome{Action: d.Action, Status: resp.StatusCode, Body: respBody}, nil
}

// DayResult decodes an end_day response.
func (o *Outcome) DayResult() (*DayInfo, error) {
	if o.Action != ActionEndDay {
		return nil, fmt.Errorf("%s carries no day result", o.Action)
	}
	var d DayInfo
	if err := json.Unmarshal(o.Body, &d); err != nil {
		return nil, fmt.Errorf("decode day result: %w", err)
	}
	return &d, nil
}
