package autopilot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
)

// maxSteps bounds one cycle so a server that never changes state cannot
// keep the bot spinning.
const maxSteps = 40

// ErrNotReady is returned by WaitReady when the API never answers.
var ErrNotReady = errors.New("api not ready")

// Pilot runs observe → decide → act cycles.
type Pilot struct {
	Observer *Observer
	Actor    *Actor
	Policy   Policy
	Memory   *CycleMemory
}

// New builds a Pilot for the API at baseURL.
func New(baseURL, adminKey string, policy Policy, mem *CycleMemory) *Pilot {
	if mem == nil {
		mem = &CycleMemory{}
	}
	return &Pilot{
		Observer: NewObserver(baseURL),
		Actor:    NewActor(baseURL, adminKey),
		Policy:   policy,
		Memory:   mem,
	}
}

// Cycle takes steps until the bot has nothing to do or a day has been
// settled. It returns the actions taken.
func (p *Pilot) Cycle(ctx context.Context) ([]Action, error) {
	var (
		taken  []Action
		result *DayInfo
		cash   float64
		day    int
	)

	for step := 0; step < maxSteps; step++ {
		snap, err := p.Observer.Observe(ctx)
		if err != nil {
			return taken, fmt.Errorf("observe: %w", err)
		}
		cash, day = snap.Status.Cash, snap.Status.Day

		d := Decide(p.Policy, snap)
		if d.Action == ActionNone {
			slog.Debug("autopilot idle", "rationale", d.Rationale)
			break
		}
		slog.Info("autopilot decision", "action", d.Action, "target", d.Target, "rationale", d.Rationale)

		out, err := p.Actor.Act(ctx, d)
		if err != nil {
			return taken, fmt.Errorf("act: %w", err)
		}
		taken = append(taken, d.Action)

		if d.Action == ActionEndDay {
			if result, err = out.DayResult(); err != nil {
				return taken, err
			}
			cash += result.Profit
			break
		}
	}

	if result != nil {
		p.Memory.Add(CycleRecord{
			Day:      result.Day,
			Actions:  taken,
			Cash:     cash,
			Profit:   result.Profit,
			Serviced: result.Serviced,
			Missed:   result.Missed,
		})
		p.Memory.Save()
		slog.Info("autopilot day settled",
			"day", result.Day,
			"profit", "$"+humanize.CommafWithDigits(result.Profit, 2),
			"serviced", result.Serviced,
			"missed", result.Missed,
		)
	} else if len(taken) > 0 {
		slog.Info("autopilot cycle complete", "day", day, "actions", len(taken))
	}
	return taken, nil
}

// WaitReady polls the status endpoint with exponential backoff until it
// responds or the timeout elapses.
func (p *Pilot) WaitReady(ctx context.Context, timeout time.Duration) error {
	backoff := 2 * time.Second
	maxBackoff := 30 * time.Second
	deadline := time.Now().Add(timeout)

	for {
		if p.Observer.Ready(ctx) {
			slog.Info("poopster API is ready")
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w after %s", ErrNotReady, timeout)
		}
		slog.Info("poopster API not ready, retrying", "backoff", backoff)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}
