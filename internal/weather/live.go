package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const owmEndpoint = "https://api.openweathermap.org/data/2.5/weather"

// Client asks OpenWeatherMap what it is like outside right now.
type Client struct {
	apiKey   string
	location string
	endpoint string
	http     *http.Client
}

// NewClient returns nil when apiKey is empty.
func NewClient(apiKey, location string) *Client {
	if apiKey == "" {
		return nil
	}
	if location == "" {
		location = "Austin,US"
	}
	return &Client{
		apiKey:   apiKey,
		location: location,
		endpoint: owmEndpoint,
		http:     &http.Client{Timeout: 10 * time.Second},
	}
}

// Conditions is the slice of an OpenWeatherMap report the game reads.
type Conditions struct {
	TempC float64
	Group string // OpenWeatherMap condition group, lower case: "rain", "clear", ...
}

type owmReport struct {
	Main struct {
		Temp float64 `json:"temp"`
	} `json:"main"`
	Weather []struct {
		Main string `json:"main"`
	} `json:"weather"`
}

// Current fetches the conditions at the client's location.
func (c *Client) Current(ctx context.Context) (Conditions, error) {
	q := url.Values{}
	q.Set("q", c.location)
	q.Set("appid", c.apiKey)
	q.Set("units", "metric")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return Conditions{}, fmt.Errorf("build weather request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return Conditions{}, fmt.Errorf("weather API call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Conditions{}, fmt.Errorf("weather API error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var rep owmReport
	if err := json.NewDecoder(resp.Body).Decode(&rep); err != nil {
		return Conditions{}, fmt.Errorf("parse weather: %w", err)
	}
	out := Conditions{TempC: rep.Main.Temp}
	if len(rep.Weather) > 0 {
		out.Group = strings.ToLower(rep.Weather[0].Main)
	}
	return out, nil
}

// HeatThreshold is the temperature (C) above which a day counts as a heat wave.
const HeatThreshold = 30.0

// Classify maps real conditions onto a game weather kind. Wet groups win
// over temperature.
func Classify(c Conditions) Kind {
	switch c.Group {
	case "rain", "drizzle", "snow", "thunderstorm":
		return Rain
	}
	if c.TempC > HeatThreshold {
		return Heat
	}
	return Clear
}

// maxSkipDays caps how many game days Live goes without asking the API after
// repeated failures.
const maxSkipDays = 8

// Live looks outside once per game day and falls back to Fallback when the
// API cannot answer. Failures push the next attempt a growing number of
// game days out.
type Live struct {
	Client   *Client
	Fallback Source
	Timeout  time.Duration // Per lookup; zero means the client's own timeout

	mu       sync.Mutex
	days     map[int]Kind
	skip     int
	retryDay int
}

// Forecast returns the weather for day. Repeated calls for the same day
// never reach the network twice.
func (l *Live) Forecast(day int) Kind {
	l.mu.Lock()
	defer l.mu.Unlock()

	if k, ok := l.days[day]; ok {
		return k
	}
	k := l.lookup(day)
	if l.days == nil {
		l.days = make(map[int]Kind)
	}
	for d := range l.days {
		if d < day-1 {
			delete(l.days, d)
		}
	}
	l.days[day] = k
	return k
}

func (l *Live) lookup(day int) Kind {
	if l.Client == nil || day < l.retryDay {
		return l.Fallback.Forecast(day)
	}

	ctx := context.Background()
	if l.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.Timeout)
		defer cancel()
	}
	c, err := l.Client.Current(ctx)
	if err != nil {
		if l.skip == 0 {
			l.skip = 1
		} else if l.skip < maxSkipDays {
			l.skip *= 2
		}
		l.retryDay = day + l.skip
		slog.Warn("live weather unavailable, using forecast", "day", day, "retry_day", l.retryDay, "error", err)
		return l.Fallback.Forecast(day)
	}

	l.skip, l.retryDay = 0, 0
	k := Classify(c)
	slog.Debug("weather observed", "day", day, "temp", c.TempC, "group", c.Group, "kind", k)
	return k
}
