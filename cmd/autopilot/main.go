// Command autopilot plays Poopster through its HTTP API.
// It observes the game, decides on the next step by fixed rules,
// and acts via the admin endpoints.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/talgya/poopster/internal/autopilot"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Configuration from environment.
	apiURL := envOrDefault("POOPSTER_API_URL", "http://localhost:8080")
	adminKey := os.Getenv("POOPSTER_ADMIN_KEY")
	intervalSec := envIntOrDefault("AUTOPILOT_INTERVAL", 30)
	memoryPath := envOrDefault("AUTOPILOT_MEMORY", "autopilot_memory.json")

	policy := autopilot.DefaultPolicy()
	if v := os.Getenv("AUTOPILOT_RESERVE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			policy.Reserve = f
		}
	}
	policy.Patient = os.Getenv("AUTOPILOT_PATIENT") == "1"

	interval := time.Duration(intervalSec) * time.Second

	slog.Info("Poopster autopilot starting",
		"api_url", apiURL,
		"interval", interval,
		"patient", policy.Patient,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pilot := autopilot.New(apiURL, adminKey, policy, autopilot.LoadMemory(memoryPath))

	// The server process may be up before its HTTP listener is.
	slog.Info("waiting for poopster API...")
	if err := pilot.WaitReady(ctx, 5*time.Minute); err != nil {
		slog.Error("poopster API unavailable", "error", err)
		os.Exit(1)
	}

	runCycle(ctx, pilot)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			runCycle(ctx, pilot)
		case <-ctx.Done():
			slog.Info("shutting down")
			fmt.Println(pilot.Memory.Report())
			fmt.Println("Autopilot stopped.")
			return
		}
	}
}

func runCycle(ctx context.Context, pilot *autopilot.Pilot) {
	if _, err := pilot.Cycle(ctx); err != nil {
		slog.Error("autopilot cycle failed", "error", err)
	}
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envIntOrDefault(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return defaultVal
}
