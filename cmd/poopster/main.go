// Command poopster runs the pet-waste service game server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/talgya/poopster/internal/api"
	"github.com/talgya/poopster/internal/config"
	"github.com/talgya/poopster/internal/engine"
	"github.com/talgya/poopster/internal/entropy"
	"github.com/talgya/poopster/internal/persistence"
	"github.com/talgya/poopster/internal/weather"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	dbPath := envOrDefault("POOPSTER_DB", "data/poopster.db")
	apiPort := envIntOrDefault("POOPSTER_PORT", 8080)

	// ── Balance ───────────────────────────────────────────────────────
	bal := config.Default()
	if path := os.Getenv("POOPSTER_BALANCE"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			slog.Error("failed to load balance", "path", path, "error", err)
			os.Exit(1)
		}
		bal = loaded
		slog.Info("balance loaded", "path", path)
	}
	bal = config.FromEnv(bal)
	if err := bal.Validate(); err != nil {
		slog.Error("invalid balance", "error", err)
		os.Exit(1)
	}

	// ── Randomness and weather ────────────────────────────────────────
	rng := entropy.Crypto()
	var seed int64
	if s := os.Getenv("POOPSTER_SEED"); s != "" {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			slog.Error("POOPSTER_SEED must be an integer", "value", s)
			os.Exit(1)
		}
		seed = n
		rng = entropy.Seeded(seed)
		slog.Info("deterministic game", "seed", seed)
	} else {
		seed = int64(rng.Intn(1 << 30))
	}

	var src weather.Source = weather.NewForecaster(seed, bal.Weather)
	if client := weather.NewClient(os.Getenv("OPENWEATHER_API_KEY"), os.Getenv("OPENWEATHER_LOCATION")); client != nil {
		src = &weather.Live{Client: client, Fallback: src, Timeout: 5 * time.Second}
		slog.Info("live weather enabled")
	} else {
		slog.Info("OPENWEATHER_API_KEY not set, using forecast weather")
	}

	// ── Database ──────────────────────────────────────────────────────
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		slog.Error("failed to create data dir", "error", err)
		os.Exit(1)
	}
	db, err := persistence.Open(dbPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database opened", "path", dbPath)

	saved, err := db.LoadGame()
	switch {
	case errors.Is(err, persistence.ErrCorrupt):
		slog.Warn("saved game is damaged, starting a new one", "error", err)
		saved = nil
	case err != nil:
		slog.Error("failed to load game", "error", err)
		os.Exit(1)
	}

	// ── Game ──────────────────────────────────────────────────────────
	game := engine.NewGame(engine.Options{
		Balance:      bal,
		RNG:          rng,
		Weather:      src,
		Store:        db,
		TickInterval: time.Second,
		AutoEndDay:   true,
	}, saved)

	if saved == nil {
		if err := db.SaveGame(game.Saved()); err != nil {
			slog.Error("initial save failed", "error", err)
		}
	}

	// ── HTTP API ──────────────────────────────────────────────────────
	adminKey := os.Getenv("POOPSTER_ADMIN_KEY")
	if adminKey == "" {
		slog.Warn("POOPSTER_ADMIN_KEY not set, game actions are open to anyone")
	}

	apiServer := &api.Server{
		Game:     game,
		DB:       db,
		Port:     apiPort,
		AdminKey: adminKey,
		Limiter:  api.NewRateLimiter(10, 20),
	}
	apiServer.Start()

	st := game.Snapshot()
	fmt.Printf("\nPoopster is open for business: day %d, $%s in the bank, %d customers.\n",
		st.Day, humanize.CommafWithDigits(st.Cash, 2), len(st.Houses))
	fmt.Printf("API: http://localhost:%d/api/v1/status\n", apiPort)
	fmt.Println("Ctrl+C to stop")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info("received signal, shutting down", "signal", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		slog.Error("HTTP shutdown failed", "error", err)
	}
	game.Close()

	// Final save on shutdown.
	slog.Info("final save...")
	if err := db.SaveGame(game.Saved()); err != nil {
		slog.Error("final save failed", "error", err)
	}

	fmt.Println("Poopster stopped. Game saved.")
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envIntOrDefault(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}
