// Package api provides the HTTP API for playing the game.
// GET endpoints are public. Mutating endpoints require a bearer token when
// an admin key is configured.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/talgya/poopster/internal/daycycle"
	"github.com/talgya/poopster/internal/economy"
	"github.com/talgya/poopster/internal/engine"
	"github.com/talgya/poopster/internal/persistence"
	"github.com/talgya/poopster/internal/route"
	"github.com/talgya/poopster/internal/town"
)

// Server serves the game over HTTP.
type Server struct {
	Game     *engine.Game
	DB       *persistence.DB // Optional; history endpoints fall back to memory
	Port     int
	AdminKey string // Bearer token for mutating endpoints. Empty = open.
	Limiter  *RateLimiter

	srv *http.Server
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	limiter := s.Limiter
	if limiter == nil {
		limiter = NewRateLimiter(10, 20)
	}

	r := chi.NewRouter()
	r.Use(corsMiddleware)
	r.Use(limiter.Middleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/houses", s.handleHouses)
		r.Get("/house/{id}", s.handleHouse)
		r.Get("/route", s.handleRoute)
		r.Get("/upgrades", s.handleUpgrades)
		r.Get("/stats/weekly", s.handleWeekly)
		r.Get("/history", s.handleHistory)
		r.Get("/events", s.handleEvents)
		r.Get("/town/roads", s.handleRoads)

		r.Group(func(r chi.Router) {
			r.Use(s.adminOnly)
			r.Post("/select", s.handleSelect)
			r.Post("/deselect", s.handleDeselect)
			r.Post("/autoplan", s.handleAutoPlan)
			r.Post("/day/start", s.handleStartDay)
			r.Post("/day/end", s.handleEndDay)
			r.Post("/upgrade", s.handleUpgrade)
			r.Post("/reset", s.handleReset)
			r.Patch("/house/{id}", s.handleUpdateHouse)
			r.Delete("/house/{id}", s.handleDropHouse)
		})
	})
	return r
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() {
	addr := fmt.Sprintf(":%d", s.Port)
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "")

	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

// Shutdown stops the server, waiting for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Set CORS_ORIGINS to a comma-separated list of extra allowed origins.
// Localhost dev servers are always allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// checkBearerToken returns true if the request has a valid admin bearer token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly requires the bearer token when an admin key is set.
func (s *Server) adminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.AdminKey != "" && !s.checkBearerToken(r) {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := s.Game.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"day":              st.Day,
		"week":             daycycle.WeekOf(st.Day),
		"cash":             st.Cash,
		"time_left":        st.TimeLeft,
		"is_day_active":    st.DayActive,
		"weather":          st.Weather,
		"daily_capacity":   st.DailyCapacity,
		"selected_houses":  st.Selected,
		"total_customers":  len(st.Houses),
		"avg_satisfaction": town.AverageSatisfaction(st.Houses, 75),
		"totals":           st.Totals,
		"upgrades":         st.Upgrades,
		"milestones":       st.Milestones,
		"last_result":      st.LastResult,
	})
}

func (s *Server) handleHouses(w http.ResponseWriter, r *http.Request) {
	st := s.Game.Snapshot()
	selected := make(map[string]bool, len(st.Selected))
	for _, id := range st.Selected {
		selected[id] = true
	}

	type houseView struct {
		*town.House
		JobPrice float64 `json:"job_price"`
		Selected bool    `json:"selected"`
		Overdue  bool    `json:"overdue"`
	}
	eco := s.Game.Balance().Economy
	out := make([]houseView, 0, len(st.Houses))
	for _, h := range st.Houses {
		out = append(out, houseView{
			House:    h,
			JobPrice: h.JobPrice(eco),
			Selected: selected[h.ID],
			Overdue:  h.Overdue(st.Day),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleHouse(w http.ResponseWriter, r *http.Request) {
	st := s.Game.Snapshot()
	h := town.Find(st.Houses, chi.URLParam(r, "id"))
	if h == nil {
		writeError(w, http.StatusNotFound, "house not found")
		return
	}
	writeJSON(w, http.StatusOK, h)
}

func (s *Server) handleRoute(w http.ResponseWriter, r *http.Request) {
	rt := s.Game.PreviewRoute()
	budget := s.Game.Balance().Time.DayBudget
	writeJSON(w, http.StatusOK, map[string]any{
		"route":     rt,
		"stats":     route.StatsOf(rt),
		"budget":    budget,
		"valid":     route.Valid(rt, budget),
		"reachable": route.Reachable(rt, budget),
	})
}

func (s *Server) handleUpgrades(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Game.Upgrades())
}

func (s *Server) handleWeekly(w http.ResponseWriter, r *http.Request) {
	st := s.Game.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"week":             daycycle.WeekOf(st.Day),
		"summary":          daycycle.Weekly(st.WeekResults),
		"avg_satisfaction": town.AverageSatisfaction(st.Houses, 75),
		"milestones":       st.Milestones,
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 30, 365)
	if s.DB == nil {
		st := s.Game.Snapshot()
		writeJSON(w, http.StatusOK, st.WeekResults)
		return
	}
	rows, err := s.DB.DayHistory(limit)
	if err != nil {
		slog.Error("day history query failed", "error", err)
		writeError(w, http.StatusInternalServerError, "history unavailable")
		return
	}
	if rows == nil {
		rows = []persistence.DayRow{}
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50, 500)
	if s.DB == nil {
		events := s.Game.Snapshot().Events
		out := make([]engine.Event, 0, limit)
		for i := len(events) - 1; i >= 0 && len(out) < limit; i-- {
			out = append(out, events[i])
		}
		writeJSON(w, http.StatusOK, out)
		return
	}
	events, err := s.DB.RecentEvents(limit)
	if err != nil {
		slog.Error("events query failed", "error", err)
		writeError(w, http.StatusInternalServerError, "events unavailable")
		return
	}
	if events == nil {
		events = []engine.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleRoads(w http.ResponseWriter, r *http.Request) {
	g := s.Game.Grid()
	writeJSON(w, http.StatusOK, map[string]any{
		"width":  g.Width,
		"height": g.Height,
		"roads":  s.Game.Roads(),
	})
}

type houseRequest struct {
	HouseID string `json:"house_id"`
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req houseRequest
	if !readJSON(w, r, &req) {
		return
	}
	if err := s.Game.SelectHouse(req.HouseID); err != nil {
		writeActionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"selected_houses": s.Game.Snapshot().Selected})
}

func (s *Server) handleDeselect(w http.ResponseWriter, r *http.Request) {
	var req houseRequest
	if !readJSON(w, r, &req) {
		return
	}
	if err := s.Game.DeselectHouse(req.HouseID); err != nil {
		writeActionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"selected_houses": s.Game.Snapshot().Selected})
}

func (s *Server) handleAutoPlan(w http.ResponseWriter, r *http.Request) {
	added, err := s.Game.AutoPlan()
	if err != nil {
		writeActionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"added":           added,
		"selected_houses": s.Game.Snapshot().Selected,
	})
}

func (s *Server) handleStartDay(w http.ResponseWriter, r *http.Request) {
	rt, err := s.Game.StartDay()
	if err != nil {
		writeActionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"route": rt,
		"stats": route.StatsOf(rt),
	})
}

func (s *Server) handleEndDay(w http.ResponseWriter, r *http.Request) {
	res, err := s.Game.EndDay()
	if err != nil {
		writeActionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Kind string `json:"kind"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	status, err := s.Game.PurchaseUpgrade(economy.Kind(req.Kind))
	if err != nil {
		writeActionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	st := s.Game.Reset()
	if s.DB != nil {
		if err := s.DB.ClearHistory(); err != nil {
			slog.Error("clear history failed", "error", err)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"day":    st.Day,
		"cash":   st.Cash,
		"houses": len(st.Houses),
	})
}

func (s *Server) handleUpdateHouse(w http.ResponseWriter, r *http.Request) {
	var upd engine.CustomerUpdate
	if !readJSON(w, r, &upd) {
		return
	}
	h, err := s.Game.UpdateCustomer(chi.URLParam(r, "id"), upd)
	if err != nil {
		writeActionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h)
}

func (s *Server) handleDropHouse(w http.ResponseWriter, r *http.Request) {
	if err := s.Game.DropCustomer(chi.URLParam(r, "id")); err != nil {
		writeActionError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeActionError maps rejected game actions to status codes.
func writeActionError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, engine.ErrUnknownHouse), errors.Is(err, engine.ErrUnknownUpgrade):
		status = http.StatusNotFound
	case errors.Is(err, engine.ErrInsufficientCash):
		status = http.StatusPaymentRequired
	case errors.Is(err, engine.ErrNoSelection):
		status = http.StatusBadRequest
	case errors.Is(err, engine.ErrDayActive), errors.Is(err, engine.ErrNoActiveDay),
		errors.Is(err, engine.ErrCapacity), errors.Is(err, engine.ErrMaxLevel):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		slog.Error("action failed", "error", err)
	}
	writeError(w, status, err.Error())
}

func readJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<16)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func queryInt(r *http.Request, key string, def, ceiling int) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || n <= 0 {
		return def
	}
	if n > ceiling {
		return ceiling
	}
	return n
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
