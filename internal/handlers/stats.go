package handlers

import (
	"net/http"

	"github.com/diewo77/go-spinning/httpx"
	"github.com/diewo77/go-spinning/internal/services"
	"github.com/diewo77/go-spinning/validation"
)

// StatsHandler serves dashboard aggregates.
type StatsHandler struct {
	stats *services.StatsService
}

func NewStatsHandler(stats *services.StatsService) *StatsHandler {
	return &StatsHandler{stats: stats}
}

func (h *StatsHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/stats", h.Summary)
	mux.HandleFunc("GET /api/stats/daily", h.Grouped)
}

func statsFilter(r *http.Request, v validation.Violations) services.StatsFilter {
	q := r.URL.Query()
	f := services.StatsFilter{
		Unit: validation.ParseInt("unit", q.Get("unit"), v),
		From: validation.ParseOptionalDate("from", q.Get("from"), v),
		To:   validation.ParseOptionalDate("to", q.Get("to"), v),
	}
	if n, ok := validation.ParseOptionalInt("machine", q.Get("machine"), v); ok {
		f.MachineNumber = &n
	}
	return f
}

// Summary returns totals, weighted efficiency and the top performer.
func (h *StatsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	v := make(validation.Violations)
	f := statsFilter(r, v)
	if violations(w, v) {
		return
	}
	sum, err := h.stats.Stats(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	roundSummary(sum)
	httpx.JSON(w, http.StatusOK, sum)
}

// Grouped returns per-date yarn tables (group=yarn, the default), per-machine
// totals (group=machine) or ISO-week rollups (group=week).
func (h *StatsHandler) Grouped(w http.ResponseWriter, r *http.Request) {
	v := make(validation.Violations)
	f := statsFilter(r, v)
	group := r.URL.Query().Get("group")
	switch group {
	case "", "yarn", "machine", "week":
	default:
		v["group"] = "invalid_value"
	}
	if violations(w, v) {
		return
	}

	switch group {
	case "machine":
		machines, err := h.stats.Machines(r.Context(), f)
		if err != nil {
			writeError(w, r, err)
			return
		}
		roundMachines(machines)
		httpx.JSON(w, http.StatusOK, machines)
	case "week":
		weeks, err := h.stats.Weekly(r.Context(), f)
		if err != nil {
			writeError(w, r, err)
			return
		}
		roundWeekly(weeks)
		httpx.JSON(w, http.StatusOK, weeks)
	default:
		days, err := h.stats.Daily(r.Context(), f)
		if err != nil {
			writeError(w, r, err)
			return
		}
		roundDaily(days)
		httpx.JSON(w, http.StatusOK, days)
	}
}
