package handlers

import (
	"net/http"
	"time"

	"github.com/diewo77/go-spinning/httpx"
	"github.com/diewo77/go-spinning/internal/services"
	"github.com/diewo77/go-spinning/validation"
)

// MachineHandler serves the machine registry and its configuration history.
type MachineHandler struct {
	machines *services.MachineService
	history  *services.HistoryService
}

func NewMachineHandler(machines *services.MachineService, history *services.HistoryService) *MachineHandler {
	return &MachineHandler{machines: machines, history: history}
}

// Register mounts the read routes on mux and the write routes behind guard.
func (h *MachineHandler) Register(mux *http.ServeMux, guard func(http.Handler) http.Handler) {
	mux.HandleFunc("GET /api/machines", h.List)
	mux.HandleFunc("GET /api/machines/{id}", h.Get)
	mux.HandleFunc("GET /api/machines/{id}/history", h.History)
	mux.HandleFunc("GET /api/machines/{id}/config", h.ConfigAt)
	mux.Handle("POST /api/machines", guard(http.HandlerFunc(h.Create)))
	mux.Handle("PATCH /api/machines/{id}", guard(http.HandlerFunc(h.Update)))
	mux.Handle("POST /api/machines/{id}/deactivate", guard(http.HandlerFunc(h.Deactivate)))
	mux.Handle("POST /api/machines/{id}/activate", guard(http.HandlerFunc(h.Activate)))
}

type machineRequest struct {
	Unit               scalar `json:"unit"`
	MachineNumber      scalar `json:"machine_number"`
	Name               string `json:"name"`
	YarnType           string `json:"yarn_type"`
	SpindleCount       scalar `json:"spindle_count"`
	Speed              scalar `json:"speed"`
	RatedProduction100 scalar `json:"rated_production_100"`
}

type machinePatchRequest struct {
	MachineNumber      scalar  `json:"machine_number"`
	Name               *string `json:"name"`
	YarnType           *string `json:"yarn_type"`
	SpindleCount       scalar  `json:"spindle_count"`
	Speed              scalar  `json:"speed"`
	RatedProduction100 scalar  `json:"rated_production_100"`
	ClearRating        bool    `json:"clear_rating"`
}

func (h *MachineHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	v := make(validation.Violations)
	unit, _ := validation.ParseOptionalInt("unit", q.Get("unit"), v)
	if violations(w, v) {
		return
	}
	machines, err := h.machines.List(r.Context(), services.MachineFilter{
		Unit:            unit,
		IncludeInactive: validation.ParseBool(q.Get("include_inactive")),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, machines)
}

func (h *MachineHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.JSONError(w, http.StatusNotFound, "machine_not_found", nil)
		return
	}
	m, err := h.machines.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, m)
}

func (h *MachineHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req machineRequest
	if !decodeBody(w, r, &req) {
		return
	}
	v := make(validation.Violations)
	in := services.MachineInput{
		Unit:               req.Unit.int("unit", v),
		MachineNumber:      req.MachineNumber.int("machine_number", v),
		Name:               req.Name,
		YarnType:           req.YarnType,
		RatedProduction100: req.RatedProduction100.optFloat("rated_production_100", v),
	}
	if req.SpindleCount.present() {
		in.SpindleCount = req.SpindleCount.int("spindle_count", v)
	}
	if req.Speed.present() {
		in.Speed = req.Speed.float("speed", v)
	}
	if violations(w, v) {
		return
	}
	m, err := h.machines.Create(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, m)
}

func (h *MachineHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.JSONError(w, http.StatusNotFound, "machine_not_found", nil)
		return
	}
	var req machinePatchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	v := make(validation.Violations)
	in := services.MachineUpdate{
		MachineNumber:      req.MachineNumber.optInt("machine_number", v),
		Name:               req.Name,
		YarnType:           req.YarnType,
		SpindleCount:       req.SpindleCount.optInt("spindle_count", v),
		Speed:              req.Speed.optFloat("speed", v),
		RatedProduction100: req.RatedProduction100.optFloat("rated_production_100", v),
		ClearRating:        req.ClearRating,
	}
	if violations(w, v) {
		return
	}
	m, snapshots, err := h.machines.Update(r.Context(), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"machine":   m,
		"snapshots": snapshots,
	})
}

func (h *MachineHandler) Deactivate(w http.ResponseWriter, r *http.Request) { h.setActive(w, r, false) }

func (h *MachineHandler) Activate(w http.ResponseWriter, r *http.Request) { h.setActive(w, r, true) }

func (h *MachineHandler) setActive(w http.ResponseWriter, r *http.Request, active bool) {
	id, ok := pathID(r)
	if !ok {
		httpx.JSONError(w, http.StatusNotFound, "machine_not_found", nil)
		return
	}
	m, err := h.machines.SetActive(r.Context(), id, active)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, m)
}

func (h *MachineHandler) History(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.JSONError(w, http.StatusNotFound, "machine_not_found", nil)
		return
	}
	entries, err := h.history.ListHistory(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entries)
}

// ConfigAt returns the configuration in effect at the end of the day given by
// ?at=YYYY-MM-DD, or the current one when at is omitted.
func (h *MachineHandler) ConfigAt(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.JSONError(w, http.StatusNotFound, "machine_not_found", nil)
		return
	}
	v := make(validation.Violations)
	at := time.Now().UTC()
	if day := validation.ParseOptionalDate("at", r.URL.Query().Get("at"), v); day != nil {
		at = day.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	if violations(w, v) {
		return
	}
	cfg, err := h.history.ConfigAt(r.Context(), id, at)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"machine_id": id,
		"at":         at,
		"config":     cfg,
	})
}
