package handlers

import (
	"net/http"
	"strings"

	"github.com/diewo77/go-spinning/auth"
	"github.com/diewo77/go-spinning/httpx"
	"github.com/diewo77/go-spinning/internal/models"
	"github.com/diewo77/go-spinning/internal/services"
	"github.com/diewo77/go-spinning/validation"
)

// EntryHandler serves production entries.
type EntryHandler struct {
	production *services.ProductionService
}

func NewEntryHandler(production *services.ProductionService) *EntryHandler {
	return &EntryHandler{production: production}
}

// Register mounts the read routes on mux and the write routes behind guard.
func (h *EntryHandler) Register(mux *http.ServeMux, guard func(http.Handler) http.Handler) {
	mux.HandleFunc("GET /api/entries", h.List)
	mux.HandleFunc("GET /api/entries/{id}", h.Get)
	mux.Handle("POST /api/entries", guard(http.HandlerFunc(h.Create)))
	mux.Handle("POST /api/entries/pair", guard(http.HandlerFunc(h.CreatePair)))
	mux.Handle("PUT /api/entries/pair", guard(http.HandlerFunc(h.UpsertPair)))
	mux.Handle("DELETE /api/entries/pair", guard(http.HandlerFunc(h.DeletePair)))
	mux.Handle("PATCH /api/entries/{id}", guard(http.HandlerFunc(h.Update)))
	mux.Handle("DELETE /api/entries/{id}", guard(http.HandlerFunc(h.Delete)))
}

type shiftRequest struct {
	ActualProduction      scalar  `json:"actual_production"`
	TheoreticalProduction scalar  `json:"theoretical_production"`
	Remarks               *string `json:"remarks"`
	WorkerName            *string `json:"worker_name"`
	MainsReading          scalar  `json:"mains_reading"`
}

func (s *shiftRequest) fields(prefix string, v validation.Violations) services.ShiftFields {
	name := func(f string) string {
		if prefix == "" {
			return f
		}
		return prefix + "." + f
	}
	return services.ShiftFields{
		ActualProduction:      s.ActualProduction.optFloat(name("actual_production"), v),
		TheoreticalProduction: s.TheoreticalProduction.optFloat(name("theoretical_production"), v),
		Remarks:               s.Remarks,
		WorkerName:            s.WorkerName,
		MainsReading:          s.MainsReading.optFloat(name("mains_reading"), v),
	}
}

type entryRequest struct {
	Unit          scalar `json:"unit"`
	MachineNumber scalar `json:"machine_number"`
	Date          string `json:"date"`
	Shift         string `json:"shift"`
	shiftRequest
}

type pairRequest struct {
	Unit          scalar        `json:"unit"`
	MachineNumber scalar        `json:"machine_number"`
	Date          string        `json:"date"`
	Day           *shiftRequest `json:"day"`
	Night         *shiftRequest `json:"night"`
}

func (p *pairRequest) input(r *http.Request, v validation.Violations) services.PairInput {
	in := services.PairInput{
		EntryKey: services.EntryKey{
			Unit:          p.Unit.int("unit", v),
			MachineNumber: p.MachineNumber.int("machine_number", v),
			Date:          validation.ParseDate("date", p.Date, v),
		},
		RecordedBy: auth.OperatorPtr(r.Context()),
	}
	if p.Day != nil {
		f := p.Day.fields("day", v)
		in.Day = &f
	}
	if p.Night != nil {
		f := p.Night.fields("night", v)
		in.Night = &f
	}
	return in
}

func (h *EntryHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	v := make(validation.Violations)
	f := services.EntryFilter{
		Unit: validation.ParseInt("unit", q.Get("unit"), v),
		From: validation.ParseOptionalDate("from", q.Get("from"), v),
		To:   validation.ParseOptionalDate("to", q.Get("to"), v),
	}
	if n, ok := validation.ParseOptionalInt("machine", q.Get("machine"), v); ok {
		f.MachineNumber = &n
	}
	if raw := q.Get("shift"); raw != "" {
		shift, err := models.ParseShift(raw)
		if err != nil {
			writeError(w, r, services.ErrInvalidShift)
			return
		}
		f.Shift = &shift
	}
	f.Page, _ = validation.ParseOptionalInt("page", q.Get("page"), v)
	f.Limit, _ = validation.ParseOptionalInt("limit", q.Get("limit"), v)
	if violations(w, v) {
		return
	}
	page, err := h.production.ListEntries(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"entries": presentEntries(page.Entries),
		"total":   page.Total,
		"page":    page.Page,
		"limit":   page.Limit,
	})
}

func (h *EntryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.JSONError(w, http.StatusNotFound, "entry_not_found", nil)
		return
	}
	e, err := h.production.GetEntry(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, presentEntry(e))
}

func (h *EntryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req entryRequest
	if !decodeBody(w, r, &req) {
		return
	}
	v := make(validation.Violations)
	in := services.CreateEntryInput{
		EntryKey: services.EntryKey{
			Unit:          req.Unit.int("unit", v),
			MachineNumber: req.MachineNumber.int("machine_number", v),
			Date:          validation.ParseDate("date", req.Date, v),
		},
		Shift:       models.Shift(strings.ToLower(strings.TrimSpace(req.Shift))),
		ShiftFields: req.fields("", v),
		RecordedBy:  auth.OperatorPtr(r.Context()),
	}
	if !req.ActualProduction.present() {
		v["actual_production"] = "required"
	}
	if violations(w, v) {
		return
	}
	e, err := h.production.CreateEntry(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, presentEntry(e))
}

func (h *EntryHandler) CreatePair(w http.ResponseWriter, r *http.Request) {
	var req pairRequest
	if !decodeBody(w, r, &req) {
		return
	}
	v := make(validation.Violations)
	in := req.input(r, v)
	if violations(w, v) {
		return
	}
	pair, err := h.production.CreatePairedEntry(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, presentPair(pair))
}

func (h *EntryHandler) UpsertPair(w http.ResponseWriter, r *http.Request) {
	var req pairRequest
	if !decodeBody(w, r, &req) {
		return
	}
	v := make(validation.Violations)
	in := req.input(r, v)
	if violations(w, v) {
		return
	}
	pair, err := h.production.BatchUpsertShiftPair(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, presentPair(pair))
}

func (h *EntryHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.JSONError(w, http.StatusNotFound, "entry_not_found", nil)
		return
	}
	var req shiftRequest
	if !decodeBody(w, r, &req) {
		return
	}
	v := make(validation.Violations)
	f := req.fields("", v)
	if req.ActualProduction.set && !req.ActualProduction.present() {
		v["actual_production"] = "required"
	}
	if violations(w, v) {
		return
	}
	e, err := h.production.UpdateEntry(r.Context(), id, f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, presentEntry(e))
}

func (h *EntryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.JSONError(w, http.StatusNotFound, "entry_not_found", nil)
		return
	}
	if err := h.production.DeleteEntry(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *EntryHandler) DeletePair(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	v := make(validation.Violations)
	unit := validation.ParseInt("unit", q.Get("unit"), v)
	number := validation.ParseInt("machine", q.Get("machine"), v)
	date := validation.ParseDate("date", q.Get("date"), v)
	if violations(w, v) {
		return
	}
	n, err := h.production.DeletePair(r.Context(), unit, number, date)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]int64{"deleted": n})
}
