package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/diewo77/go-spinning/httpx"
	"github.com/diewo77/go-spinning/internal/logger"
	"github.com/diewo77/go-spinning/internal/services"
	"github.com/diewo77/go-spinning/validation"
	"github.com/sirupsen/logrus"
)

// scalar keeps a JSON scalar as raw text. Forms post numbers as strings, so
// both 350 and "350" are accepted; parsing happens in one place and malformed
// input becomes a violation instead of a zero.
type scalar struct {
	raw string
	set bool
}

func (s *scalar) UnmarshalJSON(b []byte) error {
	s.set = true
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		s.raw = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		s.raw = str
		return nil
	}
	s.raw = string(b)
	return nil
}

func (s scalar) present() bool { return s.set && strings.TrimSpace(s.raw) != "" }

func (s scalar) float(field string, v validation.Violations) float64 {
	return validation.ParseFloat(field, s.raw, v)
}

func (s scalar) optFloat(field string, v validation.Violations) *float64 {
	return validation.ParseOptionalFloat(field, s.raw, v)
}

func (s scalar) int(field string, v validation.Violations) int {
	return validation.ParseInt(field, s.raw, v)
}

func (s scalar) optInt(field string, v validation.Violations) *int {
	n, ok := validation.ParseOptionalInt(field, s.raw, v)
	if !ok {
		return nil
	}
	return &n
}

func pathID(r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := httpx.DecodeJSON(r, dst); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return false
	}
	return true
}

func violations(w http.ResponseWriter, v validation.Violations) bool {
	if v.Empty() {
		return false
	}
	httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
	return true
}

var log = logger.For("http")

// writeError maps service errors to HTTP responses.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *services.ValidationError
	var dup *services.DuplicateEntryError
	switch {
	case errors.As(err, &verr):
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", verr.Violations)
	case errors.As(err, &dup):
		httpx.JSONError(w, http.StatusConflict, "duplicate_entry", map[string]any{
			"unit":           dup.Unit,
			"machine_number": dup.MachineNumber,
			"date":           dup.Date,
			"shift":          dup.Shift,
		})
	case errors.Is(err, services.ErrDuplicateEntry):
		httpx.JSONError(w, http.StatusConflict, "duplicate_entry", nil)
	case errors.Is(err, services.ErrMachineNotFound):
		httpx.JSONError(w, http.StatusNotFound, "machine_not_found", nil)
	case errors.Is(err, services.ErrEntryNotFound):
		httpx.JSONError(w, http.StatusNotFound, "entry_not_found", nil)
	case errors.Is(err, services.ErrEmptySubmission):
		httpx.JSONError(w, http.StatusBadRequest, "empty_submission", nil)
	case errors.Is(err, services.ErrInvalidShift):
		httpx.JSONError(w, http.StatusBadRequest, "invalid_shift", nil)
	case errors.Is(err, services.ErrMachineExists):
		httpx.JSONError(w, http.StatusConflict, "machine_exists", nil)
	case errors.Is(err, services.ErrMachineInactive):
		httpx.JSONError(w, http.StatusConflict, "machine_inactive", nil)
	default:
		log.WithFields(logrus.Fields{
			"request_id": httpx.RequestID(r.Context()),
			"method":     r.Method,
			"path":       r.URL.Path,
		}).WithError(err).Error("request failed")
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
	}
}
