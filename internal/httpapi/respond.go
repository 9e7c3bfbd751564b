package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/mesh-intelligence/pantry/internal/codec"
	"github.com/mesh-intelligence/pantry/pkg/types"
)

const maxBodyBytes = 1 << 20

type success struct {
	Success bool `json:"success"`
}

var deleted = success{Success: true}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// slugConflicts controls how a duplicate slug is reported. Content type and
// entry creation report it as a bad request; everything else as a conflict.
type slugConflicts int

const (
	slugAsConflict slugConflicts = iota
	slugAsBadRequest
)

// status maps an error kind to an HTTP status.
func status(err error, slugs slugConflicts) int {
	switch types.KindOf(err) {
	case types.ErrUnauthorized:
		return http.StatusUnauthorized
	case types.ErrForbidden:
		return http.StatusForbidden
	case types.ErrNotFound:
		return http.StatusNotFound
	case types.ErrConflict:
		if slugs == slugAsBadRequest && errors.Is(err, types.ErrDuplicateSlug) {
			return http.StatusBadRequest
		}
		return http.StatusConflict
	case types.ErrValidation, types.ErrTypeMismatch:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err as a JSON error. Storage failures are logged with their
// cause and reported only by operation name.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, slugs slugConflicts) {
	code := status(err, slugs)
	if code == http.StatusInternalServerError {
		var se *types.StorageError
		msg := "Internal server error"
		ev := s.Logger.Error().Err(err).Str("path", r.URL.Path)
		if errors.As(err, &se) {
			msg = se.Error()
			ev = ev.Str("op", se.Op).AnErr("cause", se.Err)
		}
		ev.Msg("request failed")
		respondError(w, code, msg)
		return
	}
	var fe *types.FieldError
	if errors.As(err, &fe) {
		respondJSON(w, code, map[string]any{"error": "invalid data", "fields": fe.Problems})
		return
	}
	respondError(w, code, err.Error())
}

// decode reads a JSON body into v. Numbers stay as their literal text.
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := codec.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return types.ErrInvalidPayload
		}
		return fmt.Errorf("%w: %v", types.ErrInvalidPayload, err)
	}
	return nil
}
