package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/zeusync/mathcraft/internal/core/kinematics"
	"github.com/zeusync/mathcraft/internal/core/lesson"
	"github.com/zeusync/mathcraft/internal/core/notation"
	"github.com/zeusync/mathcraft/internal/core/observability/log"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var internalErrorBody = []byte(`{"error":"internal error","code":"internal"}` + "\n")

// writeJSON marshals v before writing the status; encoding failures become
// 500 responses.
func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	body, err := json.Marshal(v)
	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		s.logger.WithContext(r.Context()).Error("Failed to encode response",
			log.String("path", r.URL.Path),
			log.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write(internalErrorBody)
		return
	}
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	s.writeJSON(w, r, status, errorResponse{Error: err.Error(), Code: errorCode(err)})
}

// statusFor maps engine errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, kinematics.ErrInvalidInput),
		errors.Is(err, kinematics.ErrOutOfRange),
		errors.Is(err, notation.ErrDomain),
		errors.Is(err, lesson.ErrOutOfRange),
		errors.Is(err, ErrBadRequest),
		errors.Is(err, ErrBatchTooLarge):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, kinematics.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, kinematics.ErrOutOfRange):
		return "numeric_range"
	case errors.Is(err, kinematics.ErrNoCollision):
		return "no_collision"
	case errors.Is(err, notation.ErrDomain):
		return "domain_error"
	case errors.Is(err, lesson.ErrOutOfRange):
		return "out_of_range"
	case errors.Is(err, ErrBatchTooLarge):
		return "batch_too_large"
	case errors.Is(err, ErrBadRequest):
		return "bad_request"
	case errors.Is(err, ErrServerStopping):
		return "unavailable"
	default:
		return "internal"
	}
}
