package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/oapi-codegen/nullable"
	"go.uber.org/zap"

	"github.com/campus-events/eventhub-api/internal/app/apperr"
	"github.com/campus-events/eventhub-api/internal/ports/out/identity"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

type ErrorBody struct {
	Code      string                            `json:"code"`
	Message   string                            `json:"message"`
	Details   nullable.Nullable[map[string]any] `json:"details,omitempty"`
	RequestId nullable.Nullable[string]         `json:"requestId,omitempty"`
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code string, message string, details map[string]any) {
	var er ErrorResponse
	er.Error.Code = code
	er.Error.Message = message
	if details != nil {
		er.Error.Details = nullable.NewNullableWithValue(details)
	}
	if rid := middleware.GetReqID(r.Context()); rid != "" {
		er.Error.RequestId = nullable.NewNullableWithValue(rid)
	}
	writeJSON(w, status, er)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeAppError maps application and identity errors onto the error envelope. Anything
// unrecognised is logged and reported as INTERNAL without leaking its text.
func (s *Server) writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	if ae, ok := apperr.As(err); ok {
		if ae.Status >= http.StatusInternalServerError {
			s.log.Error("request failed",
				zap.String("requestId", middleware.GetReqID(r.Context())),
				zap.String("code", ae.Code),
				zap.Error(err))
		}
		writeError(w, r, ae.Status, ae.Code, ae.Message, ae.Details)
		return
	}

	switch {
	case errors.Is(err, identity.ErrEmailAlreadyExists):
		writeError(w, r, http.StatusConflict, apperr.CodeEmailAlreadyInUse, "email already in use", nil)
	case errors.Is(err, identity.ErrInvalidCredential):
		writeError(w, r, http.StatusUnauthorized, apperr.CodeInvalidCredential, "invalid email or password", nil)
	case errors.Is(err, identity.ErrAccountDisabled):
		writeError(w, r, http.StatusForbidden, apperr.CodePermissionDenied, "account disabled", nil)
	case errors.Is(err, identity.ErrWeakPassword):
		writeError(w, r, http.StatusUnprocessableEntity, apperr.CodeValidationFailed, "password is too weak", map[string]any{"password": "too short"})
	case errors.Is(err, identity.ErrInvalidEmail):
		writeError(w, r, http.StatusUnprocessableEntity, apperr.CodeValidationFailed, "invalid email", map[string]any{"email": "invalid"})
	case errors.Is(err, identity.ErrInvalidToken), errors.Is(err, identity.ErrTokenRevoked):
		writeError(w, r, http.StatusUnauthorized, apperr.CodeUnauthenticated, "invalid token", nil)
	case errors.Is(err, identity.ErrPrincipalNotFound):
		writeError(w, r, http.StatusNotFound, apperr.CodeNotFound, "principal not found", nil)
	default:
		s.log.Error("request failed",
			zap.String("requestId", middleware.GetReqID(r.Context())),
			zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, apperr.CodeInternal, "internal error", nil)
	}
}
