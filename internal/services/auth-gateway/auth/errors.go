package auth

import (
	"errors"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation"
	"go.uber.org/zap"

	"github.com/NordCoder/bazaar/internal/auth"
	"github.com/NordCoder/bazaar/internal/obs"
)

var errBadRequest = errors.New("malformed request body")

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// mapErr picks the status and the public message. Token failures all read
// the same to the client; the reason stays in the logs.
func mapErr(err error) (int, errorResponse) {
	var verr validation.Errors
	switch {
	case errors.As(err, &verr):
		fields := make(map[string]string, len(verr))
		for k, v := range verr {
			fields[k] = v.Error()
		}
		return http.StatusBadRequest, errorResponse{Error: "validation failed", Fields: fields}
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, errorResponse{Error: errBadRequest.Error()}
	case errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized, errorResponse{Error: "invalid token"}
	case errors.Is(err, auth.ErrIncorrectCredentials):
		return http.StatusUnauthorized, errorResponse{Error: auth.ErrIncorrectCredentials.Error()}
	case errors.Is(err, auth.ErrUnauthorized):
		return http.StatusUnauthorized, errorResponse{Error: "unauthorized"}
	case errors.Is(err, auth.ErrForbidden):
		return http.StatusForbidden, errorResponse{Error: "forbidden"}
	case errors.Is(err, ErrEmailExists):
		return http.StatusConflict, errorResponse{Error: ErrEmailExists.Error()}
	default:
		return http.StatusInternalServerError, errorResponse{Error: "internal error"}
	}
}

func (s *Server) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	status, body := mapErr(err)
	log := obs.WithTrace(r.Context(), s.log).With(zap.String("path", r.URL.Path), zap.Int("status", status))
	if status >= http.StatusInternalServerError {
		log.Error("request failed", zap.Error(err))
	} else {
		log.Info("request rejected", zap.Error(err))
	}
	writeJSON(w, status, body)
}
