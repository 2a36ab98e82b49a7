package web

import (
	"errors"
	"net/http"

	"github.com/ginjaninja78/diamond-metrics/internal/engine"
	"github.com/ginjaninja78/diamond-metrics/internal/logging"
	"github.com/ginjaninja78/diamond-metrics/internal/session"
)

// errInvalidBody is returned when a request body cannot be decoded.
var errInvalidBody = errors.New("invalid request body")

var invalidBodyMessage = session.UserMessage{
	Message: "The request could not be understood",
	Action:  "Send a JSON body matching the API",
	Code:    "REQ001",
}

// ErrorResponse represents the JSON structure for API error responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// statusFor picks the HTTP status for an error.
func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, session.ErrNoRecords):
		return http.StatusUnprocessableEntity
	case errors.Is(err, session.ErrNoFile),
		errors.Is(err, session.ErrReadFailed),
		errors.Is(err, errInvalidBody),
		errors.Is(err, engine.ErrRowRange),
		errors.Is(err, engine.ErrEmptyInsert),
		errors.Is(err, engine.ErrUnknownField):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrReadOnlyField):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// respondError logs the technical error and writes the user message.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)

	msg := session.MapError(err)
	if errors.Is(err, errInvalidBody) {
		msg = invalidBodyMessage
	}

	log := logging.FromContext(r.Context()).With(
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", msg.Code,
	)
	if status >= http.StatusInternalServerError {
		log.Error("request error")
	} else {
		log.Warn("request rejected")
	}

	writeJSON(w, status, ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}
