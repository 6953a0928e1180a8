package web

// Every failed action is logged with its technical detail and shown to the
// user as a table.UserMessage. Page requests get the dashboard re-rendered
// with the message inline; chart and download requests get plain text; JSON
// clients get an ErrorResponse. The current session is never cleared.

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/KaramelBytes/tabloom/internal/logging"
	"github.com/KaramelBytes/tabloom/internal/table"
)

// ErrorResponse is the JSON shape of an error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	msg := table.MapError(err)
	status := statusFor(err)
	logging.FromContext(r.Context()).Warn("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"code", msg.Code,
		"error", err.Error(),
	)
	switch {
	case wantsJSON(r):
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		resp := ErrorResponse{Error: msg.Message, Message: msg.Message, Action: msg.Action, Code: msg.Code}
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			logging.FromContext(r.Context()).Warn("write response", "path", r.URL.Path, "error", err)
		}
	case r.URL.Path == "/plot" || strings.HasPrefix(r.URL.Path, "/download/"):
		http.Error(w, msg.Message+" ("+msg.Code+")", status)
	default:
		page := s.newPage(s.current(), r.URL.Query())
		page.Error = &msg
		s.render(w, r, status, page)
	}
}

func statusFor(err error) int {
	var re *table.ResourceError
	switch {
	case errors.As(err, &re):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errNoSession):
		return http.StatusConflict
	}
	return http.StatusBadRequest
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}
