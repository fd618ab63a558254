package web

// errors.go turns pipeline and request errors into responses.
//
// The technical error is logged with the request id; the client gets the
// core.UserMessage for it, as an htmx fragment, JSON or plain text depending
// on the request. The status code follows from the message code.

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/JonMunkholm/betaconv/internal/core"
	"github.com/JonMunkholm/betaconv/internal/logging"
	"github.com/JonMunkholm/betaconv/internal/web/templates"
)

// ErrorResponse is the JSON body of an API error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// codeStatus maps user message codes to HTTP status codes.
var codeStatus = map[string]int{
	"ARC001":  http.StatusUnprocessableEntity,
	"ARC002":  http.StatusUnprocessableEntity,
	"ARC003":  http.StatusRequestEntityTooLarge,
	"FILE001": http.StatusRequestEntityTooLarge,
	"FILE002": http.StatusUnprocessableEntity,
	"FILE004": http.StatusBadRequest,
	"FILE005": http.StatusUnprocessableEntity,
	"EXP001":  http.StatusBadRequest,
	"UPL002":  http.StatusServiceUnavailable,
	"UPL003":  http.StatusNotFound,
	"UPL004":  http.StatusBadRequest,
	"UPL005":  http.StatusGatewayTimeout,
	"RATE001": http.StatusTooManyRequests,
}

// statusFor returns the HTTP status for a user message.
func statusFor(msg core.UserMessage) int {
	if status, ok := codeStatus[msg.Code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// respondError logs err and writes the user-facing message. A zero
// statusCode derives the status from the message code.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	ue := core.NewUserError(err)
	if statusCode == 0 {
		statusCode = statusFor(ue.User)
	}

	level := slog.LevelWarn
	if statusCode >= 500 {
		level = slog.LevelError
	}
	logging.FromContext(r.Context()).Log(r.Context(), level, "request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", ue.User.Code,
	)

	switch {
	case isHTMX(r):
		renderErrorPartial(w, r, ue.User, statusCode)
	case wantsJSON(r):
		respondErrorJSON(w, ue.User, statusCode)
	default:
		respondErrorHTML(w, ue.User, statusCode)
	}
}

func respondErrorJSON(w http.ResponseWriter, msg core.UserMessage, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}

func respondErrorHTML(w http.ResponseWriter, msg core.UserMessage, statusCode int) {
	http.Error(w, msg.Message+" ("+msg.Code+")", statusCode)
}

// renderErrorPartial writes an error fragment. The page's htmx config swaps
// error responses into the target like successful ones.
func renderErrorPartial(w http.ResponseWriter, r *http.Request, msg core.UserMessage, statusCode int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(statusCode)
	templates.ErrorAlert(msg.Message, msg.Action, msg.Code).Render(r.Context(), w)
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// wantsJSON reports whether the client prefers JSON. API routes default
// to JSON.
func wantsJSON(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		return true
	}
	return strings.HasPrefix(r.URL.Path, "/api/")
}

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.FromContext(r.Context()).Error("json encode error", "error", err)
	}
}
