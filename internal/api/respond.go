package api

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/digkill/magicpic/internal/service"
)

type envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Message string     `json:"message,omitempty"`
	Error   *errorBody `json:"error,omitempty"`
}

type errorBody struct {
	Code    service.Code `json:"code"`
	Message string       `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeOK(w http.ResponseWriter, status int, data any, message string) {
	writeJSON(w, status, envelope{Success: true, Data: data, Message: message})
}

func writeError(w http.ResponseWriter, status int, code service.Code, message string) {
	writeJSON(w, status, envelope{Error: &errorBody{Code: code, Message: message}})
}

// fail maps a service error onto the error envelope. Internal causes are
// logged, never sent.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	svcErr := service.AsError(err)
	status := svcErr.Code.HTTPStatus()
	if svcErr.Code == service.CodeInternal || svcErr.Code == service.CodeAIService {
		s.log.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("code", string(svcErr.Code)),
			zap.Error(err),
		)
	}
	writeError(w, status, svcErr.Code, svcErr.Message)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusUnprocessableEntity, service.CodeValidation, "invalid json")
		return false
	}
	return true
}
