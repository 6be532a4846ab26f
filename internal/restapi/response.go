package restapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// envelope is the body of every response
type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
	Error   *apiError   `json:"error,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}, message string) {
	writeJSON(w, status, envelope{
		Success: status >= 200 && status < 300,
		Data:    data,
		Message: message,
	})
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, envelope{
		Success: false,
		Message: message,
		Error: &apiError{
			Code:    code,
			Message: message,
		},
	})
}
