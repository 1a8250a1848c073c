package utils

import (
	"encoding/json"
	"log"
	"net/http"

	"rental-backend/internal/apperror"
)

// Envelope is the body shape every API response uses.
type Envelope struct {
	Success bool                  `json:"success"`
	Data    interface{}           `json:"data,omitempty"`
	Message string                `json:"message,omitempty"`
	Errors  []apperror.FieldError `json:"errors,omitempty"`
}

func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("[HTTP] Failed to encode response: %v", err)
	}
}

// RespondData writes a successful envelope around data.
func RespondData(w http.ResponseWriter, status int, data interface{}) {
	JSON(w, status, Envelope{Success: true, Data: data})
}

// RespondMessage writes a successful envelope carrying only a message.
func RespondMessage(w http.ResponseWriter, status int, message string) {
	JSON(w, status, Envelope{Success: true, Message: message})
}

// RespondError maps err onto its HTTP status. Unexpected errors are logged and,
// unless exposeInternal is set, their message is replaced with a generic one.
func RespondError(w http.ResponseWriter, err error, exposeInternal bool) {
	appErr := apperror.As(err)

	message := appErr.Message
	if appErr.Kind == apperror.KindUnexpected {
		log.Printf("[HTTP] Unexpected error: %v", err)
		if exposeInternal {
			message = err.Error()
		} else {
			message = "Internal server error"
		}
	}

	JSON(w, appErr.Status(), Envelope{
		Success: false,
		Message: message,
		Errors:  appErr.Fields,
	})
}
