package handler

import (
	"encoding/json"
	"net/http"

	"github.com/dmca-notices/internal/domain"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// NoticesEnvelope wraps the notice list. Flash is set once after a store.
type NoticesEnvelope struct {
	Notices []domain.Notice `json:"notices"`
	Flash   string          `json:"flash,omitempty"`
}

// CreateFormEnvelope carries what the create form needs to render.
type CreateFormEnvelope struct {
	Providers []domain.ProviderOption `json:"providers"`
}

// ConfirmEnvelope returns the compiled notice for review.
type ConfirmEnvelope struct {
	Template string       `json:"template"`
	Draft    domain.Draft `json:"draft"`
}

// ValidationEnvelope re-displays the create form with field errors.
type ValidationEnvelope struct {
	Error     string                  `json:"error"`
	Fields    map[string]string       `json:"fields"`
	Providers []domain.ProviderOption `json:"providers"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}
