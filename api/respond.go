package api

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"collab-chat/errors"

	"github.com/go-playground/validator/v10"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorBody{Error: message})
}

// statusFor maps domain errors onto HTTP statuses. Anything unmapped is a 500.
func statusFor(err error) int {
	var validationErrs validator.ValidationErrors
	switch {
	case stderrors.Is(err, errors.ErrNotAMember):
		return http.StatusForbidden
	case stderrors.Is(err, errors.ErrUnknownConversation):
		return http.StatusNotFound
	case stderrors.Is(err, errors.ErrConversationExists),
		stderrors.Is(err, errors.ErrUserAlreadyExists):
		return http.StatusConflict
	case stderrors.Is(err, errors.ErrInvalidCredentials),
		stderrors.Is(err, errors.ErrInvalidToken):
		return http.StatusUnauthorized
	case stderrors.Is(err, errors.ErrInvalidPassword),
		stderrors.As(err, &validationErrs):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
