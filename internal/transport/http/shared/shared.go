// Package shared holds the JSON envelope helpers every handler uses so
// error translation stays consistent across the call surface.
package shared

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "dustledger/pkg/errors"
)

// ErrorResponse is the uniform error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// WriteJSON encodes v with the given status. Encoding failures are ignored;
// the status line is already on the wire.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates a coded domain error into its HTTP status and
// envelope. Uncoded errors map to 500 without leaking internals.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	message := ""

	var coded *dErrors.Error
	if errors.As(err, &coded) {
		message = coded.Message
	}
	if code == dErrors.CodeInternal {
		message = "internal error"
	}
	WriteJSON(w, dErrors.HTTPStatus(code), ErrorResponse{Error: string(code), Message: message})
}
