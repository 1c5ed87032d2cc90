package response

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

// MaxBodyBytes limits request bodies read by DecodeJSON
const MaxBodyBytes = 64 << 10

// ErrTrailingData is returned when a body holds more than one JSON value
var ErrTrailingData = errors.New("request body must contain a single JSON value")

// Response is the envelope of every non-checkout API answer
type Response struct {
	Code    int    `json:"code"`
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// WriteJSON writes v as a JSON body with the given status code
func WriteJSON(w http.ResponseWriter, statusCode int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(v)
}

// DecodeJSON reads one JSON value of at most MaxBodyBytes from r into v
func DecodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return ErrTrailingData
	}
	return nil
}

// Success wraps data in a successful envelope
func Success(w http.ResponseWriter, statusCode int, message string, data any) {
	_ = WriteJSON(w, statusCode, Response{
		Code:    statusCode,
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Error writes a failed envelope. The text of err is shown to the caller, so
// only pass errors that are safe for customers to read.
func Error(w http.ResponseWriter, statusCode int, message string, err error) {
	resp := Response{Code: statusCode, Message: message}
	if err != nil {
		resp.Error = err.Error()
	}
	_ = WriteJSON(w, statusCode, resp)
}
