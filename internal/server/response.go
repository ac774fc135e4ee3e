package server

import (
	"encoding/json"
	"net/http"
)

// dataEnvelope wraps every successful payload as {"data": ...}.
type dataEnvelope struct {
	Data any `json:"data"`
}

// errorEnvelope carries a fixed user-facing message, never internal details.
type errorEnvelope struct {
	Msg string `json:"msg"`
}

func writeData(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(dataEnvelope{Data: v})
}

// writeLogical reports a logical failure as a 400 with a fixed message.
func writeLogical(w http.ResponseWriter, msg string) {
	writeErrorStatus(w, http.StatusBadRequest, msg)
}

func writeUnauthorized(w http.ResponseWriter) {
	writeErrorStatus(w, http.StatusUnauthorized, "Unauthorised")
}

func writeErrorStatus(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorEnvelope{Msg: msg})
}

func decodeBody(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
