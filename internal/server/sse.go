package server

import (
	"encoding/json"
	"errors"
	"net/http"
)

var errStreamingUnsupported = errors.New("streaming unsupported")

// ssePrefix is the server-push data marker clients key on.
const ssePrefix = "data:"

// sseWriter emits server-sent-event frames over a flushable response.
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func newSSEWriter(w http.ResponseWriter) (*sseWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, errStreamingUnsupported
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	return &sseWriter{w: w, flusher: flusher}, nil
}

// sendJSON emits one data frame carrying the JSON encoding of v.
func (s *sseWriter) sendJSON(v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := s.w.Write([]byte(ssePrefix)); err != nil {
		return err
	}
	if _, err := s.w.Write(payload); err != nil {
		return err
	}
	if _, err := s.w.Write([]byte("\n\n")); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// sendEmpty emits a data frame with no payload, a pure "something
// changed" trigger.
func (s *sseWriter) sendEmpty() error {
	if _, err := s.w.Write([]byte(ssePrefix + "\n\n")); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}
