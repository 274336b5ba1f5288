package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/taskchat/taskchat-api/internal/agent"
	"github.com/taskchat/taskchat-api/internal/gateway"
)

// eventStream writes agent events to an HTTP response as
// newline-delimited JSON, flushing after every event so clients see
// progress immediately.
type eventStream struct {
	encoder *json.Encoder
	flusher http.Flusher
}

// newEventStream switches the response to NDJSON streaming mode.
func newEventStream(w http.ResponseWriter) (*eventStream, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, errors.New("response writer does not implement http.Flusher")
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	return &eventStream{
		encoder: json.NewEncoder(w),
		flusher: flusher,
	}, nil
}

// Send writes one event line. Encoding failures are logged, not
// surfaced: once streaming has begun there is no channel left to
// report them on.
func (s *eventStream) Send(event agent.Event) {
	if err := s.encoder.Encode(event); err != nil {
		slog.Error("failed to encode stream event",
			"event_kind", string(event.Kind),
			"error", err)
		return
	}
	s.flusher.Flush()
}

// SendError maps err onto the public taxonomy and writes a terminal
// error event.
func (s *eventStream) SendError(err error) {
	kind, message := gateway.ClassifyError(err)
	s.Send(agent.Event{
		Kind:      agent.EventError,
		ErrorKind: kind,
		Message:   message,
	})
}
