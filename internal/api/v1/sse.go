package v1

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
)

// sseWriter frames server-sent events on a huma stream body.
type sseWriter struct {
	w       io.Writer
	flusher http.Flusher
}

func newSSEWriter(hctx huma.Context) *sseWriter {
	hctx.SetHeader("Content-Type", "text/event-stream")
	hctx.SetHeader("Cache-Control", "no-cache")
	hctx.SetHeader("Connection", "keep-alive")
	hctx.SetHeader("X-Accel-Buffering", "no")

	w := hctx.BodyWriter()
	// Streams outlive the server's write timeout.
	if rw, ok := w.(http.ResponseWriter); ok {
		_ = http.NewResponseController(rw).SetWriteDeadline(time.Time{})
	}

	s := &sseWriter{w: w}
	if f, ok := w.(http.Flusher); ok {
		s.flusher = f
	}
	return s
}

type encodeError struct{ err error }

func (e *encodeError) Error() string { return "encode event: " + e.err.Error() }
func (e *encodeError) Unwrap() error { return e.err }

// event writes one "event: <type>\ndata: <json>\n\n" frame.
func (s *sseWriter) event(eventType string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return &encodeError{err: err}
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", eventType, raw); err != nil {
		return err
	}
	s.flush()
	return nil
}

// comment writes a keep-alive comment frame.
func (s *sseWriter) comment() error {
	if _, err := io.WriteString(s.w, ":\n\n"); err != nil {
		return err
	}
	s.flush()
	return nil
}

func (s *sseWriter) flush() {
	if s.flusher != nil {
		s.flusher.Flush()
	}
}
