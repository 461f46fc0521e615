// Package sse relays an upstream Server-Sent-Events stream to a client.
// It is a pass-through re-framer: no reconnection, no replay, no
// resume-from-offset. Frames are forwarded byte-faithfully, so multi-line
// data blocks survive intact.
package sse

import (
	"bufio"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/montrose/hnwi-gateway/internal/infrastructure/monitoring"
	"github.com/montrose/hnwi-gateway/pkg/errors"
	"github.com/montrose/hnwi-gateway/pkg/logger"
)

// heartbeatInterval spaces the comment lines that keep idle proxies from
// closing the connection.
const heartbeatInterval = 25 * time.Second

// maxLineSize bounds a single SSE line from the upstream.
const maxLineSize = 1 << 20

// Event is a parsed SSE frame.
type Event struct {
	Name string
	ID   string
	Data []string
}

// WriteTo serializes the frame in wire format, terminated by a blank line.
func (e *Event) WriteTo(w io.Writer) error {
	var b strings.Builder
	if e.Name != "" {
		b.WriteString("event: " + e.Name + "\n")
	}
	if e.ID != "" {
		b.WriteString("id: " + e.ID + "\n")
	}
	for _, d := range e.Data {
		b.WriteString("data: " + d + "\n")
	}
	b.WriteString("\n")
	_, err := io.WriteString(w, b.String())
	return err
}

// Relay pumps SSE frames from an upstream response to a client writer.
type Relay struct {
	metrics *monitoring.Metrics
	logger  logger.Logger
}

// NewRelay creates a relay.
func NewRelay(metrics *monitoring.Metrics, log logger.Logger) *Relay {
	return &Relay{metrics: metrics, logger: log.WithComponent("SSERelay")}
}

// Flusher is the subset of http.ResponseWriter the relay needs on the client
// side.
type Flusher interface {
	io.Writer
	http.Flusher
}

// Run reads frames from the upstream body and writes them to the client
// until the upstream closes, the context is canceled, or a write fails.
// The upstream body is always drained-and-closed on return.
func (r *Relay) Run(ctx context.Context, upstream io.ReadCloser, client Flusher) error {
	defer upstream.Close()

	r.metrics.SSESessions.Inc()
	defer r.metrics.SSESessions.Dec()

	frames := make(chan *Event)
	readErr := make(chan error, 1)

	go func() {
		defer close(frames)
		readErr <- r.readFrames(ctx, upstream, frames)
	}()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			// Client went away; closing the body unblocks the reader.
			return nil
		case <-heartbeat.C:
			if _, err := io.WriteString(client, ": ping\n\n"); err != nil {
				return nil
			}
			client.Flush()
		case ev, ok := <-frames:
			if !ok {
				err := <-readErr
				if err != nil && err != io.EOF && ctx.Err() == nil {
					return errors.ErrUpstreamUnavailable.WithError(err)
				}
				return nil
			}
			if err := ev.WriteTo(client); err != nil {
				return nil
			}
			client.Flush()
			r.metrics.SSEEventsRelayed.Inc()
		}
	}
}

// readFrames splits the upstream byte stream into frames on blank lines.
func (r *Relay) readFrames(ctx context.Context, body io.Reader, out chan<- *Event) error {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 64<<10), maxLineSize)

	current := &Event{}
	flush := func() bool {
		if current.Name == "" && current.ID == "" && len(current.Data) == 0 {
			return true
		}
		select {
		case out <- current:
			current = &Event{}
			return true
		case <-ctx.Done():
			return false
		}
	}

	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if !flush() {
				return ctx.Err()
			}
		case strings.HasPrefix(line, ":"):
			// Upstream comment; the relay emits its own heartbeats.
		case strings.HasPrefix(line, "event:"):
			current.Name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "id:"):
			current.ID = strings.TrimSpace(strings.TrimPrefix(line, "id:"))
		case strings.HasPrefix(line, "data:"):
			current.Data = append(current.Data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		default:
			r.logger.Debug(ctx, "ignoring unrecognized sse line", logger.String("line", line))
		}
	}
	// Trailing frame without a final blank line.
	flush()
	if err := scanner.Err(); err != nil {
		return err
	}
	return io.EOF
}
