package progressclient

import (
	"context"
	"errors"
	"log/slog"
	"time"

	launchhttp "adpilot/contexts/campaign-builder/launch-service/transport/http"
)

const (
	defaultReconnectDelay = time.Second
	defaultMaxReconnects  = 10
)

// Watcher keeps a Timeline live over the job stream. History is fetched
// once at mount; reconnects resume from the last seq held.
type Watcher struct {
	Client         *Client
	ReconnectDelay time.Duration
	MaxReconnects  int
	// OnChange runs after every message that changed the timeline.
	OnChange func(*Timeline)
	Logger   *slog.Logger
}

// Watch follows jobID until the job is terminal or ctx ends and returns the
// final timeline.
func (w Watcher) Watch(ctx context.Context, jobID string) (*Timeline, error) {
	timeline := NewTimeline()
	job, err := w.Client.GetJob(ctx, jobID)
	if err != nil {
		return timeline, err
	}
	history, err := w.Client.ListEvents(ctx, jobID, 0)
	if err != nil {
		return timeline, err
	}
	timeline.Mount(job, history)
	w.changed(timeline)

	failures := 0
	for !timeline.Terminal() {
		err := w.Client.Stream(ctx, jobID, timeline.LastSeq(), func(message launchhttp.StreamMessage) error {
			if w.apply(timeline, message) {
				w.changed(timeline)
			}
			return nil
		})
		if ctx.Err() != nil {
			return timeline, ctx.Err()
		}
		if err == nil {
			// the server only ends a stream on a terminal job
			failures = 0
			if !timeline.Terminal() {
				current, err := w.Client.GetJob(ctx, jobID)
				if err != nil {
					return timeline, err
				}
				if timeline.ApplyJob(current) {
					w.changed(timeline)
				}
			}
			continue
		}
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalid) {
			return timeline, err
		}
		failures++
		if failures > w.maxReconnects() {
			return timeline, err
		}
		w.logger().Warn("job stream dropped, reconnecting",
			"event", "progress_stream_reconnect",
			"module", "pkg/progressclient",
			"layer", "client",
			"job_id", jobID,
			"attempt", failures,
			"error", err.Error(),
		)
		timer := time.NewTimer(w.reconnectDelay())
		select {
		case <-ctx.Done():
			timer.Stop()
			return timeline, ctx.Err()
		case <-timer.C:
		}
	}
	return timeline, nil
}

func (w Watcher) apply(timeline *Timeline, message launchhttp.StreamMessage) bool {
	switch message.Type {
	case "job":
		if message.Job != nil {
			return timeline.ApplyJob(*message.Job)
		}
	case "event":
		if message.Event != nil {
			return timeline.ApplyEvent(*message.Event)
		}
	}
	return false
}

func (w Watcher) changed(timeline *Timeline) {
	if w.OnChange != nil {
		w.OnChange(timeline)
	}
}

func (w Watcher) reconnectDelay() time.Duration {
	if w.ReconnectDelay <= 0 {
		return defaultReconnectDelay
	}
	return w.ReconnectDelay
}

func (w Watcher) maxReconnects() int {
	if w.MaxReconnects <= 0 {
		return defaultMaxReconnects
	}
	return w.MaxReconnects
}

func (w Watcher) logger() *slog.Logger {
	if w.Logger == nil {
		return slog.Default()
	}
	return w.Logger
}
