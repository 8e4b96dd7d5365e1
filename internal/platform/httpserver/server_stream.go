package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"adpilot/contexts/campaign-builder/launch-service/domain/entities"
	launchhttp "adpilot/contexts/campaign-builder/launch-service/transport/http"
	"adpilot/internal/shared/events"

	"github.com/go-chi/chi/v5"
)

const streamHeartbeat = 15 * time.Second

// handleJobStream pushes the job snapshot and every progress event after
// after_seq (or Last-Event-ID) as server-sent events. The stream ends after
// the job reaches a terminal status.
func (s *Server) handleJobStream(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	cursor := r.URL.Query().Get("after_seq")
	if strings.TrimSpace(cursor) == "" {
		cursor = r.Header.Get("Last-Event-ID")
	}
	lastSeq, err := parseAfterSeq(cursor)
	if err != nil {
		writeLaunchError(w, http.StatusBadRequest, "invalid_after_seq", "after_seq must be a non-negative integer")
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// subscribe before the first read so nothing lands between them
	notify := make(chan struct{}, 1)
	if s.broker != nil {
		err := s.broker.Subscribe(ctx, events.JobTopic(jobID), "http-stream", func(context.Context, events.Envelope) error {
			select {
			case notify <- struct{}{}:
			default:
			}
			return nil
		})
		if err != nil {
			s.logger.Warn("stream subscription failed, polling only",
				"event", "http_stream_subscribe_failed",
				"module", "internal/platform/httpserver",
				"layer", "platform",
				"job_id", jobID,
				"error", err.Error(),
			)
		}
	}

	snapshot, err := s.launch.Handler.GetJobHandler(ctx, jobID)
	if err != nil {
		writeLaunchDomainError(w, err)
		return
	}

	flusher := http.NewResponseController(w)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	stream := &sseWriter{w: w, flusher: flusher}
	job := snapshot.Job
	if err := stream.job(job); err != nil {
		return
	}

	catchUp := func() (bool, error) {
		page, err := s.launch.Handler.ListEventsHandler(ctx, jobID, lastSeq)
		if err != nil {
			return false, err
		}
		for i := range page.Items {
			item := page.Items[i]
			if item.Seq <= lastSeq {
				continue
			}
			if err := stream.event(item); err != nil {
				return false, err
			}
			lastSeq = item.Seq
		}
		current, err := s.launch.Handler.GetJobHandler(ctx, jobID)
		if err != nil {
			return false, err
		}
		if !sameJobState(job, current.Job) {
			job = current.Job
			if err := stream.job(job); err != nil {
				return false, err
			}
		}
		return entities.JobStatus(job.Status).IsTerminal(), nil
	}

	done, err := catchUp()
	if err != nil {
		return
	}
	if done {
		_ = stream.end()
		return
	}

	poll := time.NewTicker(s.streamPoll)
	defer poll.Stop()
	heartbeat := time.NewTicker(streamHeartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			if err := stream.comment("ping"); err != nil {
				return
			}
			continue
		case <-notify:
		case <-poll.C:
		}
		done, err := catchUp()
		if err != nil {
			s.logger.Debug("stream closed",
				"event", "http_stream_closed",
				"module", "internal/platform/httpserver",
				"layer", "platform",
				"job_id", jobID,
				"error", err.Error(),
			)
			return
		}
		if done {
			_ = stream.end()
			return
		}
	}
}

func sameJobState(a, b launchhttp.JobDTO) bool {
	return a.Status == b.Status &&
		a.Percent == b.Percent &&
		a.CancelRequested == b.CancelRequested &&
		a.UpdatedAt.Equal(b.UpdatedAt)
}

type sseWriter struct {
	w       http.ResponseWriter
	flusher *http.ResponseController
}

func (s *sseWriter) job(job launchhttp.JobDTO) error {
	return s.send("", "job", launchhttp.StreamMessage{Type: "job", Job: &job})
}

func (s *sseWriter) event(event launchhttp.ProgressEventDTO) error {
	return s.send(fmt.Sprintf("%d", event.Seq), "event", launchhttp.StreamMessage{Type: "event", Event: &event})
}

func (s *sseWriter) end() error {
	return s.send("", "end", launchhttp.StreamMessage{Type: "end"})
}

func (s *sseWriter) comment(text string) error {
	if _, err := fmt.Fprintf(s.w, ": %s\n\n", text); err != nil {
		return err
	}
	return s.flusher.Flush()
}

func (s *sseWriter) send(id string, name string, message launchhttp.StreamMessage) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	if id != "" {
		if _, err := fmt.Fprintf(s.w, "id: %s\n", id); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", name, data); err != nil {
		return err
	}
	return s.flusher.Flush()
}
