package progressclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	draftservice "adpilot/contexts/campaign-builder/draft-service"
	launchservice "adpilot/contexts/campaign-builder/launch-service"
	launchhttp "adpilot/contexts/campaign-builder/launch-service/transport/http"
	"adpilot/internal/platform/httpserver"
	"adpilot/internal/platform/messaging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const specJSON = `{"adAccountId":"123","campaign":{"name":"Spring"},"adSets":[{"adSetName":"Core","creatives":[{"name":"Hero"},{"name":"Alt"}]}]}`

func TestWatcherFollowsLaunchToDone(t *testing.T) {
	launch := launchservice.NewInMemoryModule(nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, launch.Consumer.Start(ctx))
	defer launch.Queue.Close()

	srv := httpserver.New(launch, draftservice.NewInMemoryModule(nil, nil), httpserver.Options{
		Broker:     messaging.NewBroker(nil),
		StreamPoll: 20 * time.Millisecond,
	})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	client := NewClient(ts.URL, "user-1")
	submitted, err := client.SubmitLaunch(ctx, "key-1", launchhttp.SubmitLaunchRequest{Specification: json.RawMessage(specJSON)})
	require.NoError(t, err)

	changes := 0
	watcher := Watcher{Client: client, OnChange: func(*Timeline) { changes++ }}
	watchCtx, stop := context.WithTimeout(ctx, 5*time.Second)
	defer stop()
	timeline, err := watcher.Watch(watchCtx, submitted.JobID)
	require.NoError(t, err)

	assert.Equal(t, "done", timeline.Job().Status)
	assert.Equal(t, 100, timeline.Job().Percent)
	assert.Positive(t, changes)

	history, err := client.ListEvents(ctx, submitted.JobID, 0)
	require.NoError(t, err)
	assert.Len(t, timeline.Events(), len(history))

	replay, err := client.SubmitLaunch(ctx, "key-1", launchhttp.SubmitLaunchRequest{Specification: json.RawMessage(specJSON)})
	require.NoError(t, err)
	assert.True(t, replay.Replayed)
	assert.Equal(t, submitted.JobID, replay.JobID)
}

func TestClientMapsErrorStatuses(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/v1/jobs/ghost":
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"code":"job_not_found","message":"job not found"}`))
		case "/v1/drafts/d1":
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"code":"version_conflict","message":"draft version conflict"}`))
		default:
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	defer ts.Close()
	client := NewClient(ts.URL, "user-1")

	_, err := client.GetJob(context.Background(), "ghost")
	require.ErrorIs(t, err, ErrNotFound)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "job_not_found", apiErr.Code)

	_, err = client.UpdateDraft(context.Background(), "d1", json.RawMessage(`{}`), 1)
	require.ErrorIs(t, err, ErrConflict)

	_, err = client.CancelJob(context.Background(), "x")
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "Bad Gateway", apiErr.Message)
}

func TestWatcherReconnectsFromLastSeq(t *testing.T) {
	jobAt := func(status string, percent int, minute int) launchhttp.JobDTO {
		return launchhttp.JobDTO{ID: "job-1", Status: status, Percent: percent, UpdatedAt: t0.Add(time.Duration(minute) * time.Minute)}
	}
	var streams atomic.Int32
	var resumedFrom atomic.Value
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/jobs/job-1":
			_ = json.NewEncoder(w).Encode(launchhttp.JobResponse{Job: jobAt("running", 10, 0)})
		case "/v1/jobs/job-1/events":
			_ = json.NewEncoder(w).Encode(launchhttp.ListEventsResponse{Items: []launchhttp.ProgressEventDTO{event("a", 1, 0)}})
		case "/v1/jobs/job-1/stream":
			w.Header().Set("Content-Type", "text/event-stream")
			if streams.Add(1) == 1 {
				// drop the connection mid-stream
				writeSSE(w, "event", launchhttp.StreamMessage{Type: "event", Event: ptr(event("b", 2, time.Second))})
				return
			}
			resumedFrom.Store(r.URL.Query().Get("after_seq"))
			writeSSE(w, "event", launchhttp.StreamMessage{Type: "event", Event: ptr(event("b", 2, time.Second))})
			writeSSE(w, "event", launchhttp.StreamMessage{Type: "event", Event: ptr(event("c", 3, 2*time.Second))})
			done := jobAt("done", 100, 1)
			writeSSE(w, "job", launchhttp.StreamMessage{Type: "job", Job: &done})
			writeSSE(w, "end", launchhttp.StreamMessage{Type: "end"})
		default:
			http.NotFound(w, r)
		}
	}))
	defer ts.Close()

	watcher := Watcher{Client: NewClient(ts.URL, "user-1"), ReconnectDelay: 10 * time.Millisecond}
	timeline, err := watcher.Watch(context.Background(), "job-1")
	require.NoError(t, err)

	assert.Equal(t, int32(2), streams.Load())
	assert.Equal(t, "2", resumedFrom.Load())
	assert.Equal(t, []string{"a", "b", "c"}, ids(timeline.Events()))
	assert.True(t, timeline.Terminal())
}

func TestWatcherGivesUpAfterMaxReconnects(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/jobs/job-1":
			_ = json.NewEncoder(w).Encode(launchhttp.JobResponse{Job: launchhttp.JobDTO{ID: "job-1", Status: "running"}})
		case "/v1/jobs/job-1/events":
			_ = json.NewEncoder(w).Encode(launchhttp.ListEventsResponse{})
		default:
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	defer ts.Close()

	watcher := Watcher{Client: NewClient(ts.URL, "user-1"), ReconnectDelay: time.Millisecond, MaxReconnects: 2}
	timeline, err := watcher.Watch(context.Background(), "job-1")
	require.Error(t, err)
	assert.False(t, timeline.Terminal())
	assert.Equal(t, "running", timeline.Job().Status)
}

func writeSSE(w http.ResponseWriter, name string, message launchhttp.StreamMessage) {
	raw, _ := json.Marshal(message)
	_, _ = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, raw)
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
}

func ptr[T any](value T) *T {
	return &value
}
