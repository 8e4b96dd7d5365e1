package progressclient

import (
	"testing"
	"time"

	launchhttp "adpilot/contexts/campaign-builder/launch-service/transport/http"

	"github.com/google/go-cmp/cmp"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func event(id string, seq int64, offset time.Duration) launchhttp.ProgressEventDTO {
	return launchhttp.ProgressEventDTO{ID: id, JobID: "job-1", Step: "campaign", Status: "loading", Seq: seq, CreatedAt: t0.Add(offset)}
}

func ids(items []launchhttp.ProgressEventDTO) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.ID)
	}
	return out
}

func TestTimelineDedupesRedeliveredEvents(t *testing.T) {
	timeline := NewTimeline()
	timeline.Mount(launchhttp.JobDTO{ID: "job-1", Status: "running", UpdatedAt: t0}, []launchhttp.ProgressEventDTO{event("a", 1, 0)})

	if timeline.ApplyEvent(event("a", 1, 0)) {
		t.Fatal("expected redelivered event to be ignored")
	}
	if !timeline.ApplyEvent(event("b", 2, time.Second)) {
		t.Fatal("expected new event applied")
	}
	if diff := cmp.Diff([]string{"a", "b"}, ids(timeline.Events())); diff != "" {
		t.Fatalf("unexpected events (-want +got):\n%s", diff)
	}
	if timeline.LastSeq() != 2 {
		t.Fatalf("expected last seq 2, got %d", timeline.LastSeq())
	}
}

func TestTimelineReconcilesOutOfOrderDelivery(t *testing.T) {
	timeline := NewTimeline()
	timeline.Mount(launchhttp.JobDTO{ID: "job-1", Status: "running", UpdatedAt: t0}, nil)

	timeline.ApplyEvent(event("c", 3, 2*time.Second))
	timeline.ApplyEvent(event("a", 1, 0))
	timeline.ApplyEvent(event("b2", 5, time.Second))
	timeline.ApplyEvent(event("b1", 4, time.Second))

	if diff := cmp.Diff([]string{"a", "b1", "b2", "c"}, ids(timeline.Events())); diff != "" {
		t.Fatalf("unexpected order (-want +got):\n%s", diff)
	}
}

func TestTimelineIgnoresStaleJobRows(t *testing.T) {
	timeline := NewTimeline()
	timeline.Mount(launchhttp.JobDTO{ID: "job-1", Status: "running", Percent: 40, UpdatedAt: t0.Add(time.Minute)}, nil)

	if timeline.ApplyJob(launchhttp.JobDTO{ID: "job-1", Status: "running", Percent: 20, UpdatedAt: t0}) {
		t.Fatal("expected older job row rejected")
	}
	if !timeline.ApplyJob(launchhttp.JobDTO{ID: "job-1", Status: "done", Percent: 100, UpdatedAt: t0.Add(2 * time.Minute)}) {
		t.Fatal("expected newer job row applied")
	}
	if !timeline.Terminal() {
		t.Fatal("expected terminal timeline")
	}
	if timeline.ApplyJob(launchhttp.JobDTO{ID: "job-1", Status: "running", UpdatedAt: t0.Add(3 * time.Minute)}) {
		t.Fatal("expected terminal job never to regress")
	}
	if timeline.Job().Percent != 100 {
		t.Fatalf("expected percent 100, got %d", timeline.Job().Percent)
	}
}

func TestTimelineMountsOnce(t *testing.T) {
	timeline := NewTimeline()
	if timeline.Terminal() || timeline.Mounted() {
		t.Fatal("expected fresh timeline unmounted")
	}
	if !timeline.Mount(launchhttp.JobDTO{ID: "job-1", Status: "queued"}, nil) {
		t.Fatal("expected first mount to succeed")
	}
	if timeline.Mount(launchhttp.JobDTO{ID: "job-1", Status: "done"}, []launchhttp.ProgressEventDTO{event("x", 1, 0)}) {
		t.Fatal("expected second mount ignored")
	}
	if len(timeline.Events()) != 0 || timeline.Job().Status != "queued" {
		t.Fatal("expected second mount to leave state untouched")
	}
}
