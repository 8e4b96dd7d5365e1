package workers

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"adpilot/contexts/campaign-builder/launch-service/adapters/memory"
	"adpilot/contexts/campaign-builder/launch-service/adapters/queue"
	"adpilot/contexts/campaign-builder/launch-service/domain/entities"
	"adpilot/contexts/campaign-builder/launch-service/ports"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func TestReaperResolvesStaleRunningJobs(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := memory.NewStore([]entities.Job{
		{JobID: "stuck", OwnerID: "u", Status: entities.JobStatusQueued, CreatedAt: start, UpdatedAt: start},
		{JobID: "quiet", OwnerID: "u", Status: entities.JobStatusQueued, CreatedAt: start, UpdatedAt: start},
		{JobID: "busy", OwnerID: "u", Status: entities.JobStatusQueued, CreatedAt: start, UpdatedAt: start},
	})
	for _, id := range []string{"stuck", "quiet"} {
		if _, err := store.ClaimJob(ctx, id, start); err != nil {
			t.Fatalf("claim %s failed: %v", id, err)
		}
	}
	if _, err := store.ClaimJob(ctx, "busy", start.Add(15*time.Minute)); err != nil {
		t.Fatalf("claim busy failed: %v", err)
	}
	for _, status := range []entities.EventStatus{entities.EventStatusLoading, entities.EventStatusSuccess} {
		if _, err := store.AppendEvent(ctx, ports.RecordEventInput{JobID: "stuck", Step: "campaign", Status: status, CreatedAt: start}); err != nil {
			t.Fatalf("append failed: %v", err)
		}
	}
	if _, err := store.AppendEvent(ctx, ports.RecordEventInput{JobID: "stuck", Step: "adset", Status: entities.EventStatusLoading, CreatedAt: start}); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	reaper := StaleJobReaper{
		Jobs:       store,
		Events:     store,
		Clock:      fixedClock{now: start.Add(20 * time.Minute)},
		IDGen:      store,
		StaleAfter: 10 * time.Minute,
	}
	resolved, err := reaper.RunOnce(ctx)
	if err != nil {
		t.Fatalf("reaper failed: %v", err)
	}
	if resolved != 2 {
		t.Fatalf("expected 2 resolved jobs, got %d", resolved)
	}

	stuck, _ := store.GetJob(ctx, "stuck")
	if stuck.Status != entities.JobStatusError || stuck.Error != staleJobMessage {
		t.Fatalf("expected stuck job in error, got %+v", stuck)
	}
	history, _ := store.ListEvents(ctx, "stuck", 0)
	last := history[len(history)-1]
	if last.Step != "adset" || last.Status != entities.EventStatusError {
		t.Fatalf("expected open adset step closed with error, got %+v", last)
	}
	if open := entities.OpenSteps(history); len(open) != 0 {
		t.Fatalf("expected no open steps, got %v", open)
	}

	quiet, _ := store.ListEvents(ctx, "quiet", 0)
	if len(quiet) != 2 || quiet[0].Step != "orchestration" || quiet[1].Status != entities.EventStatusError {
		t.Fatalf("expected orchestration loading then error, got %+v", quiet)
	}

	busy, _ := store.GetJob(ctx, "busy")
	if busy.Status != entities.JobStatusRunning {
		t.Fatalf("expected recent job untouched, got %s", busy.Status)
	}
}

func TestReaperStartHonorsFlagAndSchedule(t *testing.T) {
	if err := (StaleJobReaper{Disabled: true}).Start(context.Background()); err != nil {
		t.Fatalf("disabled reaper should start cleanly, got %v", err)
	}
	if err := (StaleJobReaper{Schedule: "not a schedule"}).Start(context.Background()); err == nil {
		t.Fatal("expected invalid schedule error")
	}

	ctx, cancel := context.WithCancel(context.Background())
	store := memory.NewStore(nil)
	if err := (StaleJobReaper{Jobs: store, Events: store, IDGen: store}).Start(ctx); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	cancel()
	// let the scheduler goroutine observe cancellation before goleak runs
	time.Sleep(50 * time.Millisecond)
}

type executorFunc func(ctx context.Context, jobID string) error

func (f executorFunc) Execute(ctx context.Context, jobID string) error { return f(ctx, jobID) }

func TestLaunchConsumerRunsExecutorPerTask(t *testing.T) {
	tasks := queue.NewMemory(4, 2, nil)
	var mu sync.Mutex
	var ran []string
	var wg sync.WaitGroup
	wg.Add(2)
	consumer := LaunchConsumer{
		Source: tasks,
		Executor: executorFunc(func(_ context.Context, jobID string) error {
			defer wg.Done()
			mu.Lock()
			ran = append(ran, jobID)
			mu.Unlock()
			if jobID == "bad" {
				return errors.New("pipeline failed")
			}
			return nil
		}),
	}
	if err := consumer.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	_ = tasks.Enqueue(context.Background(), ports.LaunchTask{JobID: "good"})
	_ = tasks.Enqueue(context.Background(), ports.LaunchTask{JobID: "bad"})
	wg.Wait()
	tasks.Close()

	if len(ran) != 2 {
		t.Fatalf("expected 2 executions, got %v", ran)
	}
}

func TestLaunchConsumerDisabled(t *testing.T) {
	consumer := LaunchConsumer{Disabled: true}
	if err := consumer.Start(context.Background()); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}
