package pipeline_test

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"adpilot/contexts/campaign-builder/launch-service/adapters/adplatform"
	"adpilot/contexts/campaign-builder/launch-service/adapters/memory"
	"adpilot/contexts/campaign-builder/launch-service/application/pipeline"
	"adpilot/contexts/campaign-builder/launch-service/domain/entities"
	"adpilot/contexts/campaign-builder/launch-service/domain/services/params"
	"adpilot/contexts/campaign-builder/launch-service/ports"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const singleChainSpec = `{
	"adAccountId": "123",
	"destinationType": "WEBSITE",
	"objective": "OUTCOME_TRAFFIC",
	"campaign": {"name": "Spring Sale", "dailyBudget": 5000},
	"adSets": [{
		"adSetName": "US Broad",
		"targeting": {"countries": ["US"], "ageMin": 21},
		"creatives": [{"name": "Hero", "pageId": "p1", "linkUrl": "https://shop.example", "message": "Hi"}]
	}]
}`

type stepStatus struct {
	Step   string
	Status entities.EventStatus
}

type harness struct {
	store   *memory.Store
	sandbox *adplatform.Sandbox
	stages  pipeline.Pipeline
}

func newHarness(remote ports.RemoteEntityClient) harness {
	store := memory.NewStore(nil)
	sandbox := adplatform.NewSandbox()
	if remote == nil {
		remote = sandbox
	}
	return harness{
		store:   store,
		sandbox: sandbox,
		stages: pipeline.Pipeline{
			Jobs:          store,
			Events:        store,
			Remote:        remote,
			Credentials:   adplatform.StaticCredentials{Token: "token"},
			Builder:       params.NewBuilder(nil, params.Catalog{}),
			Clock:         store,
			IDGen:         store,
			Fanout:        2,
			RemoteTimeout: time.Second,
		},
	}
}

func (h harness) seed(t *testing.T, jobID string, spec string) {
	t.Helper()
	now := time.Now().UTC()
	err := h.store.CreateJob(context.Background(), entities.Job{
		JobID:     jobID,
		OwnerID:   "owner-1",
		Type:      entities.JobTypeCampaignLaunch,
		Status:    entities.JobStatusQueued,
		Input:     json.RawMessage(spec),
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("seed job: %v", err)
	}
}

func (h harness) run(t *testing.T, jobID string) (entities.Job, []entities.ProgressEvent) {
	t.Helper()
	if err := h.stages.Execute(context.Background(), jobID); err != nil {
		t.Fatalf("execute: %v", err)
	}
	job, err := h.store.GetJob(context.Background(), jobID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	events, err := h.store.ListEvents(context.Background(), jobID, 0)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	return job, events
}

func transitions(events []entities.ProgressEvent) []stepStatus {
	out := make([]stepStatus, 0, len(events))
	for _, event := range events {
		out = append(out, stepStatus{Step: event.Step, Status: event.Status})
	}
	return out
}

// assertWellFormed checks that every terminal event follows a loading event
// for the same step and that no step attempt ends twice.
func assertWellFormed(t *testing.T, events []entities.ProgressEvent) {
	t.Helper()
	open := map[string]bool{}
	for _, event := range events {
		switch event.Status {
		case entities.EventStatusLoading:
			if open[event.Step] {
				t.Fatalf("step %s opened twice", event.Step)
			}
			open[event.Step] = true
		default:
			if !open[event.Step] {
				t.Fatalf("step %s ended with %s without loading", event.Step, event.Status)
			}
			open[event.Step] = false
		}
	}
}

func TestPipelineCreatesEveryEntityInStageOrder(t *testing.T) {
	h := newHarness(nil)
	h.seed(t, "job-a", singleChainSpec)

	job, events := h.run(t, "job-a")

	if job.Status != entities.JobStatusDone {
		t.Fatalf("expected done, got %s (%s)", job.Status, job.Error)
	}
	if job.Percent != 100 {
		t.Fatalf("expected percent 100, got %d", job.Percent)
	}
	want := []stepStatus{
		{"campaign", entities.EventStatusLoading},
		{"campaign", entities.EventStatusSuccess},
		{"adset", entities.EventStatusLoading},
		{"adset", entities.EventStatusSuccess},
		{"creative", entities.EventStatusLoading},
		{"creative", entities.EventStatusSuccess},
		{"ad", entities.EventStatusLoading},
		{"ad", entities.EventStatusSuccess},
	}
	if diff := cmp.Diff(want, transitions(events)); diff != "" {
		t.Fatalf("unexpected transitions (-want +got):\n%s", diff)
	}
	if job.Meta["campaignId"] != "campaign_1" {
		t.Fatalf("expected campaignId in job meta, got %v", job.Meta)
	}

	calls := h.sandbox.Calls()
	if len(calls) != 4 {
		t.Fatalf("expected 4 remote calls, got %d", len(calls))
	}
	if calls[1].Payload["campaign_id"] != "campaign_1" {
		t.Fatalf("ad set payload should reference the campaign id, got %v", calls[1].Payload)
	}
	if !strings.HasPrefix(calls[0].Path, "act_123/") {
		t.Fatalf("expected account-scoped path, got %s", calls[0].Path)
	}
}

func TestPipelineAdSetFailureHaltsLaunch(t *testing.T) {
	h := newHarness(nil)
	h.sandbox.FailOn(entities.StageAdSet, 400, "Invalid parameter")
	h.seed(t, "job-b", singleChainSpec)

	job, events := h.run(t, "job-b")

	if job.Status != entities.JobStatusError {
		t.Fatalf("expected error, got %s", job.Status)
	}
	if job.Error != "Invalid parameter" {
		t.Fatalf("expected platform message on job, got %q", job.Error)
	}
	if job.Step != "adset" {
		t.Fatalf("expected step to name the failed stage, got %q", job.Step)
	}
	want := []stepStatus{
		{"campaign", entities.EventStatusLoading},
		{"campaign", entities.EventStatusSuccess},
		{"adset", entities.EventStatusLoading},
		{"adset", entities.EventStatusError},
	}
	if diff := cmp.Diff(want, transitions(events)); diff != "" {
		t.Fatalf("unexpected transitions (-want +got):\n%s", diff)
	}
	for _, call := range h.sandbox.Calls() {
		if call.Kind == entities.StageCreative || call.Kind == entities.StageAd {
			t.Fatalf("no %s should be attempted after the ad set failed", call.Kind)
		}
	}
	if events[3].Message != "Invalid parameter" {
		t.Fatalf("expected error event message, got %q", events[3].Message)
	}
}

func TestPipelineSiblingAdSetFailureHaltsFanout(t *testing.T) {
	h := newHarness(nil)
	h.stages.Fanout = 3
	h.sandbox.FailOnName(entities.StageAdSet, "B", 400, "Invalid targeting")
	h.seed(t, "job-sib", `{
		"adAccountId": "act_3",
		"campaign": {"name": "Siblings"},
		"adSets": [
			{"adSetName": "A", "creatives": [{"name": "a1"}]},
			{"adSetName": "B", "creatives": [{"name": "b1"}]},
			{"adSetName": "C", "creatives": [{"name": "c1"}]}
		]
	}`)

	job, events := h.run(t, "job-sib")

	if job.Status != entities.JobStatusError {
		t.Fatalf("expected error, got %s", job.Status)
	}
	if job.Error != "Invalid targeting" {
		t.Fatalf("expected platform message on job, got %q", job.Error)
	}
	if got := job.Meta["failedStep"]; got != "adset:1" {
		t.Fatalf("expected failedStep adset:1, got %v", got)
	}
	assertWellFormed(t, events)

	for _, call := range h.sandbox.Calls() {
		if call.Kind == entities.StageCreative || call.Kind == entities.StageAd {
			t.Fatalf("no %s should be attempted after a sibling ad set failed", call.Kind)
		}
	}

	open := map[string]bool{}
	for _, event := range events {
		if !strings.HasPrefix(event.Step, "adset:") {
			continue
		}
		open[event.Step] = event.Status == entities.EventStatusLoading
	}
	if _, ok := open["adset:1"]; !ok {
		t.Fatalf("expected the failing ad set to report, got %v", transitions(events))
	}
	for step, loading := range open {
		if loading {
			t.Fatalf("step %s never reached a terminal event", step)
		}
	}
}

func TestPipelinePercentNeverDecreases(t *testing.T) {
	h := newHarness(nil)
	h.seed(t, "job-fan", `{
		"adAccountId": "act_9",
		"campaign": {"name": "Fan"},
		"adSets": [
			{"adSetName": "A", "creatives": [{"name": "a1"}, {"name": "a2"}]},
			{"adSetName": "B", "creatives": [{"name": "b1"}]}
		]
	}`)

	job, events := h.run(t, "job-fan")

	if job.Status != entities.JobStatusDone {
		t.Fatalf("expected done, got %s (%s)", job.Status, job.Error)
	}
	assertWellFormed(t, events)
	last := 0
	for _, event := range events {
		if event.Percent == nil {
			continue
		}
		if *event.Percent < last {
			t.Fatalf("percent went from %d to %d at %s", last, *event.Percent, event.Step)
		}
		last = *event.Percent
	}
	// 1 campaign + 2 ad sets + 3 creatives + 3 ads
	if got := len(h.sandbox.Calls()); got != 9 {
		t.Fatalf("expected 9 creates, got %d", got)
	}
}

func TestPipelineMultiVariantFansOutAdSetsAndAds(t *testing.T) {
	h := newHarness(nil)
	h.seed(t, "job-mv", `{
		"adAccountId": "1",
		"multiVariant": true,
		"campaign": {"name": "Test"},
		"adSets": [{"adSetName": "Base", "dailyBudget": 1000, "creatives": [{"name": "c"}]}]
	}`)

	job, _ := h.run(t, "job-mv")
	if job.Status != entities.JobStatusDone {
		t.Fatalf("expected done, got %s (%s)", job.Status, job.Error)
	}

	counts := map[entities.StageKind]int{}
	for _, call := range h.sandbox.Calls() {
		counts[call.Kind]++
	}
	want := map[entities.StageKind]int{
		entities.StageCampaign: 1,
		entities.StageAdSet:    3,
		entities.StageCreative: 1,
		entities.StageAd:       3,
	}
	if diff := cmp.Diff(want, counts); diff != "" {
		t.Fatalf("unexpected create counts (-want +got):\n%s", diff)
	}
}

func TestPipelineRemoteTimeoutResolvesJobToError(t *testing.T) {
	h := newHarness(nil)
	h.sandbox.DelayOn(entities.StageCampaign, 2*time.Second)
	h.stages.RemoteTimeout = 20 * time.Millisecond
	h.seed(t, "job-slow", singleChainSpec)

	job, events := h.run(t, "job-slow")

	if job.Status != entities.JobStatusError {
		t.Fatalf("expected error after timeout, got %s", job.Status)
	}
	if !strings.Contains(job.Error, "did not respond") {
		t.Fatalf("expected timeout message, got %q", job.Error)
	}
	if len(events) != 2 || events[1].Status != entities.EventStatusError {
		t.Fatalf("expected campaign loading then error, got %+v", transitions(events))
	}
	if events[1].Meta["transport"] != true {
		t.Fatalf("expected transport flag on error meta, got %v", events[1].Meta)
	}
}

type panickingRemote struct {
	*adplatform.Sandbox
}

func (panickingRemote) Create(context.Context, ports.RemoteRequest) (string, error) {
	panic("boom")
}

func TestPipelinePanicInStageResolvesJobToError(t *testing.T) {
	h := newHarness(panickingRemote{Sandbox: adplatform.NewSandbox()})
	h.seed(t, "job-panic", singleChainSpec)

	job, events := h.run(t, "job-panic")

	if job.Status != entities.JobStatusError {
		t.Fatalf("expected error, got %s", job.Status)
	}
	if !strings.Contains(job.Error, "boom") {
		t.Fatalf("expected panic value in error, got %q", job.Error)
	}
	assertWellFormed(t, events)
	if events[len(events)-1].Status != entities.EventStatusError {
		t.Fatalf("expected the open step to be closed with error")
	}
}

// cancelingRemote requests cancellation while the campaign is being created.
type cancelingRemote struct {
	*adplatform.Sandbox
	store *memory.Store
	jobID string
	once  sync.Once
}

func (r *cancelingRemote) Create(ctx context.Context, req ports.RemoteRequest) (string, error) {
	r.once.Do(func() {
		_, _ = r.store.RequestCancel(ctx, r.jobID, time.Now())
	})
	return r.Sandbox.Create(ctx, req)
}

func TestPipelineCancelIsHonouredBetweenStages(t *testing.T) {
	sandbox := adplatform.NewSandbox()
	remote := &cancelingRemote{Sandbox: sandbox, jobID: "job-cancel"}
	h := newHarness(remote)
	remote.store = h.store
	h.seed(t, "job-cancel", singleChainSpec)

	job, events := h.run(t, "job-cancel")

	if job.Status != entities.JobStatusCanceled {
		t.Fatalf("expected canceled, got %s", job.Status)
	}
	want := []stepStatus{
		{"campaign", entities.EventStatusLoading},
		{"campaign", entities.EventStatusSuccess},
	}
	if diff := cmp.Diff(want, transitions(events)); diff != "" {
		t.Fatalf("in-flight stage should finish, nothing after it (-want +got):\n%s", diff)
	}
	if got := len(sandbox.Calls()); got != 1 {
		t.Fatalf("expected only the campaign create, got %d calls", got)
	}
}

func TestPipelineRollbackDeletesCreatedEntitiesNewestFirst(t *testing.T) {
	h := newHarness(nil)
	h.stages.RollbackOnFailure = true
	h.sandbox.FailOn(entities.StageCreative, 500, "Service temporarily unavailable")
	h.seed(t, "job-rb", singleChainSpec)

	job, events := h.run(t, "job-rb")

	if job.Status != entities.JobStatusError {
		t.Fatalf("expected error, got %s", job.Status)
	}
	if diff := cmp.Diff([]string{"adset_1", "campaign_1"}, h.sandbox.Deleted()); diff != "" {
		t.Fatalf("unexpected compensating deletes (-want +got):\n%s", diff)
	}
	steps := map[string]entities.EventStatus{}
	for _, event := range events {
		steps[event.Step] = event.Status
	}
	if steps["rollback:campaign"] != entities.EventStatusSuccess || steps["rollback:adset"] != entities.EventStatusSuccess {
		t.Fatalf("expected rollback events, got %v", steps)
	}
	if job.Error != "Service temporarily unavailable" {
		t.Fatalf("rollback must not replace the original error, got %q", job.Error)
	}
}

func TestPipelineLeavesPartialEntitiesWithoutRollback(t *testing.T) {
	h := newHarness(nil)
	h.sandbox.FailOn(entities.StageAd, 400, "Ad creative rejected")
	h.seed(t, "job-partial", singleChainSpec)

	job, _ := h.run(t, "job-partial")

	if job.Status != entities.JobStatusError {
		t.Fatalf("expected error, got %s", job.Status)
	}
	if len(h.sandbox.Deleted()) != 0 {
		t.Fatalf("expected no deletes, got %v", h.sandbox.Deleted())
	}
	if job.Meta["failedStep"] != "ad" {
		t.Fatalf("expected failedStep=ad, got %v", job.Meta["failedStep"])
	}
	if job.Meta["campaignId"] != "campaign_1" {
		t.Fatalf("created ids should stay traceable, got %v", job.Meta)
	}
}

func TestPipelineRejectsInvalidSpecificationWithoutRemoteCalls(t *testing.T) {
	h := newHarness(nil)
	h.seed(t, "job-invalid", `{"campaign": {"name": ""}}`)

	job, events := h.run(t, "job-invalid")

	if job.Status != entities.JobStatusError {
		t.Fatalf("expected error, got %s", job.Status)
	}
	want := []stepStatus{
		{"orchestration", entities.EventStatusLoading},
		{"orchestration", entities.EventStatusError},
	}
	if diff := cmp.Diff(want, transitions(events)); diff != "" {
		t.Fatalf("unexpected transitions (-want +got):\n%s", diff)
	}
	if len(h.sandbox.Calls()) != 0 {
		t.Fatalf("no remote call expected")
	}
}

func TestPipelineSkipsJobThatIsNotQueued(t *testing.T) {
	h := newHarness(nil)
	h.seed(t, "job-done", singleChainSpec)
	if _, err := h.store.RequestCancel(context.Background(), "job-done", time.Now()); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	job, events := h.run(t, "job-done")

	if job.Status != entities.JobStatusCanceled {
		t.Fatalf("expected job untouched, got %s", job.Status)
	}
	if len(events) != 0 || len(h.sandbox.Calls()) != 0 {
		t.Fatalf("a job that is not queued must not run")
	}
}
