package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"adpilot/contexts/campaign-builder/launch-service/domain/entities"
	domainerrors "adpilot/contexts/campaign-builder/launch-service/domain/errors"
	"adpilot/contexts/campaign-builder/launch-service/ports"

	"github.com/google/uuid"
)

type Store struct {
	mu sync.RWMutex

	jobs        map[string]entities.Job
	events      map[string][]entities.ProgressEvent
	idempotency map[string]ports.IdempotencyRecord
	now         func() time.Time
}

func NewStore(seed []entities.Job) *Store {
	store := &Store{
		jobs:        make(map[string]entities.Job, len(seed)),
		events:      make(map[string][]entities.ProgressEvent),
		idempotency: make(map[string]ports.IdempotencyRecord),
		now:         time.Now,
	}
	for _, job := range seed {
		store.jobs[job.JobID] = cloneJob(job)
	}
	return store
}

// SetClock overrides the store clock for tests.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) CreateJob(_ context.Context, job entities.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := strings.TrimSpace(job.JobID)
	if id == "" {
		return domainerrors.ErrInvalidSubmission
	}
	if _, exists := s.jobs[id]; exists {
		return domainerrors.ErrIdempotencyKeyConflict
	}
	s.jobs[id] = cloneJob(job)
	return nil
}

func (s *Store) GetJob(_ context.Context, jobID string) (entities.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[strings.TrimSpace(jobID)]
	if !ok {
		return entities.Job{}, domainerrors.ErrJobNotFound
	}
	return cloneJob(job), nil
}

func (s *Store) ClaimJob(_ context.Context, jobID string, now time.Time) (entities.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[strings.TrimSpace(jobID)]
	if !ok {
		return entities.Job{}, domainerrors.ErrJobNotFound
	}
	if job.Status != entities.JobStatusQueued {
		return entities.Job{}, domainerrors.ErrJobNotClaimable
	}
	job.Status = entities.JobStatusRunning
	job.Step = entities.StepStarted
	job.Attempt++
	job.UpdatedAt = now.UTC()
	s.jobs[job.JobID] = job
	return cloneJob(job), nil
}

func (s *Store) AdvanceJob(_ context.Context, jobID string, patch entities.JobPatch, now time.Time) (entities.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[strings.TrimSpace(jobID)]
	if !ok {
		return entities.Job{}, domainerrors.ErrJobNotFound
	}
	if job.Status.IsTerminal() {
		return entities.Job{}, domainerrors.ErrJobTerminal
	}
	job = entities.ApplyPatch(job, patch, now)
	s.jobs[job.JobID] = job
	return cloneJob(job), nil
}

func (s *Store) RequestCancel(_ context.Context, jobID string, now time.Time) (entities.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[strings.TrimSpace(jobID)]
	if !ok {
		return entities.Job{}, domainerrors.ErrJobNotFound
	}
	switch job.Status {
	case entities.JobStatusQueued:
		job.Status = entities.JobStatusCanceled
		job.CancelRequested = true
	case entities.JobStatusRunning:
		job.CancelRequested = true
	default:
		return entities.Job{}, domainerrors.ErrJobTerminal
	}
	job.UpdatedAt = now.UTC()
	s.jobs[job.JobID] = job
	return cloneJob(job), nil
}

func (s *Store) ListStaleRunning(_ context.Context, cutoff time.Time, limit int) ([]entities.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]entities.Job, 0)
	for _, job := range s.jobs {
		if job.Status == entities.JobStatusRunning && job.UpdatedAt.Before(cutoff) {
			items = append(items, cloneJob(job))
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].UpdatedAt.Before(items[j].UpdatedAt)
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Store) AppendEvent(_ context.Context, input ports.RecordEventInput) (entities.ProgressEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	jobID := strings.TrimSpace(input.JobID)
	if _, ok := s.jobs[jobID]; !ok {
		return entities.ProgressEvent{}, domainerrors.ErrUnknownJobForEvent
	}
	existing := s.events[jobID]
	var seq int64 = 1
	if len(existing) > 0 {
		seq = existing[len(existing)-1].Seq + 1
	}
	createdAt := input.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = s.now().UTC()
	}
	eventID := strings.TrimSpace(input.EventID)
	if eventID == "" {
		eventID = uuid.NewString()
	}
	event := entities.ProgressEvent{
		EventID:   eventID,
		JobID:     jobID,
		Step:      input.Step,
		Status:    input.Status,
		Percent:   copyPercent(input.Percent),
		Message:   input.Message,
		Meta:      entities.CopyMeta(input.Meta),
		Seq:       seq,
		CreatedAt: createdAt,
	}
	s.events[jobID] = append(existing, event)
	return cloneEvent(event), nil
}

func (s *Store) ListEvents(_ context.Context, jobID string, afterSeq int64) ([]entities.ProgressEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobID = strings.TrimSpace(jobID)
	if _, ok := s.jobs[jobID]; !ok {
		return nil, domainerrors.ErrJobNotFound
	}
	items := make([]entities.ProgressEvent, 0, len(s.events[jobID]))
	for _, event := range s.events[jobID] {
		if event.Seq > afterSeq {
			items = append(items, cloneEvent(event))
		}
	}
	return items, nil
}

func (s *Store) ReserveRecord(_ context.Context, record ports.IdempotencyRecord, now time.Time) (ports.IdempotencyRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.TrimSpace(record.Key)
	if existing, ok := s.idempotency[key]; ok {
		if existing.ExpiresAt.IsZero() || !now.After(existing.ExpiresAt) {
			existing.ResponsePayload = append([]byte(nil), existing.ResponsePayload...)
			return existing, false, nil
		}
	}
	record.Key = key
	record.ResponsePayload = append([]byte(nil), record.ResponsePayload...)
	s.idempotency[key] = record
	return record, true, nil
}

func (s *Store) CompleteRecord(_ context.Context, key string, requestHash string, response []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key = strings.TrimSpace(key)
	record, ok := s.idempotency[key]
	if !ok || record.RequestHash != requestHash {
		return domainerrors.ErrIdempotencyKeyConflict
	}
	record.ResponsePayload = append([]byte(nil), response...)
	s.idempotency[key] = record
	return nil
}

func (s *Store) ReleaseRecord(_ context.Context, key string, requestHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key = strings.TrimSpace(key)
	if record, ok := s.idempotency[key]; ok && record.RequestHash == requestHash && len(record.ResponsePayload) == 0 {
		delete(s.idempotency, key)
	}
	return nil
}

func (s *Store) Now() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

func cloneJob(job entities.Job) entities.Job {
	job.Meta = entities.CopyMeta(job.Meta)
	job.Input = append([]byte(nil), job.Input...)
	return job
}

func cloneEvent(event entities.ProgressEvent) entities.ProgressEvent {
	event.Meta = entities.CopyMeta(event.Meta)
	event.Percent = copyPercent(event.Percent)
	return event
}

func copyPercent(value *int) *int {
	if value == nil {
		return nil
	}
	out := *value
	return &out
}
