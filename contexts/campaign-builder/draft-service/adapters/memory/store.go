package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"adpilot/contexts/campaign-builder/draft-service/domain/entities"
	domainerrors "adpilot/contexts/campaign-builder/draft-service/domain/errors"
	"adpilot/contexts/campaign-builder/draft-service/ports"
)

type Store struct {
	mu sync.RWMutex

	drafts map[string]entities.Draft
	byKey  map[string]string
	now    func() time.Time
}

func NewStore(seed []entities.Draft) *Store {
	store := &Store{
		drafts: make(map[string]entities.Draft, len(seed)),
		byKey:  make(map[string]string, len(seed)),
		now:    time.Now,
	}
	for _, draft := range seed {
		store.drafts[draft.DraftID] = cloneDraft(draft)
		if key := strings.TrimSpace(draft.IdempotencyKey); key != "" {
			store.byKey[key] = draft.DraftID
		}
	}
	return store
}

func (s *Store) CreateDraft(_ context.Context, draft entities.Draft) (entities.Draft, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if key := strings.TrimSpace(draft.IdempotencyKey); key != "" {
		if existingID, ok := s.byKey[key]; ok {
			return cloneDraft(s.drafts[existingID]), false, nil
		}
	}
	if existing, ok := s.drafts[draft.DraftID]; ok {
		return cloneDraft(existing), false, nil
	}
	s.drafts[draft.DraftID] = cloneDraft(draft)
	if key := strings.TrimSpace(draft.IdempotencyKey); key != "" {
		s.byKey[key] = draft.DraftID
	}
	return cloneDraft(draft), true, nil
}

func (s *Store) GetDraft(_ context.Context, draftID string) (entities.Draft, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	draft, ok := s.drafts[strings.TrimSpace(draftID)]
	if !ok {
		return entities.Draft{}, domainerrors.ErrDraftNotFound
	}
	return cloneDraft(draft), nil
}

func (s *Store) UpdateDraft(_ context.Context, input ports.UpdateDraftInput) (entities.Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	draft, err := s.compareLocked(input.DraftID, input.ExpectedVersion)
	if err != nil {
		return entities.Draft{}, err
	}
	if !draft.IsEditable() {
		return entities.Draft{}, domainerrors.ErrDraftNotEditable
	}
	draft.Payload = append([]byte(nil), input.Payload...)
	draft.AdAccountID = input.AdAccountID
	draft.CreativeID = input.CreativeID
	draft.Version++
	draft.UpdatedAt = input.UpdatedAt.UTC()
	s.drafts[draft.DraftID] = draft
	return cloneDraft(draft), nil
}

func (s *Store) UpdateStatus(_ context.Context, input ports.UpdateStatusInput) (entities.Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	draft, err := s.compareLocked(input.DraftID, input.ExpectedVersion)
	if err != nil {
		return entities.Draft{}, err
	}
	if !draft.IsEditable() {
		return entities.Draft{}, domainerrors.ErrDraftNotEditable
	}
	draft.Status = input.Status
	if input.JobID != "" {
		draft.JobID = input.JobID
	}
	draft.Version++
	draft.UpdatedAt = input.UpdatedAt.UTC()
	s.drafts[draft.DraftID] = draft
	return cloneDraft(draft), nil
}

func (s *Store) ReopenDraft(_ context.Context, input ports.ReopenDraftInput) (entities.Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	draft, err := s.compareLocked(input.DraftID, input.ExpectedVersion)
	if err != nil {
		return entities.Draft{}, err
	}
	if draft.Status != entities.DraftStatusSubmitted || draft.JobID != strings.TrimSpace(input.JobID) {
		return entities.Draft{}, domainerrors.ErrDraftNotEditable
	}
	draft.Status = entities.DraftStatusPending
	draft.JobID = ""
	draft.Version++
	draft.UpdatedAt = input.UpdatedAt.UTC()
	s.drafts[draft.DraftID] = draft
	return cloneDraft(draft), nil
}

func (s *Store) compareLocked(draftID string, expectedVersion int) (entities.Draft, error) {
	draft, ok := s.drafts[strings.TrimSpace(draftID)]
	if !ok {
		return entities.Draft{}, domainerrors.ErrDraftNotFound
	}
	if draft.Version != expectedVersion {
		return entities.Draft{}, domainerrors.ErrVersionConflict
	}
	return draft, nil
}

func (s *Store) Now() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.now().UTC()
}

func cloneDraft(draft entities.Draft) entities.Draft {
	draft.Payload = append([]byte(nil), draft.Payload...)
	return draft
}
