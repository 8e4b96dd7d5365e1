package adplatform

import (
	"context"
	"fmt"
	"sync"
	"time"

	"adpilot/contexts/campaign-builder/launch-service/domain/entities"
	domainerrors "adpilot/contexts/campaign-builder/launch-service/domain/errors"
	"adpilot/contexts/campaign-builder/launch-service/ports"
)

// SandboxCall records one request the sandbox received.
type SandboxCall struct {
	Operation ports.RemoteOperation
	Kind      entities.StageKind
	Path      string
	Payload   map[string]any
}

// Sandbox is an in-process ad platform used when no base URL is configured
// and by tests. Failures and delays can be scripted per entity kind, and
// failures per entity name.
type Sandbox struct {
	mu       sync.Mutex
	calls    []SandboxCall
	counters map[entities.StageKind]int
	failures map[entities.StageKind]*domainerrors.RemoteAPIError
	named    map[namedEntity]*domainerrors.RemoteAPIError
	delays   map[entities.StageKind]time.Duration
	deleted  []string
}

type namedEntity struct {
	kind entities.StageKind
	name string
}

func NewSandbox() *Sandbox {
	return &Sandbox{
		counters: make(map[entities.StageKind]int),
		failures: make(map[entities.StageKind]*domainerrors.RemoteAPIError),
		named:    make(map[namedEntity]*domainerrors.RemoteAPIError),
		delays:   make(map[entities.StageKind]time.Duration),
	}
}

// FailOn makes every create of kind fail with the platform error envelope
// {message, type, code} and the given HTTP status.
func (s *Sandbox) FailOn(kind entities.StageKind, status int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[kind] = scriptedFailure(kind, status, message)
}

// FailOnName fails only creates of kind whose payload name equals name.
func (s *Sandbox) FailOnName(kind entities.StageKind, name string, status int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.named[namedEntity{kind: kind, name: name}] = scriptedFailure(kind, status, message)
}

func scriptedFailure(kind entities.StageKind, status int, message string) *domainerrors.RemoteAPIError {
	return &domainerrors.RemoteAPIError{
		Kind:       string(kind),
		Operation:  string(ports.RemoteCreate),
		StatusCode: status,
		Message:    message,
		Type:       "OAuthException",
		Code:       100,
	}
}

// DelayOn makes every call for kind wait d or until the context ends.
func (s *Sandbox) DelayOn(kind entities.StageKind, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays[kind] = d
}

func (s *Sandbox) Create(ctx context.Context, req ports.RemoteRequest) (string, error) {
	if err := s.wait(ctx, req.Kind, ports.RemoteCreate); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, SandboxCall{Operation: ports.RemoteCreate, Kind: req.Kind, Path: req.Path, Payload: req.Payload})
	if failure, ok := s.failures[req.Kind]; ok {
		copied := *failure
		return "", &copied
	}
	if name, ok := req.Payload["name"].(string); ok {
		if failure, ok := s.named[namedEntity{kind: req.Kind, name: name}]; ok {
			copied := *failure
			return "", &copied
		}
	}
	s.counters[req.Kind]++
	return fmt.Sprintf("%s_%d", req.Kind, s.counters[req.Kind]), nil
}

func (s *Sandbox) Update(ctx context.Context, req ports.RemoteRequest) error {
	if err := s.wait(ctx, req.Kind, ports.RemoteUpdate); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, SandboxCall{Operation: ports.RemoteUpdate, Kind: req.Kind, Path: req.Path, Payload: req.Payload})
	return nil
}

func (s *Sandbox) Delete(ctx context.Context, req ports.RemoteRequest) error {
	if err := s.wait(ctx, req.Kind, ports.RemoteDelete); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, SandboxCall{Operation: ports.RemoteDelete, Kind: req.Kind, Path: req.Path})
	s.deleted = append(s.deleted, req.Path)
	return nil
}

func (s *Sandbox) Get(ctx context.Context, req ports.RemoteRequest) (map[string]any, error) {
	if err := s.wait(ctx, req.Kind, ports.RemoteGet); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, SandboxCall{Operation: ports.RemoteGet, Kind: req.Kind, Path: req.Path})
	return map[string]any{"id": req.Path, "status": "PAUSED"}, nil
}

// Calls returns a copy of every recorded call in arrival order.
func (s *Sandbox) Calls() []SandboxCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SandboxCall(nil), s.calls...)
}

// Deleted lists the paths compensating deletes were issued for.
func (s *Sandbox) Deleted() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.deleted...)
}

func (s *Sandbox) wait(ctx context.Context, kind entities.StageKind, operation ports.RemoteOperation) error {
	s.mu.Lock()
	delay := s.delays[kind]
	s.mu.Unlock()
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return &domainerrors.RemoteAPIError{
			Kind:      string(kind),
			Operation: string(operation),
			Message:   "ad platform did not respond in time",
			Transport: true,
			Cause:     ctx.Err(),
		}
	}
}
