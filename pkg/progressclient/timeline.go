package progressclient

import (
	"sort"
	"sync"

	launchhttp "adpilot/contexts/campaign-builder/launch-service/transport/http"
)

var terminalStatuses = map[string]struct{}{
	"done":     {},
	"error":    {},
	"canceled": {},
}

// Timeline is the consumer's live view of one job. It is mounted once from
// a full read and then only ever patched by pushed messages. Safe for
// concurrent use.
type Timeline struct {
	mu      sync.RWMutex
	mounted bool
	job     launchhttp.JobDTO
	events  []launchhttp.ProgressEventDTO
	seen    map[string]struct{}
	lastSeq int64
}

func NewTimeline() *Timeline {
	return &Timeline{seen: make(map[string]struct{})}
}

// Mount seeds the timeline with the job row and its history. A second
// Mount is ignored.
func (t *Timeline) Mount(job launchhttp.JobDTO, history []launchhttp.ProgressEventDTO) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.mounted {
		return false
	}
	t.mounted = true
	t.job = job
	for _, event := range history {
		t.insertLocked(event)
	}
	return true
}

// ApplyJob replaces the job row unless the incoming copy is older than the
// one held, or the held copy is already terminal.
func (t *Timeline) ApplyJob(job launchhttp.JobDTO) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.mounted {
		if job.UpdatedAt.Before(t.job.UpdatedAt) {
			return false
		}
		if isTerminal(t.job.Status) && !isTerminal(job.Status) {
			return false
		}
	}
	t.mounted = true
	t.job = job
	return true
}

// ApplyEvent inserts a pushed event in created_at order. Redelivered events
// are dropped by id.
func (t *Timeline) ApplyEvent(event launchhttp.ProgressEventDTO) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.insertLocked(event)
}

func (t *Timeline) insertLocked(event launchhttp.ProgressEventDTO) bool {
	if _, dup := t.seen[event.ID]; dup {
		return false
	}
	t.seen[event.ID] = struct{}{}
	if event.Seq > t.lastSeq {
		t.lastSeq = event.Seq
	}

	at := sort.Search(len(t.events), func(i int) bool {
		return eventAfter(t.events[i], event)
	})
	t.events = append(t.events, launchhttp.ProgressEventDTO{})
	copy(t.events[at+1:], t.events[at:])
	t.events[at] = event
	return true
}

// eventAfter reports whether a sorts strictly after b.
func eventAfter(a, b launchhttp.ProgressEventDTO) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.Seq > b.Seq
}

func (t *Timeline) Job() launchhttp.JobDTO {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.job
}

func (t *Timeline) Events() []launchhttp.ProgressEventDTO {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]launchhttp.ProgressEventDTO(nil), t.events...)
}

// LastSeq is the highest event seq held, used to resume a stream.
func (t *Timeline) LastSeq() int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lastSeq
}

func (t *Timeline) Mounted() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.mounted
}

// Terminal gates the done/error affordance.
func (t *Timeline) Terminal() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.mounted && isTerminal(t.job.Status)
}

func isTerminal(status string) bool {
	_, ok := terminalStatuses[status]
	return ok
}
