package entities

import (
	"sort"
	"time"
)

type EventStatus string

const (
	EventStatusLoading EventStatus = "loading"
	EventStatusSuccess EventStatus = "success"
	EventStatusError   EventStatus = "error"
)

func (s EventStatus) IsTerminal() bool {
	return s == EventStatusSuccess || s == EventStatusError
}

// ProgressEvent is one append-only record of a step attempt transition.
// Seq is assigned by the event log and is strictly increasing per job.
type ProgressEvent struct {
	EventID   string
	JobID     string
	Step      string
	Status    EventStatus
	Percent   *int
	Message   string
	Meta      map[string]any
	Seq       int64
	CreatedAt time.Time
}

// SortEvents orders by created_at with seq breaking ties.
func SortEvents(items []ProgressEvent) {
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.Before(items[j].CreatedAt)
		}
		return items[i].Seq < items[j].Seq
	})
}

// OpenSteps returns steps whose latest event is still loading, in the order
// they were opened.
func OpenSteps(items []ProgressEvent) []string {
	last := make(map[string]EventStatus, len(items))
	order := make([]string, 0)
	for _, item := range items {
		if _, seen := last[item.Step]; !seen {
			order = append(order, item.Step)
		}
		last[item.Step] = item.Status
	}
	open := make([]string, 0)
	for _, step := range order {
		if last[step] == EventStatusLoading {
			open = append(open, step)
		}
	}
	return open
}
