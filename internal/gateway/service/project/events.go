package project

import (
	"context"
	"sync"
	"time"

	projectrepo "ghimport/internal/gateway/repository/project"
)

// StatusRemoved ends the stream of a project deleted while it was importing.
// It is never persisted.
const StatusRemoved projectrepo.Status = "removed"

// Event is an import status change.
type Event struct {
	ProjectID string             `json:"project_id"`
	Status    projectrepo.Status `json:"status"`
	Error     string             `json:"error,omitempty"`
	At        time.Time          `json:"at"`
}

// Terminal reports whether no further events follow ev.
func (ev Event) Terminal() bool {
	return ev.Status != projectrepo.StatusImporting
}

type eventState struct {
	last    Event
	changed chan struct{}
}

// Events fans import status out to subscribers. Only imports in progress
// have state; subscribers always see the latest status and intermediate
// states may be skipped for slow readers.
type Events struct {
	mu   sync.Mutex
	byID map[string]*eventState
}

func NewEvents() *Events {
	return &Events{byID: make(map[string]*eventState)}
}

// Publish records ev as the latest status and wakes subscribers. A terminal
// event drops the project's state once delivered to current subscribers.
func (e *Events) Publish(ev Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	st, ok := e.byID[ev.ProjectID]
	if !ok {
		if ev.Terminal() {
			return
		}
		st = &eventState{changed: make(chan struct{})}
		e.byID[ev.ProjectID] = st
	}
	st.last = ev
	close(st.changed)
	if ev.Terminal() {
		delete(e.byID, ev.ProjectID)
		return
	}
	st.changed = make(chan struct{})
}

// Forget ends every stream of a removed project.
func (e *Events) Forget(projectID string, at time.Time) {
	e.Publish(Event{ProjectID: projectID, Status: StatusRemoved, At: at})
}

// Len is the number of projects with live state.
func (e *Events) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.byID)
}

// Subscribe emits initial, or the newer published status, and every later
// change until ctx is done or the status is terminal. A terminal initial
// event is sent alone.
func (e *Events) Subscribe(ctx context.Context, projectID string, initial Event) <-chan Event {
	out := make(chan Event, 4)

	var st *eventState
	if !initial.Terminal() {
		e.mu.Lock()
		st = e.byID[projectID]
		if st == nil {
			st = &eventState{last: initial, changed: make(chan struct{})}
			e.byID[projectID] = st
		}
		e.mu.Unlock()
	}

	go func() {
		defer close(out)
		if st == nil {
			select {
			case out <- initial:
			case <-ctx.Done():
			}
			return
		}
		var lastSent Event
		sent := false
		for {
			e.mu.Lock()
			ev, ch := st.last, st.changed
			e.mu.Unlock()

			if !sent || ev != lastSent {
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
				lastSent, sent = ev, true
			}
			if ev.Terminal() {
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-ch:
			}
		}
	}()
	return out
}
