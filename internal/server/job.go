package server

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

type JobState string

const (
	JobRunning   JobState = "running"
	JobDone      JobState = "done"
	JobFailed    JobState = "failed"
	JobCancelled JobState = "cancelled"
)

// Event is one progress snapshot pushed to websocket subscribers and
// returned from the status endpoint.
type Event struct {
	State     JobState `json:"state"`
	Completed int      `json:"completed"`
	Total     int      `json:"total"`
	Text      string   `json:"text,omitempty"`
	Language  string   `json:"language,omitempty"`
	Error     string   `json:"error,omitempty"`
	ErrorKind string   `json:"error_kind,omitempty"`
}

// Job tracks one transcription request. The segment loop runs on a
// single goroutine; everything here is just bookkeeping around it.
type Job struct {
	ID       string
	Filename string

	mu          sync.Mutex
	state       JobState
	completed   int
	total       int
	text        string
	language    string
	errText     string
	errKind     string
	subscribers []chan Event
	cancel      context.CancelFunc
}

func newJob(filename string, cancel context.CancelFunc) *Job {
	return &Job{
		ID:       uuid.NewString(),
		Filename: filename,
		state:    JobRunning,
		cancel:   cancel,
	}
}

func (j *Job) Snapshot() Event {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.snapshotLocked()
}

func (j *Job) snapshotLocked() Event {
	return Event{
		State:     j.state,
		Completed: j.completed,
		Total:     j.total,
		Text:      j.text,
		Language:  j.language,
		Error:     j.errText,
		ErrorKind: j.errKind,
	}
}

// Subscribe returns a channel receiving every subsequent event plus an
// immediate snapshot. The channel closes once the job reaches a
// terminal state.
func (j *Job) Subscribe() <-chan Event {
	ch := make(chan Event, 16)

	j.mu.Lock()
	snapshot := j.snapshotLocked()
	terminal := j.state != JobRunning
	if !terminal {
		j.subscribers = append(j.subscribers, ch)
	}
	j.mu.Unlock()

	ch <- snapshot
	if terminal {
		close(ch)
	}
	return ch
}

func (j *Job) progress(completed, total int) {
	j.mu.Lock()
	j.completed = completed
	j.total = total
	event := j.snapshotLocked()
	subs := j.subscribers
	j.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- event:
		default:
			// Slow subscriber; it will catch up from the next event
			// or the final snapshot on the status endpoint.
		}
	}
}

func (j *Job) finish(state JobState, text, language, errText, errKind string) {
	j.mu.Lock()
	if j.state != JobRunning {
		j.mu.Unlock()
		return
	}
	j.state = state
	j.text = text
	j.language = language
	j.errText = errText
	j.errKind = errKind
	event := j.snapshotLocked()
	subs := j.subscribers
	j.subscribers = nil
	j.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- event:
		default:
			// Subscriber stopped reading; the terminal snapshot stays
			// reachable through the status endpoint.
		}
		close(ch)
	}
}

// Cancel requests a stop before the next segment starts. Already
// finished jobs ignore it.
func (j *Job) Cancel() {
	if j.cancel != nil {
		j.cancel()
	}
}

// Registry is the in-memory job table. Jobs die with the process; the
// design has no persistence on purpose.
type Registry struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

func NewRegistry() *Registry {
	return &Registry{jobs: make(map[string]*Job)}
}

func (r *Registry) Add(job *Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.ID] = job
}

func (r *Registry) Get(id string) (*Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[id]
	return job, ok
}
