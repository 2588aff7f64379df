// Package schedule runs interval tasks behind an interface so tests can
// drive time by hand.
package schedule

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Cancel stops a scheduled task. Calling it more than once is safe.
type Cancel func()

type Scheduler interface {
	Every(d time.Duration, fn func()) (Cancel, error)
}

type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Cron runs tasks on a robfig/cron runner.
type Cron struct {
	cron *cron.Cron
}

func NewCron() *Cron {
	return &Cron{cron: cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))}
}

func (c *Cron) Start() { c.cron.Start() }

// Stop halts the runner and waits for running tasks to return.
func (c *Cron) Stop() {
	<-c.cron.Stop().Done()
}

func (c *Cron) Every(d time.Duration, fn func()) (Cancel, error) {
	if d <= 0 {
		return nil, errors.New("schedule: interval must be positive")
	}
	id := c.cron.Schedule(cron.Every(d), cron.FuncJob(fn))
	var once sync.Once
	return func() {
		once.Do(func() { c.cron.Remove(id) })
	}, nil
}

// Manual is a simulated clock and scheduler. Tasks only run inside
// Advance, on the calling goroutine.
type Manual struct {
	mu     sync.Mutex
	now    time.Time
	nextID int
	tasks  map[int]*manualTask
}

type manualTask struct {
	id       int
	interval time.Duration
	next     time.Time
	fn       func()
}

func NewManual(start time.Time) *Manual {
	return &Manual{now: start, tasks: map[int]*manualTask{}}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) Every(d time.Duration, fn func()) (Cancel, error) {
	if d <= 0 {
		return nil, errors.New("schedule: interval must be positive")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	id := m.nextID
	m.tasks[id] = &manualTask{id: id, interval: d, next: m.now.Add(d), fn: fn}
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.tasks, id)
	}, nil
}

// Tasks reports how many tasks are scheduled.
func (m *Manual) Tasks() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

// Advance moves the clock forward by d, firing every task that comes due
// in time order.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	for {
		m.mu.Lock()
		var due []*manualTask
		for _, t := range m.tasks {
			if !t.next.After(target) {
				due = append(due, t)
			}
		}
		if len(due) == 0 {
			m.now = target
			m.mu.Unlock()
			return
		}
		sort.Slice(due, func(i, j int) bool {
			if due[i].next.Equal(due[j].next) {
				return due[i].id < due[j].id
			}
			return due[i].next.Before(due[j].next)
		})
		t := due[0]
		m.now = t.next
		t.next = t.next.Add(t.interval)
		fn := t.fn
		m.mu.Unlock()

		fn()
	}
}
