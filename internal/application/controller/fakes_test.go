package controller_test

import (
	"context"
	"sync"
	"time"

	"trainingplan/internal/adapters/spreadsheet"
	"trainingplan/internal/application/controller"
	"trainingplan/internal/domain/schedule"
)

// fakeClock fires timers only when Advance moves past their deadline.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 7, 7, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) controller.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

// Advance moves time forward and runs due timers in deadline order on the caller's goroutine.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && !t.at.After(c.now) {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()
	for _, t := range due {
		t.f()
	}
}

// fakeStore is an in-memory Store with injectable failures.
type fakeStore struct {
	mu       sync.Mutex
	doc      *schedule.Document
	getErr   error
	putErr   error
	resetErr error
	gets     int
	puts     []schedule.Document
	resets   int

	started chan struct{}
	release chan struct{}
}

func newFakeStore(doc *schedule.Document) *fakeStore {
	s := &fakeStore{}
	if doc != nil {
		cp := doc.Clone()
		s.doc = &cp
	}
	return s
}

func (s *fakeStore) Get(_ context.Context) (schedule.Document, error) {
	s.mu.Lock()
	s.gets++
	started, release := s.started, s.release
	s.mu.Unlock()
	if started != nil {
		started <- struct{}{}
		<-release
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return schedule.Document{}, s.getErr
	}
	if s.doc == nil {
		return schedule.Document{}, schedule.ErrNotFound
	}
	return s.doc.Clone(), nil
}

func (s *fakeStore) Put(_ context.Context, doc schedule.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.puts = append(s.puts, doc.Clone())
	if s.putErr != nil {
		return s.putErr
	}
	cp := doc.Clone()
	s.doc = &cp
	return nil
}

func (s *fakeStore) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resets++
	if s.resetErr != nil {
		return s.resetErr
	}
	d := schedule.Default()
	s.doc = &d
	return nil
}

func (s *fakeStore) putCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.puts)
}

func (s *fakeStore) lastPut() schedule.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.puts[len(s.puts)-1]
}

func (s *fakeStore) getCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gets
}

type parserFunc func(filename string, data []byte) (spreadsheet.Table, error)

func (f parserFunc) Parse(filename string, data []byte) (spreadsheet.Table, error) {
	return f(filename, data)
}
