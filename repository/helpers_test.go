package repository

import (
	"context"
	"sync"
	"time"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []string
	ch     chan string
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{ch: make(chan string, 16)}
}

func (n *recordingNotifier) NotifyCartChanged(_ context.Context, cartSessionId string) {
	n.mu.Lock()
	n.events = append(n.events, cartSessionId)
	n.mu.Unlock()
	select {
	case n.ch <- cartSessionId:
	default:
	}
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.events)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func intPtr(v int) *int {
	return &v
}
