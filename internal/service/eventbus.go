package service

import (
	"sync"

	"mediabot/internal/domain"
)

// Event is published when a job reaches a terminal state.
type Event struct {
	JobID   string
	UserRef string
	State   domain.JobState
	Message string
	Result  *domain.Result
}

type EventBus struct {
	subscribers map[string][]chan Event
	all         []*allSubscriber
	mu          sync.RWMutex
}

func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[string][]chan Event),
	}
}

// Subscribe returns a channel receiving events for one job. Delivery is best
// effort: a slow consumer misses events rather than blocking the publisher.
func (eb *EventBus) Subscribe(jobID string) chan Event {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	ch := make(chan Event, 16)
	eb.subscribers[jobID] = append(eb.subscribers[jobID], ch)
	return ch
}

func (eb *EventBus) Unsubscribe(jobID string, ch chan Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	subs := eb.subscribers[jobID]
	for i, sub := range subs {
		if sub == ch {
			eb.subscribers[jobID] = append(subs[:i], subs[i+1:]...)
			close(ch)
			break
		}
	}

	if len(eb.subscribers[jobID]) == 0 {
		delete(eb.subscribers, jobID)
	}
}

// SubscribeAll returns a channel receiving every published event, in order,
// with no loss: events queue without bound until the consumer drains them.
// The dispatcher relies on this — a dropped terminal event would strand the
// job's assets and its user's in-flight slot.
func (eb *EventBus) SubscribeAll() chan Event {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	sub := newAllSubscriber()
	eb.all = append(eb.all, sub)
	return sub.out
}

func (eb *EventBus) UnsubscribeAll(ch chan Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	for i, sub := range eb.all {
		if sub.out == ch {
			eb.all = append(eb.all[:i], eb.all[i+1:]...)
			sub.stop()
			break
		}
	}
}

func (eb *EventBus) Publish(event Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	for _, ch := range eb.subscribers[event.JobID] {
		select {
		case ch <- event:
		default:
			// Drop event if subscriber is slow
		}
	}
	for _, sub := range eb.all {
		sub.enqueue(event)
	}
}

// allSubscriber decouples publishers from a firehose consumer. enqueue never
// blocks; a forwarder goroutine replays the backlog to out in publish order.
type allSubscriber struct {
	out  chan Event
	wake chan struct{}
	done chan struct{}

	mu      sync.Mutex
	backlog []Event
}

func newAllSubscriber() *allSubscriber {
	sub := &allSubscriber{
		out:  make(chan Event),
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go sub.forward()
	return sub
}

func (s *allSubscriber) enqueue(event Event) {
	s.mu.Lock()
	s.backlog = append(s.backlog, event)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *allSubscriber) forward() {
	defer close(s.out)
	for {
		for {
			s.mu.Lock()
			if len(s.backlog) == 0 {
				s.mu.Unlock()
				break
			}
			event := s.backlog[0]
			s.backlog = s.backlog[1:]
			s.mu.Unlock()

			select {
			case s.out <- event:
			case <-s.done:
				return
			}
		}

		select {
		case <-s.wake:
		case <-s.done:
			return
		}
	}
}

func (s *allSubscriber) stop() {
	close(s.done)
}
