package core

import (
	"sync"
	"time"
)

type EventKind string

const (
	// EventQueueUpdated carries the recent view after any queue change.
	EventQueueUpdated         EventKind = "print-job-update"
	EventJobFinished          EventKind = "job-finished"
	EventPrinterStatusChanged EventKind = "printer-status-change"
	EventNotification         EventKind = "notification"
)

type Event struct {
	Kind         EventKind            `json:"kind"`
	Time         time.Time            `json:"time"`
	Jobs         []PrintJob           `json:"jobs,omitempty"`
	Job          *PrintJob            `json:"job,omitempty"`
	Printer      *PrinterStatusChange `json:"printer,omitempty"`
	Notification *Notification        `json:"notification,omitempty"`
}

// Subscriber receives events synchronously on the publisher's goroutine and
// must not block.
type Subscriber interface {
	HandleEvent(Event)
}

type SubscriberFunc func(Event)

func (f SubscriberFunc) HandleEvent(e Event) {
	f(e)
}

// Bus fans events out to its subscribers.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]Subscriber
}

func NewBus() *Bus {
	return &Bus{subs: make(map[int]Subscriber)}
}

// Subscribe registers s and returns a function that removes it.
func (b *Bus) Subscribe(s Subscriber) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = s
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

func (b *Bus) Publish(e Event) {
	if b == nil {
		return
	}
	if e.Time.IsZero() {
		e.Time = time.Now()
	}

	b.mu.RLock()
	subs := make([]Subscriber, 0, len(b.subs))
	for _, s := range b.subs {
		subs = append(subs, s)
	}
	b.mu.RUnlock()

	for _, s := range subs {
		s.HandleEvent(e)
	}
}
