package midi

import (
	"github.com/ardnew/usbmidi/pkg"
)

// Queue presents a [Ring] as a sequence of whole events.
//
// Inspecting [ResetEvent] at the head of the queue calls the reset hook
// before the event is consumed, once per Peek or Read.
type Queue struct {
	ring  Ring
	reset func()
}

// NewQueue returns an empty queue. reset may be nil.
func NewQueue(reset func()) *Queue {
	return &Queue{reset: reset}
}

// Ingest pulls bytes from src at the OUT endpoint address into the queue.
// Returns the number of bytes stored.
func (q *Queue) Ingest(src ByteSource, address uint8) int {
	return q.ring.Accept(src, address)
}

// Len returns the number of buffered bytes.
func (q *Queue) Len() int {
	return q.ring.Len()
}

// Available returns the number of complete events queued.
func (q *Queue) Available() int {
	return q.ring.Available()
}

// Peek returns the event at the head of the queue without consuming it,
// or EventNone if the queue is empty.
func (q *Queue) Peek() Event {
	e, ok := q.ring.Peek()
	if !ok {
		return EventNone
	}
	q.inspect(e)
	return e
}

// Read consumes and returns the event at the head of the queue. On an empty
// queue it returns EventNone and leaves the queue unchanged.
func (q *Queue) Read() Event {
	e, ok := q.ring.Peek()
	if !ok {
		return EventNone
	}
	q.inspect(e)
	q.ring.Advance()
	return e
}

func (q *Queue) inspect(e Event) {
	if e != ResetEvent {
		return
	}
	pkg.LogWarn(pkg.ComponentQueue, "reset event received")
	if q.reset != nil {
		q.reset()
	}
}
