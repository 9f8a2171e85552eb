package midi

import (
	"testing"
)

func TestQueue_ReadEmpty(t *testing.T) {
	q := NewQueue(nil)
	head, tail := q.ring.head.Load(), q.ring.tail.Load()

	if e := q.Read(); !e.IsNone() {
		t.Errorf("Read() on empty queue = %v, want EventNone", e)
	}
	if q.ring.head.Load() != head || q.ring.tail.Load() != tail {
		t.Errorf("indices moved: head %d->%d tail %d->%d",
			head, q.ring.head.Load(), tail, q.ring.tail.Load())
	}
	if q.Available() != 0 {
		t.Errorf("Available() = %d, want 0", q.Available())
	}
}

func TestQueue_ReadDecrementsAvailable(t *testing.T) {
	q := NewQueue(nil)
	src := &fakeTransport{}
	src.offer(NoteOn(60, 100, 0), NoteOff(60, 0, 0), ControlChange(1, 2, 3))
	q.Ingest(src, 0x02)

	for want := 3; want > 0; want-- {
		if got := q.Available(); got != want {
			t.Fatalf("Available() = %d, want %d", got, want)
		}
		q.Read()
	}
	if q.Available() != 0 {
		t.Errorf("Available() = %d, want 0", q.Available())
	}
}

func TestQueue_PeekDoesNotConsume(t *testing.T) {
	q := NewQueue(nil)
	src := &fakeTransport{}
	src.offer(NoteOn(60, 100, 0))
	q.Ingest(src, 0x02)

	first := q.Peek()
	second := q.Peek()
	if first != second || first != NoteOn(60, 100, 0) {
		t.Errorf("Peek() = %v then %v", first, second)
	}
	if q.Available() != 1 {
		t.Errorf("Available() after Peek = %d, want 1", q.Available())
	}
	if got := q.Read(); got != first {
		t.Errorf("Read() = %v, want %v", got, first)
	}
}

func TestQueue_ResetTrigger(t *testing.T) {
	resets := 0
	q := NewQueue(func() { resets++ })
	src := &fakeTransport{}
	src.offer(ResetEvent)
	q.Ingest(src, 0x02)

	q.Peek()
	if resets != 1 {
		t.Fatalf("resets after Peek = %d, want 1", resets)
	}
	q.Peek()
	if resets != 2 {
		t.Fatalf("resets after second Peek = %d, want 2", resets)
	}
	if e := q.Read(); e != ResetEvent {
		t.Errorf("Read() = %v, want %v", e, ResetEvent)
	}
	if resets != 3 {
		t.Fatalf("resets after Read = %d, want 3", resets)
	}

	// Nothing left: no further triggers.
	q.Read()
	q.Peek()
	if resets != 3 {
		t.Errorf("resets on empty queue = %d, want 3", resets)
	}
}

func TestQueue_ResetTriggerExactMatch(t *testing.T) {
	near := []Event{
		{Type: 0x17, M1: 0xF0, M2: 0x01, M3: 0xF7}, // cable 1
		{Type: CINSysExStart, M1: 0xF0, M2: 0x01, M3: 0xF7},
		{Type: CINSysExEnd3, M1: 0xF0, M2: 0x02, M3: 0xF7},
		{Type: CINSysExEnd3, M1: 0xF0, M2: 0x01, M3: 0xF6},
		{Type: CINSysExEnd3, M1: 0xF1, M2: 0x01, M3: 0xF7},
		{Type: CINSysExEnd3, M1: 0xF0, M2: 0x00, M3: 0xF7},
		NoteOn(1, 0x77, 0),
	}

	resets := 0
	q := NewQueue(func() { resets++ })
	src := &fakeTransport{}
	src.offer(near...)
	q.Ingest(src, 0x02)

	for q.Available() > 0 {
		q.Peek()
		q.Read()
	}
	if resets != 0 {
		t.Errorf("resets = %d, want 0", resets)
	}
}

func TestQueue_NilResetHook(t *testing.T) {
	q := NewQueue(nil)
	src := &fakeTransport{}
	src.offer(ResetEvent)
	q.Ingest(src, 0x02)

	if e := q.Read(); e != ResetEvent {
		t.Errorf("Read() = %v, want %v", e, ResetEvent)
	}
}
