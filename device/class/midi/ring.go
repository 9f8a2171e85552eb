package midi

import (
	"sync/atomic"

	"github.com/ardnew/usbmidi/pkg"
)

// ByteSource delivers received bytes one at a time without blocking.
// [hal.Transport] satisfies it.
type ByteSource interface {
	Recv(address uint8) (b byte, ok bool)
}

// Ring is a fixed-capacity single-producer/single-consumer byte ring.
//
// The producer (Accept) is the only writer of head; the consumer (Peek,
// Advance) is the only writer of tail. Each side loads the other's index
// atomically, so Accept may run in an interrupt or poll goroutine while the
// consumer drains events from the main loop. One slot is always left empty
// so head == tail means empty.
type Ring struct {
	buf  [RingSize]byte
	head atomic.Uint32 // Next write position
	tail atomic.Uint32 // Next read position
}

// Len returns the number of buffered bytes, including any partial event.
func (r *Ring) Len() int {
	return int((RingSize + r.head.Load() - r.tail.Load()) % RingSize)
}

// Available returns the number of complete events buffered.
func (r *Ring) Available() int {
	return r.Len() / EventSize
}

// Accept moves bytes from src into the ring until src has nothing more to
// offer or the ring is full. A byte fetched while the ring is full is
// dropped and Accept stops. Returns the number of bytes stored.
func (r *Ring) Accept(src ByteSource, address uint8) int {
	head := r.head.Load()
	stored := 0
	for {
		b, ok := src.Recv(address)
		if !ok {
			break
		}
		next := (head + 1) % RingSize
		if next == r.tail.Load() {
			pkg.LogDebug(pkg.ComponentRing, "ring full, byte dropped",
				"stored", stored)
			break
		}
		r.buf[head] = b
		head = next
		r.head.Store(head)
		stored++
	}
	return stored
}

// Peek returns the event at the read position without consuming it.
// Returns false if no complete event is buffered.
func (r *Ring) Peek() (Event, bool) {
	if r.Available() < 1 {
		return EventNone, false
	}
	tail := r.tail.Load()
	return Event{
		Type: r.buf[tail],
		M1:   r.buf[(tail+1)%RingSize],
		M2:   r.buf[(tail+2)%RingSize],
		M3:   r.buf[(tail+3)%RingSize],
	}, true
}

// Advance consumes one event. It does nothing if no complete event is
// buffered.
func (r *Ring) Advance() {
	if r.Available() < 1 {
		return
	}
	r.tail.Store((r.tail.Load() + EventSize) % RingSize)
}
