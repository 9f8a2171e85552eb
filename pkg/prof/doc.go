// Package prof captures pprof profiles around a device's service loop.
//
// Profiling is compiled in only with the "profile" build tag:
//
//	go build -tags profile ./examples/fifo-hal/midi-echo/device
//
// Without the tag, [Start] returns an inert session and [Enabled] is false,
// so callers can leave profiling hooks in place.
//
// A session streams the CPU profile for its whole lifetime and writes the
// heap, block and mutex snapshots when it stops:
//
//	s, err := prof.Start(prof.Config{CPU: "cpu.prof", Heap: "heap.prof"})
//	if err != nil {
//	    return err
//	}
//	defer s.Stop()
package prof
