package serial

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ardnew/usbmidi/device/hal"
	"github.com/ardnew/usbmidi/pkg"
)

const (
	testOut = 0x02
	testIn  = 0x83
)

// fakePort is an in-memory Port.
type fakePort struct {
	rx      [][]byte // One chunk per Read
	tx      []byte
	dtr     []bool
	drains  int
	resets  int
	timeout time.Duration
	closed  bool
	readErr error
}

func (p *fakePort) Read(b []byte) (int, error) {
	if p.readErr != nil {
		return 0, p.readErr
	}
	if len(p.rx) == 0 {
		return 0, nil
	}
	n := copy(b, p.rx[0])
	p.rx[0] = p.rx[0][n:]
	if len(p.rx[0]) == 0 {
		p.rx = p.rx[1:]
	}
	return n, nil
}

func (p *fakePort) Write(b []byte) (int, error) {
	p.tx = append(p.tx, b...)
	return len(b), nil
}

func (p *fakePort) Drain() error            { p.drains++; return nil }
func (p *fakePort) ResetInputBuffer() error { p.resets++; p.rx = nil; return nil }
func (p *fakePort) SetDTR(dtr bool) error   { p.dtr = append(p.dtr, dtr); return nil }
func (p *fakePort) Close() error            { p.closed = true; return nil }

func (p *fakePort) SetReadTimeout(t time.Duration) error {
	p.timeout = t
	return nil
}

func startHAL(t *testing.T, port *fakePort) *HAL {
	t.Helper()
	h := NewWithPort(port, testOut, testIn)
	h.SetResetPulse(time.Millisecond)
	if err := h.Init(context.Background()); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if err := h.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	return h
}

func TestHAL_Lifecycle(t *testing.T) {
	port := &fakePort{}
	h := NewWithPort(port, testOut, testIn)

	if err := h.Start(); !errors.Is(err, pkg.ErrNotConfigured) {
		t.Errorf("Start() before Init error = %v, want ErrNotConfigured", err)
	}
	if h.Ready(testIn) {
		t.Error("Ready() = true before Init")
	}

	if err := h.Init(context.Background()); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if port.timeout != DefaultPollTimeout {
		t.Errorf("read timeout = %v, want %v", port.timeout, DefaultPollTimeout)
	}
	if err := h.Init(context.Background()); !errors.Is(err, pkg.ErrAlreadyRunning) {
		t.Errorf("second Init() error = %v, want ErrAlreadyRunning", err)
	}

	if err := h.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !h.Ready(testIn) || !h.IsConnected() {
		t.Error("not ready after Start")
	}
	if h.Ready(testOut) {
		t.Error("Ready() = true for the OUT endpoint")
	}
	if err := h.WaitConnect(context.Background()); err != nil {
		t.Errorf("WaitConnect() error = %v", err)
	}

	if err := h.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
	if !port.closed {
		t.Error("port not closed by Stop")
	}
	if h.Ready(testIn) {
		t.Error("Ready() = true after Stop")
	}
	if err := h.WaitConnect(context.Background()); !errors.Is(err, pkg.ErrCancelled) {
		t.Errorf("WaitConnect() after Stop error = %v, want ErrCancelled", err)
	}
}

func TestHAL_InitInvalidEndpoints(t *testing.T) {
	h := NewWithPort(&fakePort{}, testIn, testOut)
	if err := h.Init(context.Background()); !errors.Is(err, pkg.ErrInvalidEndpoint) {
		t.Errorf("Init() error = %v, want ErrInvalidEndpoint", err)
	}
}

func TestHAL_Recv(t *testing.T) {
	port := &fakePort{rx: [][]byte{{0x09, 0x90}, {0x3C, 0x64}}}
	h := startHAL(t, port)

	var got []byte
	for {
		b, ok := h.Recv(testOut)
		if !ok {
			break
		}
		got = append(got, b)
	}
	if want := []byte{0x09, 0x90, 0x3C, 0x64}; !bytes.Equal(got, want) {
		t.Errorf("Recv() stream = % X, want % X", got, want)
	}

	port.rx = [][]byte{{0x01}}
	if _, ok := h.Recv(testIn); ok {
		t.Error("Recv() on the IN endpoint returned data")
	}

	port.readErr = errors.New("device unplugged")
	port.rx = nil
	if _, ok := h.Recv(testOut); ok {
		t.Error("Recv() returned data on read error")
	}
}

func TestHAL_SendFlush(t *testing.T) {
	port := &fakePort{}
	h := startHAL(t, port)

	if n := h.Send(testIn, []byte{0x0B, 0xB0, 0x07, 0x7F}); n != 4 {
		t.Errorf("Send() = %d, want 4", n)
	}
	if len(port.tx) != 0 {
		t.Error("Send() wrote before Flush")
	}
	h.Flush(testIn)
	if want := []byte{0x0B, 0xB0, 0x07, 0x7F}; !bytes.Equal(port.tx, want) {
		t.Errorf("port bytes = % X, want % X", port.tx, want)
	}
	if port.drains != 1 {
		t.Errorf("drains = %d, want 1", port.drains)
	}

	h.Flush(testIn)
	if port.drains != 1 {
		t.Error("empty Flush drained the port")
	}

	big := make([]byte, hal.MaxPacketSize+8)
	if n := h.Send(testIn, big); n != len(big) {
		t.Errorf("Send(big) = %d, want %d", n, len(big))
	}
	if len(port.tx) != 4+hal.MaxPacketSize {
		t.Errorf("port bytes after overflow = %d, want %d", len(port.tx), 4+hal.MaxPacketSize)
	}

	if n := h.Send(testOut, []byte{1}); n != 0 {
		t.Errorf("Send() on OUT endpoint = %d, want 0", n)
	}
}

func TestHAL_Reset(t *testing.T) {
	port := &fakePort{rx: [][]byte{{0x09, 0x90, 0x3C, 0x64}}}
	h := startHAL(t, port)

	if _, ok := h.Recv(testOut); !ok {
		t.Fatal("Recv() returned no data")
	}
	h.Send(testIn, []byte{0x01})

	if err := h.Reset(); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	if want := []bool{true, false, true}; len(port.dtr) != 3 || port.dtr[1] != want[1] || port.dtr[2] != want[2] {
		t.Errorf("DTR sequence = %v, want %v", port.dtr, want)
	}
	if port.resets != 1 {
		t.Errorf("input buffer resets = %d, want 1", port.resets)
	}
	if _, ok := h.Recv(testOut); ok {
		t.Error("Recv() returned data buffered before Reset")
	}
	h.Flush(testIn)
	if len(port.tx) != 0 {
		t.Errorf("unflushed data survived Reset: % X", port.tx)
	}
	if !h.IsConnected() {
		t.Error("IsConnected() = false after Reset")
	}
}

func TestHAL_NoControlPipe(t *testing.T) {
	h := startHAL(t, &fakePort{})

	var s hal.SetupPacket
	if err := h.ReadSetup(context.Background(), &s); !errors.Is(err, pkg.ErrNotSupported) {
		t.Errorf("ReadSetup() error = %v, want ErrNotSupported", err)
	}
	if n := h.SendControl([]byte{1, 2, 3}); n != 0 {
		t.Errorf("SendControl() = %d, want 0", n)
	}
}
