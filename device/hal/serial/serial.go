package serial

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	goserial "go.bug.st/serial"

	"github.com/ardnew/usbmidi/device/hal"
	"github.com/ardnew/usbmidi/pkg"
)

// DefaultPollTimeout bounds how long Recv waits for UART data.
const DefaultPollTimeout = time.Millisecond

// DefaultResetPulse is how long DTR is held low by Reset.
const DefaultResetPulse = 50 * time.Millisecond

// Port is the part of a serial port the HAL uses. [goserial.Port]
// satisfies it.
type Port interface {
	io.ReadWriter
	Drain() error
	ResetInputBuffer() error
	SetDTR(dtr bool) error
	SetReadTimeout(t time.Duration) error
	Close() error
}

// HAL implements hal.DeviceHAL over a serial port.
type HAL struct {
	open func() (Port, error)
	port Port
	name string

	outEndpoint uint8
	inEndpoint  uint8

	pollTimeout time.Duration
	resetPulse  time.Duration

	connected atomic.Bool
	mutex     sync.RWMutex
	connectCh chan struct{}
	closeCh   chan struct{}
	closeOnce sync.Once

	rxMutex sync.Mutex
	rx      [hal.MaxPacketSize]byte
	rxPos   int
	rxLen   int

	txMutex sync.Mutex
	tx      [hal.MaxPacketSize]byte
	txLen   int
}

// New creates a HAL that opens the named port with mode on Init.
// out and in are the endpoint addresses the class driver uses.
func New(name string, mode *goserial.Mode, out, in uint8) *HAL {
	h := newHAL(out, in)
	h.name = name
	h.open = func() (Port, error) {
		p, err := goserial.Open(name, mode)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
	return h
}

// NewWithPort creates a HAL on an already open port.
func NewWithPort(port Port, out, in uint8) *HAL {
	h := newHAL(out, in)
	h.name = "port"
	h.open = func() (Port, error) { return port, nil }
	return h
}

func newHAL(out, in uint8) *HAL {
	return &HAL{
		outEndpoint: out,
		inEndpoint:  in,
		pollTimeout: DefaultPollTimeout,
		resetPulse:  DefaultResetPulse,
		connectCh:   make(chan struct{}, 1),
		closeCh:     make(chan struct{}),
	}
}

// Ports lists the serial ports present on the system.
func Ports() ([]string, error) {
	return goserial.GetPortsList()
}

// SetPollTimeout sets how long Recv waits for UART data. It takes effect
// on the next Init.
func (h *HAL) SetPollTimeout(d time.Duration) {
	if d > 0 {
		h.mutex.Lock()
		h.pollTimeout = d
		h.mutex.Unlock()
	}
}

// SetResetPulse sets how long Reset holds DTR low.
func (h *HAL) SetResetPulse(d time.Duration) {
	h.mutex.Lock()
	h.resetPulse = d
	h.mutex.Unlock()
}

// Init opens the port and sets its read timeout.
func (h *HAL) Init(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()

	if h.port != nil {
		return pkg.ErrAlreadyRunning
	}
	if hal.IsIn(h.outEndpoint) || !hal.IsIn(h.inEndpoint) {
		return fmt.Errorf("endpoints 0x%02X/0x%02X: %w", h.outEndpoint, h.inEndpoint, pkg.ErrInvalidEndpoint)
	}

	port, err := h.open()
	if err != nil {
		return fmt.Errorf("open %s: %w", h.name, err)
	}
	if err := port.SetReadTimeout(h.pollTimeout); err != nil {
		port.Close()
		return fmt.Errorf("set read timeout: %w", err)
	}
	h.port = port

	pkg.LogInfo(pkg.ComponentHAL, "serial HAL initialized", "port", h.name)
	return nil
}

// Start raises DTR and marks the device connected.
func (h *HAL) Start() error {
	port := h.getPort()
	if port == nil {
		return pkg.ErrNotConfigured
	}
	if err := port.SetDTR(true); err != nil {
		return fmt.Errorf("set DTR: %w", err)
	}
	h.connected.Store(true)
	select {
	case h.connectCh <- struct{}{}:
	default:
	}
	pkg.LogInfo(pkg.ComponentHAL, "serial HAL started", "port", h.name)
	return nil
}

// Stop closes the port. A stopped HAL cannot be restarted.
func (h *HAL) Stop() error {
	h.connected.Store(false)
	h.closeOnce.Do(func() {
		close(h.closeCh)
	})

	h.mutex.Lock()
	defer h.mutex.Unlock()

	if h.port == nil {
		return nil
	}
	err := h.port.Close()
	h.port = nil
	pkg.LogInfo(pkg.ComponentHAL, "serial HAL stopped", "port", h.name)
	return err
}

// Reset pulses DTR low and discards buffered data in both directions.
func (h *HAL) Reset() error {
	port := h.getPort()
	if port == nil {
		return pkg.ErrNotConfigured
	}

	h.mutex.RLock()
	pulse := h.resetPulse
	h.mutex.RUnlock()

	h.connected.Store(false)
	if err := port.SetDTR(false); err != nil {
		return fmt.Errorf("clear DTR: %w", err)
	}
	time.Sleep(pulse)
	if err := port.SetDTR(true); err != nil {
		return fmt.Errorf("set DTR: %w", err)
	}

	h.rxMutex.Lock()
	h.rxPos, h.rxLen = 0, 0
	h.rxMutex.Unlock()
	h.txMutex.Lock()
	h.txLen = 0
	h.txMutex.Unlock()

	if err := port.ResetInputBuffer(); err != nil {
		pkg.LogWarn(pkg.ComponentHAL, "reset input buffer failed", "error", err)
	}
	h.connected.Store(true)

	pkg.LogInfo(pkg.ComponentHAL, "serial device reset", "port", h.name, "pulse", pulse)
	return nil
}

func (h *HAL) getPort() Port {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.port
}

// Recv returns the next byte read from the port.
func (h *HAL) Recv(address uint8) (byte, bool) {
	if address != h.outEndpoint {
		return 0, false
	}

	h.rxMutex.Lock()
	defer h.rxMutex.Unlock()

	if h.rxPos >= h.rxLen {
		port := h.getPort()
		if port == nil {
			return 0, false
		}
		n, err := port.Read(h.rx[:])
		if err != nil {
			pkg.LogDebug(pkg.ComponentHAL, "serial read failed", "error", err)
		}
		if n <= 0 {
			return 0, false
		}
		h.rxPos, h.rxLen = 0, n
	}

	b := h.rx[h.rxPos]
	h.rxPos++
	return b, true
}

// Send queues data for the port. A full packet is written before more data
// is queued.
func (h *HAL) Send(address uint8, data []byte) int {
	if address != h.inEndpoint {
		return 0
	}

	h.txMutex.Lock()
	defer h.txMutex.Unlock()

	total := 0
	for len(data) > 0 {
		if h.txLen == len(h.tx) {
			if err := h.flush(); err != nil {
				pkg.LogWarn(pkg.ComponentHAL, "serial write failed", "error", err)
				return total
			}
		}
		n := copy(h.tx[h.txLen:], data)
		h.txLen += n
		data = data[n:]
		total += n
	}
	return total
}

// Flush writes queued data and waits for it to be transmitted.
func (h *HAL) Flush(address uint8) {
	if address != h.inEndpoint {
		return
	}

	h.txMutex.Lock()
	defer h.txMutex.Unlock()

	if err := h.flush(); err != nil {
		pkg.LogWarn(pkg.ComponentHAL, "serial flush failed", "error", err)
	}
}

func (h *HAL) flush() error {
	if h.txLen == 0 {
		return nil
	}
	port := h.getPort()
	if port == nil {
		h.txLen = 0
		return pkg.ErrNotConfigured
	}
	n := h.txLen
	h.txLen = 0
	for written := 0; written < n; {
		m, err := port.Write(h.tx[written:n])
		written += m
		if err != nil {
			return err
		}
	}
	return port.Drain()
}

// Ready returns true if the port is open and connected.
func (h *HAL) Ready(address uint8) bool {
	return address == h.inEndpoint && h.connected.Load() && h.getPort() != nil
}

// SendControl is not supported on a UART; it sends nothing.
func (h *HAL) SendControl(data []byte) int {
	return 0
}

// ReadSetup returns pkg.ErrNotSupported; a UART has no control pipe.
func (h *HAL) ReadSetup(ctx context.Context, out *hal.SetupPacket) error {
	return pkg.ErrNotSupported
}

// Stall returns pkg.ErrNotSupported.
func (h *HAL) Stall() error {
	return pkg.ErrNotSupported
}

// Ack returns pkg.ErrNotSupported.
func (h *HAL) Ack() error {
	return pkg.ErrNotSupported
}

// IsConnected returns true between Start and Stop, except during Reset.
func (h *HAL) IsConnected() bool {
	return h.connected.Load()
}

// WaitConnect blocks until connected or the context is cancelled.
func (h *HAL) WaitConnect(ctx context.Context) error {
	if h.IsConnected() {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-h.connectCh:
		return nil
	case <-h.closeCh:
		return pkg.ErrCancelled
	}
}

var (
	_ hal.DeviceHAL = (*HAL)(nil)
	_ Port          = (goserial.Port)(nil)
)
