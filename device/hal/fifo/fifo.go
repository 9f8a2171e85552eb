package fifo

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/ardnew/usbmidi/device/hal"
	"github.com/ardnew/usbmidi/pkg"
)

// MaxEndpoints is the maximum number of data endpoints (1-15 IN and OUT).
const MaxEndpoints = 15

// MaxControlSize is the largest control reply carried in one message.
const MaxControlSize = 512

// DefaultPollTimeout bounds how long Recv waits for endpoint data before
// reporting that none is available.
const DefaultPollTimeout = time.Millisecond

// Message types for the FIFO protocol (must match the host side).
const (
	MsgSetup   = 0x01 // SETUP packet from host
	MsgData    = 0x02 // DATA packet
	MsgAck     = 0x03 // ACK response
	MsgStall   = 0x05 // STALL response
	MsgReset   = 0x12 // Port reset
	MsgAddress = 0x13 // Set address
)

// HeaderSize is the size of a message header: type (1) + length (2).
const HeaderSize = 3

const frameSize = HeaderSize + hal.MaxPacketSize

// Connection signal bytes (one-way signaling to host).
const (
	SigConnect    = 0x01 // Device connected
	SigDisconnect = 0x00 // Device disconnected
)

// FIFO file names.
const (
	FileHostToDevice = "host_to_device"
	FileDeviceToHost = "device_to_host"
	FileConnection   = "connection"
)

// EndpointFile returns the FIFO file name of the data endpoint at address.
// Names follow USB direction: ep{n}_out carries host to device data and
// ep{n}_in carries device to host data.
func EndpointFile(address uint8) string {
	if hal.IsIn(address) {
		return fmt.Sprintf("ep%d_in", hal.EndpointNumber(address))
	}
	return fmt.Sprintf("ep%d_out", hal.EndpointNumber(address))
}

// outEndpoint reassembles DATA messages from an OUT FIFO into a byte stream.
type outEndpoint struct {
	mutex    sync.Mutex
	file     *os.File
	frame    [2 * frameSize]byte // Unparsed stream bytes
	frameLen int
	skip     int // Payload bytes of a dropped message still to discard
	data     [hal.MaxPacketSize]byte // Payload of the current DATA message
	pos, n   int
}

// inEndpoint accumulates one packet for an IN FIFO until flushed.
type inEndpoint struct {
	mutex sync.Mutex
	file  *os.File
	buf   [hal.MaxPacketSize]byte
	n     int
	frame [frameSize]byte
}

// HAL implements hal.DeviceHAL using named pipes (FIFOs).
// Each device instance creates a unique subdirectory under the bus directory
// so that several devices can share one bus.
type HAL struct {
	busDir    string
	deviceDir string
	uuid      string
	addresses []uint8

	pollTimeout time.Duration

	// Control pipe FIFOs
	hostToDeviceRead  *os.File
	deviceToHostWrite *os.File
	connectionWrite   *os.File

	// Data endpoint FIFOs (indexed by endpoint number 1-15)
	out [MaxEndpoints]*outEndpoint
	in  [MaxEndpoints]*inEndpoint

	connected atomic.Bool
	initDone  atomic.Bool
	address   uint8

	mutex        sync.RWMutex
	controlMutex sync.Mutex
	connectCh    chan struct{}
	closeCh      chan struct{}
	closeOnce    sync.Once

	readBuf  [HeaderSize + MaxControlSize]byte
	writeBuf [HeaderSize + MaxControlSize]byte
}

// New creates a FIFO-based device HAL with the given data endpoint
// addresses. busDir is the root directory shared with the host; the device
// creates its own subdirectory (device-{uuid}/) inside it.
func New(busDir string, endpoints ...uint8) *HAL {
	return &HAL{
		busDir:      busDir,
		addresses:   append([]uint8(nil), endpoints...),
		pollTimeout: DefaultPollTimeout,
		connectCh:   make(chan struct{}, 1),
		closeCh:     make(chan struct{}),
	}
}

// SetPollTimeout sets how long Recv waits for endpoint data.
func (h *HAL) SetPollTimeout(d time.Duration) {
	if d <= 0 {
		d = DefaultPollTimeout
	}
	h.mutex.Lock()
	h.pollTimeout = d
	h.mutex.Unlock()
}

// generateUUID generates a random UUID using crypto/rand.
func generateUUID() (string, error) {
	var uuid [16]byte
	if _, err := rand.Read(uuid[:]); err != nil {
		return "", err
	}
	uuid[6] = (uuid[6] & 0x0f) | 0x40
	uuid[8] = (uuid[8] & 0x3f) | 0x80
	return hex.EncodeToString(uuid[:]), nil
}

// Init creates the device subdirectory and its FIFOs and opens them.
func (h *HAL) Init(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()

	if h.initDone.Load() {
		return pkg.ErrAlreadyRunning
	}

	for _, addr := range h.addresses {
		num := hal.EndpointNumber(addr)
		if num == 0 || num > MaxEndpoints {
			return fmt.Errorf("endpoint 0x%02X: %w", addr, pkg.ErrInvalidEndpoint)
		}
	}

	uuid, err := generateUUID()
	if err != nil {
		return fmt.Errorf("generate uuid: %w", err)
	}
	h.uuid = uuid
	h.deviceDir = filepath.Join(h.busDir, "device-"+uuid)

	if err := os.MkdirAll(h.deviceDir, 0o755); err != nil {
		return fmt.Errorf("create device dir: %w", err)
	}

	names := []string{FileHostToDevice, FileDeviceToHost, FileConnection}
	for _, addr := range h.addresses {
		names = append(names, EndpointFile(addr))
	}
	for _, name := range names {
		if err := h.createFIFO(name); err != nil {
			h.cleanup()
			return err
		}
	}

	// O_RDWR keeps the open from blocking until the host attaches.
	const flag = os.O_RDWR | syscall.O_NONBLOCK

	if h.connectionWrite, err = h.openFIFO(FileConnection, flag); err != nil {
		h.cleanup()
		return err
	}
	if h.deviceToHostWrite, err = h.openFIFO(FileDeviceToHost, flag); err != nil {
		h.cleanup()
		return err
	}
	if h.hostToDeviceRead, err = h.openFIFO(FileHostToDevice, flag); err != nil {
		h.cleanup()
		return err
	}

	for _, addr := range h.addresses {
		f, err := h.openFIFO(EndpointFile(addr), flag)
		if err != nil {
			h.cleanup()
			return err
		}
		idx := hal.EndpointNumber(addr) - 1
		if hal.IsIn(addr) {
			h.in[idx] = &inEndpoint{file: f}
		} else {
			h.out[idx] = &outEndpoint{file: f}
		}
	}

	h.initDone.Store(true)
	pkg.LogInfo(pkg.ComponentHAL, "fifo device HAL initialized",
		"busDir", h.busDir,
		"deviceDir", h.deviceDir,
		"endpoints", len(h.addresses))
	return nil
}

// Start signals connection to the host.
func (h *HAL) Start() error {
	if !h.initDone.Load() {
		return pkg.ErrNotConfigured
	}
	h.signal(SigConnect)
	h.connected.Store(true)
	h.notifyConnect()
	pkg.LogInfo(pkg.ComponentHAL, "fifo device HAL started", "uuid", h.UUID())
	return nil
}

// Stop signals disconnection, closes every FIFO, and removes the device
// directory. A stopped HAL cannot be restarted.
func (h *HAL) Stop() error {
	h.signal(SigDisconnect)
	h.connected.Store(false)

	h.closeOnce.Do(func() {
		close(h.closeCh)
	})

	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.cleanup()
	h.initDone.Store(false)
	pkg.LogInfo(pkg.ComponentHAL, "fifo device HAL stopped")
	return nil
}

// Reset drops the connection and reconnects, discarding any partially
// received or unflushed endpoint data. The host sees a disconnect followed
// by a connect on the connection FIFO.
func (h *HAL) Reset() error {
	if !h.initDone.Load() {
		return pkg.ErrNotConfigured
	}

	h.connected.Store(false)
	h.signal(SigDisconnect)

	h.mutex.RLock()
	for _, ep := range h.out {
		if ep != nil {
			ep.mutex.Lock()
			ep.frameLen, ep.pos, ep.n, ep.skip = 0, 0, 0, 0
			ep.mutex.Unlock()
		}
	}
	for _, ep := range h.in {
		if ep != nil {
			ep.mutex.Lock()
			ep.n = 0
			ep.mutex.Unlock()
		}
	}
	h.mutex.RUnlock()

	h.signal(SigConnect)
	h.connected.Store(true)
	h.notifyConnect()

	pkg.LogInfo(pkg.ComponentHAL, "fifo device reset", "uuid", h.UUID())
	return nil
}

// cleanup closes all FIFOs and removes the device directory.
// The caller must hold h.mutex.
func (h *HAL) cleanup() {
	for _, f := range []**os.File{&h.hostToDeviceRead, &h.deviceToHostWrite, &h.connectionWrite} {
		if *f != nil {
			(*f).Close()
			*f = nil
		}
	}

	for i := range h.out {
		if h.out[i] != nil {
			h.out[i].file.Close()
			h.out[i] = nil
		}
		if h.in[i] != nil {
			h.in[i].file.Close()
			h.in[i] = nil
		}
	}

	if h.deviceDir != "" {
		os.RemoveAll(h.deviceDir)
	}
}

// signal writes a connection status byte for the host.
func (h *HAL) signal(sig byte) {
	h.mutex.RLock()
	f := h.connectionWrite
	h.mutex.RUnlock()

	if f == nil {
		return
	}
	if _, err := f.Write([]byte{sig}); err != nil {
		pkg.LogWarn(pkg.ComponentHAL, "failed to signal connection", "signal", sig, "error", err)
	}
}

func (h *HAL) notifyConnect() {
	select {
	case h.connectCh <- struct{}{}:
	default:
	}
}

func (h *HAL) outEndpoint(address uint8) *outEndpoint {
	num := hal.EndpointNumber(address)
	if hal.IsIn(address) || num == 0 || num > MaxEndpoints {
		return nil
	}
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.out[num-1]
}

func (h *HAL) inEndpoint(address uint8) *inEndpoint {
	num := hal.EndpointNumber(address)
	if !hal.IsIn(address) || num == 0 || num > MaxEndpoints {
		return nil
	}
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.in[num-1]
}

// Recv returns the next byte received on the OUT endpoint at address. When
// the current DATA message is used up it waits at most the poll timeout for
// the next one.
func (h *HAL) Recv(address uint8) (byte, bool) {
	ep := h.outEndpoint(address)
	if ep == nil {
		return 0, false
	}

	h.mutex.RLock()
	timeout := h.pollTimeout
	h.mutex.RUnlock()

	ep.mutex.Lock()
	defer ep.mutex.Unlock()

	if ep.pos >= ep.n && !ep.fill(timeout) {
		return 0, false
	}
	b := ep.data[ep.pos]
	ep.pos++
	return b, true
}

// fill loads the payload of the next non-empty DATA message.
// Returns false if none arrived within timeout.
func (ep *outEndpoint) fill(timeout time.Duration) bool {
	for {
		if ep.skip > 0 && ep.frameLen > 0 {
			k := min(ep.skip, ep.frameLen)
			ep.frameLen = copy(ep.frame[:], ep.frame[k:ep.frameLen])
			ep.skip -= k
		}
		if ep.skip == 0 && ep.frameLen >= HeaderSize {
			length := int(binary.LittleEndian.Uint16(ep.frame[1:3]))
			if length > hal.MaxPacketSize {
				pkg.LogWarn(pkg.ComponentHAL, "oversized endpoint message dropped", "length", length)
				ep.skip = length
				ep.frameLen = copy(ep.frame[:], ep.frame[HeaderSize:ep.frameLen])
				continue
			}
			if end := HeaderSize + length; ep.frameLen >= end {
				msgType := ep.frame[0]
				ep.n = copy(ep.data[:], ep.frame[HeaderSize:end])
				ep.pos = 0
				ep.frameLen = copy(ep.frame[:], ep.frame[end:ep.frameLen])
				if msgType != MsgData {
					pkg.LogDebug(pkg.ComponentHAL, "non-data endpoint message ignored", "type", msgType)
					ep.n = 0
				}
				if ep.n > 0 {
					return true
				}
				continue
			}
		}

		ep.file.SetReadDeadline(time.Now().Add(timeout))
		n, _ := ep.file.Read(ep.frame[ep.frameLen:])
		if n <= 0 {
			return false
		}
		ep.frameLen += n
	}
}

// Send queues data on the IN endpoint at address. A full packet is written
// to the FIFO before more data is queued.
func (h *HAL) Send(address uint8, data []byte) int {
	ep := h.inEndpoint(address)
	if ep == nil {
		return 0
	}

	ep.mutex.Lock()
	defer ep.mutex.Unlock()

	total := 0
	for len(data) > 0 {
		if ep.n == len(ep.buf) {
			if err := ep.flush(); err != nil {
				pkg.LogWarn(pkg.ComponentHAL, "endpoint write failed", "address", address, "error", err)
				return total
			}
		}
		n := copy(ep.buf[ep.n:], data)
		ep.n += n
		data = data[n:]
		total += n
	}
	return total
}

// Flush writes the queued IN data at address as one DATA message.
func (h *HAL) Flush(address uint8) {
	ep := h.inEndpoint(address)
	if ep == nil {
		return
	}

	ep.mutex.Lock()
	defer ep.mutex.Unlock()

	if err := ep.flush(); err != nil {
		pkg.LogWarn(pkg.ComponentHAL, "endpoint flush failed", "address", address, "error", err)
	}
}

func (ep *inEndpoint) flush() error {
	if ep.n == 0 {
		return nil
	}
	n := ep.n
	ep.n = 0
	return WriteMessage(ep.file, ep.frame[:], MsgData, ep.buf[:n])
}

// Ready returns true if the device is connected and address is a
// configured IN endpoint.
func (h *HAL) Ready(address uint8) bool {
	return h.initDone.Load() && h.connected.Load() && h.inEndpoint(address) != nil
}

// SendControl answers the pending control IN transfer with a DATA message.
// Data beyond MaxControlSize is not sent.
func (h *HAL) SendControl(data []byte) int {
	if len(data) > MaxControlSize {
		data = data[:MaxControlSize]
	}
	if err := h.control(MsgData, data); err != nil {
		pkg.LogWarn(pkg.ComponentHAL, "control write failed", "error", err)
		return 0
	}
	return len(data)
}

// Stall rejects the pending control request.
func (h *HAL) Stall() error {
	pkg.LogDebug(pkg.ComponentHAL, "control request stalled")
	return h.control(MsgStall, nil)
}

// Ack completes a control request with no data stage.
func (h *HAL) Ack() error {
	return h.control(MsgAck, nil)
}

func (h *HAL) control(msgType byte, data []byte) error {
	h.mutex.RLock()
	f := h.deviceToHostWrite
	h.mutex.RUnlock()

	if f == nil {
		return pkg.ErrNotConfigured
	}

	h.controlMutex.Lock()
	defer h.controlMutex.Unlock()
	return WriteMessage(f, h.writeBuf[:], msgType, data)
}

// ReadSetup blocks until a SETUP packet arrives from the host. Address
// messages are acknowledged and consumed; a port reset is acknowledged and
// reported as pkg.ErrReset.
func (h *HAL) ReadSetup(ctx context.Context, out *hal.SetupPacket) error {
	h.mutex.RLock()
	f := h.hostToDeviceRead
	h.mutex.RUnlock()

	if f == nil {
		return pkg.ErrNotConfigured
	}

	for {
		header := h.readBuf[:HeaderSize]
		if _, err := h.readWithContext(ctx, f, header); err != nil {
			return err
		}

		msgType := header[0]
		msgLen := int(binary.LittleEndian.Uint16(header[1:3]))
		if msgLen > MaxControlSize {
			return fmt.Errorf("control message of %d bytes: %w", msgLen, pkg.ErrProtocol)
		}

		payload := h.readBuf[HeaderSize : HeaderSize+msgLen]
		if _, err := h.readWithContext(ctx, f, payload); err != nil {
			return err
		}

		switch msgType {
		case MsgSetup:
			// Payload: [address, setup packet (8), optional data...]
			if msgLen < 1+hal.SetupPacketSize {
				return pkg.ErrSetupPacketTooShort
			}
			hal.ParseSetupPacket(payload[1:], out)
			pkg.LogDebug(pkg.ComponentHAL, "setup received",
				"reqType", out.RequestType,
				"req", out.Request,
				"value", out.Value,
				"length", out.Length)
			return nil

		case MsgReset:
			h.Ack()
			pkg.LogDebug(pkg.ComponentHAL, "port reset received")
			return pkg.ErrReset

		case MsgAddress:
			if msgLen >= 1 {
				h.mutex.Lock()
				h.address = payload[0]
				h.mutex.Unlock()
				h.Ack()
				pkg.LogDebug(pkg.ComponentHAL, "address set", "address", payload[0])
			}

		default:
			pkg.LogWarn(pkg.ComponentHAL, "unexpected control message", "type", msgType)
		}
	}
}

// Address returns the bus address assigned by the host.
func (h *HAL) Address() uint8 {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.address
}

// IsConnected returns true if connected to a host.
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

// DeviceDir returns the device subdirectory path.
func (h *HAL) DeviceDir() string {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.deviceDir
}

// UUID returns the device's unique identifier.
func (h *HAL) UUID() string {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.uuid
}

func (h *HAL) createFIFO(name string) error {
	path := filepath.Join(h.deviceDir, name)
	os.Remove(path)
	if err := syscall.Mkfifo(path, 0o666); err != nil {
		return fmt.Errorf("mkfifo %s: %w", name, err)
	}
	return nil
}

func (h *HAL) openFIFO(name string, flag int) (*os.File, error) {
	f, err := os.OpenFile(filepath.Join(h.deviceDir, name), flag, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	return f, nil
}

// readWithContext reads exactly len(buf) bytes, polling with short
// deadlines so that ctx and Stop can interrupt it.
func (h *HAL) readWithContext(ctx context.Context, f *os.File, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		select {
		case <-ctx.Done():
			return total, ctx.Err()
		case <-h.closeCh:
			return total, pkg.ErrCancelled
		default:
		}

		f.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
		n, err := f.Read(buf[total:])
		total += n
		if err != nil && !os.IsTimeout(err) {
			return total, err
		}
	}
	return total, nil
}

// WriteMessage writes [type, len_lo, len_hi, data...] to w using buf as
// scratch space. buf must hold HeaderSize+len(data) bytes.
func WriteMessage(w io.Writer, buf []byte, msgType byte, data []byte) error {
	total := HeaderSize + len(data)
	if total > len(buf) {
		return pkg.ErrBufferTooSmall
	}
	buf[0] = msgType
	binary.LittleEndian.PutUint16(buf[1:3], uint16(len(data)))
	copy(buf[HeaderSize:], data)

	for written := 0; written < total; {
		n, err := w.Write(buf[written:total])
		written += n
		if err != nil {
			return err
		}
	}
	return nil
}

// ReadMessage reads one message from r into buf and returns its type and
// payload. The payload aliases buf.
func ReadMessage(r io.Reader, buf []byte) (byte, []byte, error) {
	var header [HeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return 0, nil, err
	}
	n := int(binary.LittleEndian.Uint16(header[1:3]))
	if n > len(buf) {
		return header[0], nil, fmt.Errorf("message of %d bytes: %w", n, pkg.ErrBufferTooSmall)
	}
	if _, err := io.ReadFull(r, buf[:n]); err != nil {
		return header[0], nil, err
	}
	return header[0], buf[:n], nil
}

var _ hal.DeviceHAL = (*HAL)(nil)
