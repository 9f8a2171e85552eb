package fifo

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/ardnew/usbmidi/device"
	"github.com/ardnew/usbmidi/device/hal"
	devfifo "github.com/ardnew/usbmidi/device/hal/fifo"
	"github.com/ardnew/usbmidi/pkg"
)

// Timing defaults.
const (
	DefaultPollInterval    = 50 * time.Millisecond // Directory polling interval
	DefaultTransferTimeout = 5 * time.Second       // Used when ctx has no deadline
)

const openFlag = os.O_RDWR | syscall.O_NONBLOCK

// Bus watches a bus directory for devices.
type Bus struct {
	busDir       string
	pollInterval time.Duration

	mutex sync.Mutex
	known map[string]bool
}

// NewBus creates a bus watcher for busDir.
func NewBus(busDir string) *Bus {
	return &Bus{
		busDir:       busDir,
		pollInterval: DefaultPollInterval,
		known:        make(map[string]bool),
	}
}

// Dir returns the bus directory.
func (b *Bus) Dir() string {
	return b.busDir
}

// Init creates the bus directory if needed.
func (b *Bus) Init() error {
	if err := os.MkdirAll(b.busDir, 0o755); err != nil {
		return fmt.Errorf("create bus dir: %w", err)
	}
	pkg.LogInfo(pkg.ComponentHAL, "host bus initialized", "busDir", b.busDir)
	return nil
}

// WaitDevice blocks until a device not returned before signals connection,
// or ctx is done.
func (b *Bus) WaitDevice(ctx context.Context) (*Device, error) {
	ticker := time.NewTicker(b.pollInterval)
	defer ticker.Stop()

	for {
		if dev := b.scan(); dev != nil {
			return dev, nil
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %w", pkg.ErrNoDevice, ctx.Err())
		case <-ticker.C:
		}
	}
}

// scan returns the first new device directory whose connection FIFO reports
// a connect.
func (b *Bus) scan() *Device {
	entries, err := os.ReadDir(b.busDir)
	if err != nil {
		return nil
	}

	b.mutex.Lock()
	defer b.mutex.Unlock()

	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), "device-") {
			continue
		}
		dir := filepath.Join(b.busDir, entry.Name())
		if b.known[dir] {
			continue
		}

		conn, err := os.OpenFile(filepath.Join(dir, devfifo.FileConnection), openFlag, 0)
		if err != nil {
			continue
		}
		dev := &Device{dir: dir, connection: conn}
		if !dev.Connected() {
			conn.Close()
			continue
		}

		b.known[dir] = true
		pkg.LogDebug(pkg.ComponentHAL, "device found", "dir", entry.Name())
		return dev
	}
	return nil
}

// Device is a connected device on the bus.
type Device struct {
	dir        string
	connection *os.File
	connected  bool

	mutex        sync.Mutex
	hostToDevice *os.File
	deviceToHost *os.File
	epIn         [devfifo.MaxEndpoints]*os.File
	epOut        [devfifo.MaxEndpoints]*os.File

	txBuf [devfifo.HeaderSize + devfifo.MaxControlSize]byte
	rxBuf [devfifo.MaxControlSize]byte
}

// Dir returns the device subdirectory.
func (d *Device) Dir() string {
	return d.dir
}

// Connected reads any pending connection signals and reports whether the
// most recent one was a connect. A reset shows up as a disconnect followed
// by a connect, so a device that reset is still connected.
func (d *Device) Connected() bool {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	var sig [16]byte
	for {
		d.connection.SetReadDeadline(time.Now().Add(10 * time.Millisecond))
		n, _ := d.connection.Read(sig[:])
		if n <= 0 {
			return d.connected
		}
		d.connected = sig[n-1] == devfifo.SigConnect
	}
}

// Close closes every FIFO the host opened for the device.
func (d *Device) Close() error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	files := []*os.File{d.connection, d.hostToDevice, d.deviceToHost}
	files = append(files, d.epIn[:]...)
	files = append(files, d.epOut[:]...)
	for _, f := range files {
		if f != nil {
			f.Close()
		}
	}
	d.hostToDevice, d.deviceToHost = nil, nil
	d.epIn = [devfifo.MaxEndpoints]*os.File{}
	d.epOut = [devfifo.MaxEndpoints]*os.File{}
	return nil
}

// open returns the named FIFO, opening it into *slot on first use.
// The caller must hold d.mutex.
func (d *Device) open(slot **os.File, name string) (*os.File, error) {
	if *slot == nil {
		f, err := os.OpenFile(filepath.Join(d.dir, name), openFlag, 0)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", name, err)
		}
		*slot = f
	}
	return *slot, nil
}

func (d *Device) controlPipes() (*os.File, *os.File, error) {
	w, err := d.open(&d.hostToDevice, devfifo.FileHostToDevice)
	if err != nil {
		return nil, nil, err
	}
	r, err := d.open(&d.deviceToHost, devfifo.FileDeviceToHost)
	if err != nil {
		return nil, nil, err
	}
	return w, r, nil
}

func deadline(ctx context.Context) time.Time {
	if t, ok := ctx.Deadline(); ok {
		return t
	}
	return time.Now().Add(DefaultTransferTimeout)
}

// Control performs a control transfer. For IN requests the reply is copied
// into data; for OUT requests data is sent with the SETUP packet.
// Returns the number of data bytes transferred, or pkg.ErrStall if the
// device rejected the request.
func (d *Device) Control(ctx context.Context, setup *hal.SetupPacket, data []byte) (int, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	w, r, err := d.controlPipes()
	if err != nil {
		return 0, err
	}

	in := hal.IsIn(setup.RequestType)

	// Payload: [address, setup packet (8), OUT data...]
	payload := make([]byte, 1+hal.SetupPacketSize, 1+hal.SetupPacketSize+len(data))
	setup.MarshalTo(payload[1:])
	if !in {
		payload = append(payload, data...)
	}
	if err := devfifo.WriteMessage(w, d.txBuf[:], devfifo.MsgSetup, payload); err != nil {
		return 0, fmt.Errorf("send setup: %w", err)
	}

	msgType, reply, err := d.readReply(ctx, r)
	if err != nil {
		return 0, err
	}

	switch msgType {
	case devfifo.MsgData:
		if in {
			return copy(data, reply), nil
		}
		return len(reply), nil
	case devfifo.MsgAck:
		if in {
			return 0, nil
		}
		return len(data), nil
	case devfifo.MsgStall:
		return 0, pkg.ErrStall
	default:
		return 0, fmt.Errorf("control reply type 0x%02X: %w", msgType, pkg.ErrProtocol)
	}
}

// SetAddress assigns the device's bus address.
func (d *Device) SetAddress(ctx context.Context, address uint8) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	w, r, err := d.controlPipes()
	if err != nil {
		return err
	}
	if err := devfifo.WriteMessage(w, d.txBuf[:], devfifo.MsgAddress, []byte{address}); err != nil {
		return err
	}
	msgType, _, err := d.readReply(ctx, r)
	if err != nil {
		return err
	}
	if msgType != devfifo.MsgAck {
		return fmt.Errorf("address reply type 0x%02X: %w", msgType, pkg.ErrProtocol)
	}
	return nil
}

// Configuration reads configuration descriptor 0 into buf. The header is
// fetched first to learn wTotalLength, then the whole block.
// Returns the number of bytes read.
func (d *Device) Configuration(ctx context.Context, buf []byte) (int, error) {
	if len(buf) < device.ConfigurationDescriptorSize {
		return 0, pkg.ErrBufferTooSmall
	}

	setup := hal.SetupPacket{
		RequestType: hal.DirectionIn,
		Request:     hal.RequestGetDescriptor,
		Value:       uint16(device.DescriptorTypeConfiguration) << 8,
		Length:      device.ConfigurationDescriptorSize,
	}
	n, err := d.Control(ctx, &setup, buf[:device.ConfigurationDescriptorSize])
	if err != nil {
		return 0, fmt.Errorf("configuration header: %w", err)
	}

	var config device.ConfigurationDescriptor
	if err := device.ParseConfigurationDescriptor(buf[:n], &config); err != nil {
		return 0, fmt.Errorf("configuration header: %w", err)
	}
	total := int(config.TotalLength)
	if total > len(buf) {
		return 0, fmt.Errorf("configuration is %d bytes: %w", total, pkg.ErrBufferTooSmall)
	}

	setup.Length = config.TotalLength
	n, err = d.Control(ctx, &setup, buf[:total])
	if err != nil {
		return 0, fmt.Errorf("configuration: %w", err)
	}
	if n < total {
		return n, fmt.Errorf("configuration short read %d of %d: %w", n, total, pkg.ErrProtocol)
	}

	pkg.LogDebug(pkg.ComponentHost, "configuration descriptor",
		"numInterfaces", config.NumInterfaces,
		"totalLength", total)
	return n, nil
}

func (d *Device) readReply(ctx context.Context, r *os.File) (byte, []byte, error) {
	r.SetReadDeadline(deadline(ctx))
	msgType, reply, err := devfifo.ReadMessage(r, d.rxBuf[:])
	if err != nil {
		return 0, nil, fmt.Errorf("read reply: %w", err)
	}
	return msgType, reply, nil
}

func endpointIndex(endpoint uint8) (int, error) {
	num := hal.EndpointNumber(endpoint)
	if num == 0 || num > devfifo.MaxEndpoints {
		return 0, fmt.Errorf("endpoint 0x%02X: %w", endpoint, pkg.ErrInvalidEndpoint)
	}
	return int(num - 1), nil
}

// BulkOut writes data to the OUT endpoint, one message per packet.
func (d *Device) BulkOut(ctx context.Context, endpoint uint8, data []byte) (int, error) {
	if hal.IsIn(endpoint) {
		return 0, fmt.Errorf("endpoint 0x%02X: %w", endpoint, pkg.ErrInvalidEndpoint)
	}
	idx, err := endpointIndex(endpoint)
	if err != nil {
		return 0, err
	}

	d.mutex.Lock()
	defer d.mutex.Unlock()

	f, err := d.open(&d.epOut[idx], devfifo.EndpointFile(endpoint))
	if err != nil {
		return 0, err
	}
	f.SetWriteDeadline(deadline(ctx))

	total := 0
	for len(data) > 0 {
		n := min(len(data), hal.MaxPacketSize)
		if err := devfifo.WriteMessage(f, d.txBuf[:], devfifo.MsgData, data[:n]); err != nil {
			return total, err
		}
		total += n
		data = data[n:]
	}
	return total, nil
}

// BulkIn reads one packet from the IN endpoint into buf.
func (d *Device) BulkIn(ctx context.Context, endpoint uint8, buf []byte) (int, error) {
	if !hal.IsIn(endpoint) {
		return 0, fmt.Errorf("endpoint 0x%02X: %w", endpoint, pkg.ErrInvalidEndpoint)
	}
	idx, err := endpointIndex(endpoint)
	if err != nil {
		return 0, err
	}

	d.mutex.Lock()
	defer d.mutex.Unlock()

	f, err := d.open(&d.epIn[idx], devfifo.EndpointFile(endpoint))
	if err != nil {
		return 0, err
	}
	f.SetReadDeadline(deadline(ctx))

	msgType, data, err := devfifo.ReadMessage(f, d.rxBuf[:])
	if err != nil {
		return 0, err
	}
	if msgType != devfifo.MsgData {
		return 0, fmt.Errorf("bulk reply type 0x%02X: %w", msgType, pkg.ErrProtocol)
	}
	if len(data) > len(buf) {
		return 0, pkg.ErrBufferTooSmall
	}
	return copy(buf, data), nil
}
