package midi

import (
	"github.com/ardnew/usbmidi/device/hal"
)

// fakeTransport records everything the class driver does to the endpoints.
type fakeTransport struct {
	rx       []byte // Pending OUT endpoint bytes
	tx       []byte // Bytes sent to the IN endpoint
	sends    int
	flushes  int
	notReady bool
	control  []byte
	outAddr  uint8 // Last Recv address
	inAddr   uint8 // Last Send address
}

func (f *fakeTransport) Recv(address uint8) (byte, bool) {
	f.outAddr = address
	if len(f.rx) == 0 {
		return 0, false
	}
	b := f.rx[0]
	f.rx = f.rx[1:]
	return b, true
}

func (f *fakeTransport) Send(address uint8, data []byte) int {
	f.inAddr = address
	f.sends++
	f.tx = append(f.tx, data...)
	return len(data)
}

func (f *fakeTransport) Flush(address uint8) {
	f.flushes++
}

func (f *fakeTransport) Ready(address uint8) bool {
	return !f.notReady
}

func (f *fakeTransport) SendControl(data []byte) int {
	f.control = append([]byte(nil), data...)
	return len(data)
}

func (f *fakeTransport) offer(events ...Event) {
	for _, e := range events {
		b := e.Bytes()
		f.rx = append(f.rx, b[:]...)
	}
}

var _ hal.Transport = (*fakeTransport)(nil)
