// Package fifo implements a device HAL over named pipes (FIFOs).
//
// The HAL lets a device process and a host process exchange USB traffic
// through the filesystem, so class drivers can be exercised end to end
// without hardware.
//
// # Layout
//
// Each device instance creates a unique subdirectory under a shared bus
// directory. Only the data endpoints passed to [New] get FIFOs:
//
//	/tmp/usb-bus/                    # Bus directory (shared with host)
//	└── device-{uuid}/               # Device subdirectory
//	    ├── connection               # Connection signaling (device → host)
//	    ├── host_to_device           # Control requests from host
//	    ├── device_to_host           # Control replies to host
//	    ├── ep2_out                  # Bulk OUT data (host → device)
//	    └── ep3_in                   # Bulk IN data (device → host)
//
// # Messages
//
// Every pipe except connection carries framed messages:
//
//	[type, len_lo, len_hi, payload...]
//
// Data endpoints carry [MsgData] messages of at most one packet. The host
// sends SETUP requests as [MsgSetup] with the payload [address, setup(8)].
// The device answers with [MsgData], [MsgAck], or [MsgStall].
//
// # Connection
//
// The connection FIFO carries single status bytes: [SigConnect] after Start
// and [SigDisconnect] on Stop. [HAL.Reset] emits a disconnect followed by a
// connect, which a host treats as a replug.
//
// # Usage
//
//	h := fifo.New("/tmp/usb-bus", 0x02, 0x83)
//	if err := h.Init(ctx); err != nil {
//	    return err
//	}
//	defer h.Stop()
//
//	m := midi.New(h, midi.Config{
//	    OutEndpoint: 0x02,
//	    InEndpoint:  0x83,
//	    Reset:       func() { h.Reset() },
//	})
//	h.Start()
//
//	for {
//	    m.Service()
//	}
package fifo
