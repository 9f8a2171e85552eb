// Package serial implements a device HAL that tunnels the MIDIStreaming
// bulk endpoints over a UART.
//
// Bytes read from the port are delivered on the OUT endpoint and bytes
// sent on the IN endpoint are written to the port, so a host side bridge
// sees the raw 4-byte USB-MIDI event packets. There is no control pipe:
// ReadSetup and SendControl report that they are unsupported, and the
// descriptor block is only meaningful to a USB host.
//
// Reset pulses DTR, which restarts boards whose reset line is wired to it.
//
//	h := serial.New("/dev/ttyACM0", &goserial.Mode{BaudRate: 115200}, 0x02, 0x83)
//	if err := h.Init(ctx); err != nil {
//	    return err
//	}
//	defer h.Stop()
//	h.Start()
package serial
