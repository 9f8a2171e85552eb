// Package fifo is the host side of the named-pipe bus used by the device
// FIFO HAL.
//
// A [Bus] watches a bus directory for device subdirectories and returns a
// [Device] once the device signals that it is connected. The device is
// driven with control requests and bulk transfers framed the same way as
// the device side.
//
//	bus := fifo.NewBus("/tmp/usb-bus")
//	dev, err := bus.WaitDevice(ctx)
//	if err != nil {
//	    return err
//	}
//	defer dev.Close()
//
//	n, err := dev.Control(ctx, &setup, buf)
package fifo
