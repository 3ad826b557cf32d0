package driver

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/gousb"
)

// KnownVendorIDs maps the USB vendor IDs of common thermal printer
// manufacturers to their names.
var KnownVendorIDs = map[gousb.ID]string{
	0x04b8: "Epson",
	0x0519: "Star Micronics",
	0x04f9: "Brother",
	0x1d90: "Citizen",
	0x0fe6: "ICS Advent",
	0x154f: "Wincor Nixdorf",
}

// USBDriver prints over USB bulk transfer. Every call opens, uses,
// and releases the device — matching the source's one-shot handle
// lifecycle — hopped onto a goroutine so the caller's context can
// still observe a timeout while the blocking libusb call runs.
type USBDriver struct {
	ctx *gousb.Context
}

func NewUSBDriver() *USBDriver {
	return &USBDriver{ctx: gousb.NewContext()}
}

// parseUSBAddress splits "/dev/bus/usb/{bus:3}/{dev:3}" into bus and
// device-address bytes.
func parseUSBAddress(address string) (bus, addr uint8, err error) {
	parts := strings.Split(address, "/")
	if len(parts) < 6 {
		return 0, 0, fmt.Errorf("invalid usb address %q", address)
	}
	b, err := strconv.ParseUint(parts[4], 10, 8)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid bus number in %q: %w", address, err)
	}
	a, err := strconv.ParseUint(parts[5], 10, 8)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid device address in %q: %w", address, err)
	}
	return uint8(b), uint8(a), nil
}

func (d *USBDriver) Print(ctx context.Context, address string, data []byte) error {
	bus, addr, err := parseUSBAddress(address)
	if err != nil {
		return newError(KindIO, "parse address", err)
	}

	type result struct{ err error }
	done := make(chan result, 1)

	go func() {
		devs, openErr := d.ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
			return desc.Bus == int(bus) && desc.Address == int(addr)
		})
		if openErr != nil {
			done <- result{newError(KindUnreachable, "open usb devices", openErr)}
			return
		}
		defer func() {
			for _, dev := range devs {
				dev.Close()
			}
		}()
		if len(devs) == 0 {
			done <- result{newError(KindUnreachable, "find usb device", fmt.Errorf("no device at bus %d addr %d", bus, addr))}
			return
		}

		dev := devs[0]
		cfg, cfgErr := dev.Config(1)
		if cfgErr != nil {
			done <- result{newError(KindPermission, "claim configuration", cfgErr)}
			return
		}
		defer cfg.Close()

		intf, intfErr := cfg.Interface(0, 0)
		if intfErr != nil {
			done <- result{newError(KindPermission, "claim interface 0", intfErr)}
			return
		}
		defer intf.Close()

		out, epErr := intf.OutEndpoint(0x01)
		if epErr != nil {
			done <- result{newError(KindIO, "open out endpoint 0x01", epErr)}
			return
		}

		if _, writeErr := out.Write(data); writeErr != nil {
			done <- result{newError(KindIO, "bulk write", writeErr)}
			return
		}
		done <- result{nil}
	}()

	select {
	case <-ctx.Done():
		return newError(KindTimeout, "print", ctx.Err())
	case r := <-done:
		return r.err
	case <-time.After(5 * time.Second):
		return newError(KindTimeout, "print", fmt.Errorf("bulk write exceeded 5s"))
	}
}

func (d *USBDriver) ProbeStatus(ctx context.Context, address string) (HwStatus, error) {
	bus, addr, err := parseUSBAddress(address)
	if err != nil {
		return HwStatus{}, newError(KindIO, "parse address", err)
	}

	type result struct {
		status HwStatus
		err    error
	}
	done := make(chan result, 1)

	go func() {
		devs, openErr := d.ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
			return desc.Bus == int(bus) && desc.Address == int(addr)
		})
		if openErr != nil || len(devs) == 0 {
			done <- result{err: newError(KindUnreachable, "find usb device", err)}
			return
		}
		defer func() {
			for _, dev := range devs {
				dev.Close()
			}
		}()

		dev := devs[0]
		cfg, cfgErr := dev.Config(1)
		if cfgErr != nil {
			done <- result{err: newError(KindPermission, "claim configuration", cfgErr)}
			return
		}
		defer cfg.Close()
		intf, intfErr := cfg.Interface(0, 0)
		if intfErr != nil {
			done <- result{err: newError(KindPermission, "claim interface", intfErr)}
			return
		}
		defer intf.Close()

		out, epErr := intf.OutEndpoint(0x01)
		if epErr != nil {
			done <- result{err: newError(KindIO, "open out endpoint", epErr)}
			return
		}
		in, inErr := intf.InEndpoint(0x81)
		if inErr != nil {
			done <- result{err: newError(KindIO, "open in endpoint", inErr)}
			return
		}

		probe := []byte{0x10, 0x04, 0x01}
		if _, writeErr := out.Write(probe); writeErr != nil {
			done <- result{err: newError(KindIO, "write dle-eot probe", writeErr)}
			return
		}

		buf := make([]byte, 4)
		n, readErr := in.Read(buf)
		if readErr != nil {
			done <- result{err: newError(KindIO, "read dle-eot response", readErr)}
			return
		}
		if n < 4 {
			buf = append(buf, make([]byte, 4-n)...)
		}
		var resp [4]byte
		copy(resp[:], buf)
		done <- result{status: parseDLEEOTResponse(resp)}
	}()

	select {
	case <-ctx.Done():
		return HwStatus{}, newError(KindTimeout, "probe", ctx.Err())
	case r := <-done:
		return r.status, r.err
	case <-time.After(2 * time.Second):
		return HwStatus{}, newError(KindTimeout, "probe", fmt.Errorf("dle-eot probe exceeded 2s"))
	}
}

// parseDLEEOTResponse decodes the printer status byte (response to
// "n=1") per the common ESC/POS status bit layout.
func parseDLEEOTResponse(resp [4]byte) HwStatus {
	b := resp[0]
	return HwStatus{
		Online:      true,
		CoverOpen:   b&0x04 != 0,
		PaperLow:    b&0x20 != 0,
		PaperOut:    b&0x60 != 0,
		ErrorFlag:   b&0x40 != 0,
		RawResponse: resp,
	}
}
