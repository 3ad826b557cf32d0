package driver

import (
	"context"
	"fmt"
	"time"

	"tinygo.org/x/bluetooth"
)

// starCharUUID and genericCharUUID are the ordered
// characteristic preferences from spec.md §4.2: a known printer
// characteristic UUID first, then any writable characteristic in the
// Star service, then any write-without-response characteristic, then
// any write characteristic.
var (
	starCharUUID    = mustParseUUID("49535343-8841-43f4-a8d4-ecbe34729bb3")
	genericCharUUID = mustParseUUID("00002af1-0000-1000-8000-00805f9b34fb")
)

func mustParseUUID(s string) bluetooth.UUID {
	u, err := bluetooth.ParseUUID(s)
	if err != nil {
		panic(err)
	}
	return u
}

// BLEDriver prints over Bluetooth Low Energy GATT writes, chunked to
// tolerate small MTUs. BLE printers are exempt from hardware status
// polling (ProbeStatus always reports healthy).
type BLEDriver struct {
	adapter *bluetooth.Adapter
}

func NewBLEDriver() *BLEDriver {
	return &BLEDriver{adapter: bluetooth.DefaultAdapter}
}

func (d *BLEDriver) Print(ctx context.Context, address string, data []byte) error {
	if err := d.adapter.Enable(); err != nil {
		return newError(KindUnreachable, "enable adapter", err)
	}

	target, err := d.scanFor(ctx, address)
	if err != nil {
		return err
	}

	connCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	device, err := d.connect(connCtx, target)
	if err != nil {
		return newError(KindUnreachable, "connect", err)
	}
	defer device.Disconnect()

	char, writeWithResponse, err := selectCharacteristic(device)
	if err != nil {
		return newError(KindIO, "select characteristic", err)
	}

	return writeChunked(char, writeWithResponse, data)
}

func (d *BLEDriver) scanFor(ctx context.Context, address string) (bluetooth.ScanResult, error) {
	type found struct {
		result bluetooth.ScanResult
		ok     bool
	}
	resultCh := make(chan found, 1)

	go func() {
		var match bluetooth.ScanResult
		ok := false
		_ = d.adapter.Scan(func(adapter *bluetooth.Adapter, result bluetooth.ScanResult) {
			if result.Address.String() == address {
				match = result
				ok = true
				adapter.StopScan()
			}
		})
		resultCh <- found{match, ok}
	}()

	select {
	case <-time.After(3 * time.Second):
		d.adapter.StopScan()
		r := <-resultCh
		if !r.ok {
			return bluetooth.ScanResult{}, fmt.Errorf("peripheral %s not found during scan", address)
		}
		return r.result, nil
	case r := <-resultCh:
		if !r.ok {
			return bluetooth.ScanResult{}, fmt.Errorf("peripheral %s not found during scan", address)
		}
		return r.result, nil
	case <-ctx.Done():
		d.adapter.StopScan()
		return bluetooth.ScanResult{}, ctx.Err()
	}
}

func (d *BLEDriver) connect(ctx context.Context, target bluetooth.ScanResult) (bluetooth.Device, error) {
	return d.adapter.Connect(target.Address, bluetooth.ConnectionParams{})
}

// selectCharacteristic walks every discovered service/characteristic
// and applies the ordered preference from spec.md §4.2.
func selectCharacteristic(device bluetooth.Device) (bluetooth.DeviceCharacteristic, bool, error) {
	services, err := device.DiscoverServices(nil)
	if err != nil {
		return bluetooth.DeviceCharacteristic{}, false, err
	}

	var (
		known, starWWR, anyWWR, anyWrite bluetooth.DeviceCharacteristic
		haveKnown, haveStarWWR, haveAnyWWR, haveAnyWrite bool
	)

	for _, svc := range services {
		chars, err := svc.DiscoverCharacteristics(nil)
		if err != nil {
			continue
		}
		for _, ch := range chars {
			uuid := ch.UUID()
			if uuid == starCharUUID || uuid == genericCharUUID {
				known, haveKnown = ch, true
			}
			if svc.UUID() == starCharUUID && !haveStarWWR {
				starWWR, haveStarWWR = ch, true
			}
			if !haveAnyWWR {
				anyWWR, haveAnyWWR = ch, true
			}
			if !haveAnyWrite {
				anyWrite, haveAnyWrite = ch, true
			}
		}
	}

	switch {
	case haveKnown:
		return known, true, nil
	case haveStarWWR:
		return starWWR, true, nil
	case haveAnyWWR:
		return anyWWR, true, nil
	case haveAnyWrite:
		return anyWrite, false, nil
	default:
		return bluetooth.DeviceCharacteristic{}, false, fmt.Errorf("no writable characteristic found")
	}
}

// writeChunked sends data in chunks starting at 100 bytes; on a write
// error with the current chunk size still above 20, it falls back to
// 20-byte chunks and retries the same offset. 10ms between chunks;
// a chunk write that takes longer than 5s fails with KindTimeout.
func writeChunked(char bluetooth.DeviceCharacteristic, _ bool, data []byte) error {
	chunkSize := 100
	offset := 0

	for offset < len(data) {
		end := offset + chunkSize
		if end > len(data) {
			end = len(data)
		}
		chunk := data[offset:end]

		errCh := make(chan error, 1)
		go func() {
			_, werr := char.WriteWithoutResponse(chunk)
			errCh <- werr
		}()
		var err error
		select {
		case err = <-errCh:
		case <-time.After(5 * time.Second):
			return newError(KindTimeout, "write chunk", fmt.Errorf("chunk write exceeded 5s"))
		}
		if err != nil {
			if chunkSize > 20 {
				chunkSize = 20
				continue // retry same offset at the smaller chunk size
			}
			return newError(KindIO, "write chunk", err)
		}

		offset = end
		time.Sleep(10 * time.Millisecond)
	}

	return nil
}

// ProbeStatus always reports the printer healthy; BLE printers are
// exempt from hardware status polling per spec.
func (d *BLEDriver) ProbeStatus(ctx context.Context, address string) (HwStatus, error) {
	return HwStatus{Online: true}, nil
}
