// Package probe detects whether an unknown TCP address speaks
// ESC/POS, without assuming a full printer driver is configured for
// it yet.
package probe

import (
	"context"
	"net"
	"time"
)

// IsESCPOS opens a fresh TCP connection to address, sends the 3-byte
// DLE EOT 01 transmission-status request, and reads a single byte
// with a 500ms timeout inside an 800ms outer envelope. Any one-byte
// reply is treated as ESC/POS support; anything else (error, timeout,
// non-panic garbage) is "unsupported". Never writes more than 3 bytes,
// never reads more than 1 — safe to run against arbitrary devices.
func IsESCPOS(ctx context.Context, address string) bool {
	ctx, cancel := context.WithTimeout(ctx, 800*time.Millisecond)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", address)
	if err != nil {
		return false
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(500 * time.Millisecond)); err != nil {
		return false
	}

	if _, err := conn.Write([]byte{0x10, 0x04, 0x01}); err != nil {
		return false
	}

	buf := make([]byte, 1)
	n, err := conn.Read(buf)
	return err == nil && n == 1
}
