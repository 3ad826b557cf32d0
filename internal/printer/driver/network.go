package driver

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/eatsome/printer-daemon/internal/printer/pool"
)

// NetworkDriver prints over raw TCP (port 9100 typical), reusing
// connections via the shared Pool: a pooled connection is tried
// first, and on any write error exactly one fresh attempt is made
// before giving up.
type NetworkDriver struct {
	pool *pool.Pool
}

func NewNetworkDriver(p *pool.Pool) *NetworkDriver {
	return &NetworkDriver{pool: p}
}

func (d *NetworkDriver) Print(ctx context.Context, address string, data []byte) error {
	if conn, ok := d.pool.Take(address); ok {
		if err := writeAndFlush(conn, data, 20*time.Second); err == nil {
			d.pool.Put(address, conn)
			return nil
		}
		d.pool.Discard(conn)
	}

	conn, err := d.pool.Dial(address)
	if err != nil {
		return classifyDialErr(err)
	}

	if err := writeAndFlush(conn, data, 20*time.Second); err != nil {
		d.pool.Discard(conn)
		return newError(KindIO, "write", err)
	}

	d.pool.Put(address, conn)
	return nil
}

func writeAndFlush(conn net.Conn, data []byte, writeTimeout time.Duration) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	_, err := conn.Write(data)
	return err
}

func classifyDialErr(err error) *Error {
	if ne, ok := err.(net.Error); ok && ne.Timeout() {
		return newError(KindTimeout, "dial", err)
	}
	return newError(KindUnreachable, "dial", err)
}

func (d *NetworkDriver) ProbeStatus(ctx context.Context, address string) (HwStatus, error) {
	conn, err := d.pool.Dial(address)
	if err != nil {
		return HwStatus{}, classifyDialErr(err)
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(800 * time.Millisecond)); err != nil {
		return HwStatus{}, newError(KindIO, "set deadline", err)
	}

	if _, err := conn.Write([]byte{0x10, 0x04, 0x01}); err != nil {
		return HwStatus{}, newError(KindIO, "write dle-eot probe", err)
	}

	buf := make([]byte, 4)
	n, err := conn.Read(buf)
	if err != nil {
		return HwStatus{}, newError(KindTimeout, "read dle-eot response", err)
	}
	if n < 4 {
		return HwStatus{}, newError(KindIO, "read dle-eot response", fmt.Errorf("short read: %d bytes", n))
	}
	var resp [4]byte
	copy(resp[:], buf)
	return parseDLEEOTResponse(resp), nil
}
