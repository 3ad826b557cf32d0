// Package pool implements the printer connection pool: at most one
// reusable TCP connection per printer address, with idle cleanup.
package pool

import (
	"net"
	"sync"
	"time"
)

type entry struct {
	conn     net.Conn
	lastUsed time.Time
}

// Pool holds at most one pooled net.Conn per address.
type Pool struct {
	mu      sync.Mutex
	entries map[string]*entry
	dialer  net.Dialer
}

func New() *Pool {
	return &Pool{
		entries: make(map[string]*entry),
		dialer:  net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second},
	}
}

// Take returns a pooled connection for address, if one exists. The
// caller must call Put to return it (on success) or Discard (on
// error).
func (p *Pool) Take(address string) (net.Conn, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.entries[address]
	if !ok {
		return nil, false
	}
	delete(p.entries, address)
	return e.conn, true
}

// Dial opens a fresh connection with keepalive configured (idle 30s,
// probe interval 10s per spec), for callers that got a pool miss.
func (p *Pool) Dial(address string) (net.Conn, error) {
	conn, err := p.dialer.Dial("tcp", address)
	if err != nil {
		return nil, err
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.SetKeepAliveConfig(net.KeepAliveConfig{
			Enable:   true,
			Idle:     30 * time.Second,
			Interval: 10 * time.Second,
		})
	}
	return conn, nil
}

// Put returns a healthy connection to the pool for reuse.
func (p *Pool) Put(address string, conn net.Conn) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries[address] = &entry{conn: conn, lastUsed: time.Now()}
}

// Discard closes conn without returning it to the pool.
func (p *Pool) Discard(conn net.Conn) {
	if conn != nil {
		_ = conn.Close()
	}
}

// Cleanup closes and evicts any pooled connection idle longer than
// maxIdle. Intended to run on a periodic background tick.
func (p *Pool) Cleanup(maxIdle time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := time.Now()
	for addr, e := range p.entries {
		if now.Sub(e.lastUsed) > maxIdle {
			_ = e.conn.Close()
			delete(p.entries, addr)
		}
	}
}

// Len reports the number of pooled connections, for diagnostics/tests.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}
