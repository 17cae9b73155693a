/*
Package transport owns the TCP (optionally TLS-wrapped) socket lifecycle for
one connection attempt: dialing, a byte-oriented read/write pair, and a
shutdown that is safe to call from a different goroutine than the one
blocked in Read.
*/
package transport

import (
	"crypto/tls"
	"net"
	"strconv"
	"sync"

	"github.com/pkg/errors"
)

// Conn wraps a single connection attempt's socket. It is created fresh for
// every (re)connect; once Disconnect has been called it must be discarded.
type Conn struct {
	conn net.Conn

	closeOnce sync.Once
	closed    chan struct{}
}

// Dial opens a TCP connection to host:port, optionally wrapping it in TLS
// with ServerName set to host so certificate verification matches the
// server we actually asked for (SNI).
func Dial(host string, port int, useTLS bool) (*Conn, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	var (
		conn net.Conn
		err  error
	)
	if useTLS {
		conn, err = tls.Dial("tcp", addr, &tls.Config{ServerName: host})
	} else {
		conn, err = net.Dial("tcp", addr)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "transport: dial %s", addr)
	}

	return &Conn{conn: conn, closed: make(chan struct{})}, nil
}

// Read reads raw bytes off the socket. The returned error should be passed
// to Classify to determine whether it represents a peer close, a genuine
// transport failure, or an expected result of a concurrent Disconnect.
func (c *Conn) Read(buf []byte) (int, error) {
	return c.conn.Read(buf)
}

// Write writes raw bytes to the socket.
func (c *Conn) Write(buf []byte) (int, error) {
	return c.conn.Write(buf)
}

// Disconnect unblocks any goroutine currently blocked in Read or Write and
// closes the socket. It is idempotent and safe to call from any goroutine,
// any number of times, including concurrently with Read/Write.
func (c *Conn) Disconnect() {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.conn.Close()
	})
}

// RemoteAddr returns the peer address of the underlying socket, e.g. to
// detect that a reconnect landed on a different host behind a round-robin
// DNS name.
func (c *Conn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

// IsDisconnected reports whether Disconnect has been called on this Conn.
func (c *Conn) IsDisconnected() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}
