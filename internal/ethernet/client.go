// Package ethernet is a bare TCP client for the DUT's auxiliary network
// channel. It also satisfies the session connection surface so a shell
// exposed over TCP can be driven like the UART.
package ethernet

import (
	"context"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/buckleypaul/bringup/internal/fault"
	"github.com/buckleypaul/bringup/internal/logging"
)

// DefaultBufferSize is the Receive buffer size when none is given.
const DefaultBufferSize = 1024

// Client is a connected TCP endpoint. Close may be called while a Read
// is in flight; the Read then returns a not-connected or capture error.
type Client struct {
	conn net.Conn
	addr string

	mu          sync.Mutex
	closed      bool
	readTimeout time.Duration
}

// Dial connects to host:port. timeout bounds both the dial and each
// later read; zero means reads block until data arrives.
func Dial(ctx context.Context, host string, port int, timeout time.Duration) (*Client, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fault.Wrap(fault.Connection, err, "dial %s", addr)
	}
	logging.L().Info("ethernet connected", "addr", addr)
	return &Client{conn: conn, addr: addr, readTimeout: timeout}, nil
}

// Addr returns the remote host:port.
func (c *Client) Addr() string { return c.addr }

// Send writes text as UTF-8.
func (c *Client) Send(text string) error {
	if _, err := c.Write([]byte(text)); err != nil {
		return err
	}
	logging.L().Debug("ethernet sent", "addr", c.addr, "bytes", len(text))
	return nil
}

// Receive performs one read of up to bufSize bytes. A read timeout yields
// an empty string and no error.
func (c *Client) Receive(bufSize int) (string, error) {
	if bufSize <= 0 {
		bufSize = DefaultBufferSize
	}
	buf := make([]byte, bufSize)
	n, err := c.Read(buf)
	if err != nil {
		return "", err
	}
	return string(buf[:n]), nil
}

// live returns the read timeout, or false once the client is closed.
func (c *Client) live() (time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readTimeout, !c.closed
}

// Write sends p in full.
func (c *Client) Write(p []byte) (int, error) {
	if _, ok := c.live(); !ok {
		return 0, fault.E(fault.NotConnected, "ethernet write", nil)
	}
	n, err := c.conn.Write(p)
	if err != nil {
		return n, fault.Wrap(fault.Connection, err, "write %s", c.addr)
	}
	return n, nil
}

// Read reads into p. A deadline expiry is reported as 0, nil to match a
// serial port read timeout.
func (c *Client) Read(p []byte) (int, error) {
	timeout, ok := c.live()
	if !ok {
		return 0, fault.E(fault.NotConnected, "ethernet read", nil)
	}
	if timeout > 0 {
		if err := c.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
			return 0, fault.Wrap(fault.Capture, err, "set deadline %s", c.addr)
		}
	}
	n, err := c.conn.Read(p)
	if err != nil {
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			return n, nil
		}
		return n, fault.Wrap(fault.Capture, err, "read %s", c.addr)
	}
	return n, nil
}

// SetReadTimeout changes the per-read timeout.
func (c *Client) SetReadTimeout(t time.Duration) error {
	c.mu.Lock()
	c.readTimeout = t
	c.mu.Unlock()
	return nil
}

// Close closes the connection. Closing twice is a no-op.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	err := c.conn.Close()
	logging.L().Info("ethernet closed", "addr", c.addr)
	return err
}
