package transport

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"
)

// TCPConn is a pooled stream socket.
type TCPConn struct {
	name string
	addr string
	net.Conn
}

// DialTCP connects to ep. The URL may carry a tcp:// scheme.
func DialTCP(ctx context.Context, ep Endpoint) (*TCPConn, error) {
	addr := strings.TrimPrefix(ep.URL, "tcp://")
	d := net.Dialer{Timeout: ep.Timeout, KeepAlive: 30 * time.Second}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", addr, err)
	}
	return &TCPConn{name: ep.Name, addr: addr, Conn: conn}, nil
}

// Addr returns the dialed address.
func (c *TCPConn) Addr() string { return c.addr }

// Ping checks the peer still accepts connections by dialing it afresh;
// reading from the live socket would consume stream data.
func (c *TCPConn) Ping(ctx context.Context) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return err
	}
	return conn.Close()
}
