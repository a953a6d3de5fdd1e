package cbus

import (
	"net"
	"time"
)

// tcpTransport reaches the PCI over TCP, e.g. through a PCI-over-IP
// gateway.
type tcpTransport struct {
	conn net.Conn
}

func openTCPTransport(address string, dialTimeout time.Duration) (*tcpTransport, error) {
	conn, err := net.DialTimeout("tcp", address, dialTimeout)
	if err != nil {
		return nil, err
	}
	return &tcpTransport{conn: conn}, nil
}

func (t *tcpTransport) Read(buf []byte) (int, error)             { return t.conn.Read(buf) }
func (t *tcpTransport) Write(buf []byte) (int, error)            { return t.conn.Write(buf) }
func (t *tcpTransport) Close() error                             { return t.conn.Close() }
func (t *tcpTransport) SetReadDeadline(deadline time.Time) error { return t.conn.SetReadDeadline(deadline) }
