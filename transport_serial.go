package cbus

import (
	"time"

	serial "github.com/daedaluz/goserial"
)

// serialTransport is the link for a directly attached C-Bus PCI. The PCI
// only ever talks 9600 8N1: open the device, switch to raw mode, then stamp
// the baud, character size, parity, and stop-bit flags onto termios.
type serialTransport struct {
	port *serial.Port
}

// openSerialTransport opens device at the PCI's fixed 9600 8N1 settings.
func openSerialTransport(device string) (*serialTransport, error) {
	port, err := serial.Open(device, serial.NewOptions())
	if err != nil {
		return nil, err
	}
	if err := port.MakeRaw(); err != nil {
		port.Close()
		return nil, err
	}
	attrs, err := port.GetAttr()
	if err != nil {
		port.Close()
		return nil, err
	}
	attrs.Cflag &^= serial.CBAUD | serial.CSIZE | serial.PARENB | serial.CSTOPB
	attrs.Cflag |= serial.B9600 | serial.CS8 | serial.CREAD | serial.CLOCAL
	if err := port.SetAttr(serial.TCSANOW, attrs); err != nil {
		port.Close()
		return nil, err
	}
	return &serialTransport{port: port}, nil
}

func (t *serialTransport) Read(buf []byte) (int, error)  { return t.port.Read(buf) }
func (t *serialTransport) Write(buf []byte) (int, error) { return t.port.Write(buf) }
func (t *serialTransport) Close() error                  { return t.port.Close() }

// SetReadDeadline is approximated with goserial's per-call read timeout,
// since termios has no notion of an absolute deadline: the deadline is
// converted to a timeout relative to the moment of the call.
func (t *serialTransport) SetReadDeadline(deadline time.Time) error {
	timeout := time.Until(deadline)
	if timeout < 0 {
		timeout = 0
	}
	t.port.SetReadTimeout(timeout)
	return nil
}
