package transport

import (
	"fmt"
	"time"
)

// MaxFrameSize is the largest frame body a connection accepts. Larger
// length prefixes are rejected before the body is read.
const MaxFrameSize = 1024

// Transport creates listeners and outbound connections.
type Transport interface {
	// Listen binds a listener on the given host:port address.
	Listen(address string) (ClosableListener, error)

	// Dial opens a connection to the given host:port address. A zero
	// timeout means no timeout.
	Dial(address string, timeout time.Duration) (Conn, error)
}

// Listener accepts inbound connections.
type Listener interface {
	// Accept blocks until a connection arrives or the listener is closed.
	Accept() (Conn, error)

	// GetAddress returns the address the listener is bound to. Useful when
	// the listener was created with a ":0" port.
	GetAddress() string
}

// ClosableListener is a listener that can be closed. Closing unblocks any
// pending Accept.
type ClosableListener interface {
	Listener
	Close() error
}

// Conn is a framed, point-to-point connection.
type Conn interface {
	// Send writes one frame. A zero timeout means no timeout.
	Send(frame []byte, timeout time.Duration) error

	// Recv reads one frame. It returns a TimeoutError if the timeout is
	// reached. A zero timeout means no timeout.
	Recv(timeout time.Duration) ([]byte, error)

	// RemoteAddr returns the address of the other end.
	RemoteAddr() string

	Close() error
}

// TimeoutError is a type of error used by the network interfaces if a timeout
// is reached when sending or receiving.
type TimeoutError time.Duration

// Error implements error.
func (err TimeoutError) Error() string {
	return fmt.Sprintf("timeout reached after %d", err)
}

// Is implements error.
func (TimeoutError) Is(err error) bool {
	_, ok := err.(TimeoutError)
	return ok
}

// AddressError reports a malformed address. Retrying will never help.
type AddressError struct {
	Address string
}

// Error implements error.
func (err AddressError) Error() string {
	return fmt.Sprintf("invalid address %q", err.Address)
}

// FrameError reports a frame that does not respect the framing rules.
type FrameError struct {
	Size uint32
}

// Error implements error.
func (err FrameError) Error() string {
	return fmt.Sprintf("frame of %d bytes exceeds %d", err.Size, MaxFrameSize)
}
