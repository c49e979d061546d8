package topology

import (
	"time"

	"go.dedis.ch/securesum/transport"
)

// fakeTransport is never used to send anything, configurations only need a
// non-nil transport.
type fakeTransport struct{}

func (fakeTransport) Listen(address string) (transport.ClosableListener, error) {
	return nil, transport.AddressError{Address: address}
}

func (fakeTransport) Dial(address string, timeout time.Duration) (transport.Conn, error) {
	return nil, transport.AddressError{Address: address}
}
