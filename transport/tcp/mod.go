package tcp

import (
	"encoding/binary"
	"errors"
	"io"
	"net"
	"os"
	"strconv"
	"sync"
	"time"

	"go.dedis.ch/securesum/transport"
	"golang.org/x/xerrors"
)

const headerSize = 4

// NewTCP returns a new tcp transport implementation.
func NewTCP() *TCP {
	return &TCP{}
}

// TCP implements a transport layer using TCP with length-prefixed frames.
// Every frame sent or received through connections of this transport is
// recorded, which tests use to inspect what went on the wire.
//
// - implements transport.Transport
type TCP struct {
	ins  frames
	outs frames
}

func checkValidAddr(address string, allowZeroPort bool) bool {
	host, portStr, err := net.SplitHostPort(address)
	if err != nil || host == "" {
		return false
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return false
	}
	if port == 0 {
		return allowZeroPort
	}
	return port > 0 && port <= 65535
}

// Listen implements transport.Transport
func (t *TCP) Listen(address string) (transport.ClosableListener, error) {
	if !checkValidAddr(address, true) {
		return nil, transport.AddressError{Address: address}
	}

	ln, err := net.Listen("tcp", address)
	if err != nil {
		return nil, xerrors.Errorf("failed to listen on %s: %w", address, err)
	}

	return &Listener{
		ln:     ln,
		myAddr: ln.Addr().String(),
		tcp:    t,
	}, nil
}

// Dial implements transport.Transport
func (t *TCP) Dial(address string, timeout time.Duration) (transport.Conn, error) {
	if !checkValidAddr(address, false) {
		return nil, transport.AddressError{Address: address}
	}

	conn, err := net.DialTimeout("tcp", address, timeout)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, transport.TimeoutError(timeout)
		}
		return nil, xerrors.Errorf("failed to dial %s: %w", address, err)
	}

	return newConn(conn, t), nil
}

// GetIns returns a copy of all frames received so far.
func (t *TCP) GetIns() [][]byte {
	return t.ins.getAll()
}

// GetOuts returns a copy of all frames sent so far.
func (t *TCP) GetOuts() [][]byte {
	return t.outs.getAll()
}

// Listener implements a tcp listener.
//
// - implements transport.ClosableListener
type Listener struct {
	ln     net.Listener
	myAddr string
	tcp    *TCP
}

// Accept implements transport.Listener
func (l *Listener) Accept() (transport.Conn, error) {
	conn, err := l.ln.Accept()
	if err != nil {
		return nil, err
	}
	return newConn(conn, l.tcp), nil
}

// GetAddress implements transport.Listener
func (l *Listener) GetAddress() string {
	return l.myAddr
}

// Close implements transport.ClosableListener
func (l *Listener) Close() error {
	return l.ln.Close()
}

// Conn implements a framed connection over TCP. A frame is a uint32
// big-endian length followed by the body.
//
// - implements transport.Conn
type Conn struct {
	conn net.Conn
	tcp  *TCP
}

func newConn(conn net.Conn, t *TCP) *Conn {
	return &Conn{
		conn: conn,
		tcp:  t,
	}
}

// Send implements transport.Conn
func (c *Conn) Send(frame []byte, timeout time.Duration) error {
	if len(frame) > transport.MaxFrameSize {
		return transport.FrameError{Size: uint32(len(frame))}
	}

	if timeout != 0 {
		c.conn.SetWriteDeadline(time.Now().Add(timeout))
	} else {
		c.conn.SetWriteDeadline(time.Time{})
	}

	buf := make([]byte, headerSize+len(frame))
	binary.BigEndian.PutUint32(buf[:headerSize], uint32(len(frame)))
	copy(buf[headerSize:], frame)

	_, err := c.conn.Write(buf)
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return transport.TimeoutError(timeout)
	}
	if err != nil {
		return err
	}

	c.tcp.outs.add(frame)
	return nil
}

// Recv implements transport.Conn. It blocks until a whole frame is received,
// or the timeout is reached.
func (c *Conn) Recv(timeout time.Duration) ([]byte, error) {
	if timeout != 0 {
		c.conn.SetReadDeadline(time.Now().Add(timeout))
	} else {
		c.conn.SetReadDeadline(time.Time{})
	}

	var header [headerSize]byte
	_, err := io.ReadFull(c.conn, header[:])
	if err != nil {
		return nil, c.readErr(err, timeout)
	}

	size := binary.BigEndian.Uint32(header[:])
	if size > transport.MaxFrameSize {
		return nil, transport.FrameError{Size: size}
	}

	frame := make([]byte, size)
	_, err = io.ReadFull(c.conn, frame)
	if err != nil {
		return nil, c.readErr(err, timeout)
	}

	c.tcp.ins.add(frame)
	return frame, nil
}

func (c *Conn) readErr(err error, timeout time.Duration) error {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return transport.TimeoutError(timeout)
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return xerrors.Errorf("truncated frame from %s: %w", c.RemoteAddr(), err)
	}
	return err
}

// RemoteAddr implements transport.Conn
func (c *Conn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

// Close implements transport.Conn
func (c *Conn) Close() error {
	return c.conn.Close()
}

type frames struct {
	sync.Mutex
	data [][]byte
}

func (f *frames) add(frame []byte) {
	f.Lock()
	defer f.Unlock()

	cp := make([]byte, len(frame))
	copy(cp, frame)
	f.data = append(f.data, cp)
}

func (f *frames) getAll() [][]byte {
	f.Lock()
	defer f.Unlock()

	res := make([][]byte, len(f.data))
	for i, frame := range f.data {
		cp := make([]byte, len(frame))
		copy(cp, frame)
		res[i] = cp
	}

	return res
}
