package tcp

import (
	"encoding/binary"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/securesum/transport"
)

func Test_TCP_Send_Recv(t *testing.T) {
	tr := NewTCP()

	ln, err := tr.Listen("127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	accepted := make(chan transport.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			accepted <- conn
		}
	}()

	client, err := tr.Dial(ln.GetAddress(), time.Second)
	require.NoError(t, err)
	defer client.Close()

	var server transport.Conn
	select {
	case server = <-accepted:
	case <-time.After(time.Second):
		t.Fatal("connection must have been accepted")
	}
	defer server.Close()

	err = client.Send([]byte("hello"), time.Second)
	require.NoError(t, err)

	frame, err := server.Recv(time.Second)
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), frame)

	err = server.Send([]byte{}, time.Second)
	require.NoError(t, err)

	frame, err = client.Recv(time.Second)
	require.NoError(t, err)
	require.Len(t, frame, 0)

	require.Len(t, tr.GetOuts(), 2)
	require.Len(t, tr.GetIns(), 2)
	require.Equal(t, []byte("hello"), tr.GetOuts()[0])
}

func Test_TCP_Recv_Timeout(t *testing.T) {
	tr := NewTCP()

	ln, err := tr.Listen("127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err == nil {
			// keep it open without writing
			time.Sleep(time.Millisecond * 500)
			conn.Close()
		}
	}()

	client, err := tr.Dial(ln.GetAddress(), time.Second)
	require.NoError(t, err)
	defer client.Close()

	_, err = client.Recv(time.Millisecond * 50)
	require.Error(t, err)
	require.True(t, errors.Is(err, transport.TimeoutError(0)))
}

func Test_TCP_Oversized_Frame(t *testing.T) {
	tr := NewTCP()

	ln, err := tr.Listen("127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		raw, err := net.Dial("tcp", ln.GetAddress())
		if err != nil {
			return
		}
		defer raw.Close()

		var header [4]byte
		binary.BigEndian.PutUint32(header[:], transport.MaxFrameSize+1)
		raw.Write(header[:])
		time.Sleep(time.Millisecond * 200)
	}()

	server, err := ln.Accept()
	require.NoError(t, err)
	defer server.Close()

	_, err = server.Recv(time.Second)
	var frameErr transport.FrameError
	require.True(t, errors.As(err, &frameErr))
	require.Equal(t, uint32(transport.MaxFrameSize+1), frameErr.Size)

	err = server.Send(make([]byte, transport.MaxFrameSize+1), time.Second)
	require.True(t, errors.As(err, &frameErr))
}

func Test_TCP_Truncated_Frame(t *testing.T) {
	tr := NewTCP()

	ln, err := tr.Listen("127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		raw, err := net.Dial("tcp", ln.GetAddress())
		if err != nil {
			return
		}
		var header [4]byte
		binary.BigEndian.PutUint32(header[:], 8)
		raw.Write(header[:])
		raw.Write([]byte{1, 2, 3})
		raw.Close()
	}()

	server, err := ln.Accept()
	require.NoError(t, err)
	defer server.Close()

	_, err = server.Recv(time.Second)
	require.Error(t, err)
}

func Test_TCP_Invalid_Address(t *testing.T) {
	tr := NewTCP()

	for _, addr := range []string{"", "127.0.0.1", "127.0.0.1:abc", ":80", "127.0.0.1:70000"} {
		_, err := tr.Dial(addr, time.Second)
		var addrErr transport.AddressError
		require.True(t, errors.As(err, &addrErr), addr)
	}

	_, err := tr.Dial("127.0.0.1:0", time.Second)
	require.Error(t, err)

	_, err = tr.Listen("not-an-address")
	require.Error(t, err)
}
