package exchange

import (
	"errors"
	"time"

	"go.dedis.ch/securesum/peer"
	"go.dedis.ch/securesum/transport"
	"go.dedis.ch/securesum/types"
	"golang.org/x/xerrors"
)

func sendToken(conn transport.Conn, token types.IdentityToken, timeout time.Duration) error {
	return conn.Send(token.Marshal(), timeout)
}

// recvToken reads an identity frame. A frame of the wrong size is a protocol
// violation, range checks are left to the distributor.
func recvToken(conn transport.Conn, timeout time.Duration) (types.IdentityToken, error) {
	token := types.IdentityToken{}

	frame, err := conn.Recv(timeout)
	if err != nil {
		return token, frameErr(err)
	}

	err = token.Unmarshal(frame)
	if err != nil {
		return token, xerrors.Errorf("%v: %w", err, peer.ErrProtocolViolation)
	}

	return token, nil
}

func sendPayload(conn transport.Conn, value int64, timeout time.Duration) error {
	return conn.Send(types.PayloadMessage{Value: value}.Marshal(), timeout)
}

func recvPayload(conn transport.Conn, timeout time.Duration) (int64, error) {
	frame, err := conn.Recv(timeout)
	if err != nil {
		return 0, frameErr(err)
	}

	msg := types.PayloadMessage{}
	err = msg.Unmarshal(frame)
	if err != nil {
		return 0, xerrors.Errorf("%v: %w", err, peer.ErrProtocolViolation)
	}

	return msg.Value, nil
}

// frameErr marks oversized frames as protocol violations, other errors are
// plain I/O errors.
func frameErr(err error) error {
	var fe transport.FrameError
	if errors.As(err, &fe) {
		return xerrors.Errorf("%v: %w", err, peer.ErrProtocolViolation)
	}
	return err
}
