package exchange

import (
	"context"
	"errors"
	"sync"

	"go.dedis.ch/securesum/peer"
	"go.dedis.ch/securesum/transport"
	"go.dedis.ch/securesum/types"
	"golang.org/x/xerrors"
)

// Distributor serves, on this participant's endpoint, the value owed to each
// other participant. Every inbound connection starts with the requester's
// identity, so the reply never depends on the order connections arrive in.
type Distributor struct {
	conf Config
}

// NewDistributor creates a new distributor.
func NewDistributor(conf Config) *Distributor {
	return &Distributor{conf: conf}
}

// Listen binds the listener on this participant's own endpoint.
func (d *Distributor) Listen() (transport.ClosableListener, error) {
	endpoint, err := d.conf.AddressBook.EndpointFor(d.conf.Self)
	if err != nil {
		return nil, err
	}

	ln, err := d.conf.Transport.Listen(endpoint)
	if err != nil {
		return nil, xerrors.Errorf("%s failed to listen: %w", d.conf.Self, err)
	}

	return ln, nil
}

// Serve answers inbound requests until every other participant has been
// served once, then closes the listener. It fails with peer.ErrConnection if
// that does not happen within the phase timeout.
func (d *Distributor) Serve(ctx context.Context, ln transport.ClosableListener,
	phase types.Phase, payload PayloadFunc) error {

	logger := d.conf.logger()
	expected := d.conf.Parties - 1

	ctx, cancel := context.WithTimeout(ctx, d.conf.PhaseTimeout)
	defer cancel()

	tracker := newServedSet()
	served := make(chan types.PartyID, d.conf.Parties)

	var handlers sync.WaitGroup
	acceptDone := make(chan struct{})

	go func() {
		defer close(acceptDone)
		for {
			conn, err := ln.Accept()
			if err != nil {
				// the listener is closed once the phase is over
				return
			}
			handlers.Add(1)
			go func() {
				defer handlers.Done()
				d.handle(conn, phase, payload, tracker, served)
			}()
		}
	}()

	var err error
	for count := 0; count < expected && err == nil; {
		select {
		case id := <-served:
			count++
			logger.Debug().Msgf("%s served %s for %s (%d/%d)", d.conf.Self, id, phase, count, expected)
		case <-ctx.Done():
			err = ctx.Err()
		}
	}

	ln.Close()
	<-acceptDone
	handlers.Wait()

	if errors.Is(err, context.DeadlineExceeded) {
		missing := tracker.missing(d.conf.Parties, d.conf.Self)
		return xerrors.Errorf("%s: %v never collected their %s value: %w",
			d.conf.Self, missing, phase, peer.ErrConnection)
	}

	return err
}

// handle serves one inbound connection. Any problem only drops this
// connection, the phase goes on with the other ones.
func (d *Distributor) handle(conn transport.Conn, phase types.Phase, payload PayloadFunc,
	tracker *servedSet, served chan<- types.PartyID) {

	defer conn.Close()

	logger := d.conf.logger()

	token, err := recvToken(conn, d.conf.IOTimeout)
	if err != nil {
		logger.Warn().Err(err).Msgf("%s dropped connection from %s", d.conf.Self, conn.RemoteAddr())
		return
	}

	err = d.check(token, phase)
	if err != nil {
		if token.Phase > phase {
			// the requester is already one phase ahead and will retry once
			// this participant catches up
			logger.Debug().Msgf("%s not ready for %s yet", d.conf.Self, token)
			return
		}
		logger.Warn().Err(err).Msgf("%s dropped connection from %s", d.conf.Self, conn.RemoteAddr())
		return
	}

	status := tracker.reserve(token.Requester)
	if status == inflight {
		logger.Warn().Msgf("%s got a concurrent request from %s, dropped", d.conf.Self, token.Requester)
		return
	}

	err = sendPayload(conn, payload(token.Requester), d.conf.IOTimeout)
	if err != nil {
		logger.Warn().Err(err).Msgf("%s failed to reply to %s", d.conf.Self, token.Requester)
		if status == fresh {
			tracker.release(token.Requester)
		}
		return
	}

	if status == fresh {
		tracker.markServed(token.Requester)
		served <- token.Requester
	} else {
		logger.Debug().Msgf("%s served %s again", d.conf.Self, token.Requester)
	}
}

func (d *Distributor) check(token types.IdentityToken, phase types.Phase) error {
	if token.Phase != phase {
		return xerrors.Errorf("expected %s, got %s: %w", phase, token, peer.ErrProtocolViolation)
	}
	if !token.Requester.Valid(d.conf.Parties) {
		return xerrors.Errorf("%s out of range: %w", token.Requester, peer.ErrProtocolViolation)
	}
	if token.Requester == d.conf.Self {
		return xerrors.Errorf("request claims to come from %s itself: %w", d.conf.Self, peer.ErrProtocolViolation)
	}
	return nil
}

type serveStatus int

const (
	fresh serveStatus = iota
	inflight
	repeated
)

// servedSet tracks, per requester, whether a reply is being sent or has been
// sent. A requester is reserved before its reply is written, so a second
// connection from the same requester can never be counted twice.
type servedSet struct {
	sync.Mutex
	status map[types.PartyID]serveStatus
}

func newServedSet() *servedSet {
	return &servedSet{status: map[types.PartyID]serveStatus{}}
}

// reserve returns fresh if the requester was never served, inflight if a
// reply to it is being written, and repeated if it was already served.
func (s *servedSet) reserve(id types.PartyID) serveStatus {
	s.Lock()
	defer s.Unlock()

	st, ok := s.status[id]
	if !ok {
		s.status[id] = inflight
		return fresh
	}
	return st
}

func (s *servedSet) release(id types.PartyID) {
	s.Lock()
	defer s.Unlock()
	delete(s.status, id)
}

func (s *servedSet) markServed(id types.PartyID) {
	s.Lock()
	defer s.Unlock()
	s.status[id] = repeated
}

func (s *servedSet) missing(parties int, self types.PartyID) []types.PartyID {
	s.Lock()
	defer s.Unlock()

	res := []types.PartyID{}
	for i := 0; i < parties; i++ {
		id := types.PartyID(i)
		if id == self {
			continue
		}
		if s.status[id] != repeated {
			res = append(res, id)
		}
	}
	return res
}
