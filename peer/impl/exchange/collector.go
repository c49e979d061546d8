package exchange

import (
	"context"

	"go.dedis.ch/securesum/peer"
	"go.dedis.ch/securesum/peer/impl/connector"
	"go.dedis.ch/securesum/transport"
	"go.dedis.ch/securesum/types"
	"golang.org/x/xerrors"
)

// Collector fetches from every other participant the value it owes this one.
// Every peer is contacted by its own goroutine, replies are summed by the
// goroutine running Collect, in whatever order they arrive.
type Collector struct {
	conf Config
}

// NewCollector creates a new collector.
func NewCollector(conf Config) *Collector {
	return &Collector{conf: conf}
}

type reply struct {
	from  types.PartyID
	value int64
	err   error
}

// Collect returns the sum of the values owed by all the other participants.
// On the first failure, the remaining requests are cancelled.
func (c *Collector) Collect(ctx context.Context, phase types.Phase) (int64, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	replies := make(chan reply, c.conf.Parties)
	for i := 0; i < c.conf.Parties; i++ {
		from := types.PartyID(i)
		if from == c.conf.Self {
			continue
		}
		go func() {
			value, err := c.collectFrom(ctx, phase, from)
			replies <- reply{from: from, value: value, err: err}
		}()
	}

	var sum int64
	var firstErr error
	received := make(map[types.PartyID]struct{}, c.conf.Parties-1)

	for i := 0; i < c.conf.Parties-1; i++ {
		r := <-replies

		err := r.err
		if err == nil {
			if _, ok := received[r.from]; ok {
				err = xerrors.Errorf("second %s value from %s: %w", phase, r.from, peer.ErrProtocolViolation)
			}
		}
		if err != nil {
			if firstErr == nil {
				firstErr = err
				cancel()
			}
			continue
		}

		received[r.from] = struct{}{}
		sum += r.value
	}

	if firstErr != nil {
		return 0, firstErr
	}

	return sum, nil
}

// collectFrom requests the value owed by one peer. A connection that fails
// or returns garbage is retried, within the connector's budget.
func (c *Collector) collectFrom(ctx context.Context, phase types.Phase, from types.PartyID) (int64, error) {
	logger := c.conf.logger()

	endpoint, err := c.conf.AddressBook.EndpointFor(from)
	if err != nil {
		return 0, err
	}

	token := types.IdentityToken{Phase: phase, Requester: c.conf.Self}
	maxAttempts := c.conf.Connector.MaxAttempts()

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		conn, err := c.conf.Connector.Connect(ctx, endpoint)
		if err != nil {
			return 0, xerrors.Errorf("%s cannot collect from %s: %w", c.conf.Self, from, err)
		}

		value, err := c.request(conn, token)
		conn.Close()
		if err == nil {
			return value, nil
		}
		lastErr = err

		logger.Debug().Err(err).Msgf("%s request to %s failed (attempt %d/%d)",
			c.conf.Self, from, attempt, maxAttempts)

		if attempt == maxAttempts {
			break
		}

		err = connector.Sleep(ctx, c.conf.Connector.Interval())
		if err != nil {
			return 0, err
		}
	}

	return 0, xerrors.Errorf("%s got no %s value from %s after %d attempts: %v: %w",
		c.conf.Self, phase, from, maxAttempts, lastErr, peer.ErrConnection)
}

func (c *Collector) request(conn transport.Conn, token types.IdentityToken) (int64, error) {
	err := sendToken(conn, token, c.conf.IOTimeout)
	if err != nil {
		return 0, err
	}
	return recvPayload(conn, c.conf.IOTimeout)
}
