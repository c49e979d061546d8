package connector

import (
	"context"
	"errors"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"go.dedis.ch/securesum/peer"
	"go.dedis.ch/securesum/transport"
	"golang.org/x/xerrors"
)

const (
	defaultInterval    = time.Second
	defaultMaxAttempts = 30
)

// Connector opens outbound connections, retrying at a fixed interval while
// the remote endpoint is not accepting yet. All participants start at the
// same time, so a peer that is not listening yet is expected.
type Connector struct {
	transport   transport.Transport
	interval    time.Duration
	maxAttempts int
	dialTimeout time.Duration
}

// Option customizes a Connector.
type Option func(*Connector)

// WithInterval sets the delay between two attempts.
func WithInterval(d time.Duration) Option {
	return func(c *Connector) {
		c.interval = d
	}
}

// WithMaxAttempts bounds the number of attempts.
func WithMaxAttempts(n int) Option {
	return func(c *Connector) {
		c.maxAttempts = n
	}
}

// WithDialTimeout bounds every single attempt.
func WithDialTimeout(d time.Duration) Option {
	return func(c *Connector) {
		c.dialTimeout = d
	}
}

// New creates a connector over the given transport.
func New(transp transport.Transport, opts ...Option) *Connector {
	c := &Connector{
		transport:   transp,
		interval:    defaultInterval,
		maxAttempts: defaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.dialTimeout == 0 {
		c.dialTimeout = c.interval
	}
	return c
}

// Interval returns the delay between two attempts.
func (c *Connector) Interval() time.Duration {
	return c.interval
}

// MaxAttempts returns the attempt budget.
func (c *Connector) MaxAttempts() int {
	return c.maxAttempts
}

// Connect blocks until a connection to address is established. It fails
// immediately on a malformed address, and with peer.ErrConnection once the
// attempt budget is exhausted.
func (c *Connector) Connect(ctx context.Context, address string) (transport.Conn, error) {
	var lastErr error

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		conn, err := c.transport.Dial(address, c.dialTimeout)
		if err == nil {
			return conn, nil
		}
		if !Retryable(err) {
			return nil, xerrors.Errorf("failed to connect to %s: %w", address, err)
		}
		lastErr = err

		log.Debug().Msgf("connect to %s failed (attempt %d/%d): %v", address, attempt, c.maxAttempts, err)

		if attempt == c.maxAttempts {
			break
		}

		err = Sleep(ctx, c.interval)
		if err != nil {
			return nil, err
		}
	}

	return nil, xerrors.Errorf("%s unreachable after %d attempts: %v: %w",
		address, c.maxAttempts, lastErr, peer.ErrConnection)
}

// Retryable tells if a dial error means the endpoint is not accepting yet.
// Anything else, a malformed address for example, will not get better by
// retrying.
func Retryable(err error) bool {
	var addrErr transport.AddressError
	if errors.As(err, &addrErr) {
		return false
	}

	return errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNABORTED) ||
		errors.Is(err, syscall.EHOSTUNREACH) ||
		errors.Is(err, transport.TimeoutError(0))
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
