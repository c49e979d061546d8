package testing

import (
	"time"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/securesum/peer"
	"go.dedis.ch/securesum/topology"
	"go.dedis.ch/securesum/transport"
	"go.dedis.ch/securesum/transport/tcp"
	"go.dedis.ch/securesum/types"
)

// FreeEndpoints returns n distinct loopback endpoints nobody listens on.
// All the listeners are held at the same time so the ports are distinct.
func FreeEndpoints(t require.TestingT, n int) []string {
	transp := tcp.NewTCP()

	listeners := make([]transport.ClosableListener, n)
	endpoints := make([]string, n)
	for i := range listeners {
		ln, err := transp.Listen("127.0.0.1:0")
		require.NoError(t, err)
		listeners[i] = ln
		endpoints[i] = ln.GetAddress()
	}
	for _, ln := range listeners {
		require.NoError(t, ln.Close())
	}

	return endpoints
}

// AddressBook returns an address book of n free loopback endpoints.
func AddressBook(t require.TestingT, n int) *topology.AddressBook {
	book, err := topology.NewStaticAddressBook(FreeEndpoints(t, n))
	require.NoError(t, err)
	return book
}

// Option customizes the configurations built by NewConfigurations.
type Option func(*options)

type options struct {
	transport     transport.Transport
	book          peer.AddressBook
	retryInterval time.Duration
	maxAttempts   int
	ioTimeout     time.Duration
	phaseTimeout  time.Duration
	seed          *int64
}

// WithTransport makes every participant use the given transport.
func WithTransport(t transport.Transport) Option {
	return func(o *options) {
		o.transport = t
	}
}

// WithAddressBook sets the address book.
func WithAddressBook(b peer.AddressBook) Option {
	return func(o *options) {
		o.book = b
	}
}

// WithRetry sets the retry interval and the attempt budget.
func WithRetry(interval time.Duration, attempts int) Option {
	return func(o *options) {
		o.retryInterval = interval
		o.maxAttempts = attempts
	}
}

// WithTimeouts sets the io and phase timeouts.
func WithTimeouts(io, phase time.Duration) Option {
	return func(o *options) {
		o.ioTimeout = io
		o.phaseTimeout = phase
	}
}

// WithSeed makes splitting deterministic, participant i uses seed+i.
func WithSeed(seed int64) Option {
	return func(o *options) {
		o.seed = &seed
	}
}

// NewConfigurations returns one configuration per secret, on free loopback
// endpoints, with retry budgets short enough for tests.
func NewConfigurations(t require.TestingT, secrets []int64, opts ...Option) []peer.Configuration {
	o := options{
		retryInterval: time.Millisecond * 50,
		maxAttempts:   40,
		ioTimeout:     time.Second,
		phaseTimeout:  time.Second * 10,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.transport == nil {
		o.transport = tcp.NewTCP()
	}
	if o.book == nil {
		o.book = AddressBook(t, len(secrets))
	}

	confs := make([]peer.Configuration, len(secrets))
	for i, secret := range secrets {
		confs[i] = peer.Configuration{
			ID:            types.PartyID(i),
			Parties:       len(secrets),
			Secret:        secret,
			AddressBook:   o.book,
			Transport:     o.transport,
			RetryInterval: o.retryInterval,
			MaxAttempts:   o.maxAttempts,
			IOTimeout:     o.ioTimeout,
			PhaseTimeout:  o.phaseTimeout,
		}
		if o.seed != nil {
			seed := *o.seed + int64(i)
			confs[i].Seed = &seed
		}
		require.NoError(t, confs[i].Validate())
	}

	return confs
}

// Mean returns the truncated mean of the secrets.
func Mean(secrets []int64) int64 {
	var sum int64
	for _, s := range secrets {
		sum += s
	}
	return sum / int64(len(secrets))
}
