package exchange

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.dedis.ch/securesum/peer"
	"go.dedis.ch/securesum/peer/impl/connector"
	"go.dedis.ch/securesum/transport"
	"go.dedis.ch/securesum/types"
)

// PayloadFunc returns the value this participant owes the requester. It
// must be safe for concurrent use and return the same value for the same
// requester.
type PayloadFunc func(requester types.PartyID) int64

// Config holds what both roles of one participant need.
type Config struct {
	Self    types.PartyID
	Parties int

	AddressBook peer.AddressBook
	Transport   transport.Transport
	Connector   *connector.Connector

	IOTimeout    time.Duration
	PhaseTimeout time.Duration

	Logger *zerolog.Logger
}

func (c Config) logger() *zerolog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return &log.Logger
}

// Exchange runs one phase of the protocol: the distributor serves the value
// owed to every other participant while the collector fetches the value
// every other participant owes this one.
type Exchange struct {
	conf Config

	distributor *Distributor
	collector   *Collector
}

// NewExchange creates a new exchange.
func NewExchange(conf Config) *Exchange {
	return &Exchange{
		conf:        conf,
		distributor: NewDistributor(conf),
		collector:   NewCollector(conf),
	}
}

// Run executes one phase and returns the sum of the values collected from
// every other participant. It returns once both roles are done. The first
// role to fail cancels the other one.
func (e *Exchange) Run(ctx context.Context, phase types.Phase, payload PayloadFunc) (int64, error) {
	if e.conf.Parties == 1 {
		return 0, nil
	}

	ln, err := e.distributor.Listen()
	if err != nil {
		return 0, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	var serveErr, collectErr error
	var sum int64

	wg.Add(2)
	go func() {
		defer wg.Done()
		serveErr = e.distributor.Serve(ctx, ln, phase, payload)
		if serveErr != nil {
			cancel()
		}
	}()
	go func() {
		defer wg.Done()
		sum, collectErr = e.collector.Collect(ctx, phase)
		if collectErr != nil {
			cancel()
		}
	}()
	wg.Wait()

	err = firstCause(collectErr, serveErr)
	if err != nil {
		return 0, err
	}

	return sum, nil
}

// firstCause returns the first error that is not a mere consequence of the
// cancellation triggered by another error.
func firstCause(errs ...error) error {
	var fallback error
	for _, err := range errs {
		if err == nil {
			continue
		}
		if !errors.Is(err, context.Canceled) {
			return err
		}
		if fallback == nil {
			fallback = err
		}
	}
	return fallback
}
