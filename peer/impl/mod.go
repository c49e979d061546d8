package impl

import (
	"context"
	"sync/atomic"

	"github.com/rs/xid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.dedis.ch/securesum/peer"
	"go.dedis.ch/securesum/peer/impl/connector"
	"go.dedis.ch/securesum/peer/impl/exchange"
	"go.dedis.ch/securesum/peer/impl/sharing"
	"go.dedis.ch/securesum/types"
	"golang.org/x/xerrors"
)

// NewParty creates a new participant. The network is only used once Run is
// called.
func NewParty(conf peer.Configuration) (peer.Party, error) {
	err := conf.Validate()
	if err != nil {
		return nil, err
	}

	runID := xid.New().String()

	ctx := log.With().
		Str("party", conf.ID.String()).
		Str("run", runID)
	if conf.Fingerprint != "" {
		ctx = ctx.Str("topology", conf.Fingerprint)
	}

	n := &node{
		conf:   conf,
		runID:  runID,
		logger: ctx.Logger(),
	}

	conn := connector.New(conf.Transport,
		connector.WithInterval(conf.RetryInterval),
		connector.WithMaxAttempts(conf.MaxAttempts),
		connector.WithDialTimeout(conf.IOTimeout))

	n.exchange = exchange.NewExchange(exchange.Config{
		Self:         conf.ID,
		Parties:      conf.Parties,
		AddressBook:  conf.AddressBook,
		Transport:    conf.Transport,
		Connector:    conn,
		IOTimeout:    conf.IOTimeout,
		PhaseTimeout: conf.PhaseTimeout,
		Logger:       &n.logger,
	})

	return n, nil
}

// node implements a participant of the secure average computation
//
// - implements peer.Party
type node struct {
	conf   peer.Configuration
	runID  string
	logger zerolog.Logger

	exchange *exchange.Exchange

	state   atomic.Uint32
	started atomic.Bool
}

// ID implements peer.Party
func (n *node) ID() types.PartyID {
	return n.conf.ID
}

// State implements peer.Party
func (n *node) State() types.State {
	return types.State(n.state.Load())
}

func (n *node) setState(s types.State) {
	n.state.Store(uint32(s))
	n.logger.Info().Msgf("%s", s)
}

// Run implements peer.Party. The secret is split into one share per
// participant, shares are exchanged so that every participant sums the
// column of shares it is owed, then column sums are exchanged so that every
// participant obtains the global sum. Only shares and column sums ever leave
// the participant.
func (n *node) Run(ctx context.Context) (types.Result, error) {
	if !n.started.CompareAndSwap(false, true) {
		return types.Result{}, xerrors.Errorf("%s: %w", n.conf.ID, peer.ErrAlreadyRun)
	}
	defer n.setState(types.StateTerminated)

	n.logger.Info().Msgf("starting with %d participants", n.conf.Parties)

	n.setState(types.StateSplitting)
	shares, err := n.split()
	if err != nil {
		return types.Result{}, n.fail(err)
	}

	n.setState(types.StateExchangingShares)
	received, err := n.exchange.Run(ctx, types.PhaseShares, func(requester types.PartyID) int64 {
		return shares[requester]
	})
	if err != nil {
		return types.Result{}, n.fail(err)
	}

	n.setState(types.StateSummingColumn)
	columnSum := shares[n.conf.ID] + received

	n.setState(types.StateExchangingSums)
	others, err := n.exchange.Run(ctx, types.PhaseSums, func(types.PartyID) int64 {
		return columnSum
	})
	if err != nil {
		return types.Result{}, n.fail(err)
	}

	n.setState(types.StateComputingAverage)
	globalSum := columnSum + others
	parties := int64(n.conf.Parties)

	result := types.Result{
		RunID:       n.runID,
		Party:       n.conf.ID,
		Secret:      n.conf.Secret,
		ColumnSum:   columnSum,
		GlobalSum:   globalSum,
		Parties:     n.conf.Parties,
		Average:     globalSum / parties,
		Remainder:   globalSum % parties,
		Fingerprint: n.conf.Fingerprint,
	}

	n.setState(types.StateReporting)
	result.Standing = types.Classify(n.conf.Secret, globalSum, n.conf.Parties)

	n.logger.Info().
		Int64("average", result.Average).
		Int64("remainder", result.Remainder).
		Str("standing", result.Standing.String()).
		Msg("average computed")

	return result, nil
}

func (n *node) split() (types.ShareVector, error) {
	var splitter *sharing.Splitter
	if n.conf.Seed != nil {
		splitter = sharing.NewSeededSplitter(*n.conf.Seed)
	} else {
		var err error
		splitter, err = sharing.NewCryptoSplitter()
		if err != nil {
			return nil, err
		}
	}

	return splitter.Split(n.conf.Secret, n.conf.Parties)
}

// fail wraps err with the state the run was in.
func (n *node) fail(err error) error {
	state := n.State()
	n.logger.Error().Err(err).Msgf("failed while %s", state)

	return &peer.PhaseError{
		Party: n.conf.ID,
		State: state,
		Err:   err,
	}
}
