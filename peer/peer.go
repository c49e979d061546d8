package peer

import (
	"context"
	"time"

	"go.dedis.ch/securesum/transport"
	"go.dedis.ch/securesum/types"
)

// Party is one participant of the secure average computation.
type Party interface {
	// ID returns the identifier of the participant.
	ID() types.PartyID

	// State returns the current step of the run.
	State() types.State

	// Run splits the secret, runs both exchange phases and returns the
	// average. It can only be called once.
	Run(ctx context.Context) (types.Result, error)
}

// AddressBook maps participants to their network endpoints.
type AddressBook interface {
	EndpointFor(id types.PartyID) (string, error)
}

// Configuration holds everything a participant needs. It is passed
// explicitly so that independent runs, in tests for example, never share
// state.
type Configuration struct {
	ID      types.PartyID
	Parties int
	Secret  int64

	AddressBook AddressBook
	Transport   transport.Transport

	// RetryInterval is the fixed delay between two connection attempts, and
	// MaxAttempts bounds the number of attempts to reach one peer.
	RetryInterval time.Duration
	MaxAttempts   int

	// IOTimeout bounds every frame read and write. PhaseTimeout bounds the
	// wait for all the other participants to collect their value.
	IOTimeout    time.Duration
	PhaseTimeout time.Duration

	// Seed makes the splitting deterministic when set. Otherwise the
	// splitter is seeded from crypto/rand.
	Seed *int64

	// Fingerprint identifies the topology, it is only reported.
	Fingerprint string
}

// Validate checks the configuration is usable.
func (c Configuration) Validate() error {
	if c.Parties < 1 || c.Parties > types.MaxParties {
		return InvalidConfigf("participant count %d not in [1, %d]", c.Parties, types.MaxParties)
	}
	if !c.ID.Valid(c.Parties) {
		return InvalidConfigf("%s out of range for %d participants", c.ID, c.Parties)
	}
	if c.Secret >= MaxSecret || c.Secret <= -MaxSecret {
		return InvalidConfigf("secret of %s out of range", c.ID)
	}
	if c.Parties == 1 {
		return nil
	}
	if c.AddressBook == nil || c.Transport == nil {
		return InvalidConfigf("address book and transport are required with %d participants", c.Parties)
	}
	if c.RetryInterval <= 0 || c.MaxAttempts <= 0 {
		return InvalidConfigf("retry interval and max attempts must be positive")
	}
	if c.IOTimeout <= 0 || c.PhaseTimeout <= 0 {
		return InvalidConfigf("io and phase timeouts must be positive")
	}
	return nil
}

// MaxSecret bounds the absolute value of a secret, which keeps every column
// sum far from int64 overflow.
const MaxSecret = int64(1) << 48
