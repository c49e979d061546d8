package peer

import (
	"fmt"

	"go.dedis.ch/securesum/types"
	"golang.org/x/xerrors"
)

var (
	// ErrSplitInvariant means the shares do not sum to the secret. It is a
	// defect, never retried.
	ErrSplitInvariant = xerrors.New("split invariant violation")

	// ErrConnection means a peer could not be reached, or did not show up,
	// within the retry budget.
	ErrConnection = xerrors.New("connection error")

	// ErrProtocolViolation means a malformed or out-of-range message was
	// received on an established connection.
	ErrProtocolViolation = xerrors.New("protocol violation")

	// ErrAggregationMismatch means a computed average differs from the
	// expected one. Only raised by verification.
	ErrAggregationMismatch = xerrors.New("aggregation mismatch")

	ErrInvalidConfig = xerrors.New("invalid configuration")
	ErrUnknownParty  = xerrors.New("unknown participant")
	ErrAlreadyRun    = xerrors.New("participant already run")
)

// InvalidConfigf returns an error wrapping ErrInvalidConfig.
func InvalidConfigf(format string, args ...interface{}) error {
	return xerrors.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrInvalidConfig)
}

// PhaseError reports the step at which a participant run failed.
type PhaseError struct {
	Party types.PartyID
	State types.State
	Err   error
}

// Error implements error.
func (e *PhaseError) Error() string {
	return fmt.Sprintf("%s failed while %s: %v", e.Party, e.State, e.Err)
}

// Unwrap returns the underlying error.
func (e *PhaseError) Unwrap() error {
	return e.Err
}
