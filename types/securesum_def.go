package types

// PartyID identifies a participant. Valid values are in [0, N).
type PartyID int

// Phase identifies one run of the exchange protocol.
type Phase uint32

const (
	// PhaseShares distributes the secret shares.
	PhaseShares Phase = 1
	// PhaseSums distributes the column sums.
	PhaseSums Phase = 2
)

// ShareVector holds the N additive shares of a secret, indexed by PartyID.
// The elements always sum to the secret.
type ShareVector []int64

// IdentityToken is sent by a collector to declare who is asking, and for
// which phase.
type IdentityToken struct {
	Phase     Phase
	Requester PartyID
}

// PayloadMessage carries the value a distributor owes the requester.
type PayloadMessage struct {
	Value int64
}

// State is a step of a participant run.
type State uint32

const (
	StateIdle State = iota
	StateSplitting
	StateExchangingShares
	StateSummingColumn
	StateExchangingSums
	StateComputingAverage
	StateReporting
	StateTerminated
)

// Standing classifies a participant's secret against the average.
type Standing int

const (
	Below Standing = iota - 1
	Equal
	Above
)

// Result is the outcome of one participant run.
type Result struct {
	RunID string
	Party PartyID

	// Secret never leaves the participant, it is only kept for reporting.
	Secret int64 `json:"-"`

	ColumnSum int64
	GlobalSum int64
	Parties   int

	// Average is GlobalSum / Parties truncated toward zero, Remainder is
	// GlobalSum % Parties.
	Average   int64
	Remainder int64

	Standing    Standing
	Fingerprint string
}
