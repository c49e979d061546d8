package types

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"golang.org/x/xerrors"
)

// TokenSize is the size of a marshaled IdentityToken.
const TokenSize = 8

// PayloadSize is the size of a marshaled PayloadMessage.
const PayloadSize = 8

// MaxParties bounds the participant count so that identities fit the wire
// format and share sums stay far from int64 overflow.
const MaxParties = 1024

// -----------------------------------------------------------------------------
// PartyID

// String implements fmt.Stringer.
func (id PartyID) String() string {
	return fmt.Sprintf("party-%d", int(id))
}

// Valid tells if the id belongs to a run with n participants.
func (id PartyID) Valid(n int) bool {
	return id >= 0 && int(id) < n
}

// -----------------------------------------------------------------------------
// Phase

// String implements fmt.Stringer.
func (p Phase) String() string {
	switch p {
	case PhaseShares:
		return "shares"
	case PhaseSums:
		return "sums"
	default:
		return fmt.Sprintf("phase(%d)", uint32(p))
	}
}

// -----------------------------------------------------------------------------
// ShareVector

// Sum returns the sum of all shares.
func (v ShareVector) Sum() int64 {
	var acc int64
	for _, s := range v {
		acc += s
	}
	return acc
}

// Copy returns a deep copy of the vector.
func (v ShareVector) Copy() ShareVector {
	res := make(ShareVector, len(v))
	copy(res, v)
	return res
}

// -----------------------------------------------------------------------------
// IdentityToken

// Marshal encodes the token as phase then requester, both uint32 big-endian.
func (t IdentityToken) Marshal() []byte {
	buf := make([]byte, TokenSize)
	binary.BigEndian.PutUint32(buf[0:4], uint32(t.Phase))
	binary.BigEndian.PutUint32(buf[4:8], uint32(t.Requester))
	return buf
}

// Unmarshal decodes a token. It only checks the length, range checks are up
// to the caller which knows the participant count.
func (t *IdentityToken) Unmarshal(buf []byte) error {
	if len(buf) != TokenSize {
		return xerrors.Errorf("identity token must be %d bytes, got %d", TokenSize, len(buf))
	}
	t.Phase = Phase(binary.BigEndian.Uint32(buf[0:4]))
	t.Requester = PartyID(binary.BigEndian.Uint32(buf[4:8]))
	return nil
}

// String implements fmt.Stringer.
func (t IdentityToken) String() string {
	return fmt.Sprintf("{identity %s for %s}", t.Requester, t.Phase)
}

// -----------------------------------------------------------------------------
// PayloadMessage

// Marshal encodes the value as int64 big-endian.
func (m PayloadMessage) Marshal() []byte {
	buf := make([]byte, PayloadSize)
	binary.BigEndian.PutUint64(buf, uint64(m.Value))
	return buf
}

// Unmarshal decodes a payload.
func (m *PayloadMessage) Unmarshal(buf []byte) error {
	if len(buf) != PayloadSize {
		return xerrors.Errorf("payload must be %d bytes, got %d", PayloadSize, len(buf))
	}
	m.Value = int64(binary.BigEndian.Uint64(buf))
	return nil
}

// String implements fmt.Stringer. The value is not printed.
func (m PayloadMessage) String() string {
	return "{payload}"
}

// -----------------------------------------------------------------------------
// State

var stateNames = [...]string{
	StateIdle:             "idle",
	StateSplitting:        "splitting",
	StateExchangingShares: "exchanging-shares",
	StateSummingColumn:    "summing-column",
	StateExchangingSums:   "exchanging-sums",
	StateComputingAverage: "computing-average",
	StateReporting:        "reporting",
	StateTerminated:       "terminated",
}

// String implements fmt.Stringer.
func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", uint32(s))
}

// -----------------------------------------------------------------------------
// Standing

// Classify compares secret to the exact mean sum/n without rounding: it
// compares secret*n with sum.
func Classify(secret, sum int64, n int) Standing {
	scaled := secret * int64(n)
	switch {
	case scaled < sum:
		return Below
	case scaled > sum:
		return Above
	default:
		return Equal
	}
}

// String implements fmt.Stringer.
func (s Standing) String() string {
	switch s {
	case Below:
		return "below"
	case Equal:
		return "equal"
	case Above:
		return "above"
	default:
		return fmt.Sprintf("standing(%d)", int(s))
	}
}

// MarshalJSON encodes the standing as its name.
func (s Standing) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// -----------------------------------------------------------------------------
// Result

// String implements fmt.Stringer.
func (r Result) String() string {
	return fmt.Sprintf("{%s run %s: average %d (sum %d over %d), %s}",
		r.Party, r.RunID, r.Average, r.GlobalSum, r.Parties, r.Standing)
}
