package sharing

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand"

	"go.dedis.ch/securesum/peer"
	"go.dedis.ch/securesum/types"
	"golang.org/x/xerrors"
)

// Splitter splits a secret into additive shares. The first N-1 shares are
// drawn from the signed 32-bit range, the last one absorbs the difference so
// that the shares always sum to the secret. Sums are accumulated on 64 bits.
//
// Shares are not uniform over a field: a coalition smaller than N-1 learns
// nothing exact but can narrow a secret down statistically.
type Splitter struct {
	rnd *rand.Rand
}

// NewSplitter creates a splitter drawing from the given source. A Splitter
// must not be used concurrently, as rand.Rand is not safe for concurrent use.
func NewSplitter(rnd *rand.Rand) *Splitter {
	return &Splitter{rnd: rnd}
}

// NewSeededSplitter creates a deterministic splitter.
func NewSeededSplitter(seed int64) *Splitter {
	return NewSplitter(rand.New(rand.NewSource(seed)))
}

// NewCryptoSplitter creates a splitter seeded from crypto/rand.
func NewCryptoSplitter() (*Splitter, error) {
	var buf [8]byte
	_, err := crand.Read(buf[:])
	if err != nil {
		return nil, xerrors.Errorf("failed to seed splitter: %w", err)
	}
	return NewSeededSplitter(int64(binary.LittleEndian.Uint64(buf[:]))), nil
}

// Split returns count shares summing exactly to secret.
func (s *Splitter) Split(secret int64, count int) (types.ShareVector, error) {
	if count < 1 {
		return nil, peer.InvalidConfigf("cannot split into %d shares", count)
	}

	shares := make(types.ShareVector, count)

	var acc int64
	for i := 0; i < count-1; i++ {
		shares[i] = int64(int32(s.rnd.Uint32()))
		acc += shares[i]
	}
	shares[count-1] = secret - acc

	if shares.Sum() != secret {
		return nil, xerrors.Errorf("shares sum to %d: %w", shares.Sum(), peer.ErrSplitInvariant)
	}

	return shares, nil
}
