package impl

import (
	"context"
	"strconv"
	"sync"

	"github.com/rs/zerolog/log"
	"go.dedis.ch/securesum/peer"
	"go.dedis.ch/securesum/storage"
	"go.dedis.ch/securesum/types"
	"golang.org/x/xerrors"
)

// ResultKey returns the key a participant's result is stored under.
func ResultKey(id types.PartyID) string {
	return strconv.Itoa(int(id))
}

// RunCluster runs every configured participant in its own goroutine and waits
// for all of them. Each successful result is put in store, when not nil,
// under ResultKey. The returned slice is indexed by participant, and the
// error is the first failure by participant order.
func RunCluster(ctx context.Context, confs []peer.Configuration, store storage.KVStore) ([]types.Result, error) {
	parties := make([]peer.Party, len(confs))
	for i, conf := range confs {
		p, err := NewParty(conf)
		if err != nil {
			return nil, xerrors.Errorf("failed to create %s: %w", conf.ID, err)
		}
		parties[i] = p
	}

	results := make([]types.Result, len(parties))
	errs := make([]error, len(parties))

	var wg sync.WaitGroup
	wg.Add(len(parties))
	for i, p := range parties {
		i, p := i, p
		go func() {
			defer wg.Done()
			results[i], errs[i] = p.Run(ctx)
			if errs[i] != nil || store == nil {
				return
			}
			err := store.Put(ResultKey(p.ID()), results[i])
			if err != nil {
				errs[i] = xerrors.Errorf("failed to store result of %s: %w", p.ID(), err)
			}
		}()
	}
	wg.Wait()

	failed := 0
	var firstErr error
	for _, err := range errs {
		if err != nil {
			failed++
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	if firstErr != nil {
		log.Error().Msgf("%d of %d participants failed", failed, len(parties))
		return results, firstErr
	}

	return results, nil
}

// VerifyAverage checks that every result carries the truncated mean of the
// secrets, and the matching remainder. It returns peer.ErrAggregationMismatch
// naming the first participant that disagrees.
func VerifyAverage(results []types.Result, secrets []int64) error {
	if len(secrets) == 0 {
		return xerrors.Errorf("no secrets: %w", peer.ErrAggregationMismatch)
	}

	var sum int64
	for _, s := range secrets {
		sum += s
	}
	n := int64(len(secrets))
	average, remainder := sum/n, sum%n

	if len(results) != len(secrets) {
		return xerrors.Errorf("%d results for %d secrets: %w",
			len(results), len(secrets), peer.ErrAggregationMismatch)
	}

	for _, r := range results {
		if r.Parties != len(secrets) {
			return xerrors.Errorf("%s ran with %d participants, expected %d: %w",
				r.Party, r.Parties, len(secrets), peer.ErrAggregationMismatch)
		}
		if r.Average != average || r.Remainder != remainder {
			return xerrors.Errorf("%s computed %d (remainder %d), expected %d (remainder %d): %w",
				r.Party, r.Average, r.Remainder, average, remainder, peer.ErrAggregationMismatch)
		}
	}

	return nil
}
