package sharing

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/securesum/peer"
)

func Test_Split_Sums_To_Secret(t *testing.T) {
	splitter, err := NewCryptoSplitter()
	require.NoError(t, err)

	secrets := []int64{0, 1, -1, 160000, -987654321, peer.MaxSecret - 1, -peer.MaxSecret + 1}

	for _, secret := range secrets {
		for count := 1; count <= 16; count++ {
			for i := 0; i < 20; i++ {
				shares, err := splitter.Split(secret, count)
				require.NoError(t, err)
				require.Len(t, shares, count)
				require.Equal(t, secret, shares.Sum())
			}
		}
	}
}

func Test_Split_Single_Share_Is_Secret(t *testing.T) {
	shares, err := NewSeededSplitter(1).Split(42, 1)
	require.NoError(t, err)
	require.Equal(t, int64(42), shares[0])
}

func Test_Split_Random_Shares_In_Domain(t *testing.T) {
	splitter := NewSeededSplitter(7)

	shares, err := splitter.Split(210000, 64)
	require.NoError(t, err)

	for _, share := range shares[:len(shares)-1] {
		require.GreaterOrEqual(t, share, int64(math.MinInt32))
		require.LessOrEqual(t, share, int64(math.MaxInt32))
	}
}

func Test_Split_Seed(t *testing.T) {
	a, err := NewSeededSplitter(3).Split(180000, 4)
	require.NoError(t, err)
	b, err := NewSeededSplitter(3).Split(180000, 4)
	require.NoError(t, err)
	c, err := NewSeededSplitter(4).Split(180000, 4)
	require.NoError(t, err)

	require.Equal(t, a, b)
	require.NotEqual(t, a, c)
	require.Equal(t, a.Sum(), c.Sum())
}

func Test_Split_Shares_Hide_Secret(t *testing.T) {
	splitter, err := NewCryptoSplitter()
	require.NoError(t, err)

	secret := int64(190000)
	for i := 0; i < 200; i++ {
		shares, err := splitter.Split(secret, 4)
		require.NoError(t, err)
		for _, share := range shares {
			require.NotEqual(t, secret, share)
		}
	}
}

func Test_Split_Invalid_Count(t *testing.T) {
	_, err := NewSeededSplitter(1).Split(5, 0)
	require.True(t, errors.Is(err, peer.ErrInvalidConfig))
}
