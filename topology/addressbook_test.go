package topology

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/securesum/peer"
	"go.dedis.ch/securesum/types"
)

func Test_AddressBook_Base_Port(t *testing.T) {
	book, err := NewAddressBook("127.0.0.1", 12121, 4)
	require.NoError(t, err)
	require.Equal(t, 4, book.Parties())

	seen := map[string]struct{}{}
	for i := 0; i < 4; i++ {
		endpoint, err := book.EndpointFor(types.PartyID(i))
		require.NoError(t, err)
		seen[endpoint] = struct{}{}

		host, port, err := book.HostPort(types.PartyID(i))
		require.NoError(t, err)
		require.Equal(t, "127.0.0.1", host)
		require.Equal(t, 12121+i, port)
	}
	require.Len(t, seen, 4)

	endpoint, err := book.EndpointFor(2)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:12123", endpoint)

	// the lookup is a pure function
	again, err := book.EndpointFor(2)
	require.NoError(t, err)
	require.Equal(t, endpoint, again)
}

func Test_AddressBook_Unknown_Party(t *testing.T) {
	book, err := NewAddressBook("localhost", 3000, 2)
	require.NoError(t, err)

	_, err = book.EndpointFor(2)
	require.True(t, errors.Is(err, peer.ErrUnknownParty))

	_, err = book.EndpointFor(-1)
	require.True(t, errors.Is(err, peer.ErrUnknownParty))
}

func Test_AddressBook_Invalid(t *testing.T) {
	_, err := NewAddressBook("", 3000, 2)
	require.True(t, errors.Is(err, peer.ErrInvalidConfig))

	_, err = NewAddressBook("127.0.0.1", 65535, 2)
	require.True(t, errors.Is(err, peer.ErrInvalidConfig))

	_, err = NewAddressBook("127.0.0.1", 3000, 0)
	require.True(t, errors.Is(err, peer.ErrInvalidConfig))
}

func Test_AddressBook_Static(t *testing.T) {
	book, err := NewStaticAddressBook([]string{"10.0.0.1:4000", "10.0.0.2:4000", "[::1]:5000"})
	require.NoError(t, err)
	require.Equal(t, 3, book.Parties())

	endpoint, err := book.EndpointFor(1)
	require.NoError(t, err)
	require.Equal(t, "10.0.0.2:4000", endpoint)

	host, port, err := book.HostPort(2)
	require.NoError(t, err)
	require.Equal(t, "::1", host)
	require.Equal(t, 5000, port)

	endpoint, err = book.EndpointFor(2)
	require.NoError(t, err)
	require.Equal(t, "[::1]:5000", endpoint)

	_, err = NewStaticAddressBook([]string{"10.0.0.1:4000", "10.0.0.1:4000"})
	require.True(t, errors.Is(err, peer.ErrInvalidConfig))

	_, err = NewStaticAddressBook([]string{"10.0.0.1"})
	require.True(t, errors.Is(err, peer.ErrInvalidConfig))

	_, err = NewStaticAddressBook(nil)
	require.True(t, errors.Is(err, peer.ErrInvalidConfig))
}
