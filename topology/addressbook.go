package topology

import (
	"net"
	"strconv"

	"go.dedis.ch/securesum/peer"
	"go.dedis.ch/securesum/types"
	"golang.org/x/xerrors"
)

// AddressBook maps a participant to its endpoint. Either every participant
// listens on host:basePort+id, or endpoints are listed explicitly. It is
// immutable once created.
//
// - implements peer.AddressBook
type AddressBook struct {
	host      string
	basePort  int
	parties   int
	endpoints []string
}

// NewAddressBook creates an address book where participant i listens on
// host:basePort+i.
func NewAddressBook(host string, basePort, parties int) (*AddressBook, error) {
	if host == "" {
		return nil, peer.InvalidConfigf("empty host")
	}
	if parties < 1 {
		return nil, peer.InvalidConfigf("participant count %d must be positive", parties)
	}
	if basePort < 1 || basePort+parties-1 > 65535 {
		return nil, peer.InvalidConfigf("ports %d..%d out of range", basePort, basePort+parties-1)
	}

	return &AddressBook{
		host:     host,
		basePort: basePort,
		parties:  parties,
	}, nil
}

// NewStaticAddressBook creates an address book from an explicit list of
// host:port endpoints, indexed by participant.
func NewStaticAddressBook(endpoints []string) (*AddressBook, error) {
	if len(endpoints) == 0 {
		return nil, peer.InvalidConfigf("no endpoint")
	}

	seen := make(map[string]struct{}, len(endpoints))
	for i, endpoint := range endpoints {
		_, portStr, err := net.SplitHostPort(endpoint)
		if err != nil {
			return nil, peer.InvalidConfigf("endpoint %d: %v", i, err)
		}
		port, err := strconv.Atoi(portStr)
		if err != nil || port < 1 || port > 65535 {
			return nil, peer.InvalidConfigf("endpoint %d: invalid port %q", i, portStr)
		}
		if _, ok := seen[endpoint]; ok {
			return nil, peer.InvalidConfigf("endpoint %s listed twice", endpoint)
		}
		seen[endpoint] = struct{}{}
	}

	return &AddressBook{
		parties:   len(endpoints),
		endpoints: append([]string(nil), endpoints...),
	}, nil
}

// Parties returns the number of participants in the book.
func (b *AddressBook) Parties() int {
	return b.parties
}

// EndpointFor implements peer.AddressBook
func (b *AddressBook) EndpointFor(id types.PartyID) (string, error) {
	host, port, err := b.HostPort(id)
	if err != nil {
		return "", err
	}
	return net.JoinHostPort(host, strconv.Itoa(port)), nil
}

// HostPort returns the host and port of a participant.
func (b *AddressBook) HostPort(id types.PartyID) (string, int, error) {
	if !id.Valid(b.parties) {
		return "", 0, xerrors.Errorf("%s not in [0, %d): %w", id, b.parties, peer.ErrUnknownParty)
	}

	if b.endpoints != nil {
		host, portStr, _ := net.SplitHostPort(b.endpoints[id])
		port, _ := strconv.Atoi(portStr)
		return host, port, nil
	}

	return b.host, b.basePort + int(id), nil
}
