package topology

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/securesum/peer"
	"go.dedis.ch/securesum/types"
)

const salariesYAML = `
parties: 4
host: 127.0.0.1
base_port: 12121
secrets: [160000, 180000, 190000, 210000]
retry_interval: 250ms
max_attempts: 8
io_timeout: 2s
phase_timeout: 20s
seed: 42
`

func Test_Config_From_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf.yaml")
	err := os.WriteFile(path, []byte(salariesYAML), 0600)
	require.NoError(t, err)

	c, err := ConfigFromYAML(path)
	require.NoError(t, err)

	require.Equal(t, 4, c.Parties)
	require.Equal(t, []int64{160000, 180000, 190000, 210000}, c.Secrets)
	require.Equal(t, time.Millisecond*250, c.RetryInterval)
	require.Equal(t, 8, c.MaxAttempts)
	require.Equal(t, time.Second*2, c.IOTimeout)
	require.Equal(t, time.Second*20, c.PhaseTimeout)
	require.NotNil(t, c.Seed)
	require.Equal(t, int64(42), *c.Seed)
	require.True(t, c.HasSecrets())
}

func Test_Config_Missing_File(t *testing.T) {
	_, err := ConfigFromYAML(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func Test_Config_Defaults(t *testing.T) {
	c, err := ParseConfig([]byte("secrets: [1, 2, 3]\n"))
	require.NoError(t, err)

	require.Equal(t, 3, c.Parties)
	require.Equal(t, DefaultHost, c.Host)
	require.Equal(t, DefaultBasePort, c.BasePort)
	require.Equal(t, DefaultRetryInterval, c.RetryInterval)
	require.Equal(t, DefaultMaxAttempts, c.MaxAttempts)
	require.Equal(t, DefaultIOTimeout, c.IOTimeout)
	require.Equal(t, DefaultPhaseTimeout, c.PhaseTimeout)
	require.Nil(t, c.Seed)
}

func Test_Config_Invalid(t *testing.T) {
	inputs := []string{
		"parties: 0\n",
		"parties: 2\nsecrets: [1, 2, 3]\n",
		"parties: 2\nendpoints: [\"127.0.0.1:1\"]\n",
		"parties: 2\nsecrets: [1, 1000000000000000000]\n",
		"parties: 2\nbase_port: 65535\n",
		"parties: 2\nretry_interval: -1s\n",
		"parties: [\n",
	}

	for _, input := range inputs {
		_, err := ParseConfig([]byte(input))
		require.Error(t, err, input)
		require.True(t, errors.Is(err, peer.ErrInvalidConfig), input)
	}
}

func Test_Config_Fingerprint(t *testing.T) {
	a, err := ParseConfig([]byte(salariesYAML))
	require.NoError(t, err)

	b, err := ParseConfig([]byte("parties: 4\nsecrets: [1, 2, 3, 4]\n"))
	require.NoError(t, err)

	// same topology, different secrets
	require.Equal(t, a.Fingerprint(), b.Fingerprint())
	require.Len(t, a.Fingerprint(), 66)

	c, err := ParseConfig([]byte("parties: 4\nbase_port: 4000\n"))
	require.NoError(t, err)
	require.NotEqual(t, a.Fingerprint(), c.Fingerprint())
}

func Test_Config_Party_Configuration(t *testing.T) {
	c, err := ParseConfig([]byte(salariesYAML))
	require.NoError(t, err)

	conf, err := c.PartyConfiguration(2, nil)
	// a transport is required with more than one participant
	require.True(t, errors.Is(err, peer.ErrInvalidConfig))

	conf, err = c.PartyConfigurationWithSecret(2, 7, fakeTransport{})
	require.NoError(t, err)
	require.Equal(t, types.PartyID(2), conf.ID)
	require.Equal(t, int64(7), conf.Secret)
	require.Equal(t, 4, conf.Parties)
	require.Equal(t, int64(44), *conf.Seed)
	require.Equal(t, c.Fingerprint(), conf.Fingerprint)

	endpoint, err := conf.AddressBook.EndpointFor(3)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:12124", endpoint)

	conf, err = c.PartyConfiguration(1, fakeTransport{})
	require.NoError(t, err)
	require.Equal(t, int64(180000), conf.Secret)

	_, err = c.PartyConfiguration(4, fakeTransport{})
	require.True(t, errors.Is(err, peer.ErrUnknownParty))

	noSecrets, err := ParseConfig([]byte("parties: 3\n"))
	require.NoError(t, err)
	require.False(t, noSecrets.HasSecrets())

	_, err = noSecrets.PartyConfiguration(0, fakeTransport{})
	require.True(t, errors.Is(err, peer.ErrInvalidConfig))
}
