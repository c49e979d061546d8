package topology

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"go.dedis.ch/securesum/peer"
	"go.dedis.ch/securesum/transport"
	"go.dedis.ch/securesum/types"
	"golang.org/x/xerrors"
	"gopkg.in/yaml.v3"
)

// -----------------------------------------------------------------------------
// config

const (
	DefaultHost          = "127.0.0.1"
	DefaultBasePort      = 12121
	DefaultRetryInterval = time.Second
	DefaultMaxAttempts   = 30
	DefaultIOTimeout     = time.Second * 5
	DefaultPhaseTimeout  = time.Minute
)

// Config describes a run: who takes part, where they listen, their secrets
// and the retry budget. It is loaded once, before any participant starts.
type Config struct {
	Parties   int      `yaml:"parties"`
	Host      string   `yaml:"host"`
	BasePort  int      `yaml:"base_port"`
	Endpoints []string `yaml:"endpoints"`

	// Secrets may be left empty when each process gets its own secret from
	// the command line.
	Secrets []int64 `yaml:"secrets"`

	RetryInterval time.Duration `yaml:"retry_interval"`
	MaxAttempts   int           `yaml:"max_attempts"`
	IOTimeout     time.Duration `yaml:"io_timeout"`
	PhaseTimeout  time.Duration `yaml:"phase_timeout"`

	Seed *int64 `yaml:"seed"`
}

// ConfigFromYAML reads and validates a config file.
func ConfigFromYAML(path string) (*Config, error) {
	yamlFile, err := os.ReadFile(path)
	if err != nil {
		return nil, xerrors.Errorf("failed to read config: %w", err)
	}

	return ParseConfig(yamlFile)
}

// ParseConfig decodes a YAML config, fills the defaults and validates it.
func ParseConfig(data []byte) (*Config, error) {
	c := Config{}
	err := yaml.Unmarshal(data, &c)
	if err != nil {
		return nil, xerrors.Errorf("failed to parse config: %v: %w", err, peer.ErrInvalidConfig)
	}

	c.applyDefaults()

	err = c.Validate()
	if err != nil {
		return nil, err
	}

	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.Parties == 0 {
		if len(c.Endpoints) != 0 {
			c.Parties = len(c.Endpoints)
		} else {
			c.Parties = len(c.Secrets)
		}
	}
	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.BasePort == 0 {
		c.BasePort = DefaultBasePort
	}
	if c.RetryInterval == 0 {
		c.RetryInterval = DefaultRetryInterval
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.IOTimeout == 0 {
		c.IOTimeout = DefaultIOTimeout
	}
	if c.PhaseTimeout == 0 {
		c.PhaseTimeout = DefaultPhaseTimeout
	}
}

// Validate checks the config is consistent.
func (c *Config) Validate() error {
	if c.Parties < 1 || c.Parties > types.MaxParties {
		return peer.InvalidConfigf("participant count %d not in [1, %d]", c.Parties, types.MaxParties)
	}
	if len(c.Endpoints) != 0 && len(c.Endpoints) != c.Parties {
		return peer.InvalidConfigf("%d endpoints for %d participants", len(c.Endpoints), c.Parties)
	}
	if len(c.Secrets) != 0 && len(c.Secrets) != c.Parties {
		return peer.InvalidConfigf("%d secrets for %d participants", len(c.Secrets), c.Parties)
	}
	for i, secret := range c.Secrets {
		if secret >= peer.MaxSecret || secret <= -peer.MaxSecret {
			return peer.InvalidConfigf("secret %d out of range", i)
		}
	}
	if c.RetryInterval < 0 || c.MaxAttempts < 0 || c.IOTimeout < 0 || c.PhaseTimeout < 0 {
		return peer.InvalidConfigf("negative retry budget or timeout")
	}

	_, err := c.AddressBook()
	return err
}

// AddressBook builds the address book described by the config.
func (c *Config) AddressBook() (*AddressBook, error) {
	if len(c.Endpoints) != 0 {
		return NewStaticAddressBook(c.Endpoints)
	}
	return NewAddressBook(c.Host, c.BasePort, c.Parties)
}

// HasSecrets tells if the config carries the secrets of every participant.
func (c *Config) HasSecrets() bool {
	return len(c.Secrets) == c.Parties
}

// Fingerprint hashes the public part of the config: participant count and
// endpoints. Secrets never enter the fingerprint. Participants that loaded
// the same topology report the same fingerprint.
func (c *Config) Fingerprint() string {
	book, err := c.AddressBook()
	if err != nil {
		return ""
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "parties=%d", c.Parties)
	for i := 0; i < c.Parties; i++ {
		endpoint, _ := book.EndpointFor(types.PartyID(i))
		fmt.Fprintf(&sb, ";%d=%s", i, endpoint)
	}

	return crypto.Keccak256Hash([]byte(sb.String())).Hex()
}

// PartyConfiguration builds the configuration of one participant. The secret
// is taken from the config.
func (c *Config) PartyConfiguration(id types.PartyID, transp transport.Transport) (peer.Configuration, error) {
	if !c.HasSecrets() {
		return peer.Configuration{}, peer.InvalidConfigf("no secret configured for %s", id)
	}
	if !id.Valid(c.Parties) {
		return peer.Configuration{}, xerrors.Errorf("%s: %w", id, peer.ErrUnknownParty)
	}
	return c.PartyConfigurationWithSecret(id, c.Secrets[id], transp)
}

// PartyConfigurationWithSecret builds the configuration of one participant
// holding the given secret.
func (c *Config) PartyConfigurationWithSecret(id types.PartyID, secret int64,
	transp transport.Transport) (peer.Configuration, error) {

	book, err := c.AddressBook()
	if err != nil {
		return peer.Configuration{}, err
	}

	conf := peer.Configuration{
		ID:            id,
		Parties:       c.Parties,
		Secret:        secret,
		AddressBook:   book,
		Transport:     transp,
		RetryInterval: c.RetryInterval,
		MaxAttempts:   c.MaxAttempts,
		IOTimeout:     c.IOTimeout,
		PhaseTimeout:  c.PhaseTimeout,
		Fingerprint:   c.Fingerprint(),
	}
	if c.Seed != nil {
		// each participant draws a different stream
		seed := *c.Seed + int64(id)
		conf.Seed = &seed
	}

	return conf, conf.Validate()
}
