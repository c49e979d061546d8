package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"go.dedis.ch/securesum/httpserver"
	"go.dedis.ch/securesum/peer"
	"go.dedis.ch/securesum/peer/impl"
	"go.dedis.ch/securesum/storage"
	"go.dedis.ch/securesum/topology"
	"go.dedis.ch/securesum/transport/tcp"
	"go.dedis.ch/securesum/types"
	"golang.org/x/xerrors"
)

// -----------------------------------------------------------------------------
// Start a participant

// StartParty runs one participant of the topology described in configPath.
// When secret is nil, the participant's secret is read from the
// configuration.
func StartParty(configPath string, id int, secret *int64) error {
	conf, err := topology.ConfigFromYAML(configPath)
	if err != nil {
		return err
	}

	partyConf, err := partyConfiguration(conf, types.PartyID(id), secret)
	if err != nil {
		return err
	}

	result, err := runParty(partyConf)
	if err != nil {
		return err
	}

	printResults(os.Stdout, []types.Result{result})
	return nil
}

func partyConfiguration(conf *topology.Config, id types.PartyID, secret *int64) (peer.Configuration, error) {
	transp := tcp.NewTCP()
	if secret != nil {
		return conf.PartyConfigurationWithSecret(id, *secret, transp)
	}
	return conf.PartyConfiguration(id, transp)
}

func runParty(conf peer.Configuration) (types.Result, error) {
	ctx, stop := withSignal(context.Background())
	defer stop()

	party, err := impl.NewParty(conf)
	if err != nil {
		return types.Result{}, err
	}

	log.Info().Msgf("%s starting, topology %s", conf.ID, conf.Fingerprint)

	return party.Run(ctx)
}

// -----------------------------------------------------------------------------
// Start a cluster

// StartCluster runs every participant of the topology in this process. The
// configuration must hold one secret per participant. When httpAddr is not
// empty, results are served over HTTP until the process is interrupted.
func StartCluster(configPath string, verify bool, httpAddr string) error {
	conf, err := topology.ConfigFromYAML(configPath)
	if err != nil {
		return err
	}

	return runCluster(conf, verify, httpAddr)
}

func runCluster(conf *topology.Config, verify bool, httpAddr string) error {
	if !conf.HasSecrets() {
		return peer.InvalidConfigf("a cluster run needs one secret per participant")
	}

	// a single transport records the frames of the whole cluster
	transp := tcp.NewTCP()

	confs := make([]peer.Configuration, conf.Parties)
	for i := range confs {
		c, err := conf.PartyConfiguration(types.PartyID(i), transp)
		if err != nil {
			return err
		}
		confs[i] = c
	}

	store := storage.NewBasicKV()

	var server *httpserver.Server
	if httpAddr != "" {
		server = httpserver.NewServer(store)
		_, err := server.Start(httpAddr)
		if err != nil {
			return err
		}
	}

	ctx, stop := withSignal(context.Background())
	defer stop()

	log.Info().Msgf("running %d participants, topology %s", conf.Parties, conf.Fingerprint())

	start := time.Now()
	results, err := impl.RunCluster(ctx, confs, store)
	if err != nil {
		return err
	}

	printResults(os.Stdout, results)
	fmt.Printf("%d participants, %d frames sent, took %s\n",
		len(results), len(transp.GetOuts()), time.Since(start).Round(time.Millisecond))

	if verify {
		err = impl.VerifyAverage(results, conf.Secrets)
		if err != nil {
			return err
		}
		fmt.Println("verified ✅")
	}

	if server == nil {
		return nil
	}

	fmt.Println("serving results, press Ctrl+C to stop")
	<-ctx.Done()

	shutdown, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	err = server.Stop(shutdown)
	if err != nil {
		return xerrors.Errorf("failed to stop http server: %v", err)
	}
	return nil
}

// -----------------------------------------------------------------------------
// Utils

// withSignal returns a context cancelled on SIGINT or SIGTERM.
func withSignal(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case <-c:
			log.Warn().Msg("interrupted")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(c)
		cancel()
	}
}
