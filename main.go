package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/xerrors"

	cli "go.dedis.ch/securesum/cmd"
)

func main() {
	var level string

	command := &cobra.Command{
		Use:           "securesum",
		Short:         "Compute the average of private values without revealing them",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setLogLevel(level)
		},
	}
	command.PersistentFlags().StringVar(&level, "log-level", "info",
		"one of trace, debug, info, warn, error")

	addPartyCmd(command)
	addClusterCmd(command)
	addCliCmd(command)

	err := command.Execute()
	if err != nil {
		log.Error().Err(err).Msg("securesum failed")
		os.Exit(1)
	}
}

func setLogLevel(level string) error {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return xerrors.Errorf("invalid log level %q: %v", level, err)
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	return nil
}

// addPartyCmd starts one participant
func addPartyCmd(command *cobra.Command) {
	var config string
	var id int
	var secret int64

	partyCmd := &cobra.Command{
		Use:   "party",
		Short: "Run one participant",
		Long: "Run one participant of the topology. All the other participants " +
			"must be started within the retry budget.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var s *int64
			if cmd.Flags().Changed("secret") {
				s = &secret
			}
			return cli.StartParty(config, id, s)
		},
	}

	partyCmd.Flags().StringVarP(&config, "config", "c", "", "topology file")
	partyCmd.Flags().IntVarP(&id, "id", "i", 0, "participant id, in [0, parties)")
	partyCmd.Flags().Int64VarP(&secret, "secret", "s", 0, "private value, overrides the topology file")
	partyCmd.MarkFlagRequired("config")
	partyCmd.MarkFlagRequired("id")

	command.AddCommand(partyCmd)
}

// addClusterCmd runs every participant in this process
func addClusterCmd(command *cobra.Command) {
	var config string
	var verify bool
	var httpAddr string

	clusterCmd := &cobra.Command{
		Use:   "cluster",
		Short: "Run all participants in one process",
		Long:  "Run all participants of the topology as goroutines, using the secrets of the topology file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.StartCluster(config, verify, httpAddr)
		},
	}

	clusterCmd.Flags().StringVarP(&config, "config", "c", "", "topology file")
	clusterCmd.Flags().BoolVar(&verify, "verify", false, "check the average against the secrets")
	clusterCmd.Flags().StringVar(&httpAddr, "http", "", "serve results on this address, e.g. 127.0.0.1:8080")
	clusterCmd.MarkFlagRequired("config")

	command.AddCommand(clusterCmd)
}

// addCliCmd starts the interactive mode
func addCliCmd(command *cobra.Command) {
	var config string

	startCmd := &cobra.Command{
		Use:   "cli",
		Short: "Start with an interactive CLI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.StartCLI(config)
		},
	}

	startCmd.Flags().StringVarP(&config, "config", "c", "", "topology file")
	startCmd.MarkFlagRequired("config")

	command.AddCommand(startCmd)
}
