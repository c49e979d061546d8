package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/AlecAivazis/survey/v2"
	"go.dedis.ch/securesum/peer"
	"go.dedis.ch/securesum/topology"
	"go.dedis.ch/securesum/types"
	"golang.org/x/xerrors"
)

// -----------------------------------------------------------------------------
// CMD Prompt

var actionOpts = []string{
	"🦑 Join as a participant",
	"🐋 Run the whole cluster",
	"🐊 Show topology",
	"🍃 Exit",
}

var prompt = &survey.Select{
	Message: "What do you want to do ?",
	Options: actionOpts,
}

type actionFunc func(conf *topology.Config) error

var actions = map[string]actionFunc{
	actionOpts[0]: joinAsParty,
	actionOpts[1]: runWholeCluster,
	actionOpts[2]: showTopology,
}

// errExit stops the prompt loop.
var errExit = xerrors.New("exit")

// StartCLI loads the topology and lets the user pick what to run.
func StartCLI(configPath string) error {
	conf, err := topology.ConfigFromYAML(configPath)
	if err != nil {
		return err
	}

	var action string
	for {
		err := survey.AskOne(prompt, &action)
		if err != nil {
			return err
		}

		method, ok := actions[action]
		if !ok {
			fmt.Println("bye 👋")
			return nil
		}

		err = method(conf)
		if err == errExit {
			return nil
		}
		if err != nil {
			printError(err)
		}
	}
}

// -----------------------------------------------------------------------------
// CMD Actions

func joinAsParty(conf *topology.Config) error {
	book, err := conf.AddressBook()
	if err != nil {
		return err
	}

	opts := make([]string, conf.Parties)
	for i := range opts {
		endpoint, err := book.EndpointFor(types.PartyID(i))
		if err != nil {
			return err
		}
		opts[i] = fmt.Sprintf("%s (%s)", types.PartyID(i), endpoint)
	}

	var index int
	err = survey.AskOne(&survey.Select{
		Message: "Which participant are you ?",
		Options: opts,
	}, &index)
	if err != nil {
		return err
	}
	id := types.PartyID(index)

	var raw string
	err = survey.AskOne(&survey.Password{
		Message: "Your secret (never sent to anybody):",
	}, &raw, survey.WithValidator(validateSecret))
	if err != nil {
		return err
	}

	secret, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return err
	}

	start := false
	err = survey.AskOne(&survey.Confirm{
		Message: fmt.Sprintf("Start %s and wait for the %d others ?", id, conf.Parties-1),
		Default: true,
	}, &start)
	if err != nil || !start {
		return err
	}

	partyConf, err := partyConfiguration(conf, id, &secret)
	if err != nil {
		return err
	}

	fmt.Println("#######################################################")
	fmt.Printf("########  %-40s ########\n", "Computing the average as "+id.String())
	fmt.Println("#######################################################")

	result, err := runParty(partyConf)
	if err != nil {
		return err
	}

	printResults(os.Stdout, []types.Result{result})
	return errExit
}

func runWholeCluster(conf *topology.Config) error {
	if !conf.HasSecrets() {
		return xerrors.Errorf("the topology holds no secrets, join as a participant instead")
	}

	verify := true
	err := survey.AskOne(&survey.Confirm{
		Message: "Verify the average against the configured secrets ?",
		Default: true,
	}, &verify)
	if err != nil {
		return err
	}

	return runCluster(conf, verify, "")
}

func showTopology(conf *topology.Config) error {
	book, err := conf.AddressBook()
	if err != nil {
		return err
	}

	fmt.Printf("%d participants, fingerprint %s\n", conf.Parties, conf.Fingerprint())
	for i := 0; i < conf.Parties; i++ {
		endpoint, err := book.EndpointFor(types.PartyID(i))
		if err != nil {
			return err
		}
		fmt.Printf("  %s\t%s\n", types.PartyID(i), endpoint)
	}
	return nil
}

func validateSecret(ans interface{}) error {
	raw, ok := ans.(string)
	if !ok {
		return xerrors.Errorf("unexpected answer %T", ans)
	}

	secret, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return xerrors.Errorf("not an integer: %v", err)
	}
	if secret >= peer.MaxSecret || secret <= -peer.MaxSecret {
		return xerrors.Errorf("secret must be within ±%d", peer.MaxSecret)
	}
	return nil
}
