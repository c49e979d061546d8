package cmd

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"go.dedis.ch/securesum/types"
)

var standingBadges = map[types.Standing]string{
	types.Below: "🔻 below",
	types.Equal: "🟰 equal",
	types.Above: "🔺 above",
}

// printResults writes one line per participant. Secrets are printed since
// the report stays on the participant's own terminal.
func printResults(out io.Writer, results []types.Result) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	fmt.Fprintln(w, "PARTY\tSECRET\tAVERAGE\tREMAINDER\tSTANDING\tRUN")
	for _, r := range results {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d/%d\t%s\t%s\n",
			r.Party, r.Secret, r.Average, r.Remainder, r.Parties, standingBadges[r.Standing], r.RunID)
	}

	w.Flush()
}

func printError(err error) {
	fmt.Fprintf(os.Stderr, "❌ %v\n", err)
}
