package commands

import (
	"os"
	"slices"
	"strconv"
	"time"

	"cptracker-backend/lib/platforms/codeforces"
	"cptracker-backend/lib/serviceutil"
	"cptracker-backend/services/tracker"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var contestsUnrated *string

func init() {
	contestsUnrated = contestsCmd.Flags().String("unrated-ids", "", "Newline-delimited contest ids to exclude.")
	rootCmd.AddCommand(contestsCmd)
}

var contestsCmd = &cobra.Command{
	Use:   "contests [--unrated-ids <path>]",
	Short: "Prints the contest registry the pipeline would use.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		unrated := map[int64]bool{}
		if *contestsUnrated != "" {
			var err error
			unrated, err = tracker.ReadUnratedIds(*contestsUnrated)
			if err != nil {
				serviceutil.Fatal("failed to read unrated ids", err)
			}
		}

		client := codeforces.NewClient(codeforces.DefaultBaseUrl)
		contests, err := client.ContestList(ctx)
		if err != nil {
			serviceutil.Fatal("failed to fetch contest list", err)
		}
		registry := tracker.NewCodeforcesRegistry(contests, unrated)

		ids := registry.Ids()
		slices.SortFunc(ids, func(a, b string) int {
			ai, _ := strconv.ParseInt(a, 10, 64)
			bi, _ := strconv.ParseInt(b, 10, 64)
			if ai < bi {
				return -1
			}
			if ai > bi {
				return 1
			}
			return 0
		})

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Contest", "Division", "Ends"})
		for _, id := range ids {
			meta, _ := registry.Get(id)
			t.AppendRow(table.Row{
				id,
				meta.Division,
				time.Unix(meta.EndTime, 0).UTC().Format(time.RFC3339),
			})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}
