package commands

import (
	"time"

	"cptracker-backend/lib/serviceutil"

	"github.com/go-co-op/gocron/v2"
	"github.com/spf13/cobra"
)

var daemonEvery *time.Duration

func init() {
	daemonEvery = daemonCmd.Flags().Duration("every", time.Hour*6, "How often to re-run the ingestion pass.")
	rootCmd.AddCommand(daemonCmd)
}

var daemonCmd = &cobra.Command{
	Use:   "daemon [--every <duration>]",
	Short: "Re-runs the ingestion pass on a schedule.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		scheduler, err := gocron.NewScheduler()
		if err != nil {
			serviceutil.Fatal("failed to create scheduler", err)
		}

		job, err := scheduler.NewJob(
			gocron.DurationJob(*daemonEvery),
			gocron.NewTask(func() {
				update(ctx)
			}),
			// a run that outlasts the interval must not overlap the next
			// one; both would race on the output file
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			serviceutil.Fatal("failed to schedule job", err)
		}

		scheduler.Start()
		defer scheduler.Shutdown()
		// duration jobs don't fire on startup
		job.RunNow()

		<-ctx.Done()
	},
}
