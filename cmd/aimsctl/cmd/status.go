package cmd

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show scheduler and queue status",
	Run: func(cmd *cobra.Command, args []string) {
		client := NewClient(viper.GetString("url"), viper.GetString("key"))

		sched, err := client.SchedulerStatus()
		if err != nil {
			cmd.Printf("Error fetching scheduler status: %s\n", err)
			os.Exit(1)
		}

		cmd.Printf("Scheduler interval: %s\n", sched.Interval)
		cmd.Printf("Running: %v  Paused: %v  Manual runs: %d\n", sched.Running, sched.Paused, sched.ManualRuns)
		if sched.LastTickStart != nil {
			cmd.Printf("Last tick started: %s\n", sched.LastTickStart.Format(time.RFC3339))
		}
		if sched.LastTickEnd != nil {
			cmd.Printf("Last tick ended:   %s\n", sched.LastTickEnd.Format(time.RFC3339))
		}
		if sched.LastResult != nil {
			cmd.Printf("Last result: processed=%d failed=%d dead_lettered=%d\n",
				sched.LastResult.Processed, sched.LastResult.Failed, sched.LastResult.DeadLettered)
		}

		summary, err := client.Summary()
		if err != nil {
			cmd.Printf("Error fetching summary: %s\n", err)
			os.Exit(1)
		}

		cmd.Println("\nQueue depth:")
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
		states := make([]string, 0, len(summary.QueueDepthByState))
		for state := range summary.QueueDepthByState {
			states = append(states, state)
		}
		sort.Strings(states)
		for _, state := range states {
			fmt.Fprintf(w, "%s\t%d\n", state, summary.QueueDepthByState[state])
		}
		w.Flush()

		if summary.OldestPendingAge != nil {
			cmd.Printf("Oldest pending age: %s\n", *summary.OldestPendingAge)
		}
		cmd.Printf("Dead letters: %d  Purged subjects: %d\n", summary.DeadLetterCount, summary.PurgedSubjects)
		if len(summary.Degraded) > 0 {
			cmd.Printf("Degraded: %v\n", summary.Degraded)
		}
	},
}
