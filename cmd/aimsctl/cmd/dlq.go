package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var dlqCmd = &cobra.Command{
	Use:   "dlq",
	Short: "Manage dead-lettered queue entries",
	Long:  `Inspect and retry entries that failed permanently or exceeded their retry limit.`,
}

var dlqListCmd = &cobra.Command{
	Use:   "list",
	Short: "List dead-lettered entries",
	Run: func(cmd *cobra.Command, args []string) {
		client := NewClient(viper.GetString("url"), viper.GetString("key"))

		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		entries, err := client.ListDeadLetters(limit, offset)
		if err != nil {
			cmd.Printf("Error fetching dead letters: %s\n", err)
			os.Exit(1)
		}

		if len(entries) == 0 {
			if offset > 0 {
				cmd.Println("No more dead-lettered entries found.")
			} else {
				cmd.Println("No dead-lettered entries found.")
			}
			return
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "ENTRY ID\tEVENT TYPE\tSUBJECT\tATTEMPTS\tFAILED AT\tERROR")
		for _, e := range entries {
			failedAt := ""
			if e.FailedAt != nil {
				failedAt = e.FailedAt.Format(time.RFC3339)
			}
			errMsg := ""
			if e.LastError != nil {
				// Truncate long error messages for the table view
				errMsg = *e.LastError
				if len(errMsg) > 50 {
					errMsg = errMsg[:47] + "..."
				}
			}

			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
				e.EntryID,
				e.EventType,
				e.Subject,
				e.Attempts,
				failedAt,
				errMsg,
			)
		}
		w.Flush()
	},
}

var dlqRetryCmd = &cobra.Command{
	Use:   "retry [entry_id]",
	Short: "Retry a specific dead-lettered entry",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client := NewClient(viper.GetString("url"), viper.GetString("key"))

		resp, err := client.RetryDeadLetter(args[0])
		if err != nil {
			cmd.Printf("Error retrying entry: %s\n", err)
			os.Exit(1)
		}

		cmd.Printf("Entry re-queued: %s\n", resp.NewEntryID)
	},
}

func init() {
	dlqListCmd.Flags().Int("limit", 20, "maximum entries to list")
	dlqListCmd.Flags().Int("offset", 0, "listing offset for pagination")

	dlqCmd.AddCommand(dlqListCmd)
	dlqCmd.AddCommand(dlqRetryCmd)
}
