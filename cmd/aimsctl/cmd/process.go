package cmd

import (
	"errors"
	"net/http"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Run a processing pass now",
	Long: `Trigger an immediate queue drain, independent of the scheduler's timer.

Fails with a busy message if a drain is already in progress.`,
	Run: func(cmd *cobra.Command, args []string) {
		client := NewClient(viper.GetString("url"), viper.GetString("key"))

		resp, err := client.ProcessNow()
		if err != nil {
			var apiErr *APIError
			if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusConflict {
				cmd.Println("A drain is already in progress; try again shortly.")
				os.Exit(1)
			}
			cmd.Printf("Error processing queue: %s\n", err)
			os.Exit(1)
		}

		cmd.Printf("Processed: %d  Failed: %d  Dead-lettered: %d\n",
			resp.Processed, resp.Failed, resp.DeadLettered)
	},
}
