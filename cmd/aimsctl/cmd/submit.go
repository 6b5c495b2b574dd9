package cmd

import (
	"os"
	"strings"

	"aims/pkg/api"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit an interpretation event",
	Long: `Submit an event for asynchronous processing.

The payload is built from repeated --var key=value flags. Example:

  aimsctl submit --type daily-reading --subject u1 --var name=Ana --var sign=leo`,
	Run: func(cmd *cobra.Command, args []string) {
		client := NewClient(viper.GetString("url"), viper.GetString("key"))

		eventType, _ := cmd.Flags().GetString("type")
		subject, _ := cmd.Flags().GetString("subject")
		vars, _ := cmd.Flags().GetStringArray("var")

		if eventType == "" || subject == "" {
			cmd.Println("Error: --type and --subject are required")
			os.Exit(1)
		}

		payload := make(map[string]any, len(vars))
		for _, kv := range vars {
			parts := strings.SplitN(kv, "=", 2)
			if len(parts) != 2 {
				cmd.Printf("Error: invalid --var %q, expected key=value\n", kv)
				os.Exit(1)
			}
			payload[parts[0]] = parts[1]
		}

		resp, err := client.SubmitEvent(api.TriggerEventRequest{
			Type:    eventType,
			Payload: payload,
			Subject: subject,
		})
		if err != nil {
			cmd.Printf("Error submitting event: %s\n", err)
			os.Exit(1)
		}

		cmd.Printf("Event queued: %s\n", resp.EventID)
	},
}

func init() {
	submitCmd.Flags().String("type", "", "event type (e.g. daily-reading)")
	submitCmd.Flags().String("subject", "", "owning subject id")
	submitCmd.Flags().StringArray("var", nil, "payload variable, key=value (repeatable)")
}
