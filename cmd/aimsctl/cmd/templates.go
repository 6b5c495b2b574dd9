package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "List active content templates",
	Run: func(cmd *cobra.Command, args []string) {
		client := NewClient(viper.GetString("url"), viper.GetString("key"))

		templates, err := client.ListTemplates()
		if err != nil {
			cmd.Printf("Error fetching templates: %s\n", err)
			os.Exit(1)
		}

		if len(templates) == 0 {
			cmd.Println("No templates found.")
			return
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "KEY\tNAME\tVERSION\tREQUIRED VARIABLES")
		for _, t := range templates {
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\n",
				t.Key, t.Name, t.Version, strings.Join(t.RequiredVariables, ", "))
		}
		w.Flush()
	},
}
