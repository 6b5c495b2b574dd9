package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "aimsctl",
	Short: "aimsctl is a command line tool for operating the AIMS pipeline",
	Long: `aimsctl is the command-line interface for the AIMS interpretation pipeline.

AIMS queues interpretation events, renders them against content templates
and delivers the output downstream on a periodic or on-demand schedule.

Common workflows:

  Submit an event:
    aimsctl submit --type daily-reading --subject u1 --var name=Ana

  Force a processing pass:
    aimsctl process

  Check scheduler and queue status:
    aimsctl status

  Inspect and retry dead-lettered entries:
    aimsctl dlq list
    aimsctl dlq retry <entry-id>

Configuration:
  Set the API endpoint and key via environment variables or a config file:
    AIMS_URL    API endpoint (default: http://localhost:8080)
    AIMS_KEY    API key sent in the X-API-Key header`,
}

func Execute() error {
	return rootCmd.Execute()
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		// Search config in home directory with name ".aimsctl"
		viper.AddConfigPath(home)
		viper.SetConfigName(".aimsctl")
		viper.SetConfigType("yaml")
	}

	// Read environment variables that match "AIMS_VARNAME"
	viper.SetEnvPrefix("AIMS")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.aimsctl.yaml)")
	rootCmd.PersistentFlags().String("url", "http://localhost:8080", "controller API endpoint")
	rootCmd.PersistentFlags().String("key", "", "API key")

	viper.BindPFlag("url", rootCmd.PersistentFlags().Lookup("url"))
	viper.BindPFlag("key", rootCmd.PersistentFlags().Lookup("key"))

	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(processCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(dlqCmd)
	rootCmd.AddCommand(templatesCmd)
}
