package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "scrapectl",
	Short: "Scrapectl is a command line tool for driving scraping campaigns",
	Long: `scrapectl is the command-line interface for the scrapeplane manager.

The manager orchestrates scraping campaigns ("jobs"): it fans work items out
to scraper workers over Kafka and aggregates their feedback into per-job
progress. scrapectl talks to the manager's HTTP API.

Common workflows:

  Start a vehicle availability campaign:
    scrapectl create --type AVAILABILITY --start 2026/09/01 --end 2026/09/07

  Start a geographic search over the optimal-cell index:
    scrapectl create --type SEARCH --country GB --cell-size 600 --from-optimal-cells

  Check a campaign:
    scrapectl status <job-id>

  Pause / resume / cancel:
    scrapectl stop <job-id>
    scrapectl start <job-id>
    scrapectl cancel <job-id>

Configuration:
  Set the API endpoint via environment variable or a config file:
    SCRAPEPLANE_URL    Manager endpoint (default: http://localhost:8080)`,
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

		// Search config in home directory with name ".scrapectl"
		viper.AddConfigPath(home)
		viper.SetConfigName(".scrapectl")
		viper.SetConfigType("yaml")
	}

	// Read environment variables that match "SCRAPEPLANE_VARNAME"
	viper.SetEnvPrefix("SCRAPEPLANE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.scrapectl.yaml)")

	rootCmd.PersistentFlags().String("url", "http://localhost:8080", "Scrapeplane Manager URL")
	viper.BindPFlag("url", rootCmd.PersistentFlags().Lookup("url"))
}
