package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List campaigns, newest first",
	Run: func(cmd *cobra.Command, args []string) {
		flags := cmd.Flags()
		page, _ := flags.GetInt("page")
		size, _ := flags.GetInt("size")

		client := NewManagerClient(viper.GetString("url"))
		result, err := client.ListJobs(page, size)
		if err != nil {
			if apiErr, ok := err.(*APIError); ok {
				cmd.Printf("Error (%d): %s\n", apiErr.StatusCode, apiErr.Message)
			} else {
				cmd.Printf("Error: %v\n", err)
			}
			return
		}

		if len(result.Jobs) == 0 {
			cmd.Println("No campaigns found.")
			return
		}

		cmd.Printf("%sCampaigns (page %d, %d total)%s\n", colorBold, result.Page, result.Total, colorReset)
		for _, job := range result.Jobs {
			progress := "      -"
			if job.TotalItems != nil {
				progress = fmt.Sprintf("%5.1f%%", job.PercentCompleted)
			}
			cmd.Printf("%s  %s  %s  %s\n", job.ID, progress, colorizeStatus(job.Status), job.Title)
		}
	},
}

func init() {
	flags := listCmd.Flags()
	flags.Int("page", 1, "Page number")
	flags.Int("size", 20, "Page size")

	rootCmd.AddCommand(listCmd)
}
