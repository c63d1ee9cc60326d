package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var startCmd = &cobra.Command{
	Use:   "start [job_id]",
	Short: "Resume a stopped campaign",
	Long:  `Resume a STOPPED campaign. Resuming re-opens progress accounting; it does not re-dispatch in-flight work items. Other states are a no-op.`,
	Args:  cobra.ExactArgs(1),
	Run:   jobActionRun("start"),
}

var stopCmd = &cobra.Command{
	Use:   "stop [job_id]",
	Short: "Pause a running campaign",
	Long:  `Move a RUNNING campaign to STOPPED. Scraper feedback for already-dispatched items keeps being tolerated. Other states are a no-op.`,
	Args:  cobra.ExactArgs(1),
	Run:   jobActionRun("stop"),
}

var cancelCmd = &cobra.Command{
	Use:   "cancel [job_id]",
	Short: "Cancel a campaign",
	Long:  `Cancel a campaign in any non-terminal state. Cancelling an already cancelled campaign succeeds without change.`,
	Args:  cobra.ExactArgs(1),
	Run:   jobActionRun("cancel"),
}

func jobActionRun(action string) func(cmd *cobra.Command, args []string) {
	return func(cmd *cobra.Command, args []string) {
		client := NewManagerClient(viper.GetString("url"))

		job, err := client.JobAction(args[0], action)
		if err != nil {
			if apiErr, ok := err.(*APIError); ok {
				cmd.Printf("Error (%d): %s\n", apiErr.StatusCode, apiErr.Message)
			} else {
				cmd.Printf("Error: %v\n", err)
			}
			return
		}

		cmd.Printf("✓ %s accepted\nID: %s\nStatus: %s\n", action, job.ID, colorizeStatus(job.Status))
	}
}

func init() {
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(cancelCmd)
}
