package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"scrapeplane/pkg/api"
)

var statusCmd = &cobra.Command{
	Use:   "status [job_id]",
	Short: "Get status and progress of a campaign",
	Long:  `Retrieve detailed status for a campaign: its current state (CREATED, RUNNING, STOPPED, CANCELLED, FINISHED, FAILED), item counters and timestamps.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client := NewManagerClient(viper.GetString("url"))

		job, err := client.GetJob(args[0])
		if err != nil {
			if apiErr, ok := err.(*APIError); ok {
				cmd.Printf("Error (%d): %s\n", apiErr.StatusCode, apiErr.Message)
			} else {
				cmd.Printf("Error: %v\n", err)
			}
			return
		}

		printJob(cmd, job)
	},
}

func printJob(cmd *cobra.Command, job *api.JobResponse) {
	icon := statusIcon(job.Status)
	cmd.Printf("%s %sCampaign Details%s\n", icon, colorBold, colorReset)
	cmd.Println("──────────────────────────────")

	cmd.Printf("%sID:%s        %s\n", colorDim, colorReset, job.ID)
	cmd.Printf("%sTitle:%s     %s\n", colorDim, colorReset, job.Title)
	cmd.Printf("%sType:%s      %s\n", colorDim, colorReset, job.JobType)
	cmd.Printf("%sStatus:%s    %s\n", colorDim, colorReset, colorizeStatus(job.Status))

	if job.TotalItems != nil {
		cmd.Printf("%sProgress:%s  %d/%d done, %d failed %s(%.1f%%)%s\n",
			colorDim, colorReset,
			job.CompletedItems, *job.TotalItems, job.FailedItems,
			colorCyan, job.PercentCompleted, colorReset)
	} else {
		cmd.Printf("%sProgress:%s  %d done, %d failed\n",
			colorDim, colorReset, job.CompletedItems, job.FailedItems)
	}

	cmd.Printf("%sCreated:%s   %s\n", colorDim, colorReset, formatTimeWithRelative(&job.CreatedAt))
	cmd.Printf("%sStarted:%s   %s\n", colorDim, colorReset, formatTimeWithRelative(job.StartedAt))

	if job.StartedAt != nil && job.FinishedAt != nil {
		duration := job.FinishedAt.Sub(*job.StartedAt)
		cmd.Printf("%sFinished:%s  %s %s(%s)%s\n", colorDim, colorReset,
			formatTimeWithRelative(job.FinishedAt),
			colorCyan, formatDuration(duration), colorReset)
	} else {
		cmd.Printf("%sFinished:%s  %s\n", colorDim, colorReset, formatTimeWithRelative(job.FinishedAt))
	}
}

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorBold   = "\033[1m"
	colorDim    = "\033[2m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
)

func statusIcon(status string) string {
	switch status {
	case "FINISHED":
		return colorGreen + "✓" + colorReset
	case "FAILED":
		return colorRed + "✗" + colorReset
	case "CANCELLED":
		return colorRed + "⊘" + colorReset
	case "RUNNING":
		return colorYellow + "⏳" + colorReset
	case "STOPPED":
		return colorYellow + "⏸" + colorReset
	case "CREATED":
		return colorCyan + "◯" + colorReset
	default:
		return "•"
	}
}

func colorizeStatus(status string) string {
	icon := statusIcon(status)
	switch status {
	case "FINISHED":
		return icon + " " + colorGreen + status + colorReset
	case "FAILED", "CANCELLED":
		return icon + " " + colorRed + status + colorReset
	case "RUNNING", "STOPPED":
		return icon + " " + colorYellow + status + colorReset
	case "CREATED":
		return icon + " " + colorCyan + status + colorReset
	default:
		return status
	}
}

func formatTimeWithRelative(t *time.Time) string {
	if t == nil {
		return "-"
	}
	relative := relativeTime(*t)
	return fmt.Sprintf("%s %s(%s ago)%s", t.Format("Mon, 02 Jan 2006 15:04:05 MST"), colorDim, relative, colorReset)
}

func relativeTime(t time.Time) string {
	duration := time.Since(t)

	if duration < time.Minute {
		return fmt.Sprintf("%ds", int(duration.Seconds()))
	} else if duration < time.Hour {
		return fmt.Sprintf("%dm", int(duration.Minutes()))
	} else if duration < 24*time.Hour {
		return fmt.Sprintf("%dh", int(duration.Hours()))
	} else {
		days := int(duration.Hours() / 24)
		if days == 1 {
			return "1 day"
		}
		return fmt.Sprintf("%d days", days)
	}
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	} else if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	} else if d < time.Hour {
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
