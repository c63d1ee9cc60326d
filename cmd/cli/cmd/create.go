package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"scrapeplane/pkg/api"
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create and start a new scraping campaign",
	Long: `Create a campaign and immediately dispatch its work items.

Example:
  scrapectl create --type AVAILABILITY --start 2026/09/01 --end 2026/09/07 --vehicles 500
  scrapectl create --type VEHICLE_DETAILS
  scrapectl create --type SEARCH --country GB --cell-size 600 --recursive-depth 2 --update-optimal-cells`,
	Run: func(cmd *cobra.Command, args []string) {
		flags := cmd.Flags()
		jobType, _ := flags.GetString("type")
		jobType = strings.ToUpper(jobType)

		if jobType == "" {
			cmd.Println("Error: --type is required (SEARCH, AVAILABILITY or VEHICLE_DETAILS)")
			return
		}

		vehicles, _ := flags.GetInt("vehicles")
		startDate, _ := flags.GetString("start")
		endDate, _ := flags.GetString("end")

		req := api.CreateJobRequest{
			JobType:          jobType,
			NumberOfVehicles: vehicles,
			StartDate:        startDate,
			EndDate:          endDate,
		}

		if jobType == "SEARCH" {
			country, _ := flags.GetString("country")
			if country == "" {
				cmd.Println("Error: --country is required for SEARCH campaigns")
				return
			}
			cellSize, _ := flags.GetInt("cell-size")
			if cellSize <= 0 {
				cmd.Println("Error: --cell-size must be positive for SEARCH campaigns")
				return
			}
			depth, _ := flags.GetInt("recursive-depth")
			startAt, _ := flags.GetInt("start-at")
			limit, _ := flags.GetInt("limit")
			fromOptimal, _ := flags.GetBool("from-optimal-cells")
			updateOptimal, _ := flags.GetBool("update-optimal-cells")

			req.StartDate = ""
			req.EndDate = ""
			req.Search = &api.SearchParams{
				Country:            country,
				CellSize:           cellSize,
				RecursiveDepth:     depth,
				StartAt:            startAt,
				Limit:              limit,
				FromOptimalCells:   fromOptimal,
				UpdateOptimalCells: updateOptimal,
				StartDate:          startDate,
				EndDate:            endDate,
			}
		}

		client := NewManagerClient(viper.GetString("url"))
		result, err := client.CreateJob(req)
		if err != nil {
			if apiErr, ok := err.(*APIError); ok {
				cmd.Printf("Error (%d): %s\n", apiErr.StatusCode, apiErr.Message)
			} else {
				cmd.Printf("Error: %v\n", err)
			}
			return
		}

		cmd.Printf("✓ Campaign created!\nID: %s\nTitle: %s\nStatus: %s\n", result.ID, result.Title, result.Status)
		if result.TotalItems != nil {
			cmd.Printf("Items: %d\n", *result.TotalItems)
		}
	},
}

func init() {
	flags := createCmd.Flags()
	flags.StringP("type", "t", "", "Campaign type: SEARCH, AVAILABILITY or VEHICLE_DETAILS (required)")
	flags.Int("vehicles", 0, "Cap on vehicles to enumerate, 0 means all (availability/details)")
	flags.String("start", "", "Start date, yyyy/MM/dd (optional)")
	flags.String("end", "", "End date, yyyy/MM/dd (optional)")

	// SEARCH parameters
	flags.String("country", "", "Country code for SEARCH campaigns")
	flags.Int("cell-size", 0, "Cell resolution for SEARCH campaigns")
	flags.Int("recursive-depth", 0, "Subdivision depth passed to scrapers")
	flags.Int("start-at", 0, "Skip this many candidate cells")
	flags.Int("limit", 0, "Dispatch at most this many cells, 0 means all")
	flags.Bool("from-optimal-cells", false, "Source cells from the optimal-cell index instead of the calibrator")
	flags.Bool("update-optimal-cells", false, "Ask scrapers to propose partition refinements")

	rootCmd.AddCommand(createCmd)
}
