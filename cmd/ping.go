package cmd

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"resumelift/internal/models"
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Test the connection to the analysis backend",
	Long: `Sends a GET to the backend root and reports what it answered. A sleeping
backend can take up to a minute to wake; run ping again after 30 seconds.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Testing connection to %s...\n", appInstance.BaseURL)
		report := appInstance.Session.TestConnection(cmd.Context())
		renderConnectionReport(cmd.OutOrStdout(), report)

		if !report.OK {
			return errors.New("connection test failed")
		}
		return nil
	},
}

func renderConnectionReport(out io.Writer, report models.ConnectionReport) {
	status := color.GreenString("OK")
	if !report.OK {
		status = color.RedString("FAILED")
	}
	code := "-"
	if report.StatusCode != 0 {
		code = strconv.Itoa(report.StatusCode)
	}

	table := tablewriter.NewWriter(out)
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.Append([]string{"Endpoint", report.Endpoint})
	table.Append([]string{"Status", status})
	table.Append([]string{"HTTP status", code})
	table.Append([]string{"Latency", report.Latency.Round(time.Millisecond).String()})
	table.Append([]string{"Message", report.Message})
	if report.Hint != "" {
		table.Append([]string{"Hint", report.Hint})
	}
	table.Render()
}

func init() {
	rootCmd.AddCommand(pingCmd)
}
