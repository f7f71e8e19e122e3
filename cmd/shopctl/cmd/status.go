package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon, world and host health",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}

	status, err := client.Status()
	if err != nil {
		return fmt.Errorf("failed to fetch status: %w", err)
	}

	if IsJSONOutput() {
		return printJSON(status)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Property", "Value")

	table.Append([]string{"Service", status.Service})
	table.Append([]string{"Version", status.Version})
	table.Append([]string{"Uptime", (time.Duration(status.UptimeSeconds) * time.Second).String()})
	table.Append([]string{"World ID", status.WorldID})
	table.Append([]string{"Access state", string(status.WorldState)})
	table.Append([]string{"Handles", fmt.Sprintf("%d", status.World.Handles)})
	table.Append([]string{"Active readers", fmt.Sprintf("%d", status.World.Readers)})
	table.Append([]string{"Reads served", fmt.Sprintf("%d", status.World.Reads)})
	table.Append([]string{"Messages applied", fmt.Sprintf("%d", status.World.Msgs)})
	table.Append([]string{"Poisoned", fmt.Sprintf("%v", status.World.Poisoned)})

	if status.Host.Hostname != "" {
		table.Append([]string{"Host", fmt.Sprintf("%s (%s)", status.Host.Hostname, status.Host.Platform)})
	}
	if status.Host.MemoryTotal > 0 {
		table.Append([]string{"CPU", fmt.Sprintf("%.1f%%", status.Host.CPUPercent)})
		table.Append([]string{"Memory", fmt.Sprintf("%.1f%% of %.2f GB",
			status.Host.MemoryPercent,
			float64(status.Host.MemoryTotal)/(1024*1024*1024))})
	}

	table.Render()

	if status.World.Poisoned {
		fmt.Println("\nWorld is poisoned: inspect the state, then run 'shopctl clear-poison'")
	}
	return nil
}
