package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// snapshotsCmd represents the snapshots command
var snapshotsCmd = &cobra.Command{
	Use:   "snapshots",
	Short: "Manage world snapshots",
	Long:  `Commands for listing persisted snapshots of the world and taking new ones on demand.`,
}

var snapshotsLimit int

// snapshotsListCmd represents the snapshots list command
var snapshotsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List persisted snapshots, newest first",
	RunE:  runSnapshotsList,
}

// snapshotsTakeCmd represents the snapshots take command
var snapshotsTakeCmd = &cobra.Command{
	Use:   "take",
	Short: "Persist a snapshot of the current state",
	RunE:  runSnapshotsTake,
}

func init() {
	rootCmd.AddCommand(snapshotsCmd)
	snapshotsCmd.AddCommand(snapshotsListCmd)
	snapshotsCmd.AddCommand(snapshotsTakeCmd)

	snapshotsListCmd.Flags().IntVar(&snapshotsLimit, "limit", 20, "maximum snapshots to list")
}

func runSnapshotsList(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}

	resp, err := client.Snapshots(snapshotsLimit)
	if err != nil {
		return fmt.Errorf("failed to fetch snapshots: %w", err)
	}

	if IsJSONOutput() {
		return printJSON(resp)
	}

	if resp.Total == 0 {
		fmt.Println("No snapshots persisted")
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("ID", "Seq", "Taken At", "Size")

	for _, snap := range resp.Snapshots {
		table.Append(
			snap.ID,
			fmt.Sprintf("%d", snap.Seq),
			snap.TakenAt.Local().Format(time.RFC822),
			fmt.Sprintf("%d B", snap.Bytes),
		)
	}

	table.Render()
	fmt.Printf("\nTotal snapshots: %d\n", resp.Total)
	return nil
}

func runSnapshotsTake(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}

	info, err := client.TakeSnapshot()
	if err != nil {
		return fmt.Errorf("failed to take snapshot: %w", err)
	}

	if IsJSONOutput() {
		return printJSON(info)
	}

	fmt.Printf("Snapshot saved: %s (seq %d, %d bytes)\n", info.ID, info.Seq, info.Bytes)
	return nil
}
