package cmd

import (
	"context"
	"fmt"

	"github.com/kozaktomas/face-registry/internal/database"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show registry size and matching settings",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().Bool("json", false, "Output as JSON")
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	res := a.service.Stats(ctx)
	if mustGetBool(cmd, "json") {
		if err := outputJSON(res); err != nil {
			return err
		}
		return outcomeError(res.Outcome)
	}
	if !res.Success {
		return outcomeError(res.Outcome)
	}

	fmt.Printf("Backend:    %s\n", database.BackendName())
	fmt.Printf("Identities: %d\n", res.IdentityCount)
	fmt.Printf("Dimension:  %d\n", res.Dimension)
	fmt.Printf("Threshold:  %.2f\n", res.Threshold)
	fmt.Printf("Ranker:     %s\n", res.Ranker)
	return nil
}
