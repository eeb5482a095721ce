package cmd

import (
	"context"
	"fmt"

	"github.com/kozaktomas/face-registry/internal/matching"
	"github.com/spf13/cobra"
)

var compareCmd = &cobra.Command{
	Use:   "compare <image-a> <image-b>",
	Short: "Check whether two photos show the same person",
	Long: `Compare the first face of each image. The registry is not consulted, so
no database connection is needed.

Examples:
  face-registry compare id-card.jpg selfie.jpg
  face-registry compare a.jpg b.jpg --threshold 0.7 --json`,
	Args: cobra.ExactArgs(2),
	RunE: runCompare,
}

func init() {
	rootCmd.AddCommand(compareCmd)

	compareCmd.Flags().Float64("threshold", matching.DefaultThreshold, "Minimum similarity for the same person (defaults to MATCH_THRESHOLD)")
	compareCmd.Flags().Bool("json", false, "Output as JSON")
}

func runCompare(cmd *cobra.Command, args []string) error {
	jsonOutput := mustGetBool(cmd, "json")

	imageA, err := readImage(args[0])
	if err != nil {
		return err
	}
	imageB, err := readImage(args[1])
	if err != nil {
		return err
	}

	ctx := context.Background()
	a, err := openDetectorOnly()
	if err != nil {
		return err
	}
	defer a.Close()

	res := a.service.Compare(ctx, matching.CompareRequest{
		ImageA:    imageA,
		ImageB:    imageB,
		Threshold: optionalThreshold(cmd),
	})

	if jsonOutput {
		if err := outputJSON(res); err != nil {
			return err
		}
		return outcomeError(res.Outcome)
	}
	if !res.Success {
		return outcomeError(res.Outcome)
	}

	verdict := "DIFFERENT people"
	if res.IsSamePerson {
		verdict = "SAME person"
	}
	fmt.Printf("%s (similarity %.3f, threshold %.2f, margin %.3f)\n", verdict, res.Similarity, res.Threshold, res.Margin)
	return nil
}
