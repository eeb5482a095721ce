package cmd

import (
	"context"
	"fmt"

	"github.com/kozaktomas/face-registry/internal/matching"
	"github.com/spf13/cobra"
)

var recognizeCmd = &cobra.Command{
	Use:   "recognize <image>",
	Short: "Recognize registered people in a photo",
	Long: `Detect every face in an image and match each one against all registered
identities. A face is matched when its best cosine similarity reaches the
threshold; otherwise it is reported as Unknown.

Examples:
  face-registry recognize group.jpg
  face-registry recognize group.jpg --threshold 0.5 --json`,
	Args: cobra.ExactArgs(1),
	RunE: runRecognize,
}

func init() {
	rootCmd.AddCommand(recognizeCmd)

	recognizeCmd.Flags().Float64("threshold", matching.DefaultThreshold, "Minimum similarity for a match (defaults to MATCH_THRESHOLD)")
	recognizeCmd.Flags().Bool("json", false, "Output as JSON")
}

func runRecognize(cmd *cobra.Command, args []string) error {
	jsonOutput := mustGetBool(cmd, "json")

	image, err := readImage(args[0])
	if err != nil {
		return err
	}

	ctx := context.Background()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	res := a.service.Recognize(ctx, matching.RecognizeRequest{
		Image:     image,
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

	if res.Status == matching.StatusEmptyRegistry {
		fmt.Println("No identities registered yet.")
	}
	fmt.Printf("Found %d face(s), threshold %.2f, %d candidate(s)\n\n", res.FaceCount, res.Threshold, res.Candidates)
	for _, f := range res.Faces {
		bbox := fmt.Sprintf("[%d,%d,%d,%d]", f.BBox.X1, f.BBox.Y1, f.BBox.X2, f.BBox.Y2)
		if f.Matched {
			fmt.Printf("  Face %d %s: %s (id %d, similarity %.3f)\n", f.FaceIndex, bbox, f.DisplayName, f.IdentityID, f.BestSimilarity)
			continue
		}
		if f.CandidateName != "" {
			fmt.Printf("  Face %d %s: %s (closest %s at %.3f)\n", f.FaceIndex, bbox, matching.UnknownName, f.CandidateName, f.BestSimilarity)
			continue
		}
		fmt.Printf("  Face %d %s: %s\n", f.FaceIndex, bbox, matching.UnknownName)
	}
	return nil
}
