package cmd

import (
	"context"
	"fmt"

	"github.com/kozaktomas/face-registry/internal/matching"
	"github.com/spf13/cobra"
)

var registerCmd = &cobra.Command{
	Use:   "register <image>",
	Short: "Register a person from a photo",
	Long: `Detect the face in an image and store it under the given name.

When the image contains several faces, the first one reported by the
detector is used and a warning is logged.

Examples:
  face-registry register alice.jpg --name "Alice Smith"
  face-registry register alice.jpg --name "Alice Smith" --description "Front desk" --json`,
	Args: cobra.ExactArgs(1),
	RunE: runRegister,
}

func init() {
	rootCmd.AddCommand(registerCmd)

	registerCmd.Flags().String("name", "", "Display name of the person (required)")
	registerCmd.Flags().String("description", "", "Optional description")
	registerCmd.Flags().Bool("json", false, "Output as JSON")
	registerCmd.MarkFlagRequired("name")
}

func runRegister(cmd *cobra.Command, args []string) error {
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

	res := a.service.Register(ctx, matching.RegisterRequest{
		Image:       image,
		DisplayName: mustGetString(cmd, "name"),
		Description: mustGetString(cmd, "description"),
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

	fmt.Printf("Registered %s as identity %d\n", res.DisplayName, res.IdentityID)
	fmt.Printf("  Confidence: %.3f\n", res.Confidence)
	if res.FaceCount > 1 {
		fmt.Printf("  Note: %d faces detected, used the first one\n", res.FaceCount)
	}
	return nil
}
