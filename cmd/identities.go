package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/kozaktomas/face-registry/internal/matching"
	"github.com/spf13/cobra"
)

var identitiesCmd = &cobra.Command{
	Use:     "identities",
	Aliases: []string{"id"},
	Short:   "Manage registered identities",
}

var identitiesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all registered identities",
	Args:  cobra.NoArgs,
	RunE:  runIdentitiesList,
}

var identitiesShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one identity",
	Args:  cobra.ExactArgs(1),
	RunE:  runIdentitiesShow,
}

var identitiesFindCmd = &cobra.Command{
	Use:   "find <name>",
	Short: "Find an identity by exact display name",
	Long: `Find the identity with exactly the given display name. When several
identities share the name, the oldest one is returned. On a miss, names that
differ only in case, diacritics or dashes are suggested.`,
	Args: cobra.ExactArgs(1),
	RunE: runIdentitiesFind,
}

var identitiesUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Rename an identity or replace its face",
	Long: `Update an identity's display name and description. With --image, the
stored embedding is replaced by the first face found in that image.

Examples:
  face-registry identities update 7 --name "Alice Smith"
  face-registry identities update 7 --name "Alice Smith" --image new-photo.jpg`,
	Args: cobra.ExactArgs(1),
	RunE: runIdentitiesUpdate,
}

var identitiesDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an identity",
	Args:  cobra.ExactArgs(1),
	RunE:  runIdentitiesDelete,
}

func init() {
	rootCmd.AddCommand(identitiesCmd)
	identitiesCmd.AddCommand(identitiesListCmd, identitiesShowCmd, identitiesFindCmd, identitiesUpdateCmd, identitiesDeleteCmd)

	identitiesCmd.PersistentFlags().Bool("json", false, "Output as JSON")

	identitiesUpdateCmd.Flags().String("name", "", "New display name (required)")
	identitiesUpdateCmd.Flags().String("description", "", "New description")
	identitiesUpdateCmd.Flags().String("image", "", "Image whose first face replaces the stored embedding")
	identitiesUpdateCmd.MarkFlagRequired("name")
}

func parseIdentityID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid identity id %q", s)
	}
	return id, nil
}

func printIdentities(identities []matching.IdentitySummary) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tDESCRIPTION\tCREATED")
	for _, i := range identities {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", i.ID, i.DisplayName, i.Description, i.CreatedAt.Format("2006-01-02 15:04"))
	}
	w.Flush()
}

func runIdentitiesList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	res := a.service.List(ctx)
	if mustGetBool(cmd, "json") {
		if err := outputJSON(res); err != nil {
			return err
		}
		return outcomeError(res.Outcome)
	}
	if !res.Success {
		return outcomeError(res.Outcome)
	}

	if res.Count == 0 {
		fmt.Println("No identities registered.")
		return nil
	}
	printIdentities(res.Identities)
	fmt.Printf("\nTotal: %d\n", res.Count)
	return nil
}

func showIdentityResult(cmd *cobra.Command, res matching.IdentityResult) error {
	if mustGetBool(cmd, "json") {
		if err := outputJSON(res); err != nil {
			return err
		}
		return outcomeError(res.Outcome)
	}
	if !res.Success {
		if len(res.Suggestions) > 0 {
			fmt.Println("Did you mean:")
			printIdentities(res.Suggestions)
		}
		return outcomeError(res.Outcome)
	}

	i := res.Identity
	fmt.Printf("ID:          %d\n", i.ID)
	fmt.Printf("Name:        %s\n", i.DisplayName)
	if i.Description != "" {
		fmt.Printf("Description: %s\n", i.Description)
	}
	fmt.Printf("Dimension:   %d\n", i.Dimension)
	fmt.Printf("Created:     %s\n", i.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("Updated:     %s\n", i.UpdatedAt.Format("2006-01-02 15:04:05"))
	return nil
}

func runIdentitiesShow(cmd *cobra.Command, args []string) error {
	id, err := parseIdentityID(args[0])
	if err != nil {
		return err
	}

	ctx := context.Background()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	return showIdentityResult(cmd, a.service.Get(ctx, id))
}

func runIdentitiesFind(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	return showIdentityResult(cmd, a.service.FindByName(ctx, args[0]))
}

func runMutation(cmd *cobra.Command, res matching.MutationResult) error {
	if mustGetBool(cmd, "json") {
		if err := outputJSON(res); err != nil {
			return err
		}
		return outcomeError(res.Outcome)
	}
	if !res.Success {
		return outcomeError(res.Outcome)
	}
	fmt.Println(res.Message)
	return nil
}

func runIdentitiesUpdate(cmd *cobra.Command, args []string) error {
	id, err := parseIdentityID(args[0])
	if err != nil {
		return err
	}

	req := matching.UpdateRequest{
		ID:          id,
		DisplayName: mustGetString(cmd, "name"),
		Description: mustGetString(cmd, "description"),
	}
	if path := mustGetString(cmd, "image"); path != "" {
		if req.Image, err = readImage(path); err != nil {
			return err
		}
	}

	ctx := context.Background()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	return runMutation(cmd, a.service.Update(ctx, req))
}

func runIdentitiesDelete(cmd *cobra.Command, args []string) error {
	id, err := parseIdentityID(args[0])
	if err != nil {
		return err
	}

	ctx := context.Background()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	return runMutation(cmd, a.service.Delete(ctx, id))
}
