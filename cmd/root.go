package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "face-registry",
	Short: "Register people by face and recognize them in new photos",
	Long: `Face Registry keeps a database of named people, each stored with one
face embedding, and recognizes those people in new images.

Face detection and embedding extraction are delegated to an external
detector service (DETECTOR_URL). Identities are stored in PostgreSQL with
pgvector or in MariaDB/MySQL (DATABASE_DRIVER, DATABASE_URL).`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
