package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Deuspheara/doc-processor/internal/cli"
)

var rootCmd = &cobra.Command{Use: "doc-processor"}

func main() {
	// Load .env if present
	_ = godotenv.Load()

	rootCmd.PersistentFlags().String("db", "", "Database connection string (optional if DB_* env vars are set)")
	cli.SetupCLI(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
