// Package main provides the entry point for the clip-curator CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "clip_curator",
	Short: "Select, brand and publish the best short-form video of a batch",
	Long:  "clip-curator scrapes a hashtag batch through a remote actor, scores the candidates, brands the winner with a logo overlay and publishes it to Drive, never publishing the same video twice.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
