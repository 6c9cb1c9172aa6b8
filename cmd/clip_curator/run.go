package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tyler/clip-curator/internal/apify"
	"github.com/tyler/clip-curator/internal/config"
	"github.com/tyler/clip-curator/internal/db"
	"github.com/tyler/clip-curator/internal/pipeline"
	"github.com/tyler/clip-curator/internal/store"
)

var runCommand = &cobra.Command{
	Use:   "run",
	Short: "Run the full selection pipeline end-to-end",
	Long: `Orchestrates one run: load dedupe set -> scrape -> score -> select winner -> fetch media -> download -> brand -> publish -> record dedupe.

Configuration can be loaded from a JSON file using --config. Command-line arguments override config file values; credentials default to environment variables.`,
	RunE: runPipelineCmd,
}

var (
	runConfigPath  string
	runHashtag     string
	runBatchSize   int
	runMinViews    int64
	runMaxAgeHours float64
	runDryRun      bool
	runVerbose     bool
	runWorkDir     string
	runLogo        string
	runToken       string
	runActorID     string
	runFolderID    string
	runDatabaseURL string
)

func init() {
	// Config file flag (processed first)
	runCommand.Flags().StringVar(&runConfigPath, "config", "", "Path to config.json file (values can be overridden by other flags)")

	runCommand.Flags().StringVar(&runHashtag, "hashtag", "", "Hashtag to scrape (default oddlysatisfying)")
	runCommand.Flags().IntVar(&runBatchSize, "batch-size", 0, "Number of videos to fetch per run")
	runCommand.Flags().Int64Var(&runMinViews, "min-views", 0, "Minimum view count for a candidate")
	runCommand.Flags().Float64Var(&runMaxAgeHours, "max-age-hours", 0, "Maximum candidate age in hours")
	runCommand.Flags().BoolVar(&runDryRun, "dry-run", false, "Stop after winner selection, before any side effect")
	runCommand.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "Print detailed debug information")
	runCommand.Flags().StringVar(&runWorkDir, "workdir", "", "Directory for transient run files (default: temp dir)")
	runCommand.Flags().StringVar(&runLogo, "logo", "", "Path to the overlay logo image (default logo.png)")

	// Credentials can be passed as flags, or read from env vars
	runCommand.Flags().StringVar(&runToken, "apify-token", "", "Apify API token (defaults to APIFY_TOKEN env var)")
	runCommand.Flags().StringVar(&runActorID, "apify-actor", "", "Apify actor id (defaults to APIFY_ACTOR_ID env var)")
	runCommand.Flags().StringVar(&runFolderID, "drive-folder", "", "Drive folder id for publishing (defaults to DRIVE_FOLDER_ID env var)")

	// Database URL for artifact persistence
	runCommand.Flags().StringVar(&runDatabaseURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")

	rootCmd.AddCommand(runCommand)
}

func runPipelineCmd(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	// Step 1: Load config file if provided
	var cfg config.Config
	if runConfigPath != "" {
		loadedCfg, err := config.LoadConfig(runConfigPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg = *loadedCfg
		if runVerbose {
			_, _ = fmt.Fprintf(os.Stdout, "Loaded config from: %s\n", runConfigPath)
		}
	}

	// Step 2: Apply CLI overrides (command-line args take priority).
	// Only override if the flag was explicitly set.
	if cmd.Flags().Changed("hashtag") {
		cfg.Hashtag = runHashtag
	}
	if cmd.Flags().Changed("batch-size") {
		cfg.BatchSize = runBatchSize
	}
	if cmd.Flags().Changed("min-views") {
		cfg.MinViews = runMinViews
		cfg.MinViewsSet = true
	}
	if cmd.Flags().Changed("max-age-hours") {
		cfg.MaxAgeHours = runMaxAgeHours
	}
	if cmd.Flags().Changed("dry-run") {
		cfg.DryRun = runDryRun
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = runVerbose
	}
	if cmd.Flags().Changed("workdir") {
		cfg.WorkDir = runWorkDir
	}
	if cmd.Flags().Changed("logo") {
		cfg.LogoPath = runLogo
	}
	if cmd.Flags().Changed("apify-token") {
		cfg.ApifyToken = runToken
	}
	if cmd.Flags().Changed("apify-actor") {
		cfg.ApifyActorID = runActorID
	}
	if cmd.Flags().Changed("drive-folder") {
		cfg.DriveFolderID = runFolderID
	}
	if cmd.Flags().Changed("db-url") {
		cfg.DatabaseURL = runDatabaseURL
	}

	// Step 3: Fill remaining gaps from the environment, then built-ins.
	// This is the single place ambient environment state is read.
	cfg = cfg.MergeWithDefaults(config.Config{
		ApifyToken:         os.Getenv("APIFY_TOKEN"),
		ApifyActorID:       os.Getenv("APIFY_ACTOR_ID"),
		DriveFolderID:      os.Getenv("DRIVE_FOLDER_ID"),
		ServiceAccountJSON: os.Getenv("DRIVE_SERVICE_ACCOUNT_JSON"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
	})
	cfg = cfg.MergeWithDefaults(config.Defaults())

	if err := cfg.Validate(); err != nil {
		return err
	}

	// Step 4: Build collaborators and run.
	blobs, err := store.NewDriveStore(ctx, []byte(cfg.ServiceAccountJSON))
	if err != nil {
		return fmt.Errorf("failed to create drive store: %w", err)
	}

	var database *db.DB
	if cfg.DatabaseURL != "" {
		database, err = db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			fmt.Printf("Warning: Failed to connect to database: %v\n", err)
			fmt.Printf("Continuing without database persistence...\n")
			database = nil
		} else {
			defer database.Close()
		}
	}

	_, err = pipeline.Run(ctx, pipeline.Options{
		Config: cfg,
		Store:  blobs,
		Jobs:   apify.NewClient(cfg.ApifyToken, cfg.ApifyActorID),
		DB:     database,
	})
	return err
}
