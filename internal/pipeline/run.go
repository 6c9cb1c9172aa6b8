// Package pipeline provides the high-level orchestration for one
// select-brand-publish run.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/tyler/clip-curator/internal/apify"
	"github.com/tyler/clip-curator/internal/brand"
	"github.com/tyler/clip-curator/internal/config"
	"github.com/tyler/clip-curator/internal/db"
	"github.com/tyler/clip-curator/internal/media"
	"github.com/tyler/clip-curator/internal/observability"
	"github.com/tyler/clip-curator/internal/scoring"
	"github.com/tyler/clip-curator/internal/store"
	"github.com/tyler/clip-curator/internal/types"
)

// totalSteps is the number of logged pipeline stages.
const totalSteps = 9

// Options holds the collaborators and configuration for a run. Store and
// Jobs are required; DB is optional artifact persistence; Out defaults to
// os.Stdout; Now defaults to time.Now.
type Options struct {
	Config config.Config
	Store  store.BlobStore
	Jobs   *apify.Client
	DB     *db.DB
	Out    io.Writer
	Now    func() time.Time
}

// Result reports what a completed run did.
type Result struct {
	Winner          types.ScoredCandidate
	DryRun          bool
	PublishedFileID string
	OutputName      string
}

type runner struct {
	cfg      config.Config
	blobs    store.BlobStore
	jobs     *apify.Client
	database *db.DB
	out      io.Writer
	printer  *observability.Printer
	now      func() time.Time
	runID    uuid.UUID
}

// Run executes the full pipeline: load dedupe set, scrape, score, select,
// then (unless dry-run) download, brand, publish, and record the winner as
// seen. Every stage failure is fatal to the run; the dedupe record is only
// ever written after a successful publish.
func Run(ctx context.Context, opts Options) (*Result, error) {
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	r := &runner{
		cfg:     opts.Config,
		blobs:   opts.Store,
		jobs:    opts.Jobs,
		out:     out,
		printer: observability.NewPrinter(out),
		now:     now,
	}

	if opts.DB != nil {
		r.database = opts.DB
		runID, err := r.database.CreateRun(ctx, r.cfg.Hashtag)
		if err != nil {
			fmt.Fprintf(r.out, "Warning: failed to create database run: %v\n", err)
			fmt.Fprintf(r.out, "Continuing without database persistence...\n")
			r.database = nil
		} else {
			r.runID = runID
		}
	}

	result, err := r.execute(ctx)
	if r.database != nil {
		status := "completed"
		if err != nil {
			status = "failed"
		}
		_ = r.database.CompleteRun(ctx, r.runID, status)
	}
	return result, err
}

// saveArtifact persists a stage output when a database is configured. Best
// effort: persistence trouble never fails the run.
func (r *runner) saveArtifact(ctx context.Context, step, category string, content any) {
	if r.database == nil {
		return
	}
	_ = r.database.SaveArtifact(ctx, r.runID, step, category, content)
}

func (r *runner) logStep(n int, format string, args ...any) {
	fmt.Fprintf(r.out, "Step %d/%d: %s\n", n, totalSteps, fmt.Sprintf(format, args...))
}

func (r *runner) execute(ctx context.Context) (*Result, error) {
	// Step 1: dedupe set
	r.logStep(1, "Loading dedupe set...")
	seen, seenFileID, err := store.LoadSeen(ctx, r.blobs, r.cfg.DriveFolderID)
	if err != nil {
		return nil, fmt.Errorf("loading dedupe set failed: %w", err)
	}
	fmt.Fprintf(r.out, "Seen IDs loaded: %d\n", seen.Len())
	r.saveArtifact(ctx, db.StepSeenIDs, db.CategorySelection, seen.Sorted())

	// Step 2: extraction run #1, the hashtag scrape
	r.logStep(2, "Scraping #%s (%d videos)...", r.cfg.Hashtag, r.cfg.BatchSize)
	scrapePayload := map[string]any{
		"hashtags":       []string{r.cfg.Hashtag},
		"numberOfVideos": r.cfg.BatchSize,
	}
	scrapeRun, err := r.startAndAwait(ctx, scrapePayload)
	if err != nil {
		return nil, fmt.Errorf("extraction run failed: %w", err)
	}
	items, err := r.jobs.DatasetItems(ctx, scrapeRun.DefaultDatasetID)
	if err != nil {
		return nil, fmt.Errorf("fetching extraction results failed: %w", err)
	}
	fmt.Fprintf(r.out, "Extraction dataset %s: %d items\n", scrapeRun.DefaultDatasetID, len(items))
	r.saveArtifact(ctx, db.StepRawItems, db.CategoryAcquisition, items)

	// Step 3: filter + score
	r.logStep(3, "Scoring candidates...")
	params := scoring.Params{
		MinViews:    r.cfg.MinViews,
		MaxAgeHours: r.cfg.MaxAgeHours,
		Now:         r.now().UTC(),
	}
	scored := scoring.ScoreCandidates(items, seen, params)
	fmt.Fprintf(r.out, "Candidates after filter+dedupe: %d\n", len(scored))
	if r.cfg.Verbose {
		r.printer.PrintScoredCandidates(scored)
	}
	r.saveArtifact(ctx, db.StepScored, db.CategorySelection, scored)

	// Step 4: winner
	r.logStep(4, "Selecting winner...")
	winner, err := scoring.SelectWinner(scored, len(items), params)
	if err != nil {
		return nil, fmt.Errorf("selecting winner failed: %w", err)
	}
	fmt.Fprintf(r.out, "Winner ID: %s\n", winner.ID)
	fmt.Fprintf(r.out, "Winner URL: %s\n", winner.WebVideoURL)
	fmt.Fprintf(r.out, "Winner score: %.4f\n", winner.Score)
	if r.cfg.Verbose {
		r.printer.PrintWinner(winner)
	}
	r.saveArtifact(ctx, db.StepWinner, db.CategorySelection, winner)

	if r.cfg.DryRun {
		fmt.Fprintf(r.out, "Dry run: stopping before download/brand/publish.\n")
		return &Result{Winner: winner, DryRun: true}, nil
	}

	// Step 5: extraction run #2, scoped to the winner
	r.logStep(5, "Fetching winner media (run #2)...")
	downloadPayload := map[string]any{
		"postURLs":             []string{winner.WebVideoURL},
		"shouldDownloadVideos": true,
	}
	downloadRun, err := r.startAndAwait(ctx, downloadPayload)
	if err != nil {
		return nil, fmt.Errorf("winner media run failed: %w", err)
	}
	mediaItems, err := r.jobs.DatasetItems(ctx, downloadRun.DefaultDatasetID)
	if err != nil {
		return nil, fmt.Errorf("fetching winner media results failed: %w", err)
	}
	if len(mediaItems) == 0 {
		return nil, fmt.Errorf("winner media dataset %s is empty", downloadRun.DefaultDatasetID)
	}
	firstItem, ok := mediaItems[0].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("winner media dataset %s: first item is not an object", downloadRun.DefaultDatasetID)
	}

	// Step 6: download
	workDir, err := r.workDir()
	if err != nil {
		return nil, fmt.Errorf("preparing work directory failed: %w", err)
	}
	assetURL, err := media.ResolveAssetURL(firstItem)
	if err != nil {
		return nil, fmt.Errorf("resolving media URL failed: %w", err)
	}
	r.saveArtifact(ctx, db.StepMediaURL, db.CategoryAcquisition, assetURL)
	inputPath := filepath.Join(workDir, "input.mp4")
	r.logStep(6, "Downloading %s...", assetURL)
	if err := media.Download(ctx, nil, assetURL, r.cfg.ApifyToken, inputPath); err != nil {
		return nil, fmt.Errorf("downloading media failed: %w", err)
	}
	if _, err := os.Stat(inputPath); err != nil {
		return nil, fmt.Errorf("downloaded file missing: %w", err)
	}

	// Step 7: brand
	outputName := r.now().UTC().Format("2006-01-02") + media.VideoExtension
	outputPath := filepath.Join(workDir, outputName)
	r.logStep(7, "Branding with %s...", r.cfg.LogoPath)
	if err := brand.Brand(ctx, inputPath, r.cfg.LogoPath, outputPath); err != nil {
		return nil, fmt.Errorf("branding failed: %w", err)
	}
	// ffmpeg exiting zero without producing output still fails the run.
	if _, err := os.Stat(outputPath); err != nil {
		return nil, fmt.Errorf("branded file missing after transform: %w", err)
	}

	// Step 8: publish
	r.logStep(8, "Publishing %s...", outputName)
	publishedID, err := r.blobs.UploadFile(ctx, r.cfg.DriveFolderID, outputPath, "video/mp4")
	if err != nil {
		return nil, fmt.Errorf("publishing failed: %w", err)
	}
	fmt.Fprintf(r.out, "Published fileId: %s name: %s\n", publishedID, outputName)
	r.saveArtifact(ctx, db.StepPublished, db.CategoryPublishing, map[string]string{
		"fileId": publishedID, "name": outputName,
	})

	// Step 9: record dedupe. Only reachable after a successful publish; a
	// crash between the two costs at most one duplicate upload on the next
	// run, never a false dedupe entry.
	r.logStep(9, "Recording dedupe entry...")
	if winner.ID == "" {
		fmt.Fprintf(r.out, "Warning: winner has no id field; cannot dedupe this run.\n")
	} else {
		seen.Add(winner.ID)
		seenFileID, err = store.SaveSeen(ctx, r.blobs, r.cfg.DriveFolderID, seen, seenFileID)
		if err != nil {
			return nil, fmt.Errorf("recording dedupe entry failed (already published %s): %w", publishedID, err)
		}
		fmt.Fprintf(r.out, "Updated %s fileId: %s added: %s\n", store.SeenFilename, seenFileID, winner.ID)
		r.saveArtifact(ctx, db.StepDedupeFile, db.CategoryPublishing, seenFileID)
	}

	fmt.Fprintf(r.out, "Done.\n")
	return &Result{Winner: winner, PublishedFileID: publishedID, OutputName: outputName}, nil
}

func (r *runner) startAndAwait(ctx context.Context, payload map[string]any) (*apify.RunInfo, error) {
	runID, err := r.jobs.StartRun(ctx, payload)
	if err != nil {
		return nil, err
	}
	return r.jobs.AwaitRun(ctx, runID)
}

// workDir resolves the local directory owning this run's transient files.
// Artifacts of failed runs are deliberately left in place for inspection.
func (r *runner) workDir() (string, error) {
	if r.cfg.WorkDir != "" {
		dir := filepath.Join(r.cfg.WorkDir, uuid.NewString())
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", err
		}
		return dir, nil
	}
	return os.MkdirTemp("", "clip-curator-*")
}
