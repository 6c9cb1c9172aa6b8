// Package brand applies the channel's visual branding to a downloaded video
// by compositing a logo overlay with ffmpeg.
package brand

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// filterGraph composites the logo at ~18% opacity, scaled to ~12% of the
// source width with aspect ratio preserved, into the bottom-right corner
// with a 24 px margin, over the full duration.
const filterGraph = "[1:v]colorchannelmixer=aa=0.18,scale=iw*0.12:-1[logo];" +
	"[0:v][logo]overlay=W-w-24:H-h-24:format=auto,format=yuv420p"

// ToolNotFoundError indicates ffmpeg is not resolvable on the execution path.
type ToolNotFoundError struct {
	Tool  string
	Cause error
}

func (e *ToolNotFoundError) Error() string {
	return fmt.Sprintf("%s not found on PATH: %v", e.Tool, e.Cause)
}

func (e *ToolNotFoundError) Unwrap() error {
	return e.Cause
}

// MissingAssetError indicates the overlay asset file does not exist.
type MissingAssetError struct {
	Path string
}

func (e *MissingAssetError) Error() string {
	return fmt.Sprintf("missing overlay asset file: %s", e.Path)
}

// TransformError indicates ffmpeg exited non-zero.
type TransformError struct {
	ExitCode int
	Stderr   string
	Cause    error
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("ffmpeg exited with code %d: %s", e.ExitCode, strings.TrimSpace(e.Stderr))
}

func (e *TransformError) Unwrap() error {
	return e.Cause
}

// Brand composites the logo onto the input video and writes the result to
// outputPath. The audio stream is copied through unmodified. The call blocks
// until ffmpeg finishes; the caller is expected to verify the output file
// exists afterwards, since a clean exit without output is still a failure.
func Brand(ctx context.Context, inputPath, logoPath, outputPath string) error {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return &ToolNotFoundError{Tool: "ffmpeg", Cause: err}
	}
	if _, err := os.Stat(logoPath); err != nil {
		return &MissingAssetError{Path: logoPath}
	}

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-y",
		"-i", inputPath,
		"-i", logoPath,
		"-filter_complex", filterGraph,
		"-c:a", "copy",
		outputPath,
	)

	var stderr strings.Builder
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		return &TransformError{ExitCode: exitCode, Stderr: stderr.String(), Cause: err}
	}
	return nil
}
