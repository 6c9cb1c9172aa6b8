// Package store provides the durable blob store used for publishing branded
// videos and for the dedupe record that remembers which candidates were
// already published.
package store

import (
	"context"
	"fmt"
)

// BlobStore is the minimal surface the pipeline needs from a durable object
// store. Implemented by DriveStore; tests substitute in-memory fakes.
type BlobStore interface {
	// FindFile returns the id of the named file inside the folder, or ""
	// when no such file exists.
	FindFile(ctx context.Context, folderID, name string) (string, error)

	// DownloadText fetches the full content of a stored text file.
	DownloadText(ctx context.Context, fileID string) (string, error)

	// UploadText creates or replaces a text file. When existingFileID is
	// non-empty the file is updated in place, otherwise a new file is
	// created inside the folder. Returns the file id either way.
	UploadText(ctx context.Context, folderID, name, content, existingFileID string) (string, error)

	// UploadFile uploads a local file into the folder and returns its id.
	UploadFile(ctx context.Context, folderID, path, mimeType string) (string, error)
}

// Error represents a store operation failure.
type Error struct {
	Op    string
	Cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("store %s failed: %v", e.Op, e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Cause
}
