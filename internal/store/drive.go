package store

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// DriveStore implements BlobStore on top of Google Drive using a service
// account. Every call sets SupportsAllDrives so shared-drive folders work.
type DriveStore struct {
	svc *drive.Service
}

// NewDriveStore builds a Drive client from service-account JSON credentials,
// scoped to files the service account creates or is granted.
func NewDriveStore(ctx context.Context, serviceAccountJSON []byte) (*DriveStore, error) {
	svc, err := drive.NewService(ctx,
		option.WithCredentialsJSON(serviceAccountJSON),
		option.WithScopes(drive.DriveFileScope),
	)
	if err != nil {
		return nil, &Error{Op: "create drive service", Cause: err}
	}
	return &DriveStore{svc: svc}, nil
}

// FindFile looks up a file by name inside the folder. Returns "" when the
// file does not exist. When several files share the name, the first match
// wins.
func (d *DriveStore) FindFile(ctx context.Context, folderID, name string) (string, error) {
	query := fmt.Sprintf("name='%s' and '%s' in parents and trashed=false",
		strings.ReplaceAll(name, "'", `\'`), folderID)
	res, err := d.svc.Files.List().
		Q(query).
		Fields("files(id,name)").
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return "", &Error{Op: "list files", Cause: err}
	}
	if len(res.Files) == 0 {
		return "", nil
	}
	return res.Files[0].Id, nil
}

// DownloadText fetches the content of a stored file as a string.
func (d *DriveStore) DownloadText(ctx context.Context, fileID string) (string, error) {
	resp, err := d.svc.Files.Get(fileID).SupportsAllDrives(true).Context(ctx).Download()
	if err != nil {
		return "", &Error{Op: "download file", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &Error{Op: "read file content", Cause: err}
	}
	return string(raw), nil
}

// UploadText creates or updates a JSON text file in the folder.
func (d *DriveStore) UploadText(ctx context.Context, folderID, name, content, existingFileID string) (string, error) {
	media := strings.NewReader(content)

	if existingFileID != "" {
		_, err := d.svc.Files.Update(existingFileID, &drive.File{Name: name}).
			Media(media, googleapi.ContentType("application/json")).
			SupportsAllDrives(true).
			Context(ctx).
			Do()
		if err != nil {
			return "", &Error{Op: "update text file", Cause: err}
		}
		return existingFileID, nil
	}

	created, err := d.svc.Files.Create(&drive.File{Name: name, Parents: []string{folderID}}).
		Media(media, googleapi.ContentType("application/json")).
		Fields("id").
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return "", &Error{Op: "create text file", Cause: err}
	}
	return created.Id, nil
}

// UploadFile streams a local file into the folder.
func (d *DriveStore) UploadFile(ctx context.Context, folderID, path, mimeType string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", &Error{Op: "open upload source", Cause: err}
	}
	defer func() { _ = f.Close() }()

	created, err := d.svc.Files.Create(&drive.File{Name: filepath.Base(path), Parents: []string{folderID}}).
		Media(f, googleapi.ContentType(mimeType)).
		Fields("id, name").
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return "", &Error{Op: "upload file", Cause: err}
	}
	return created.Id, nil
}
