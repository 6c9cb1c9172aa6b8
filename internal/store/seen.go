package store

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/tyler/clip-curator/internal/schemas"
)

// SeenFilename is the name of the dedupe record inside the target folder.
const SeenFilename = "seen.json"

// seenSchema describes the persisted dedupe record: a JSON array of string
// identifiers. Anything else in the file counts as corruption.
const seenSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "array",
	"items": {"type": "string"}
}`

// SeenSet is the set of candidate identifiers that were ever published.
type SeenSet map[string]struct{}

// NewSeenSet builds a set from the given identifiers, ignoring empties.
func NewSeenSet(ids ...string) SeenSet {
	s := make(SeenSet, len(ids))
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Add inserts an identifier. Empty identifiers are dropped.
func (s SeenSet) Add(id string) {
	if id == "" {
		return
	}
	s[id] = struct{}{}
}

// Contains reports whether the identifier was published before.
func (s SeenSet) Contains(id string) bool {
	_, ok := s[id]
	return ok
}

// Len returns the number of recorded identifiers.
func (s SeenSet) Len() int {
	return len(s)
}

// Sorted returns the identifiers in ascending order, the persisted form.
func (s SeenSet) Sorted() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// LoadSeen loads the dedupe record from the folder. A missing record yields
// an empty set and an empty handle. A record that cannot be downloaded or
// does not hold a JSON array of strings yields an empty set but keeps the
// existing handle, so the next save overwrites the broken file instead of
// creating a duplicate.
func LoadSeen(ctx context.Context, bs BlobStore, folderID string) (SeenSet, string, error) {
	fileID, err := bs.FindFile(ctx, folderID, SeenFilename)
	if err != nil {
		return nil, "", &Error{Op: "load seen ids", Cause: err}
	}
	if fileID == "" {
		return NewSeenSet(), "", nil
	}

	raw, err := bs.DownloadText(ctx, fileID)
	if err != nil {
		return NewSeenSet(), fileID, nil
	}
	if err := schemas.ValidateJSONString(seenSchema, raw); err != nil {
		return NewSeenSet(), fileID, nil
	}

	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return NewSeenSet(), fileID, nil
	}
	return NewSeenSet(ids...), fileID, nil
}

// SaveSeen persists the set as a sorted JSON array, creating the record when
// fileID is empty and updating it in place otherwise. The record content is
// written in a single upload; there is no partial-write path.
func SaveSeen(ctx context.Context, bs BlobStore, folderID string, set SeenSet, fileID string) (string, error) {
	content, err := json.MarshalIndent(set.Sorted(), "", "  ")
	if err != nil {
		return "", &Error{Op: "encode seen ids", Cause: err}
	}

	newID, err := bs.UploadText(ctx, folderID, SeenFilename, string(content), fileID)
	if err != nil {
		return "", &Error{Op: "save seen ids", Cause: err}
	}
	return newID, nil
}
