package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tyler/clip-curator/internal/apify"
	"github.com/tyler/clip-curator/internal/config"
	"github.com/tyler/clip-curator/internal/scoring"
	"github.com/tyler/clip-curator/internal/store"
)

var testNow = time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)

// fakeBlobs is an in-memory BlobStore that records the order of mutating
// operations so publish-before-record can be asserted.
type fakeBlobs struct {
	files     map[string]string // fileID -> content
	names     map[string]string // name -> fileID
	ops       []string
	nextID    int
	uploadErr error
	saveErr   error
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{files: map[string]string{}, names: map[string]string{}}
}

func (f *fakeBlobs) seed(name, content string) string {
	f.nextID++
	id := fmt.Sprintf("file-%d", f.nextID)
	f.names[name] = id
	f.files[id] = content
	return id
}

func (f *fakeBlobs) FindFile(_ context.Context, _, name string) (string, error) {
	return f.names[name], nil
}

func (f *fakeBlobs) DownloadText(_ context.Context, fileID string) (string, error) {
	return f.files[fileID], nil
}

func (f *fakeBlobs) UploadText(_ context.Context, _, name, content, existingFileID string) (string, error) {
	if f.saveErr != nil {
		return "", f.saveErr
	}
	f.ops = append(f.ops, "uploadText:"+name)
	id := existingFileID
	if id == "" {
		id = f.seed(name, content)
		return id, nil
	}
	f.files[id] = content
	return id, nil
}

func (f *fakeBlobs) UploadFile(_ context.Context, _, path, mimeType string) (string, error) {
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	f.ops = append(f.ops, "uploadFile:"+filepath.Base(path))
	return f.seed(filepath.Base(path), mimeType), nil
}

func (f *fakeBlobs) seenContent() string {
	return f.files[f.names[store.SeenFilename]]
}

// fakeActorAPI serves the actor endpoints plus a media download endpoint.
type fakeActorAPI struct {
	srv        *httptest.Server
	runsStart  atomic.Int32
	mediaHits  atomic.Int32
	scrapeItem []map[string]any
}

func newFakeActorAPI(t *testing.T, scrapeItems []map[string]any) *fakeActorAPI {
	t.Helper()
	f := &fakeActorAPI{scrapeItem: scrapeItems}
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v2/acts/actor-1/runs", func(w http.ResponseWriter, _ *http.Request) {
		n := f.runsStart.Add(1)
		w.Header().Set("Location", fmt.Sprintf("/v2/actor-runs/run-%d", n))
		w.WriteHeader(http.StatusCreated)
	})
	mux.HandleFunc("GET /v2/actor-runs/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		ds := "ds-1"
		if strings.HasSuffix(id, "2") {
			ds = "ds-2"
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"id": id, "status": apify.StatusSucceeded, "defaultDatasetId": ds},
		})
	})
	mux.HandleFunc("GET /v2/datasets/ds-1/items", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(f.scrapeItem)
	})
	mux.HandleFunc("GET /v2/datasets/ds-2/items", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode([]map[string]any{
			{"mediaUrls": []string{f.srv.URL + "/media/clip.mp4"}},
		})
	})
	mux.HandleFunc("GET /media/clip.mp4", func(w http.ResponseWriter, _ *http.Request) {
		f.mediaHits.Add(1)
		_, _ = w.Write([]byte("mp4-bytes"))
	})

	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeActorAPI) client() *apify.Client {
	return &apify.Client{
		BaseURL: f.srv.URL,
		Token:   "tok",
		ActorID: "actor-1",
		Sleep:   func(context.Context, time.Duration) error { return nil },
	}
}

// installFakeFFmpeg puts a shell stand-in on PATH that creates the output
// file (the last argument) unless told not to.
func installFakeFFmpeg(t *testing.T, createOutput bool) {
	t.Helper()
	dir := t.TempDir()
	script := "#!/bin/sh\nfor out in \"$@\"; do :; done\n"
	if createOutput {
		script += ": > \"$out\"\n"
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ffmpeg"), []byte(script), 0o755))
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
}

func scrapeItem(id string, age time.Duration, views int64) map[string]any {
	return map[string]any{
		"id":            id,
		"createTimeISO": testNow.Add(-age).Format(time.RFC3339),
		"playCount":     views,
		"diggCount":     views / 100,
		"shareCount":    views / 50,
		"webVideoUrl":   "https://www.tiktok.com/@u/video/" + id,
	}
}

func testOptions(t *testing.T, api *fakeActorAPI, blobs *fakeBlobs) Options {
	t.Helper()
	dir := t.TempDir()
	logo := filepath.Join(dir, "logo.png")
	require.NoError(t, os.WriteFile(logo, []byte("png"), 0o644))

	cfg := config.Defaults()
	cfg.ApifyToken = "tok"
	cfg.ApifyActorID = "actor-1"
	cfg.DriveFolderID = "folder"
	cfg.ServiceAccountJSON = "{}"
	cfg.WorkDir = dir
	cfg.LogoPath = logo

	return Options{
		Config: cfg,
		Store:  blobs,
		Jobs:   api.client(),
		Out:    io.Discard,
		Now:    func() time.Time { return testNow },
	}
}

func TestRun_EndToEnd(t *testing.T) {
	installFakeFFmpeg(t, true)
	api := newFakeActorAPI(t, []map[string]any{
		scrapeItem("a", 2*time.Hour, 50000),
		scrapeItem("b", 1*time.Hour, 10000),
	})
	blobs := newFakeBlobs()

	res, err := Run(context.Background(), testOptions(t, api, blobs))

	require.NoError(t, err)
	assert.Equal(t, "a", res.Winner.ID)
	assert.Equal(t, "2026-08-26.mp4", res.OutputName)
	assert.NotEmpty(t, res.PublishedFileID)
	assert.False(t, res.DryRun)

	// Both extraction runs were started, the media was fetched once.
	assert.Equal(t, int32(2), api.runsStart.Load())
	assert.Equal(t, int32(1), api.mediaHits.Load())

	// The dedupe record now holds the winner.
	assert.JSONEq(t, `["a"]`, blobs.seenContent())

	// The load-bearing ordering: publish strictly precedes the record.
	require.Len(t, blobs.ops, 2)
	assert.Equal(t, "uploadFile:2026-08-26.mp4", blobs.ops[0])
	assert.Equal(t, "uploadText:"+store.SeenFilename, blobs.ops[1])
}

func TestRun_PublishFailureSkipsDedupeRecord(t *testing.T) {
	installFakeFFmpeg(t, true)
	api := newFakeActorAPI(t, []map[string]any{scrapeItem("a", 2*time.Hour, 50000)})
	blobs := newFakeBlobs()
	blobs.uploadErr = errors.New("drive quota exceeded")

	_, err := Run(context.Background(), testOptions(t, api, blobs))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "publishing failed")
	// No publish, no dedupe entry: the candidate stays selectable.
	assert.Empty(t, blobs.seenContent())
	assert.Empty(t, blobs.ops)
}

func TestRun_DryRunStopsBeforeSideEffects(t *testing.T) {
	api := newFakeActorAPI(t, []map[string]any{scrapeItem("a", 2*time.Hour, 50000)})
	blobs := newFakeBlobs()
	opts := testOptions(t, api, blobs)
	opts.Config.DryRun = true

	res, err := Run(context.Background(), opts)

	require.NoError(t, err)
	assert.True(t, res.DryRun)
	assert.Equal(t, "a", res.Winner.ID)
	assert.Empty(t, res.PublishedFileID)

	// Selection ran (one extraction), but nothing was downloaded, branded,
	// published or recorded.
	assert.Equal(t, int32(1), api.runsStart.Load())
	assert.Zero(t, api.mediaHits.Load())
	assert.Empty(t, blobs.ops)
}

func TestRun_SeenWinnerExcluded(t *testing.T) {
	installFakeFFmpeg(t, true)
	api := newFakeActorAPI(t, []map[string]any{
		scrapeItem("a", 2*time.Hour, 50000),
		scrapeItem("b", 1*time.Hour, 10000),
	})
	blobs := newFakeBlobs()
	blobs.seed(store.SeenFilename, `["a"]`)

	res, err := Run(context.Background(), testOptions(t, api, blobs))

	require.NoError(t, err)
	assert.Equal(t, "b", res.Winner.ID)
	// The record was updated in place and keeps both ids, sorted.
	assert.JSONEq(t, `["a","b"]`, blobs.seenContent())
}

func TestRun_NoCandidatesAbortsBeforeSecondRun(t *testing.T) {
	api := newFakeActorAPI(t, []map[string]any{})
	blobs := newFakeBlobs()

	_, err := Run(context.Background(), testOptions(t, api, blobs))

	require.Error(t, err)
	var noCand *scoring.NoCandidatesError
	require.ErrorAs(t, err, &noCand)
	assert.Equal(t, int32(1), api.runsStart.Load())
	assert.Empty(t, blobs.ops)
}

func TestRun_MissingTransformOutputFails(t *testing.T) {
	// ffmpeg exits zero but writes nothing: must be treated as failure.
	installFakeFFmpeg(t, false)
	api := newFakeActorAPI(t, []map[string]any{scrapeItem("a", 2*time.Hour, 50000)})
	blobs := newFakeBlobs()

	_, err := Run(context.Background(), testOptions(t, api, blobs))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "branded file missing")
	assert.Empty(t, blobs.ops)
	assert.Empty(t, blobs.seenContent())
}

func TestRun_WinnerWithoutIDPublishesButSkipsRecord(t *testing.T) {
	installFakeFFmpeg(t, true)
	item := scrapeItem("", 2*time.Hour, 50000)
	delete(item, "id")
	api := newFakeActorAPI(t, []map[string]any{item})
	blobs := newFakeBlobs()

	res, err := Run(context.Background(), testOptions(t, api, blobs))

	require.NoError(t, err)
	assert.NotEmpty(t, res.PublishedFileID)
	// Published, but no dedupe entry could be written.
	require.Len(t, blobs.ops, 1)
	assert.Equal(t, "uploadFile:2026-08-26.mp4", blobs.ops[0])
	assert.Empty(t, blobs.seenContent())
}

func TestRun_DedupeSaveFailureSurfacesAfterPublish(t *testing.T) {
	installFakeFFmpeg(t, true)
	api := newFakeActorAPI(t, []map[string]any{scrapeItem("a", 2*time.Hour, 50000)})
	blobs := newFakeBlobs()
	blobs.saveErr = errors.New("write denied")

	_, err := Run(context.Background(), testOptions(t, api, blobs))

	// The publish happened; the failed record update is surfaced with the
	// published file named for manual cleanup.
	require.Error(t, err)
	assert.Contains(t, err.Error(), "recording dedupe entry failed")
	assert.Contains(t, err.Error(), "already published")
	require.Len(t, blobs.ops, 1)
	assert.Equal(t, "uploadFile:2026-08-26.mp4", blobs.ops[0])
}
