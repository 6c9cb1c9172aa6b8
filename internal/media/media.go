// Package media resolves downloadable asset URLs from actor result items
// and streams them to local storage.
package media

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"
)

// VideoExtension is the media extension preferred during URL resolution.
const VideoExtension = ".mp4"

// chunkSize is the streaming buffer for downloads.
const chunkSize = 1 << 20 // 1 MiB

// NoMediaURLError indicates the result item carried no usable media URL.
// Keys names the item's available fields for diagnosis.
type NoMediaURLError struct {
	Keys []string
}

func (e *NoMediaURLError) Error() string {
	return fmt.Sprintf("no media URL found in result item (available fields: %v)", e.Keys)
}

// DownloadError indicates a failed asset transfer.
type DownloadError struct {
	URL    string
	Detail string
	Cause  error
}

func (e *DownloadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("download of %s failed: %s: %v", e.URL, e.Detail, e.Cause)
	}
	return fmt.Sprintf("download of %s failed: %s", e.URL, e.Detail)
}

func (e *DownloadError) Unwrap() error {
	return e.Cause
}

// ResolveAssetURL extracts a downloadable URL from a result item's mediaUrls
// field, which may be a single string or a list. An entry ending in .mp4 is
// preferred; otherwise the first entry is used.
func ResolveAssetURL(item map[string]any) (string, error) {
	var urls []string
	switch v := item["mediaUrls"].(type) {
	case string:
		if v != "" {
			urls = []string{v}
		}
	case []any:
		for _, entry := range v {
			if s, ok := entry.(string); ok && s != "" {
				urls = append(urls, s)
			}
		}
	case []string:
		urls = v
	}

	if len(urls) == 0 {
		keys := make([]string, 0, len(item))
		for k := range item {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return "", &NoMediaURLError{Keys: keys}
	}

	for _, u := range urls {
		if strings.HasSuffix(strings.ToLower(u), VideoExtension) {
			return u, nil
		}
	}
	return urls[0], nil
}

// Download streams the asset at rawURL to destPath in 1 MiB chunks. The
// storage endpoint requires the same access token used for job submission,
// attached as a query parameter.
func Download(ctx context.Context, client *http.Client, rawURL, token, destPath string) error {
	if client == nil {
		client = http.DefaultClient
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return &DownloadError{URL: rawURL, Detail: "invalid URL", Cause: err}
	}
	if token != "" {
		q := u.Query()
		q.Set("token", token)
		u.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return &DownloadError{URL: rawURL, Detail: "building request", Cause: err}
	}

	resp, err := client.Do(req)
	if err != nil {
		return &DownloadError{URL: rawURL, Detail: "request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return &DownloadError{URL: rawURL, Detail: fmt.Sprintf("HTTP status %d", resp.StatusCode)}
	}

	out, err := os.Create(destPath)
	if err != nil {
		return &DownloadError{URL: rawURL, Detail: "creating destination file", Cause: err}
	}
	defer func() { _ = out.Close() }()

	buf := make([]byte, chunkSize)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, writeErr := out.Write(buf[:n]); writeErr != nil {
				return &DownloadError{URL: rawURL, Detail: "writing chunk", Cause: writeErr}
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return &DownloadError{URL: rawURL, Detail: "reading response", Cause: readErr}
		}
	}

	if err := out.Close(); err != nil {
		return &DownloadError{URL: rawURL, Detail: "flushing destination file", Cause: err}
	}
	return nil
}
