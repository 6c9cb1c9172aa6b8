// Package apify provides a client for starting actor runs, waiting for them
// to finish, and fetching their dataset results.
package apify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the public API endpoint.
	DefaultBaseURL = "https://api.apify.com"

	// pollInterval is the fixed wait between run status checks. Polling is
	// unbounded: a run is waited on until it reaches a terminal state or the
	// context is cancelled.
	pollInterval = 3 * time.Second

	// logTailBytes is how much of the run log is kept on failure.
	logTailBytes = 2000

	// logFetchLimit is the byte window requested from the log endpoint.
	logFetchLimit = 4000

	// excerptLimit caps how much of an error response body is carried in
	// error messages.
	excerptLimit = 500

	requestTimeout = 60 * time.Second
)

// Terminal run statuses. Anything else means the run is still in flight.
const (
	StatusSucceeded = "SUCCEEDED"
	StatusFailed    = "FAILED"
	StatusAborted   = "ABORTED"
	StatusTimedOut  = "TIMED-OUT"
)

// SleepFunc waits for d or until ctx is done. Injectable so tests can drive
// the poll loop without real delays.
type SleepFunc func(ctx context.Context, d time.Duration) error

// RunInfo is the subset of a run envelope the pipeline needs.
type RunInfo struct {
	ID               string `json:"id"`
	Status           string `json:"status"`
	StatusMessage    string `json:"statusMessage"`
	DefaultDatasetID string `json:"defaultDatasetId"`
}

// Client talks to the actor API. Zero values for BaseURL, HTTPClient and
// Sleep fall back to production defaults.
type Client struct {
	BaseURL    string
	Token      string
	ActorID    string
	HTTPClient *http.Client
	Sleep      SleepFunc
}

// NewClient returns a Client with production defaults for the given
// credentials.
func NewClient(token, actorID string) *Client {
	return &Client{
		BaseURL: DefaultBaseURL,
		Token:   token,
		ActorID: actorID,
	}
}

func (c *Client) baseURL() string {
	if c.BaseURL != "" {
		return strings.TrimRight(c.BaseURL, "/")
	}
	return DefaultBaseURL
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: requestTimeout}
}

func (c *Client) sleep(ctx context.Context, d time.Duration) error {
	if c.Sleep != nil {
		return c.Sleep(ctx, d)
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// StartRun submits an asynchronous actor run and returns its id. The create
// endpoint signals the new run through a Location header whose final path
// segment is the run id; a non-2xx answer or a response without that header
// is a submission failure.
func (c *Client) StartRun(ctx context.Context, payload any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", &SubmissionError{Cause: fmt.Errorf("encoding run payload: %w", err)}
	}

	endpoint := fmt.Sprintf("%s/v2/acts/%s/runs?token=%s", c.baseURL(), url.PathEscape(c.ActorID), url.QueryEscape(c.Token))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", &SubmissionError{Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return "", &SubmissionError{Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &SubmissionError{StatusCode: resp.StatusCode, Body: readExcerpt(resp.Body)}
	}

	loc := resp.Header.Get("Location")
	if loc == "" {
		return "", &SubmissionError{StatusCode: resp.StatusCode, Body: readExcerpt(resp.Body)}
	}

	loc = strings.TrimRight(loc, "/")
	runID := loc[strings.LastIndex(loc, "/")+1:]
	if runID == "" {
		return "", &SubmissionError{StatusCode: resp.StatusCode, Body: "empty run id in Location header"}
	}
	return runID, nil
}

// AwaitRun polls the run until it reaches a terminal state. SUCCEEDED
// returns the run envelope; any other terminal state returns a RunError
// carrying the status, status message and the tail of the run log. Statuses
// outside the terminal set keep the poll going; an error response from the
// status endpoint stops it with a PollError.
func (c *Client) AwaitRun(ctx context.Context, runID string) (*RunInfo, error) {
	for {
		run, err := c.getRun(ctx, runID)
		if err != nil {
			return nil, err
		}

		switch run.Status {
		case StatusSucceeded:
			return run, nil
		case StatusFailed, StatusAborted, StatusTimedOut:
			return nil, &RunError{
				RunID:         runID,
				Status:        run.Status,
				StatusMessage: run.StatusMessage,
				LogTail:       c.fetchLogTail(ctx, runID),
			}
		}

		if err := c.sleep(ctx, pollInterval); err != nil {
			return nil, err
		}
	}
}

func (c *Client) getRun(ctx context.Context, runID string) (*RunInfo, error) {
	endpoint := fmt.Sprintf("%s/v2/actor-runs/%s?token=%s", c.baseURL(), url.PathEscape(runID), url.QueryEscape(c.Token))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, &PollError{RunID: runID, Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, logFetchLimit))
	if err != nil {
		return nil, &PollError{RunID: runID, Cause: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &PollError{RunID: runID, StatusCode: resp.StatusCode, Body: excerpt(raw)}
	}

	var envelope struct {
		Data RunInfo `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, &PollError{RunID: runID, Cause: fmt.Errorf("decoding run status: %w", err)}
	}
	if envelope.Data.Status == "" {
		return nil, &PollError{RunID: runID, StatusCode: resp.StatusCode, Body: excerpt(raw)}
	}
	return &envelope.Data, nil
}

func readExcerpt(r io.Reader) string {
	raw, _ := io.ReadAll(io.LimitReader(r, excerptLimit))
	return string(raw)
}

func excerpt(raw []byte) string {
	if len(raw) > excerptLimit {
		raw = raw[:excerptLimit]
	}
	return string(raw)
}

// fetchLogTail returns the last logTailBytes of the run log, best effort.
func (c *Client) fetchLogTail(ctx context.Context, runID string) string {
	endpoint := fmt.Sprintf("%s/v2/actor-runs/%s/log?token=%s&offset=0&limit=%d",
		c.baseURL(), url.PathEscape(runID), url.QueryEscape(c.Token), logFetchLimit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return ""
	}
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return ""
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return ""
	}
	log := string(raw)
	if len(log) > logTailBytes {
		log = log[len(log)-logTailBytes:]
	}
	return log
}

// DatasetItems fetches the cleaned items of a dataset. The endpoint answers
// with either a bare array or an {"items": [...]} envelope; both are
// accepted, anything else is a PayloadError. Items are returned undecoded
// beyond JSON: malformed (non-object) entries stay in the slice and are
// skipped downstream by the scoring filter. Numbers decode as json.Number so
// wide integral ids survive verbatim.
func (c *Client) DatasetItems(ctx context.Context, datasetID string) ([]any, error) {
	endpoint := fmt.Sprintf("%s/v2/datasets/%s/items?clean=true&token=%s",
		c.baseURL(), url.PathEscape(datasetID), url.QueryEscape(c.Token))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching dataset %s: %w", datasetID, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetching dataset %s: status=%d body=%s", datasetID, resp.StatusCode, readExcerpt(resp.Body))
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading dataset %s: %w", datasetID, err)
	}

	if items, err := decodeItemArray(raw); err == nil {
		if items == nil {
			return nil, &PayloadError{DatasetID: datasetID, Detail: "payload is null"}
		}
		return items, nil
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, &PayloadError{DatasetID: datasetID, Detail: "payload is neither an array nor an object"}
	}
	inner, ok := envelope["items"]
	if !ok {
		keys := make([]string, 0, len(envelope))
		for k := range envelope {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return nil, &PayloadError{DatasetID: datasetID, Detail: fmt.Sprintf("object payload has no items field (keys=%v)", keys)}
	}
	items, err := decodeItemArray(inner)
	if err != nil {
		return nil, &PayloadError{DatasetID: datasetID, Detail: fmt.Sprintf("items field is not an array: %v", err)}
	}
	if items == nil {
		return nil, &PayloadError{DatasetID: datasetID, Detail: "items field is null"}
	}
	return items, nil
}

// decodeItemArray decodes a JSON array preserving numbers as json.Number. A
// JSON null decodes without error into a nil slice, which callers reject.
func decodeItemArray(raw []byte) ([]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var items []any
	if err := dec.Decode(&items); err != nil {
		return nil, err
	}
	return items, nil
}
