package apify

import "fmt"

// SubmissionError indicates that a run could not be started: the API either
// rejected the request or answered without a usable run identifier.
type SubmissionError struct {
	StatusCode int
	Body       string
	Cause      error
}

func (e *SubmissionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("actor run submission failed: %v", e.Cause)
	}
	return fmt.Sprintf("actor run submission failed: no run id in response (status=%d body=%s)", e.StatusCode, e.Body)
}

func (e *SubmissionError) Unwrap() error {
	return e.Cause
}

// PollError indicates the run status endpoint answered with an error or an
// envelope carrying no run status. The wait stops on it immediately: only an
// unknown status keeps the poll going, never an error response.
type PollError struct {
	RunID      string
	StatusCode int
	Body       string
	Cause      error
}

func (e *PollError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("polling run %s: %v", e.RunID, e.Cause)
	}
	return fmt.Sprintf("polling run %s: status=%d body=%s", e.RunID, e.StatusCode, e.Body)
}

func (e *PollError) Unwrap() error {
	return e.Cause
}

// RunError indicates that a run reached a terminal state other than
// SUCCEEDED. LogTail carries the end of the run's log for diagnosis.
type RunError struct {
	RunID         string
	Status        string
	StatusMessage string
	LogTail       string
}

func (e *RunError) Error() string {
	return fmt.Sprintf("actor run %s did not succeed: status=%s statusMessage=%s\n\nLog tail:\n%s",
		e.RunID, e.Status, e.StatusMessage, e.LogTail)
}

// PayloadError indicates a dataset response of an unexpected shape.
type PayloadError struct {
	DatasetID string
	Detail    string
}

func (e *PayloadError) Error() string {
	return fmt.Sprintf("unexpected dataset %s payload: %s", e.DatasetID, e.Detail)
}
