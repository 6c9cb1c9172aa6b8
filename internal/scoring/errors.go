package scoring

import "fmt"

// NoCandidatesError indicates that every fetched record was filtered out.
// It names the tunable knobs so an operator can adjust and rerun.
type NoCandidatesError struct {
	Fetched     int
	MinViews    int64
	MaxAgeHours float64
}

func (e *NoCandidatesError) Error() string {
	return fmt.Sprintf(
		"no candidates survived filtering (fetched %d records, minViews=%d, maxAgeHours=%g): increase the batch size or lower the view/age thresholds",
		e.Fetched, e.MinViews, e.MaxAgeHours)
}
