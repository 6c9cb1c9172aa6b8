// Package types provides type definitions for structured data used throughout the clip-curator system.
package types

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Candidate is a single scraped video record as produced by an extraction
// run. The named fields are the ones the scoring engine understands; every
// other key from the raw item is preserved in Extra untouched.
type Candidate struct {
	ID          string         `json:"id"`
	CreateTime  string         `json:"createTimeISO"`
	Views       int64          `json:"playCount"`
	Likes       int64          `json:"diggCount"`
	Shares      int64          `json:"shareCount"`
	WebVideoURL string         `json:"webVideoUrl"`
	Extra       map[string]any `json:"extra,omitempty"`
}

// ScoredCandidate is a Candidate plus its computed score.
type ScoredCandidate struct {
	Candidate
	Score float64 `json:"score"`
}

// recognized lists the raw item keys that map onto named Candidate fields.
var recognized = map[string]bool{
	"id":            true,
	"createTimeISO": true,
	"playCount":     true,
	"diggCount":     true,
	"shareCount":    true,
	"webVideoUrl":   true,
}

// CandidateFromRaw converts a raw dataset item into a Candidate. The actor
// API is loosely typed, so string/number shapes are tolerated for the id and
// counter fields; negative counters clamp to zero. Unrecognized keys are
// carried through in Extra.
func CandidateFromRaw(raw map[string]any) Candidate {
	c := Candidate{
		ID:          stringField(raw["id"]),
		CreateTime:  stringField(raw["createTimeISO"]),
		Views:       countField(raw["playCount"]),
		Likes:       countField(raw["diggCount"]),
		Shares:      countField(raw["shareCount"]),
		WebVideoURL: stringField(raw["webVideoUrl"]),
	}

	for k, v := range raw {
		if recognized[k] {
			continue
		}
		if c.Extra == nil {
			c.Extra = make(map[string]any)
		}
		c.Extra[k] = v
	}

	return c
}

// stringField coerces a raw value into a trimmed string identifier.
func stringField(v any) string {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case json.Number:
		return x.String()
	case float64:
		// JSON numbers decode as float64; ids are integral in practice.
		return strconv.FormatInt(int64(x), 10)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	default:
		return ""
	}
}

// countField coerces a raw value into a non-negative counter.
func countField(v any) int64 {
	var n int64
	switch x := v.(type) {
	case float64:
		n = int64(x)
	case int:
		n = int64(x)
	case int64:
		n = x
	case json.Number:
		parsed, err := x.Int64()
		if err != nil {
			return 0
		}
		n = parsed
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		if err != nil {
			return 0
		}
		n = parsed
	default:
		return 0
	}
	if n < 0 {
		return 0
	}
	return n
}
