// Package scoring filters and ranks scraped video candidates into a single
// winner.
package scoring

import (
	"math"
	"time"

	"github.com/tyler/clip-curator/internal/store"
	"github.com/tyler/clip-curator/internal/types"
)

// Params are the tunable selection knobs. Now is injected so scoring stays a
// pure function of its inputs.
type Params struct {
	MinViews    int64
	MaxAgeHours float64
	Now         time.Time
}

// engagementFloor keeps a zero-engagement candidate from collapsing to a
// hard zero score, preserving a total ordering over high-velocity posts.
const engagementFloor = 1e-6

// Score computes the candidate score from its counters and age.
//
// log10(views+1) dampens the raw-scale dominance of viral outliers, velocity
// rewards recency-adjusted growth, and shares weigh twice as heavily as
// likes in the engagement blend.
func Score(views, likes, shares int64, ageHours float64) float64 {
	velocity := float64(views) / math.Max(ageHours, 1.0)

	var engagementRate, shareRate float64
	if views > 0 {
		engagementRate = float64(likes) / float64(views)
		shareRate = float64(shares) / float64(views)
	}

	return math.Log10(float64(views)+1) * velocity * (engagementRate + 2*shareRate + engagementFloor)
}

// ScoreCandidates applies the filter pipeline to raw dataset items and
// scores the survivors. Filters run per record, in order, short-circuiting
// on the first failure: well-formed object, not already published, parseable
// creation time, within the age window (the boundary is retained), and at
// least MinViews views.
func ScoreCandidates(raw []any, seen store.SeenSet, p Params) []types.ScoredCandidate {
	scored := make([]types.ScoredCandidate, 0, len(raw))

	for _, item := range raw {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}

		c := types.CandidateFromRaw(obj)

		if c.ID != "" && seen.Contains(c.ID) {
			continue
		}

		if c.CreateTime == "" {
			continue
		}
		created, err := time.Parse(time.RFC3339, c.CreateTime)
		if err != nil {
			continue
		}

		ageHours := p.Now.Sub(created).Hours()
		if ageHours > p.MaxAgeHours {
			continue
		}

		if c.Views < p.MinViews {
			continue
		}

		scored = append(scored, types.ScoredCandidate{
			Candidate: c,
			Score:     Score(c.Views, c.Likes, c.Shares, ageHours),
		})
	}

	return scored
}

// SelectWinner picks the highest-scoring candidate. Ties resolve to the
// first-encountered maximal record in input order; the slice is not
// re-sorted. An empty slice yields a NoCandidatesError naming the knobs an
// operator can adjust.
func SelectWinner(scored []types.ScoredCandidate, fetched int, p Params) (types.ScoredCandidate, error) {
	if len(scored) == 0 {
		return types.ScoredCandidate{}, &NoCandidatesError{
			Fetched:     fetched,
			MinViews:    p.MinViews,
			MaxAgeHours: p.MaxAgeHours,
		}
	}

	best := 0
	for i := 1; i < len(scored); i++ {
		if scored[i].Score > scored[best].Score {
			best = i
		}
	}
	return scored[best], nil
}
