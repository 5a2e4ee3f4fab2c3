package grading

import (
	"fmt"
	"sort"
	"strings"
)

// Direction states which end of the comparison key is better.
type Direction int

const (
	// Descending ranks higher keys first (average marks).
	Descending Direction = iota
	// Ascending ranks lower keys first (best-subset points).
	Ascending
)

// MissingPolicy decides what happens to cohort members without results.
type MissingPolicy string

const (
	// MissingExclude leaves students without results out of the ranking.
	MissingExclude MissingPolicy = "exclude"
	// MissingRankLast ranks students without results after everyone else, tied together.
	MissingRankLast MissingPolicy = "rank_last"
)

// ParseMissingPolicy accepts the configuration spelling of a policy.
func ParseMissingPolicy(raw string) (MissingPolicy, error) {
	switch MissingPolicy(strings.ToLower(strings.TrimSpace(raw))) {
	case "", MissingExclude:
		return MissingExclude, nil
	case MissingRankLast:
		return MissingRankLast, nil
	default:
		return "", fmt.Errorf("unknown missing result policy %q", raw)
	}
}

// RankOptions must be supplied by every caller; the engine infers nothing.
type RankOptions struct {
	Direction Direction
	Dense     bool
	Missing   MissingPolicy
}

// CohortEntry is one student in a class+exam cohort.
type CohortEntry struct {
	StudentID string
	Key       float64
	Missing   bool
}

// Ranked is a student's position in the cohort.
type Ranked struct {
	StudentID string
	Rank      int
	Key       float64
	Missing   bool
}

// Rank orders the cohort by key and assigns 1-based ranks. Equal keys share a rank;
// competition ranking skips after a tie (1,1,3) while dense ranking does not (1,1,2).
// Ties are listed by student id.
func Rank(cohort []CohortEntry, opts RankOptions) []Ranked {
	present := make([]CohortEntry, 0, len(cohort))
	var missing []CohortEntry
	for _, entry := range cohort {
		if entry.Missing {
			if opts.Missing == MissingRankLast {
				missing = append(missing, entry)
			}
			continue
		}
		present = append(present, entry)
	}

	sort.SliceStable(present, func(i, j int) bool {
		a, b := present[i], present[j]
		if a.Key != b.Key {
			if opts.Direction == Ascending {
				return a.Key < b.Key
			}
			return a.Key > b.Key
		}
		return a.StudentID < b.StudentID
	})
	sort.SliceStable(missing, func(i, j int) bool { return missing[i].StudentID < missing[j].StudentID })

	out := make([]Ranked, 0, len(present)+len(missing))
	rank, distinct := 0, 0
	for i, entry := range present {
		if i == 0 || entry.Key != present[i-1].Key {
			distinct++
			rank = i + 1
		}
		position := rank
		if opts.Dense {
			position = distinct
		}
		out = append(out, Ranked{StudentID: entry.StudentID, Rank: position, Key: entry.Key})
	}
	if len(missing) > 0 {
		last := len(present) + 1
		if opts.Dense {
			last = distinct + 1
		}
		for _, entry := range missing {
			out = append(out, Ranked{StudentID: entry.StudentID, Rank: last, Missing: true})
		}
	}
	return out
}

// RankOf looks up one student's rank; zero means the student was not ranked.
func RankOf(ranked []Ranked, studentID string) int {
	for _, r := range ranked {
		if r.StudentID == studentID {
			return r.Rank
		}
	}
	return 0
}
