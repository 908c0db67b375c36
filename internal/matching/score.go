// Package matching pairs users who are looking for company at the same
// event, ranked by the overlap of their weighted interests, and drives the
// request/accept flow between them.
package matching

import "sort"

// Interest is one weighted interest of a user, keyed by interest id in the
// maps passed to Score.
type Interest struct {
	Name   string
	Weight int
}

// Score compares two interest sets.  The score is the mean over the shared
// interest ids of the average of both weights, so it stays in the weight
// range and is not normalised by set size.  ok is false when nothing is
// shared.  common holds the shared interest names sorted by name.
func Score(requester, candidate map[string]Interest) (score float64, common []string, ok bool) {
	var sum float64
	for id, mine := range requester {
		theirs, found := candidate[id]
		if !found {
			continue
		}
		sum += float64(mine.Weight+theirs.Weight) / 2
		common = append(common, mine.Name)
	}
	if len(common) == 0 {
		return 0, nil, false
	}
	sort.Strings(common)
	return sum / float64(len(common)), common, true
}
