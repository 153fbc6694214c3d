package interpret

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/laschacras/cabanas-api/internal/models"
)

const maxCandidates = 3

// candidates returns up to three guest names nearest to the unmatched
// target by edit distance, closest first.
func candidates(target string, snapshot []models.Reservation) []string {
	type scored struct {
		name     string
		distance int
	}
	ranked := make([]scored, 0, len(snapshot))
	for _, r := range snapshot {
		ranked = append(ranked, scored{
			name:     r.GuestName,
			distance: levenshtein.ComputeDistance(strings.ToLower(target), strings.ToLower(r.GuestName)),
		})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].distance < ranked[j].distance })

	n := len(ranked)
	if n > maxCandidates {
		n = maxCandidates
	}
	names := make([]string, 0, n)
	for _, s := range ranked[:n] {
		names = append(names, s.name)
	}
	return names
}
