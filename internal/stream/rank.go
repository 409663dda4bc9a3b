package stream

import (
	"math"
	"sort"

	"github.com/YannickHerrero/miru/internal/models"
)

// Rank orders candidate streams for selection: quality tier descending, then
// size ascending within a tier (a smaller file at equal quality buffers
// faster). The sort is stable, so equal candidates keep their addon order.
// Seeder count and cache status deliberately do not participate.
func Rank(streams []models.Stream) []models.Stream {
	ranked := make([]models.Stream, len(streams))
	copy(ranked, streams)

	sort.SliceStable(ranked, func(i, j int) bool {
		ri, rj := ranked[i].QualityRank(), ranked[j].QualityRank()
		if ri != rj {
			return ri > rj
		}
		return sortSize(ranked[i]) < sortSize(ranked[j])
	})

	return ranked
}

// sortSize returns the byte count used for ordering. Streams with an
// unparseable size get the max-int sentinel so they sort last within their
// quality tier; the sentinel never leaves this comparator.
func sortSize(s models.Stream) int64 {
	if s.SizeBytes == nil {
		return math.MaxInt64
	}
	return *s.SizeBytes
}
