package search

import "sort"

// rankedList is one source's ranked output, in rank order (best first).
// k is that list's RRF constant for the fusion sum.
type rankedList struct {
	ids []uint32
	k   int
}

// fused is one chunk's id and fusion score.
type fused struct {
	chunkID uint32
	score   float64
}

// fuseRRF implements spec.md §4.11's RRF formula, generalized from the
// teacher's two-list pkg/searcher/fusion.go to an arbitrary number of
// ranked lists: score(c) = Σ 1/(k_i + rank_i(c)) over every list c
// appears in, 1-indexed ranks, ties broken by ascending chunk id.
func fuseRRF(lists ...rankedList) []fused {
	scores := make(map[uint32]float64)
	for _, list := range lists {
		for i, id := range list.ids {
			rank := i + 1
			scores[id] += 1.0 / float64(list.k+rank)
		}
	}

	results := make([]fused, 0, len(scores))
	for id, score := range scores {
		results = append(results, fused{chunkID: id, score: score})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].score != results[j].score {
			return results[i].score > results[j].score
		}
		return results[i].chunkID < results[j].chunkID
	})
	return results
}
