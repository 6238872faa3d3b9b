package bracket

import (
	"math/rand/v2"
	"sort"

	"tournamentlive/internal/models"
)

// interleave alternates two equal-length slices: a[0],b[0],a[1],b[1],...
func interleave(a, b []int) []int {
	out := make([]int, len(a)+len(b))
	for i := range a {
		out[2*i] = a[i]
		out[2*i+1] = b[i]
	}
	return out
}

// standardSeedOrder returns, for a bracket of the given size (a power of
// two), the seed number occupying each slot such that adjacent pairs
// (0,1), (2,3), ... are the round-one matchups, per the recursive
// interleave formula: order(2k) = interleave(order(k), k*2+1-order(k)).
func standardSeedOrder(size int) []int {
	if size <= 1 {
		return []int{1}
	}
	k := size / 2
	prev := standardSeedOrder(k)
	complement := make([]int, k)
	for i, s := range prev {
		complement[i] = k*2 + 1 - s
	}
	return interleave(prev, complement)
}

// sequentialSeedOrder is the "sequential" seeding option: slots filled
// 1..size in order, no bracket balancing.
func sequentialSeedOrder(size int) []int {
	order := make([]int, size)
	for i := range order {
		order[i] = i + 1
	}
	return order
}

// nextPowerOfTwo returns the smallest power of two >= n.
func nextPowerOfTwo(n int) int {
	size := 1
	for size < n {
		size *= 2
	}
	return size
}

// byeSeeds chooses which nominal seed numbers (1..size) receive a bye,
// given n real participants and the configured placement strategy. The
// remaining size-len(result) seeds are real.
func byeSeeds(n, size int, placement models.ByePlacement) map[int]bool {
	byeCount := size - n
	result := make(map[int]bool, byeCount)
	if byeCount <= 0 {
		return result
	}

	switch placement {
	case models.ByeSpread:
		// Evenly distribute bye seeds across the full 1..size range.
		for i := 0; i < byeCount; i++ {
			seed := 1 + (i*size)/byeCount
			for result[seed] && seed < size {
				seed++
			}
			result[seed] = true
		}

	case models.ByeBottomHalf:
		half := size / 2
		// Fill from the weakest seed downward within the bottom half.
		for s := size; s > size-half && len(result) < byeCount; s-- {
			result[s] = true
		}
		// Overflow upward into the top half if still short.
		for s := size - half; s >= 1 && len(result) < byeCount; s-- {
			result[s] = true
		}

	case models.ByeRandom:
		pool := make([]int, size)
		for i := range pool {
			pool[i] = i + 1
		}
		rand.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
		for i := 0; i < byeCount; i++ {
			result[pool[i]] = true
		}

	default: // models.ByeTraditional and unset
		// Strongest seeds get the bye: the weakest (highest-numbered,
		// non-existent) seeds are the ones with no real opponent.
		for s := n + 1; s <= size; s++ {
			result[s] = true
		}
	}
	return result
}

// assignParticipants maps real (non-bye) nominal seeds, in ascending
// order, to participants sorted by their own Seed field (participants
// with no explicit seed keep their input order, appended after seeded
// ones).
func assignParticipants(participants []*models.Participant, realSeeds []int) map[int]*models.Participant {
	sorted := make([]*models.Participant, len(participants))
	copy(sorted, participants)
	sort.SliceStable(sorted, func(i, j int) bool {
		si, sj := sorted[i].Seed, sorted[j].Seed
		if si != nil && sj != nil {
			return *si < *sj
		}
		if si != nil {
			return true
		}
		if sj != nil {
			return false
		}
		return false
	})
	sort.Ints(realSeeds)
	out := make(map[int]*models.Participant, len(realSeeds))
	for i, seed := range realSeeds {
		if i >= len(sorted) {
			break
		}
		out[seed] = sorted[i]
	}
	return out
}

// buildSlots resolves, for a given participant set and size, the mapping
// from nominal seed number to participant (nil entries are byes).
func buildSlots(participants []*models.Participant, size int, placement models.ByePlacement) map[int]*models.Participant {
	n := len(participants)
	byes := byeSeeds(n, size, placement)
	realSeeds := make([]int, 0, n)
	for s := 1; s <= size; s++ {
		if !byes[s] {
			realSeeds = append(realSeeds, s)
		}
	}
	return assignParticipants(participants, realSeeds)
}
