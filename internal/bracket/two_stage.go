package bracket

import (
	"fmt"
	"sort"

	"tournamentlive/internal/models"
)

// generateTwoStageStageOne builds the group stage: snake-draft assignment
// to NumberOfGroups groups, round-robin within each (§4.1).
func generateTwoStageStageOne(participants []*models.Participant, options models.FormatOptions) (*GenerateResult, error) {
	n := len(participants)
	if n < MinParticipantsElimination {
		return nil, fmt.Errorf("%w: two-stage needs at least %d participants, got %d", ErrBadInput, MinParticipantsElimination, n)
	}
	groups := options.NumberOfGroups
	if groups < 2 {
		groups = 2
	}
	if groups > n {
		groups = n
	}

	sorted := make([]*models.Participant, n)
	copy(sorted, participants)
	sort.SliceStable(sorted, func(i, j int) bool {
		si, sj := sorted[i].Seed, sorted[j].Seed
		if si != nil && sj != nil {
			return *si < *sj
		}
		return si != nil
	})

	groupMembers := snakeDraft(sorted, groups)

	seq := 0
	var matches []*models.Match
	for g := 0; g < groups; g++ {
		members := groupMembers[g]
		if len(members) < 2 {
			continue
		}
		sub, err := generateRoundRobin(members, models.FormatOptions{Iterations: 1})
		if err != nil {
			return nil, err
		}
		for _, m := range sub.Matches {
			m.ID = tempID(&seq)
			m.Identifier = fmt.Sprintf("G%d-%s", g+1, m.Identifier)
		}
		matches = append(matches, sub.Matches...)
	}

	meta := map[string]interface{}{"groups": groups, "group_sizes": groupSizes(groupMembers)}
	stats := map[string]interface{}{"participant_count": n}
	return &GenerateResult{Matches: matches, SeedingMeta: meta, Stats: stats}, nil
}

// snakeDraft distributes sorted (by strength) participants into `groups`
// buckets, reversing direction each pass: 1,2,3,4 | 4,3,2,1 | 1,2,3,4 ...
func snakeDraft(sorted []*models.Participant, groups int) [][]*models.Participant {
	buckets := make([][]*models.Participant, groups)
	forward := true
	i := 0
	for i < len(sorted) {
		if forward {
			for g := 0; g < groups && i < len(sorted); g++ {
				buckets[g] = append(buckets[g], sorted[i])
				i++
			}
		} else {
			for g := groups - 1; g >= 0 && i < len(sorted); g-- {
				buckets[g] = append(buckets[g], sorted[i])
				i++
			}
		}
		forward = !forward
	}
	return buckets
}

func groupSizes(groups [][]*models.Participant) []int {
	sizes := make([]int, len(groups))
	for i, g := range groups {
		sizes[i] = len(g)
	}
	return sizes
}

// GenerateTwoStageKnockout computes group-stage advancers, re-seeds them
// (all 1st-place finishers first, then all 2nd-place, ...) and generates
// the knockout stage. Called by the coordinator once every group match
// is complete, since stage two cannot be generated up front.
func GenerateTwoStageKnockout(groupMembers [][]*models.Participant, groupMatches [][]*models.Match, advancePerGroup int, knockoutFormat models.TournamentFormat, options models.FormatOptions) (*GenerateResult, error) {
	if advancePerGroup < 1 {
		advancePerGroup = 1
	}
	var reseeded []*models.Participant
	for place := 0; place < advancePerGroup; place++ {
		for g, members := range groupMembers {
			ranks := roundRobinStyleRanks(members, groupMatches[g], options)
			for _, p := range members {
				if ranks[p.ID] == place+1 {
					seed := len(reseeded) + 1
					clone := *p
					clone.Seed = &seed
					reseeded = append(reseeded, &clone)
				}
			}
		}
	}
	if knockoutFormat == "" {
		knockoutFormat = models.FormatSingleElimination
	}
	return Generate(knockoutFormat, reseeded, options)
}
