package bracket

import (
	"fmt"

	"tournamentlive/internal/models"
)

func generateSingleElimination(participants []*models.Participant, options models.FormatOptions) (*GenerateResult, error) {
	n := len(participants)
	if n < MinParticipantsElimination {
		return nil, fmt.Errorf("%w: single elimination needs at least %d participants, got %d", ErrBadInput, MinParticipantsElimination, n)
	}

	order := standardSeedOrder(nextPowerOfTwo(n))
	if options.SeedingOrder == "sequential" {
		order = sequentialSeedOrder(nextPowerOfTwo(n))
	}
	size := len(order)
	slots := buildSlots(participants, size, options.ByePlacement)

	seq := 0
	var matches []*models.Match

	if options.Compact && n < size {
		matches = buildCompactRounds(order, slots, n, size, &seq)
	} else {
		matches = buildStandardFirstRound(order, slots, &seq)
		buildUpperRounds(&matches, 1, size/2, &seq, "W")
	}

	if options.ThirdPlaceMatch {
		addThirdPlaceMatch(&matches, &seq)
	}

	cascadeByes(matches)

	meta := map[string]interface{}{"bracket_size": size, "seed_order": order}
	stats := map[string]interface{}{"participant_count": n, "bye_count": size - n}
	return &GenerateResult{Matches: matches, SeedingMeta: meta, Stats: stats}, nil
}

// buildStandardFirstRound creates round-1 matches directly from the seed
// order, settling one-sided pairings as byes immediately.
func buildStandardFirstRound(order []int, slots map[int]*models.Participant, seq *int) []*models.Match {
	size := len(order)
	matches := make([]*models.Match, 0, size/2)
	for i := 0; i < size; i += 2 {
		p1 := slots[order[i]]
		p2 := slots[order[i+1]]
		matches = append(matches, newEliminationMatch(p1, p2, 1, i/2, seq, "W"))
	}
	return matches
}

// compactEntity is either a direct participant or a pending play-in
// winner, used to seed round 1 of a compact bracket.
type compactEntity struct {
	participant *models.Participant
	playInID    *string
}

// buildCompactRounds replaces byes with explicit round-0 play-in matches
// among the weakest seeds, so that every later round is fully real (§4.1
// "compact mode"). There are playInCount = n - size/2 play-in matches:
// the weakest 2*playInCount participants meet in a preliminary round,
// and the strongest n-2*playInCount advance straight to round 1
// alongside the play-in winners.
func buildCompactRounds(_ []int, slots map[int]*models.Participant, n, size int, seq *int) []*models.Match {
	byStrength := participantsByStrength(slots, n)

	playInCount := n - size/2
	lowCount := 2 * playInCount
	direct := byStrength[:n-lowCount]
	low := byStrength[n-lowCount:]

	var matches []*models.Match
	entities := make([]compactEntity, 0, size/2)
	for _, p := range direct {
		entities = append(entities, compactEntity{participant: p})
	}
	for i := 0; i < playInCount; i++ {
		p1, p2 := low[i], low[lowCount-1-i]
		m := newEliminationMatch(p1, p2, 0, i, seq, "PI")
		matches = append(matches, m)
		entities = append(entities, compactEntity{playInID: &m.ID})
	}

	half := size / 2
	order2 := standardSeedOrder(half)
	round1 := make([]*models.Match, 0, half/2)
	for i := 0; i < half; i += 2 {
		e1 := entities[order2[i]-1]
		e2 := entities[order2[i+1]-1]
		round1 = append(round1, newCompactRoundOneMatch(e1, e2, i/2, seq))
	}
	matches = append(matches, round1...)
	buildUpperRounds(&matches, 1, half/2, seq, "W")
	return matches
}

// participantsByStrength returns the n real participants in slots,
// ordered strongest (lowest nominal seed) first.
func participantsByStrength(slots map[int]*models.Participant, n int) []*models.Participant {
	keys := make([]int, 0, len(slots))
	for k := range slots {
		keys = append(keys, k)
	}
	for i := 1; i < len(keys); i++ {
		j := i
		for j > 0 && keys[j-1] > keys[j] {
			keys[j-1], keys[j] = keys[j], keys[j-1]
			j--
		}
	}
	out := make([]*models.Participant, 0, n)
	for _, k := range keys {
		out = append(out, slots[k])
	}
	return out
}

func newCompactRoundOneMatch(e1, e2 compactEntity, position int, seq *int) *models.Match {
	m := &models.Match{
		ID:              tempID(seq),
		Identifier:      fmt.Sprintf("W1-%d", position+1),
		Round:           1,
		BracketPosition: position,
		State:           models.MatchPending,
	}
	fillCompactSlot(m, e1, true)
	fillCompactSlot(m, e2, false)
	if m.ReadyToOpen() {
		m.State = models.MatchOpen
	}
	return m
}

func fillCompactSlot(m *models.Match, e compactEntity, first bool) {
	if e.participant != nil {
		if first {
			m.Player1ID = &e.participant.ID
		} else {
			m.Player2ID = &e.participant.ID
		}
		return
	}
	if first {
		m.Prereq1MatchID = e.playInID
	} else {
		m.Prereq2MatchID = e.playInID
	}
}

// newEliminationMatch builds a single winners-bracket match, settling it
// as a bye immediately if one side is empty.
func newEliminationMatch(p1, p2 *models.Participant, round, position int, seq *int, prefix string) *models.Match {
	m := &models.Match{
		ID:              tempID(seq),
		Identifier:      fmt.Sprintf("%s%d-%d", prefix, round, position+1),
		Round:           round,
		BracketPosition: position,
		State:           models.MatchPending,
	}
	if p1 != nil {
		m.Player1ID = &p1.ID
	}
	if p2 != nil {
		m.Player2ID = &p2.ID
	}
	switch {
	case p1 == nil && p2 == nil:
		// Both empty only happens transiently in compact generation for
		// an unused slot; leave pending with no players, it is pruned
		// by the caller before persistence.
	case p1 == nil || p2 == nil:
		settleBye(m)
	default:
		m.State = models.MatchOpen
	}
	return m
}

// buildUpperRounds adds every round above startRound (which must already
// be present in *matches with startCount matches) as pending matches with
// prereq links to the previous round's pair.
func buildUpperRounds(matches *[]*models.Match, startRound, startCount int, seq *int, prefix string) {
	round := startRound
	count := startCount
	prevRound := roundSlice(*matches, round)
	for count > 1 {
		count /= 2
		round++
		next := make([]*models.Match, 0, count)
		for i := 0; i < count; i++ {
			left := prevRound[2*i]
			right := prevRound[2*i+1]
			m := &models.Match{
				ID:              tempID(seq),
				Identifier:      fmt.Sprintf("%s%d-%d", prefix, round, i+1),
				Round:           round,
				BracketPosition: i,
				State:           models.MatchPending,
				Prereq1MatchID:  idPtr(left.ID),
				Prereq2MatchID:  idPtr(right.ID),
			}
			next = append(next, m)
		}
		*matches = append(*matches, next...)
		prevRound = next
	}
}

func roundSlice(matches []*models.Match, round int) []*models.Match {
	var out []*models.Match
	for _, m := range matches {
		if m.Round == round {
			out = append(out, m)
		}
	}
	return sortedByPosition(out)
}

// addThirdPlaceMatch pairs the two semifinal losers (§4.1).
func addThirdPlaceMatch(matches *[]*models.Match, seq *int) {
	var semis []*models.Match
	maxRound := 0
	for _, m := range *matches {
		if m.Round > maxRound {
			maxRound = m.Round
		}
	}
	if maxRound < 2 {
		return
	}
	for _, m := range *matches {
		if m.Round == maxRound-1 {
			semis = append(semis, m)
		}
	}
	if len(semis) != 2 {
		return
	}
	m := &models.Match{
		ID:              tempID(seq),
		Identifier:      "3P",
		Round:           maxRound - 1,
		BracketPosition: -1,
		State:           models.MatchPending,
		Prereq1MatchID:  idPtr(semis[0].ID),
		Prereq1IsLoser:  true,
		Prereq2MatchID:  idPtr(semis[1].ID),
		Prereq2IsLoser:  true,
	}
	*matches = append(*matches, m)
}

func idPtr(s string) *string { return &s }
