package bracket

import (
	"fmt"

	"tournamentlive/internal/models"
)

func generateDoubleElimination(participants []*models.Participant, options models.FormatOptions) (*GenerateResult, error) {
	n := len(participants)
	if n < MinParticipantsElimination {
		return nil, fmt.Errorf("%w: double elimination needs at least %d participants, got %d", ErrBadInput, MinParticipantsElimination, n)
	}

	order := standardSeedOrder(nextPowerOfTwo(n))
	if options.SeedingOrder == "sequential" {
		order = sequentialSeedOrder(nextPowerOfTwo(n))
	}
	size := len(order)
	slots := buildSlots(participants, size, options.ByePlacement)

	seq := 0
	matches := buildStandardFirstRound(order, slots, &seq)
	buildUpperRounds(&matches, 1, size/2, &seq, "W")

	winnersRounds := 0
	for _, m := range matches {
		if m.Round > winnersRounds {
			winnersRounds = m.Round
		}
	}

	losers := buildLosersBracket(matches, winnersRounds, &seq)
	matches = append(matches, losers...)

	winnersFinal := roundSlice(matches, winnersRounds)[0]
	losersFinal := roundSlice(matches, -maxLosersRound(losers))

	gf := &models.Match{
		ID:             tempID(&seq),
		Identifier:     "GF",
		Round:          winnersRounds + 1,
		IsGrandFinals:  true,
		State:          models.MatchPending,
		Prereq1MatchID: idPtr(winnersFinal.ID),
	}
	if len(losersFinal) > 0 {
		// Normal case: the loser of the winners bracket hasn't lost yet,
		// the player waiting in GF is the losers-bracket survivor.
		gf.Prereq2MatchID = idPtr(losersFinal[0].ID)
	} else {
		// Degenerate two-participant bracket: no losers-bracket rounds
		// exist, the loser of the single winners match drops straight
		// into grand finals.
		gf.Prereq2MatchID = idPtr(winnersFinal.ID)
		gf.Prereq2IsLoser = true
	}
	matches = append(matches, gf)

	// Standard modifier allows a bracket-reset GF2, played only if the
	// losers-bracket representative wins GF1; "single" and "skip" both
	// mean the tournament ends after one grand-finals match.
	if options.GrandFinalsModifier == models.GrandFinalsStandard {
		gf2 := &models.Match{
			ID:                 tempID(&seq),
			Identifier:         "GF2",
			Round:              winnersRounds + 2,
			IsGrandFinals:      true,
			IsGrandFinalsReset: true,
			Conditional:        true,
			State:              models.MatchPending,
			Prereq1MatchID:     idPtr(gf.ID),
			Prereq2MatchID:     idPtr(gf.ID),
			Prereq2IsLoser:     true,
		}
		matches = append(matches, gf2)
	}

	cascadeByes(matches)

	meta := map[string]interface{}{"bracket_size": size, "winners_rounds": winnersRounds, "seed_order": order}
	stats := map[string]interface{}{"participant_count": n, "bye_count": size - n}
	return &GenerateResult{Matches: matches, SeedingMeta: meta, Stats: stats}, nil
}

// maxLosersRound returns the deepest losers round number (the largest
// absolute value of a negative Round) that actually has matches in it,
// since the theoretical round count overshoots by one round that ends up
// empty.
func maxLosersRound(losers []*models.Match) int {
	max := 0
	for _, m := range losers {
		r := -m.Round
		if r > max {
			max = r
		}
	}
	return max
}

// buildLosersBracket constructs the losers bracket per §4.1: up to
// 2*(winnersRounds-1)+1 rounds, alternating dropdown and non-dropdown
// pairing. Losers round 1 pairs winners-round-1 losers with an
// outer-inner mirror; even (dropdown) rounds pair the prior losers-round
// winners against the losers of winners round lRound/2+1, reversed to
// balance; later odd rounds pair losers-round winners against each other.
// The last odd round ends up with no matches once a single survivor
// remains.
func buildLosersBracket(winnersMatches []*models.Match, winnersRounds int, seq *int) []*models.Match {
	if winnersRounds < 2 {
		return nil
	}
	totalLosersRounds := 2*(winnersRounds-1) + 1
	var losers []*models.Match

	w1 := roundSlice(winnersMatches, 1)
	prevWinners := make([]*models.Match, len(w1))
	copy(prevWinners, w1)

	lRound := 1
	var prevLosersRound []*models.Match

	for lRound <= totalLosersRounds {
		if lRound == 1 {
			// Outer-inner mirror of winners-round-1 losers.
			count := len(prevWinners) / 2
			round := make([]*models.Match, 0, count)
			for i := 0; i < count; i++ {
				outer := prevWinners[i]
				inner := prevWinners[len(prevWinners)-1-i]
				m := &models.Match{
					ID:              tempID(seq),
					Identifier:      fmt.Sprintf("L%d-%d", lRound, i+1),
					Round:           -lRound,
					BracketPosition: i,
					LosersBracket:   true,
					State:           models.MatchPending,
					Prereq1MatchID:  idPtr(outer.ID),
					Prereq1IsLoser:  true,
					Prereq2MatchID:  idPtr(inner.ID),
					Prereq2IsLoser:  true,
				}
				round = append(round, m)
			}
			losers = append(losers, round...)
			prevLosersRound = round
			lRound++
			continue
		}

		dropdown := lRound%2 == 0 // dropdown rounds bring in a new winners round
		if dropdown {
			wRound := lRound/2 + 1
			winnersDropping := roundSlice(winnersMatches, wRound)
			count := len(prevLosersRound)
			round := make([]*models.Match, 0, count)
			for i := 0; i < count; i++ {
				survivor := prevLosersRound[i]
				dropper := winnersDropping[count-1-i]
				m := &models.Match{
					ID:              tempID(seq),
					Identifier:      fmt.Sprintf("L%d-%d", lRound, i+1),
					Round:           -lRound,
					BracketPosition: i,
					LosersBracket:   true,
					State:           models.MatchPending,
					Prereq1MatchID:  idPtr(survivor.ID),
					Prereq2MatchID:  idPtr(dropper.ID),
					Prereq2IsLoser:  true,
				}
				round = append(round, m)
			}
			losers = append(losers, round...)
			prevLosersRound = round
		} else {
			count := len(prevLosersRound) / 2
			round := make([]*models.Match, 0, count)
			for i := 0; i < count; i++ {
				m := &models.Match{
					ID:              tempID(seq),
					Identifier:      fmt.Sprintf("L%d-%d", lRound, i+1),
					Round:           -lRound,
					BracketPosition: i,
					LosersBracket:   true,
					State:           models.MatchPending,
					Prereq1MatchID:  idPtr(prevLosersRound[2*i].ID),
					Prereq2MatchID:  idPtr(prevLosersRound[2*i+1].ID),
				}
				round = append(round, m)
			}
			losers = append(losers, round...)
			prevLosersRound = round
		}
		lRound++
	}
	return losers
}
