package bracket

import (
	"fmt"
	"math"
	"sort"

	"tournamentlive/internal/models"
)

func generateSwissFirstRound(participants []*models.Participant, options models.FormatOptions) (*GenerateResult, error) {
	n := len(participants)
	if n < MinParticipantsElimination {
		return nil, fmt.Errorf("%w: swiss needs at least %d participants, got %d", ErrBadInput, MinParticipantsElimination, n)
	}

	rounds := options.Rounds
	if rounds < 1 {
		rounds = int(math.Ceil(math.Log2(float64(n))))
		if rounds < 1 {
			rounds = 1
		}
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

	seq := 0
	var matches []*models.Match
	half := n / 2
	position := 0
	for i := 0; i < half; i++ {
		top := sorted[i]
		bottom := sorted[i+half]
		matches = append(matches, &models.Match{
			ID:              tempID(&seq),
			Identifier:      fmt.Sprintf("SW1-%d", position+1),
			Round:           1,
			BracketPosition: position,
			State:           models.MatchOpen,
			Player1ID:       &top.ID,
			Player2ID:       &bottom.ID,
		})
		position++
	}
	if n%2 == 1 {
		bye := sorted[n-1]
		m := &models.Match{
			ID:              tempID(&seq),
			Identifier:      fmt.Sprintf("SW1-%d", position+1),
			Round:           1,
			BracketPosition: position,
			Player1ID:       &bye.ID,
			State:           models.MatchPending,
		}
		settleBye(m)
		matches = append(matches, m)
	}

	meta := map[string]interface{}{"recommended_rounds": rounds}
	stats := map[string]interface{}{"participant_count": n}
	return &GenerateResult{Matches: matches, SeedingMeta: meta, Stats: stats}, nil
}

// NextSwissRound generates the pairings for the round following the
// given completed matches, per §4.1: group by score, pair by proximity
// within a group avoiding rematches, falling back to the nearest lower
// group and, as a last resort, a forced rematch. Exactly one unpaired
// low-ranked participant who hasn't yet had a bye may receive one. This
// is exported because, unlike the other formats, Swiss pairing is
// driven round-by-round by the coordinator rather than all at once.
func NextSwissRound(participants []*models.Participant, matches []*models.Match, round int, winPoints, drawPoints, lossPoints float64) ([]*models.Match, error) {
	scores := swissScores(participants, matches, winPoints, drawPoints, lossPoints)
	played := playedPairs(matches)
	hadBye := hadByeSet(matches)

	ids := make([]string, 0, len(participants))
	for _, p := range participants {
		ids = append(ids, p.ID)
	}
	sort.Slice(ids, func(i, j int) bool {
		if scores[ids[i]] != scores[ids[j]] {
			return scores[ids[i]] > scores[ids[j]]
		}
		return ids[i] < ids[j]
	})

	seq := len(matches)
	var newMatches []*models.Match
	position := 0
	remaining := append([]string{}, ids...)

	for len(remaining) > 1 {
		a := remaining[0]
		opponent := -1
		for i := 1; i < len(remaining); i++ {
			if !played[pairKey(a, remaining[i])] {
				opponent = i
				break
			}
		}
		if opponent == -1 {
			// Everyone in scope has played; force a rematch against the
			// nearest-scoring remaining opponent as a last resort.
			opponent = 1
		}
		b := remaining[opponent]
		newMatches = append(newMatches, &models.Match{
			ID:              tempID(&seq),
			Identifier:      fmt.Sprintf("SW%d-%d", round, position+1),
			Round:           round,
			BracketPosition: position,
			State:           models.MatchOpen,
			Player1ID:       idPtr(a),
			Player2ID:       idPtr(b),
		})
		position++
		remaining = append(remaining[1:opponent], remaining[opponent+1:]...)
	}

	if len(remaining) == 1 {
		id := remaining[0]
		if hadBye[id] {
			return nil, fmt.Errorf("%w: swiss round %d has an odd field and the lowest-ranked player already had a bye", ErrBadInput, round)
		}
		m := &models.Match{
			ID:              tempID(&seq),
			Identifier:      fmt.Sprintf("SW%d-%d", round, position+1),
			Round:           round,
			BracketPosition: position,
			Player1ID:       idPtr(id),
		}
		settleBye(m)
		newMatches = append(newMatches, m)
	}

	return newMatches, nil
}

func swissScores(participants []*models.Participant, matches []*models.Match, win, draw, loss float64) map[string]float64 {
	scores := make(map[string]float64, len(participants))
	for _, p := range participants {
		scores[p.ID] = 0
	}
	for _, m := range matches {
		if m.State != models.MatchComplete {
			continue
		}
		if m.IsBye && m.WinnerID != nil {
			scores[*m.WinnerID] += win
			continue
		}
		if m.WinnerID == nil {
			if m.Player1ID != nil {
				scores[*m.Player1ID] += draw
			}
			if m.Player2ID != nil {
				scores[*m.Player2ID] += draw
			}
			continue
		}
		scores[*m.WinnerID] += win
		if loser := m.Loser(); loser != nil {
			scores[*loser] += loss
		}
	}
	return scores
}

func playedPairs(matches []*models.Match) map[string]bool {
	played := map[string]bool{}
	for _, m := range matches {
		if m.Player1ID != nil && m.Player2ID != nil {
			played[pairKey(*m.Player1ID, *m.Player2ID)] = true
		}
	}
	return played
}

func hadByeSet(matches []*models.Match) map[string]bool {
	had := map[string]bool{}
	for _, m := range matches {
		if m.IsBye && m.Player1ID != nil {
			had[*m.Player1ID] = true
		}
	}
	return had
}

func pairKey(a, b string) string {
	if a < b {
		return a + "|" + b
	}
	return b + "|" + a
}
