package bracket

import (
	"fmt"

	"tournamentlive/internal/models"
)

// virtualPlayerID marks the phantom opponent used to give a bye when the
// field size is odd; matches against it are suppressed, never persisted.
const virtualPlayerID = ""

func generateRoundRobin(participants []*models.Participant, options models.FormatOptions) (*GenerateResult, error) {
	n := len(participants)
	if n < MinParticipantsElimination {
		return nil, fmt.Errorf("%w: round robin needs at least %d participants, got %d", ErrBadInput, MinParticipantsElimination, n)
	}

	iterations := options.Iterations
	if iterations < 1 {
		iterations = 1
	}

	ids := make([]string, 0, n+1)
	for _, p := range participants {
		ids = append(ids, p.ID)
	}
	odd := len(ids)%2 != 0
	if odd {
		ids = append(ids, virtualPlayerID)
	}

	seq := 0
	var matches []*models.Match
	roundsPerIteration := len(ids) - 1
	position := 0

	for iter := 0; iter < iterations; iter++ {
		schedule := circleMethod(ids)
		swapHomeAway := iter%2 == 1
		for r, pairs := range schedule {
			round := iter*roundsPerIteration + r + 1
			for _, pair := range pairs {
				p1, p2 := pair[0], pair[1]
				if p1 == virtualPlayerID || p2 == virtualPlayerID {
					continue
				}
				if swapHomeAway {
					p1, p2 = p2, p1
				}
				a, b := p1, p2
				m := &models.Match{
					ID:              tempID(&seq),
					Identifier:      fmt.Sprintf("RR%d-%d", round, position+1),
					Round:           round,
					BracketPosition: position,
					State:           models.MatchOpen,
					Player1ID:       idPtr(a),
					Player2ID:       idPtr(b),
				}
				matches = append(matches, m)
				position++
			}
		}
	}

	meta := map[string]interface{}{"iterations": iterations, "odd_field": odd}
	stats := map[string]interface{}{"participant_count": n, "total_rounds": iterations * roundsPerIteration}
	return &GenerateResult{Matches: matches, SeedingMeta: meta, Stats: stats}, nil
}

// circleMethod produces the classic round-robin schedule: fix the first
// id, rotate the rest around it once per round, for len(ids)-1 rounds.
func circleMethod(ids []string) [][][2]string {
	n := len(ids)
	rounds := n - 1
	rotating := make([]string, n-1)
	copy(rotating, ids[1:])

	schedule := make([][][2]string, 0, rounds)
	for r := 0; r < rounds; r++ {
		round := make([][2]string, 0, n/2)
		round = append(round, [2]string{ids[0], rotating[0]})
		for i := 1; i < n/2; i++ {
			round = append(round, [2]string{rotating[i], rotating[n-1-i]})
		}
		schedule = append(schedule, round)
		// Rotate: last element moves to the front of the rotating slice.
		last := rotating[len(rotating)-1]
		copy(rotating[1:], rotating[:len(rotating)-1])
		rotating[0] = last
	}
	return schedule
}
