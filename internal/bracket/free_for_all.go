package bracket

import (
	"fmt"
	"sort"

	"tournamentlive/internal/models"
)

func generateFreeForAllFirstRound(participants []*models.Participant, options models.FormatOptions) (*GenerateResult, error) {
	n := len(participants)
	if n < MinParticipantsFreeForAll {
		return nil, fmt.Errorf("%w: free-for-all needs at least %d participants, got %d", ErrBadInput, MinParticipantsFreeForAll, n)
	}
	lobbySize := options.LobbyMaxSize
	if lobbySize < 2 {
		lobbySize = n
	}

	seq := 0
	var matches []*models.Match
	position := 0
	for i := 0; i < n; i += lobbySize {
		end := i + lobbySize
		if end > n {
			end = n
		}
		lobby := participants[i:end]
		m := &models.Match{
			ID:              tempID(&seq),
			Identifier:      fmt.Sprintf("FFA1-%d", position+1),
			Round:           1,
			BracketPosition: position,
			State:           models.MatchOpen,
		}
		for _, p := range lobby {
			m.LobbyParticipants = append(m.LobbyParticipants, p.ID)
		}
		if len(lobby) > 0 {
			m.Player1ID = &lobby[0].ID
		}
		if len(lobby) > 1 {
			m.Player2ID = &lobby[1].ID
		}
		matches = append(matches, m)
		position++
	}

	meta := map[string]interface{}{"lobby_size": lobbySize}
	stats := map[string]interface{}{"participant_count": n, "lobby_count": len(matches)}
	return &GenerateResult{Matches: matches, SeedingMeta: meta, Stats: stats}, nil
}

// NextFreeForAllRound builds lobby pairings for the round after every
// lobby in matches' highest round has finished, reseeding lobbies by
// current standings the way a multi-round circuit reshuffles pools
// between heats, per §4.1's "round N opens only when every round N-1
// lobby completes".
func NextFreeForAllRound(participants []*models.Participant, matches []*models.Match, round int, options models.FormatOptions) ([]*models.Match, error) {
	n := len(participants)
	if n < MinParticipantsFreeForAll {
		return nil, fmt.Errorf("%w: free-for-all needs at least %d participants, got %d", ErrBadInput, MinParticipantsFreeForAll, n)
	}
	lobbySize := options.LobbyMaxSize
	if lobbySize < 2 {
		lobbySize = n
	}

	ranks := freeForAllRanks(participants, matches, options)
	ordered := make([]*models.Participant, n)
	copy(ordered, participants)
	sort.Slice(ordered, func(i, j int) bool {
		return ranks[ordered[i].ID] < ranks[ordered[j].ID]
	})

	seq := len(matches)
	var newMatches []*models.Match
	position := 0
	for i := 0; i < n; i += lobbySize {
		end := i + lobbySize
		if end > n {
			end = n
		}
		lobby := ordered[i:end]
		m := &models.Match{
			ID:              tempID(&seq),
			Identifier:      fmt.Sprintf("FFA%d-%d", round, position+1),
			Round:           round,
			BracketPosition: position,
			State:           models.MatchOpen,
		}
		for _, p := range lobby {
			m.LobbyParticipants = append(m.LobbyParticipants, p.ID)
		}
		if len(lobby) > 0 {
			m.Player1ID = &lobby[0].ID
		}
		if len(lobby) > 1 {
			m.Player2ID = &lobby[1].ID
		}
		newMatches = append(newMatches, m)
		position++
	}
	return newMatches, nil
}

// LobbyPlacements converts a completed lobby's finishing order into
// points via the configured points system (§4.1).
func LobbyPlacements(placements []string, options models.FormatOptions) map[string]float64 {
	points := make(map[string]float64, len(placements))
	switch options.PointsSystem {
	case models.PointsLinear:
		for i, id := range placements {
			points[id] = float64(len(placements) - i)
		}
	case models.PointsWinnerTakeAll:
		for i, id := range placements {
			if i == 0 {
				points[id] = 1
			} else {
				points[id] = 0
			}
		}
	case models.PointsCustom:
		for i, id := range placements {
			if i < len(options.CustomPoints) {
				points[id] = float64(options.CustomPoints[i])
			}
		}
	default: // f1-style
		table := []float64{25, 18, 15, 12, 10, 8, 6, 4, 2, 1}
		for i, id := range placements {
			if i < len(table) {
				points[id] = table[i]
			}
		}
	}
	return points
}

// freeForAllRanks sorts by total points, wins, podiums, average
// placement, then best placement, per §4.1's standings rule. Placement
// history must be supplied via match.Scores.CSV (comma-separated finish
// order) since a lobby's result is richer than a single winner/loser.
func freeForAllRanks(participants []*models.Participant, matches []*models.Match, options models.FormatOptions) map[string]int {
	type tally struct {
		points      float64
		wins        int
		podiums     int
		placements  []int
	}
	tallies := make(map[string]*tally, len(participants))
	for _, p := range participants {
		tallies[p.ID] = &tally{}
	}
	for _, m := range matches {
		if m.State != models.MatchComplete || m.Scores == nil || m.Scores.CSV == "" {
			continue
		}
		order := splitCSV(m.Scores.CSV)
		placementPoints := LobbyPlacements(order, options)
		for i, id := range order {
			t := tallies[id]
			if t == nil {
				continue
			}
			t.points += placementPoints[id]
			t.placements = append(t.placements, i+1)
			if i == 0 {
				t.wins++
			}
			if i < 3 {
				t.podiums++
			}
		}
	}

	ids := make([]string, 0, len(participants))
	for _, p := range participants {
		ids = append(ids, p.ID)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := tallies[ids[i]], tallies[ids[j]]
		if a.points != b.points {
			return a.points > b.points
		}
		if a.wins != b.wins {
			return a.wins > b.wins
		}
		if a.podiums != b.podiums {
			return a.podiums > b.podiums
		}
		avgA, avgB := average(a.placements), average(b.placements)
		if avgA != avgB {
			return avgA < avgB
		}
		return best(a.placements) < best(b.placements)
	})
	return ranksFromOrder(ids)
}

func splitCSV(csv string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(csv); i++ {
		if i == len(csv) || csv[i] == ',' {
			if i > start {
				out = append(out, csv[start:i])
			}
			start = i + 1
		}
	}
	return out
}

func average(xs []int) float64 {
	if len(xs) == 0 {
		return 1e9
	}
	sum := 0
	for _, x := range xs {
		sum += x
	}
	return float64(sum) / float64(len(xs))
}

func best(xs []int) int {
	if len(xs) == 0 {
		return 1 << 30
	}
	b := xs[0]
	for _, x := range xs[1:] {
		if x < b {
			b = x
		}
	}
	return b
}
