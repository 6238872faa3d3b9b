package bracket

import (
	"math"
	"sort"

	"tournamentlive/internal/models"
)

// generateLeaderboard produces no matches: a leaderboard tournament
// never completes and events are added one at a time by the coordinator
// (see AddLeaderboardEvent), not generated up front.
func generateLeaderboard(participants []*models.Participant, options models.FormatOptions) (*GenerateResult, error) {
	meta := map[string]interface{}{"ranking_type": options.RankingType}
	stats := map[string]interface{}{"participant_count": len(participants)}
	return &GenerateResult{Matches: nil, SeedingMeta: meta, Stats: stats}, nil
}

const leaderboardStartingELO = 1500

// AddLeaderboardEvent records one event's placements as a synthetic
// complete match (so the activity journal and store treat it like any
// other mutation) carrying the finishing order in Scores.CSV.
func AddLeaderboardEvent(seq *int, placements []string) *models.Match {
	m := &models.Match{
		ID:         tempID(seq),
		Identifier: "EVENT",
		Round:      1,
		State:      models.MatchComplete,
		Scores:     &models.Scores{CSV: joinCSV(placements)},
	}
	if len(placements) > 0 {
		m.WinnerID = idPtr(placements[0])
		m.Player1ID = m.WinnerID
	}
	return m
}

func joinCSV(ids []string) string {
	out := ""
	for i, id := range ids {
		if i > 0 {
			out += ","
		}
		out += id
	}
	return out
}

// leaderboardRanks computes standings per §4.1: points, ELO, or win
// count, with optional exponential decay and a minimum-events floor.
func leaderboardRanks(participants []*models.Participant, matches []*models.Match, options models.FormatOptions) map[string]int {
	events := make([][]string, 0, len(matches))
	for _, m := range matches {
		if m.Scores == nil || m.Scores.CSV == "" {
			continue
		}
		events = append(events, splitCSV(m.Scores.CSV))
	}

	scores := make(map[string]float64, len(participants))
	eloRatings := make(map[string]float64, len(participants))
	eventCount := make(map[string]int, len(participants))
	for _, p := range participants {
		eloRatings[p.ID] = leaderboardStartingELO
	}

	for _, order := range events {
		switch options.RankingType {
		case models.RankingELO:
			applyELOEvent(eloRatings, order)
		case models.RankingWins:
			if len(order) > 0 {
				scores[order[0]]++
			}
		default: // points
			for id, pts := range LobbyPlacements(order, options) {
				scores[id] += pts
			}
		}
		for _, id := range order {
			eventCount[id]++
		}
	}

	if options.DecayEnabled && options.DecayPeriodSeconds > 0 {
		decayFactor := 0.9
		for id := range scores {
			periods := float64(eventCount[id]) / float64(options.DecayPeriodSeconds)
			scores[id] *= math.Pow(decayFactor, periods)
		}
	}

	final := scores
	if options.RankingType == models.RankingELO {
		final = eloRatings
	}

	ids := make([]string, 0, len(participants))
	for _, p := range participants {
		if options.MinEventsToRank > 0 && eventCount[p.ID] < options.MinEventsToRank {
			continue
		}
		ids = append(ids, p.ID)
	}
	sort.Slice(ids, func(i, j int) bool {
		return final[ids[i]] > final[ids[j]]
	})
	return ranksFromOrder(ids)
}

// applyELOEvent updates every participant's rating based on their
// placement relative to the median finisher in that event.
func applyELOEvent(ratings map[string]float64, order []string) {
	if len(order) == 0 {
		return
	}
	median := ratings[order[len(order)/2]]
	const kFactor = 32
	for i, id := range order {
		expected := 1 / (1 + math.Pow(10, (median-ratings[id])/400))
		actual := 1.0
		if i > len(order)/2 {
			actual = 0.0
		} else if i == len(order)/2 {
			actual = 0.5
		}
		ratings[id] += kFactor * (actual - expected)
	}
}
