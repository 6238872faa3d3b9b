package bracket

import (
	"sort"

	"tournamentlive/internal/models"
)

// recordRow accumulates the per-participant tallies the round-robin and
// Swiss tiebreak chain needs.
type recordRow struct {
	id            string
	matchWins     int
	gameWins      int
	pointsScored  int
	pointsAgainst int
	played        int
	headToHead    map[string]int // +1 beat them, -1 lost to them
}

func buildRecords(participants []*models.Participant, matches []*models.Match) map[string]*recordRow {
	records := make(map[string]*recordRow, len(participants))
	for _, p := range participants {
		records[p.ID] = &recordRow{id: p.ID, headToHead: map[string]int{}}
	}
	for _, m := range matches {
		if m.State != models.MatchComplete || m.WinnerID == nil {
			continue
		}
		if m.Player1ID != nil {
			if r := records[*m.Player1ID]; r != nil {
				r.played++
				if m.Scores != nil {
					r.pointsScored += m.Scores.P1
					r.pointsAgainst += m.Scores.P2
					if m.Scores.P1 > m.Scores.P2 {
						r.gameWins++
					}
				}
			}
		}
		if m.Player2ID != nil {
			if r := records[*m.Player2ID]; r != nil {
				r.played++
				if m.Scores != nil {
					r.pointsScored += m.Scores.P2
					r.pointsAgainst += m.Scores.P1
					if m.Scores.P2 > m.Scores.P1 {
						r.gameWins++
					}
				}
			}
		}
		loser := m.Loser()
		if winner := records[*m.WinnerID]; winner != nil {
			winner.matchWins++
			if loser != nil {
				winner.headToHead[*loser] = 1
			}
		}
		if loser != nil {
			if l := records[*loser]; l != nil && m.WinnerID != nil {
				l.headToHead[*m.WinnerID] = -1
			}
		}
	}
	return records
}

// buchholz sums the match-win counts of every opponent a participant has
// faced, the shared tiebreaker for round robin and Swiss.
func buchholz(id string, records map[string]*recordRow, matches []*models.Match) int {
	sum := 0
	for _, m := range matches {
		if m.State != models.MatchComplete {
			continue
		}
		var opponent *string
		if m.Player1ID != nil && *m.Player1ID == id {
			opponent = m.Player2ID
		} else if m.Player2ID != nil && *m.Player2ID == id {
			opponent = m.Player1ID
		} else {
			continue
		}
		if opponent == nil {
			continue
		}
		if r := records[*opponent]; r != nil {
			sum += r.matchWins
		}
	}
	return sum
}

// roundRobinStyleRanks implements the documented tiebreak chain: match
// wins, game wins, points scored, point difference, head-to-head,
// Buchholz, total wins.
func roundRobinStyleRanks(participants []*models.Participant, matches []*models.Match, options models.FormatOptions) map[string]int {
	records := buildRecords(participants, matches)
	ids := make([]string, 0, len(participants))
	for _, p := range participants {
		ids = append(ids, p.ID)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := records[ids[i]], records[ids[j]]
		if a.matchWins != b.matchWins {
			return a.matchWins > b.matchWins
		}
		if a.gameWins != b.gameWins {
			return a.gameWins > b.gameWins
		}
		if a.pointsScored != b.pointsScored {
			return a.pointsScored > b.pointsScored
		}
		diffA, diffB := a.pointsScored-a.pointsAgainst, b.pointsScored-b.pointsAgainst
		if diffA != diffB {
			return diffA > diffB
		}
		if h := a.headToHead[b.id]; h != 0 {
			return h > 0
		}
		buchA := buchholz(a.id, records, matches)
		buchB := buchholz(b.id, records, matches)
		if buchA != buchB {
			return buchA > buchB
		}
		return a.matchWins > b.matchWins
	})
	return ranksFromOrder(ids)
}

// eliminationRanks derives placements from who was eliminated in which
// round: the finalist who never lost is rank 1, everyone else's rank is
// determined by how deep they advanced before their last loss.
func eliminationRanks(participants []*models.Participant, matches []*models.Match, format models.TournamentFormat) map[string]int {
	lastRoundReached := map[string]int{}
	champion := findChampion(matches)

	for _, p := range participants {
		lastRoundReached[p.ID] = 0
	}
	for _, m := range matches {
		if m.State != models.MatchComplete || m.WinnerID == nil {
			continue
		}
		depth := m.Round
		if depth < 0 {
			depth = -depth
		}
		if loser := m.Loser(); loser != nil {
			if depth > lastRoundReached[*loser] {
				lastRoundReached[*loser] = depth
			}
		}
	}

	ids := make([]string, 0, len(participants))
	for _, p := range participants {
		if champion != nil && p.ID == *champion {
			continue
		}
		ids = append(ids, p.ID)
	}
	sort.Slice(ids, func(i, j int) bool {
		return lastRoundReached[ids[i]] > lastRoundReached[ids[j]]
	})

	ranks := ranksFromGroups(ids, func(id string) int { return lastRoundReached[id] })
	if champion == nil {
		return ranks
	}

	// Shift every rank down to make room for the champion at 1: everyone
	// eliminated in the same round as each other still shares a rank,
	// e.g. A=1, B=2, C=3, D=3 for a 4-player single-elim bracket where C
	// and D both lose in round 1.
	shifted := make(map[string]int, len(ranks)+1)
	for id, r := range ranks {
		shifted[id] = r + 1
	}
	shifted[*champion] = 1
	return shifted
}

// findChampion locates the terminal match of an elimination bracket: a
// completed match whose id is not a prerequisite of any other match.
// Among candidates (there should only ever be one, but a skipped GF2
// can leave a stale GF1 entry) the one with the highest round wins.
func findChampion(matches []*models.Match) *string {
	hasDownstream := map[string]bool{}
	for _, m := range matches {
		if m.Prereq1MatchID != nil {
			hasDownstream[*m.Prereq1MatchID] = true
		}
		if m.Prereq2MatchID != nil {
			hasDownstream[*m.Prereq2MatchID] = true
		}
	}
	var champion *string
	bestRound := -1 << 30
	for _, m := range matches {
		if m.State != models.MatchComplete || m.WinnerID == nil || hasDownstream[m.ID] {
			continue
		}
		if m.Round > bestRound {
			bestRound = m.Round
			champion = m.WinnerID
		}
	}
	return champion
}

func ranksFromOrder(ids []string) map[string]int {
	ranks := make(map[string]int, len(ids))
	for i, id := range ids {
		ranks[id] = i + 1
	}
	return ranks
}

// ranksFromGroups assigns competition ranking (1224-style: tied entries
// share a rank and the next rank skips by the group's size) over ids
// already sorted best-to-worst, grouping consecutive ids whose key()
// matches.
func ranksFromGroups(ids []string, key func(string) int) map[string]int {
	ranks := make(map[string]int, len(ids))
	i := 0
	for i < len(ids) {
		j := i
		for j < len(ids) && key(ids[j]) == key(ids[i]) {
			j++
		}
		for k := i; k < j; k++ {
			ranks[ids[k]] = i + 1
		}
		i = j
	}
	return ranks
}
