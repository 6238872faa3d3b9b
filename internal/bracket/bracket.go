// Package bracket implements the bracket engine: pure, side-effect-free
// generation and ranking for all seven supported tournament formats. It
// never touches the database or the clock; the match store and coordinator
// call into it and persist whatever it returns.
package bracket

import (
	"errors"
	"fmt"

	"tournamentlive/internal/models"
)

// ErrBadInput is wrapped into format-specific messages when a generate
// call receives too few participants or an invalid option combination.
var ErrBadInput = errors.New("bracket: bad input")

// Minimum participant counts per §4.1.
const (
	MinParticipantsElimination = 2
	MinParticipantsFreeForAll  = 3
)

// GenerateResult is the output of Generate: the match graph plus whatever
// bookkeeping metadata a caller wants to persist alongside it.
type GenerateResult struct {
	Matches     []*models.Match
	SeedingMeta map[string]interface{}
	Stats       map[string]interface{}
}

// Generate produces the complete match graph for a tournament, using
// temporary match ids (tmp-1, tmp-2, ...) since no real ids exist yet.
// The store patches prereq links to real ids in a second pass once the
// matches are persisted.
func Generate(format models.TournamentFormat, participants []*models.Participant, options models.FormatOptions) (*GenerateResult, error) {
	switch format {
	case models.FormatSingleElimination:
		return generateSingleElimination(participants, options)
	case models.FormatDoubleElimination:
		return generateDoubleElimination(participants, options)
	case models.FormatRoundRobin:
		return generateRoundRobin(participants, options)
	case models.FormatSwiss:
		return generateSwissFirstRound(participants, options)
	case models.FormatTwoStage:
		return generateTwoStageStageOne(participants, options)
	case models.FormatFreeForAll:
		return generateFreeForAllFirstRound(participants, options)
	case models.FormatLeaderboard:
		return generateLeaderboard(participants, options)
	default:
		return nil, fmt.Errorf("bracket: unsupported format %q", format)
	}
}

// CalculateFinalRanks computes participant→rank for the given format and
// current match state, using the format's documented tiebreak chain.
func CalculateFinalRanks(format models.TournamentFormat, participants []*models.Participant, matches []*models.Match, options models.FormatOptions) (map[string]int, error) {
	switch format {
	case models.FormatSingleElimination, models.FormatDoubleElimination:
		return eliminationRanks(participants, matches, format), nil
	case models.FormatRoundRobin, models.FormatSwiss:
		return roundRobinStyleRanks(participants, matches, options), nil
	case models.FormatTwoStage:
		return eliminationRanks(participants, matches, format), nil
	case models.FormatFreeForAll:
		return freeForAllRanks(participants, matches, options), nil
	case models.FormatLeaderboard:
		return leaderboardRanks(participants, matches, options), nil
	default:
		return nil, fmt.Errorf("bracket: unsupported format %q", format)
	}
}

// Visualization is an opaque (to the bracket engine's callers) render-ready
// structure: rounds of matches in display order, plus standings if the
// format has them.
type Visualization struct {
	Format    models.TournamentFormat  `json:"format"`
	Rounds    [][]*models.Match        `json:"rounds"`
	Standings []StandingRow            `json:"standings,omitempty"`
}

// StandingRow is one row of a standings table for group-play formats.
type StandingRow struct {
	ParticipantID string  `json:"participant_id"`
	Rank          int     `json:"rank"`
	Points        float64 `json:"points"`
	Wins          int     `json:"wins"`
	Losses        int     `json:"losses"`
	Draws         int     `json:"draws"`
}

// GetVisualization groups matches into display rounds. Losers-bracket
// rounds (negative Round) are kept in their own ascending-by-abs order
// after the winners rounds, matching how the teacher's bracket viewer
// expects round ordering.
func GetVisualization(format models.TournamentFormat, matches []*models.Match) *Visualization {
	winners := map[int][]*models.Match{}
	losers := map[int][]*models.Match{}
	maxWinner, maxLoser := 0, 0
	for _, m := range matches {
		if m.Round < 0 {
			r := -m.Round
			losers[r] = append(losers[r], m)
			if r > maxLoser {
				maxLoser = r
			}
			continue
		}
		winners[m.Round] = append(winners[m.Round], m)
		if m.Round > maxWinner {
			maxWinner = m.Round
		}
	}
	rounds := make([][]*models.Match, 0, maxWinner+maxLoser)
	for r := 0; r <= maxWinner; r++ {
		if len(winners[r]) == 0 {
			continue
		}
		rounds = append(rounds, sortedByPosition(winners[r]))
	}
	for r := 1; r <= maxLoser; r++ {
		if len(losers[r]) == 0 {
			continue
		}
		rounds = append(rounds, sortedByPosition(losers[r]))
	}
	return &Visualization{Format: format, Rounds: rounds}
}

func sortedByPosition(matches []*models.Match) []*models.Match {
	out := make([]*models.Match, len(matches))
	copy(out, matches)
	for i := 1; i < len(out); i++ {
		j := i
		for j > 0 && out[j-1].BracketPosition > out[j].BracketPosition {
			out[j-1], out[j] = out[j], out[j-1]
			j--
		}
	}
	return out
}

// Advance is the format-agnostic advancement rule (§4.1): given a
// just-completed match, place its winner or loser into every waiting
// match that names it as a prerequisite, opening that match once both
// slots are filled. It returns the matches that newly transitioned to
// open so callers can journal/push them. Safe to call repeatedly; it is
// also used internally during generation to cascade bye advancement.
func Advance(matches []*models.Match, completed *models.Match) []*models.Match {
	var opened []*models.Match
	for _, w := range matches {
		changed := false
		if w.Prereq1MatchID != nil && *w.Prereq1MatchID == completed.ID {
			w.Player1ID = pick(completed, w.Prereq1IsLoser)
			changed = true
		}
		if w.Prereq2MatchID != nil && *w.Prereq2MatchID == completed.ID {
			w.Player2ID = pick(completed, w.Prereq2IsLoser)
			changed = true
		}
		if changed && w.ReadyToOpen() {
			w.State = models.MatchOpen
			opened = append(opened, w)
		}
	}
	return opened
}

func pick(completed *models.Match, wantLoser bool) *string {
	if wantLoser {
		return completed.Loser()
	}
	return completed.WinnerID
}

// settleBye marks a one-sided match complete immediately, the way
// generate() does for every match it creates with only one real
// participant.
func settleBye(m *models.Match) {
	m.IsBye = true
	m.State = models.MatchComplete
	m.SuggestedPlayOrder = nil
	if m.Player1ID != nil {
		m.WinnerID = m.Player1ID
	} else {
		m.WinnerID = m.Player2ID
	}
}

// cascadeByes repeatedly applies Advance for every already-complete bye
// match until no further match becomes complete as a result, so chains
// of byes in small brackets resolve entirely at generation time.
func cascadeByes(matches []*models.Match) {
	settled := map[string]bool{}
	for {
		progressed := false
		for _, m := range matches {
			if m.State != models.MatchComplete || settled[m.ID] {
				continue
			}
			settled[m.ID] = true
			progressed = true
			Advance(matches, m)
		}
		if !progressed {
			break
		}
	}
}

func tempID(seq *int) string {
	*seq++
	return fmt.Sprintf("tmp-%d", *seq)
}
