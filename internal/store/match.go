package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"tournamentlive/internal/apperrors"
	"tournamentlive/internal/bracket"
	"tournamentlive/internal/models"
)

const matchColumns = `
	id, tournament_id, identifier, round, bracket_position, losers_bracket,
	player1_id, player2_id, lobby_participants,
	prereq1_match_id, prereq1_is_loser, prereq2_match_id, prereq2_is_loser,
	suggested_play_order, scores, winner_id, loser_id, forfeit, state,
	is_bye, is_grand_finals, is_grand_finals_reset, conditional, station_id,
	underway_at, completed_at, created_at, updated_at
`

func scanMatch(row interface{ Scan(...interface{}) error }) (*models.Match, error) {
	var m models.Match
	err := row.Scan(
		&m.ID, &m.TournamentID, &m.Identifier, &m.Round, &m.BracketPosition, &m.LosersBracket,
		&m.Player1ID, &m.Player2ID, &m.LobbyParticipants,
		&m.Prereq1MatchID, &m.Prereq1IsLoser, &m.Prereq2MatchID, &m.Prereq2IsLoser,
		&m.SuggestedPlayOrder, &m.Scores, &m.WinnerID, &m.LoserID, &m.Forfeit, &m.State,
		&m.IsBye, &m.IsGrandFinals, &m.IsGrandFinalsReset, &m.Conditional, &m.StationID,
		&m.UnderwayAt, &m.CompletedAt, &m.CreatedAt, &m.UpdatedAt,
	)
	return &m, err
}

// BulkCreateMatches inserts a freshly generated match graph in one
// transaction. bracket.Generate produces matches addressed by temporary
// ids; this assigns real ids, inserts every row with prereq columns left
// null, then patches prereqs to the real ids in a second pass (the graph
// is only fully linked once every row exists).
func (s *Store) BulkCreateMatches(ctx context.Context, tournamentID string, matches []*models.Match) ([]*models.Match, error) {
	now := time.Now().UTC()
	idMap := make(map[string]string, len(matches))
	for _, m := range matches {
		idMap[m.ID] = newID()
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for _, m := range matches {
			m.TournamentID = tournamentID
			m.ID = idMap[m.ID]
			m.CreatedAt = now
			m.UpdatedAt = now
			_, err := tx.ExecContext(ctx, `
				INSERT INTO matches (
					id, tournament_id, identifier, round, bracket_position, losers_bracket,
					player1_id, player2_id, lobby_participants,
					prereq1_match_id, prereq1_is_loser, prereq2_match_id, prereq2_is_loser,
					suggested_play_order, scores, winner_id, loser_id, forfeit, state,
					is_bye, is_grand_finals, is_grand_finals_reset, conditional, station_id,
					underway_at, completed_at, created_at, updated_at
				) VALUES (
					?, ?, ?, ?, ?, ?, ?, ?, ?, NULL, ?, NULL, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL, ?, ?, ?, ?
				)
			`,
				m.ID, m.TournamentID, m.Identifier, m.Round, m.BracketPosition, m.LosersBracket,
				m.Player1ID, m.Player2ID, m.LobbyParticipants,
				m.Prereq1IsLoser, m.Prereq2IsLoser,
				m.SuggestedPlayOrder, m.Scores, m.WinnerID, m.LoserID, m.Forfeit, m.State,
				m.IsBye, m.IsGrandFinals, m.IsGrandFinalsReset, m.Conditional,
				m.UnderwayAt, m.CompletedAt, m.CreatedAt, m.UpdatedAt,
			)
			if err != nil {
				return apperrors.Transient("insert match", err)
			}
		}

		for _, m := range matches {
			var p1, p2 *string
			if m.Prereq1MatchID != nil {
				real, ok := idMap[*m.Prereq1MatchID]
				if !ok {
					return apperrors.Fatal("prereq references unknown temp id", fmt.Errorf("%s", *m.Prereq1MatchID))
				}
				p1 = &real
			}
			if m.Prereq2MatchID != nil {
				real, ok := idMap[*m.Prereq2MatchID]
				if !ok {
					return apperrors.Fatal("prereq references unknown temp id", fmt.Errorf("%s", *m.Prereq2MatchID))
				}
				p2 = &real
			}
			m.Prereq1MatchID = p1
			m.Prereq2MatchID = p2
			if p1 == nil && p2 == nil {
				continue
			}
			_, err := tx.ExecContext(ctx, `
				UPDATE matches SET prereq1_match_id = ?, prereq2_match_id = ? WHERE id = ?
			`, m.Prereq1MatchID, m.Prereq2MatchID, m.ID)
			if err != nil {
				return apperrors.Transient("patch prereqs", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return matches, nil
}

// UpdatePrereqs rewrites a single match's prereq links, used when a
// tournament adds matches after initial generation (e.g. two-stage's
// knockout round, appended once group play completes).
func (s *Store) UpdatePrereqs(ctx context.Context, matchID string, prereq1, prereq2 *string, prereq1IsLoser, prereq2IsLoser bool) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE matches SET prereq1_match_id = ?, prereq1_is_loser = ?,
		                    prereq2_match_id = ?, prereq2_is_loser = ?
		WHERE id = ?
	`, prereq1, prereq1IsLoser, prereq2, prereq2IsLoser, matchID)
	if err != nil {
		return apperrors.Transient("update prereqs", err)
	}
	return rowsAffectedOrNotFound(res, "match")
}

// MatchFilter narrows GetMatchesByTournament's result set. Zero-valued
// fields are not applied.
type MatchFilter struct {
	State     *models.MatchState
	Round     *int
	StationID *string
}

// GetMatchesByTournament lists a tournament's matches ordered by round,
// then bracket position (losers rounds, stored as negative round numbers,
// sort first); suggested play order is not applied.
func (s *Store) GetMatchesByTournament(ctx context.Context, tournamentID string, filter MatchFilter) ([]*models.Match, error) {
	query := "SELECT " + matchColumns + " FROM matches WHERE tournament_id = ?"
	args := []interface{}{tournamentID}

	if filter.State != nil {
		query += " AND state = ?"
		args = append(args, *filter.State)
	}
	if filter.Round != nil {
		query += " AND round = ?"
		args = append(args, *filter.Round)
	}
	if filter.StationID != nil {
		query += " AND station_id = ?"
		args = append(args, *filter.StationID)
	}
	query += " ORDER BY round, bracket_position"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Transient("query matches", err)
	}
	defer rows.Close()

	var out []*models.Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, apperrors.Transient("scan match", err)
		}
		out = append(out, m)
	}
	return out, nil
}

func (s *Store) getMatchTx(ctx context.Context, tx *sql.Tx, id string) (*models.Match, error) {
	row := tx.QueryRowContext(ctx, "SELECT "+matchColumns+" FROM matches WHERE id = ? FOR UPDATE", id)
	m, err := scanMatch(row)
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFound("match not found")
	}
	if err != nil {
		return nil, apperrors.Transient("query match", err)
	}
	return m, nil
}

func (s *Store) allMatchesTx(ctx context.Context, tx *sql.Tx, tournamentID string) ([]*models.Match, error) {
	rows, err := tx.QueryContext(ctx, "SELECT "+matchColumns+" FROM matches WHERE tournament_id = ?", tournamentID)
	if err != nil {
		return nil, apperrors.Transient("query matches", err)
	}
	defer rows.Close()

	var out []*models.Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, apperrors.Transient("scan match", err)
		}
		out = append(out, m)
	}
	return out, nil
}

func (s *Store) persistMatchTx(ctx context.Context, tx *sql.Tx, m *models.Match) error {
	m.UpdatedAt = time.Now().UTC()
	_, err := tx.ExecContext(ctx, `
		UPDATE matches SET
			player1_id = ?, player2_id = ?, lobby_participants = ?,
			prereq1_match_id = ?, prereq1_is_loser = ?, prereq2_match_id = ?, prereq2_is_loser = ?,
			scores = ?, winner_id = ?, loser_id = ?, forfeit = ?, state = ?,
			station_id = ?, underway_at = ?, completed_at = ?, updated_at = ?
		WHERE id = ?
	`,
		m.Player1ID, m.Player2ID, m.LobbyParticipants,
		m.Prereq1MatchID, m.Prereq1IsLoser, m.Prereq2MatchID, m.Prereq2IsLoser,
		m.Scores, m.WinnerID, m.LoserID, m.Forfeit, m.State,
		m.StationID, m.UnderwayAt, m.CompletedAt, m.UpdatedAt,
		m.ID,
	)
	if err != nil {
		return apperrors.Transient("update match", err)
	}
	return nil
}

// SetPlayer fills one slot of a pending/open match, auto-opening it once
// both slots are non-null (§3 invariant). slot must be 1 or 2.
func (s *Store) SetPlayer(ctx context.Context, matchID string, slot int, participantID string) error {
	if slot != 1 && slot != 2 {
		return apperrors.BadInput("slot must be 1 or 2")
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		m, err := s.getMatchTx(ctx, tx, matchID)
		if err != nil {
			return err
		}
		if slot == 1 {
			m.Player1ID = &participantID
		} else {
			m.Player2ID = &participantID
		}
		if m.ReadyToOpen() {
			m.State = models.MatchOpen
		}
		return s.persistMatchTx(ctx, tx, m)
	})
}

// MarkUnderway transitions an open match to underway and stamps the start
// time.
func (s *Store) MarkUnderway(ctx context.Context, matchID string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		m, err := s.getMatchTx(ctx, tx, matchID)
		if err != nil {
			return err
		}
		if m.State != models.MatchOpen {
			return apperrors.RefusedPrecondition("match is not open")
		}
		now := time.Now().UTC()
		m.State = models.MatchUnderway
		m.UnderwayAt = &now
		return s.persistMatchTx(ctx, tx, m)
	})
}

// UnmarkUnderway returns an underway match to open, clearing the start
// stamp (a correction path, e.g. a station was started by mistake).
func (s *Store) UnmarkUnderway(ctx context.Context, matchID string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		m, err := s.getMatchTx(ctx, tx, matchID)
		if err != nil {
			return err
		}
		if m.State != models.MatchUnderway {
			return apperrors.RefusedPrecondition("match is not underway")
		}
		m.State = models.MatchOpen
		m.UnderwayAt = nil
		return s.persistMatchTx(ctx, tx, m)
	})
}

// SetWinner records a match result: validates the winner is one of the
// two players, completes the match, runs the format-agnostic advancement
// rule against every sibling match, frees the match's station, and
// auto-assigns stations to any match that just opened. Everything commits
// in one transaction per §4.2.
func (s *Store) SetWinner(ctx context.Context, matchID, winnerID string, scores *models.Scores) ([]*models.Match, error) {
	var opened []*models.Match
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		m, err := s.getMatchTx(ctx, tx, matchID)
		if err != nil {
			return err
		}
		if m.State == models.MatchComplete {
			return apperrors.Conflict("match already complete")
		}
		if (m.Player1ID == nil || *m.Player1ID != winnerID) && (m.Player2ID == nil || *m.Player2ID != winnerID) {
			return apperrors.BadInput("winner is not a participant of this match")
		}

		now := time.Now().UTC()
		m.WinnerID = &winnerID
		m.Scores = scores
		m.State = models.MatchComplete
		m.CompletedAt = &now
		if m.Player1ID != nil && *m.Player1ID == winnerID {
			m.LoserID = m.Player2ID
		} else {
			m.LoserID = m.Player1ID
		}

		freedStation := m.StationID
		m.StationID = nil

		if err := s.persistMatchTx(ctx, tx, m); err != nil {
			return err
		}
		if freedStation != nil {
			if _, err := tx.ExecContext(ctx, `UPDATE stations SET current_match_id = NULL WHERE id = ?`, *freedStation); err != nil {
				return apperrors.Transient("free station", err)
			}
		}

		all, err := s.allMatchesTx(ctx, tx, m.TournamentID)
		if err != nil {
			return err
		}
		for _, candidate := range all {
			if candidate.ID == m.ID {
				*candidate = *m
			}
		}
		opened = bracket.Advance(all, m)

		affected := map[string]*models.Match{}
		for _, w := range all {
			if w.ID == m.ID {
				continue
			}
			if (w.Prereq1MatchID != nil && *w.Prereq1MatchID == m.ID) || (w.Prereq2MatchID != nil && *w.Prereq2MatchID == m.ID) {
				affected[w.ID] = w
			}
		}
		for _, w := range affected {
			if err := s.persistMatchTx(ctx, tx, w); err != nil {
				return err
			}
		}

		return s.autoAssignStationsTx(ctx, tx, m.TournamentID)
	})
	if err != nil {
		return nil, err
	}
	return opened, nil
}

// SetForfeit is equivalent to SetWinner but marks the match forfeited and
// zeroes the forfeiting side's score.
func (s *Store) SetForfeit(ctx context.Context, matchID, forfeitedID string) ([]*models.Match, error) {
	var opened []*models.Match
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		m, err := s.getMatchTx(ctx, tx, matchID)
		if err != nil {
			return err
		}
		var winnerID string
		switch {
		case m.Player1ID != nil && *m.Player1ID == forfeitedID:
			if m.Player2ID == nil {
				return apperrors.BadInput("match has no opponent to award the forfeit to")
			}
			winnerID = *m.Player2ID
		case m.Player2ID != nil && *m.Player2ID == forfeitedID:
			if m.Player1ID == nil {
				return apperrors.BadInput("match has no opponent to award the forfeit to")
			}
			winnerID = *m.Player1ID
		default:
			return apperrors.BadInput("forfeited id is not a participant of this match")
		}

		now := time.Now().UTC()
		m.WinnerID = &winnerID
		m.LoserID = &forfeitedID
		m.Forfeit = true
		m.Scores = &models.Scores{}
		m.State = models.MatchComplete
		m.CompletedAt = &now
		freedStation := m.StationID
		m.StationID = nil
		if err := s.persistMatchTx(ctx, tx, m); err != nil {
			return err
		}
		if freedStation != nil {
			if _, err := tx.ExecContext(ctx, `UPDATE stations SET current_match_id = NULL WHERE id = ?`, *freedStation); err != nil {
				return apperrors.Transient("free station", err)
			}
		}

		all, err := s.allMatchesTx(ctx, tx, m.TournamentID)
		if err != nil {
			return err
		}
		for _, candidate := range all {
			if candidate.ID == m.ID {
				*candidate = *m
			}
		}
		opened = bracket.Advance(all, m)
		for _, w := range all {
			if w.ID == m.ID {
				continue
			}
			if (w.Prereq1MatchID != nil && *w.Prereq1MatchID == m.ID) || (w.Prereq2MatchID != nil && *w.Prereq2MatchID == m.ID) {
				if err := s.persistMatchTx(ctx, tx, w); err != nil {
					return err
				}
			}
		}
		return s.autoAssignStationsTx(ctx, tx, m.TournamentID)
	})
	if err != nil {
		return nil, err
	}
	return opened, nil
}

// Reopen undoes a completed match's result, refusing if any direct child
// (a match whose prereq points straight at this one) has already reached
// complete (see DESIGN.md's Open Question decision: non-transitive scope).
func (s *Store) Reopen(ctx context.Context, matchID string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		m, err := s.getMatchTx(ctx, tx, matchID)
		if err != nil {
			return err
		}
		if m.State != models.MatchComplete {
			return apperrors.RefusedPrecondition("match is not complete")
		}

		all, err := s.allMatchesTx(ctx, tx, m.TournamentID)
		if err != nil {
			return err
		}

		var children []*models.Match
		for _, w := range all {
			if (w.Prereq1MatchID != nil && *w.Prereq1MatchID == m.ID) || (w.Prereq2MatchID != nil && *w.Prereq2MatchID == m.ID) {
				children = append(children, w)
			}
		}
		for _, c := range children {
			if c.State == models.MatchComplete {
				return apperrors.RefusedPrecondition("a dependent match has already completed")
			}
		}

		prevWinner, prevLoser := m.WinnerID, m.LoserID
		m.WinnerID = nil
		m.LoserID = nil
		m.Scores = nil
		m.Forfeit = false
		m.CompletedAt = nil
		m.State = models.MatchOpen
		if err := s.persistMatchTx(ctx, tx, m); err != nil {
			return err
		}

		for _, c := range children {
			changed := false
			if c.Prereq1MatchID != nil && *c.Prereq1MatchID == m.ID {
				if samePtr(c.Player1ID, prevWinner) || samePtr(c.Player1ID, prevLoser) {
					c.Player1ID = nil
					changed = true
				}
			}
			if c.Prereq2MatchID != nil && *c.Prereq2MatchID == m.ID {
				if samePtr(c.Player2ID, prevWinner) || samePtr(c.Player2ID, prevLoser) {
					c.Player2ID = nil
					changed = true
				}
			}
			if changed {
				c.State = models.MatchPending
				if err := s.persistMatchTx(ctx, tx, c); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func samePtr(a, b *string) bool {
	if a == nil || b == nil {
		return false
	}
	return *a == *b
}

// SetStation assigns a station to an open/underway match, bidirectionally
// linking both rows. Refuses if the station is already serving another
// match (§3 invariant).
func (s *Store) SetStation(ctx context.Context, matchID, stationID string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var currentMatch sql.NullString
		err := tx.QueryRowContext(ctx, `SELECT current_match_id FROM stations WHERE id = ? FOR UPDATE`, stationID).Scan(&currentMatch)
		if err == sql.ErrNoRows {
			return apperrors.NotFound("station not found")
		}
		if err != nil {
			return apperrors.Transient("query station", err)
		}
		if currentMatch.Valid && currentMatch.String != matchID {
			return apperrors.RefusedPrecondition("station already in use")
		}

		m, err := s.getMatchTx(ctx, tx, matchID)
		if err != nil {
			return err
		}
		if m.StationID != nil && *m.StationID != stationID {
			if _, err := tx.ExecContext(ctx, `UPDATE stations SET current_match_id = NULL WHERE id = ?`, *m.StationID); err != nil {
				return apperrors.Transient("clear previous station", err)
			}
		}
		m.StationID = &stationID
		if err := s.persistMatchTx(ctx, tx, m); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `UPDATE stations SET current_match_id = ? WHERE id = ?`, matchID, stationID)
		if err != nil {
			return apperrors.Transient("assign station", err)
		}
		return nil
	})
}

// ClearStation releases a match's station, clearing both sides of the link.
func (s *Store) ClearStation(ctx context.Context, matchID string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		m, err := s.getMatchTx(ctx, tx, matchID)
		if err != nil {
			return err
		}
		if m.StationID == nil {
			return nil
		}
		stationID := *m.StationID
		m.StationID = nil
		if err := s.persistMatchTx(ctx, tx, m); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `UPDATE stations SET current_match_id = NULL WHERE id = ?`, stationID)
		if err != nil {
			return apperrors.Transient("clear station", err)
		}
		return nil
	})
}

// AutoAssignStations greedily pairs available stations with open matches,
// ordered by suggested play order, round, then id, iff the tournament's
// format options enable it.
func (s *Store) AutoAssignStations(ctx context.Context, tournamentID string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return s.autoAssignStationsTx(ctx, tx, tournamentID)
	})
}

func (s *Store) autoAssignStationsTx(ctx context.Context, tx *sql.Tx, tournamentID string) error {
	var opts models.FormatOptions
	if err := tx.QueryRowContext(ctx, `SELECT format_options FROM tournaments WHERE id = ?`, tournamentID).Scan(&opts); err != nil {
		return apperrors.Transient("query tournament options", err)
	}
	if !opts.AutoAssignStations {
		return nil
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT id FROM stations WHERE tournament_id = ? AND active = TRUE AND current_match_id IS NULL ORDER BY name
	`, tournamentID)
	if err != nil {
		return apperrors.Transient("query free stations", err)
	}
	var freeStations []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return apperrors.Transient("scan station", err)
		}
		freeStations = append(freeStations, id)
	}
	rows.Close()
	if len(freeStations) == 0 {
		return nil
	}

	openRows, err := tx.QueryContext(ctx, "SELECT "+matchColumns+` FROM matches
		WHERE tournament_id = ? AND state = ? AND station_id IS NULL
		ORDER BY suggested_play_order IS NULL, suggested_play_order, round, bracket_position, id
	`, tournamentID, models.MatchOpen)
	if err != nil {
		return apperrors.Transient("query open matches", err)
	}
	var openMatches []*models.Match
	for openRows.Next() {
		m, err := scanMatch(openRows)
		if err != nil {
			openRows.Close()
			return apperrors.Transient("scan match", err)
		}
		openMatches = append(openMatches, m)
	}
	openRows.Close()

	for i := 0; i < len(freeStations) && i < len(openMatches); i++ {
		stationID, m := freeStations[i], openMatches[i]
		m.StationID = &stationID
		if err := s.persistMatchTx(ctx, tx, m); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE stations SET current_match_id = ? WHERE id = ?`, m.ID, stationID); err != nil {
			return apperrors.Transient("assign station", err)
		}
	}
	return nil
}
