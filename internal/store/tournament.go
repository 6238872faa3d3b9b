package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"tournamentlive/internal/apperrors"
	"tournamentlive/internal/models"
)

// CreateTournament inserts a tournament row and its initial participant
// roster in one transaction. Participants without an id are assigned one.
func (s *Store) CreateTournament(ctx context.Context, t *models.Tournament, participants []*models.Participant) error {
	if t.ID == "" {
		t.ID = newID()
	}
	t.CreatedAt = time.Now().UTC()
	if t.State == "" {
		t.State = models.StatePending
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO tournaments (
				id, tenant_id, slug, name, format, state, format_options,
				active, created_at, started_at, ended_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			t.ID, t.TenantID, t.Slug, t.Name, t.Format, t.State, t.FormatOptions,
			t.Active, t.CreatedAt, t.StartedAt, t.EndedAt,
		)
		if err != nil {
			return apperrors.Transient("insert tournament", err)
		}

		for _, p := range participants {
			if p.ID == "" {
				p.ID = newID()
			}
			p.TournamentID = t.ID
			p.CreatedAt = t.CreatedAt
			p.UpdatedAt = t.CreatedAt
			_, err := tx.ExecContext(ctx, `
				INSERT INTO participants (
					id, tournament_id, name, seed, checked_in, created_at, updated_at
				) VALUES (?, ?, ?, ?, ?, ?, ?)
			`, p.ID, p.TournamentID, p.Name, p.Seed, p.CheckedIn, p.CreatedAt, p.UpdatedAt)
			if err != nil {
				return apperrors.Transient("insert participant", err)
			}
		}
		return nil
	})
}

// GetTournament fetches a tournament by id.
func (s *Store) GetTournament(ctx context.Context, id string) (*models.Tournament, error) {
	var t models.Tournament
	err := s.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, slug, name, format, state, format_options,
		       active, created_at, started_at, ended_at
		FROM tournaments WHERE id = ?
	`, id).Scan(
		&t.ID, &t.TenantID, &t.Slug, &t.Name, &t.Format, &t.State, &t.FormatOptions,
		&t.Active, &t.CreatedAt, &t.StartedAt, &t.EndedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFound("tournament not found")
	}
	if err != nil {
		return nil, apperrors.Transient("query tournament", err)
	}
	return &t, nil
}

// GetTournamentBySlug fetches a tournament by its tenant-scoped slug.
func (s *Store) GetTournamentBySlug(ctx context.Context, tenantID int64, slug string) (*models.Tournament, error) {
	var t models.Tournament
	err := s.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, slug, name, format, state, format_options,
		       active, created_at, started_at, ended_at
		FROM tournaments WHERE tenant_id = ? AND slug = ?
	`, tenantID, slug).Scan(
		&t.ID, &t.TenantID, &t.Slug, &t.Name, &t.Format, &t.State, &t.FormatOptions,
		&t.Active, &t.CreatedAt, &t.StartedAt, &t.EndedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFound("tournament not found")
	}
	if err != nil {
		return nil, apperrors.Transient("query tournament", err)
	}
	return &t, nil
}

// GetActiveTournament returns the tenant's single active tournament, if
// any (§3 invariant: exactly one underway tournament may be active).
func (s *Store) GetActiveTournament(ctx context.Context, tenantID int64) (*models.Tournament, error) {
	var t models.Tournament
	err := s.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, slug, name, format, state, format_options,
		       active, created_at, started_at, ended_at
		FROM tournaments WHERE tenant_id = ? AND active = TRUE
	`, tenantID).Scan(
		&t.ID, &t.TenantID, &t.Slug, &t.Name, &t.Format, &t.State, &t.FormatOptions,
		&t.Active, &t.CreatedAt, &t.StartedAt, &t.EndedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFound("no active tournament for tenant")
	}
	if err != nil {
		return nil, apperrors.Transient("query active tournament", err)
	}
	return &t, nil
}

// SetTournamentState transitions a tournament's lifecycle state, stamping
// started_at the first time it enters underway and ended_at every time it
// enters complete.
func (s *Store) SetTournamentState(ctx context.Context, id string, state models.TournamentState) error {
	now := time.Now().UTC()
	var query string
	var args []interface{}
	switch state {
	case models.StateUnderway:
		query = `UPDATE tournaments SET state = ?, started_at = COALESCE(started_at, ?) WHERE id = ?`
		args = []interface{}{state, now, id}
	case models.StateComplete:
		query = `UPDATE tournaments SET state = ?, ended_at = ? WHERE id = ?`
		args = []interface{}{state, now, id}
	default:
		query = `UPDATE tournaments SET state = ? WHERE id = ?`
		args = []interface{}{state, id}
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.Transient("update tournament state", err)
	}
	return rowsAffectedOrNotFound(res, "tournament")
}

// SetActiveTournament marks one tournament active for its tenant and
// demotes any previously active tournament, preserving the §3 invariant
// that at most one tournament drives pushes per tenant.
func (s *Store) SetActiveTournament(ctx context.Context, tenantID int64, id string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `UPDATE tournaments SET active = FALSE WHERE tenant_id = ? AND active = TRUE`, tenantID); err != nil {
			return apperrors.Transient("demote active tournament", err)
		}
		res, err := tx.ExecContext(ctx, `UPDATE tournaments SET active = TRUE WHERE id = ? AND tenant_id = ?`, id, tenantID)
		if err != nil {
			return apperrors.Transient("promote active tournament", err)
		}
		return rowsAffectedOrNotFound(res, "tournament")
	})
}

// GetParticipantsByTournament lists a tournament's roster, seed ascending.
func (s *Store) GetParticipantsByTournament(ctx context.Context, tournamentID string) ([]*models.Participant, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tournament_id, name, seed, checked_in, created_at, updated_at
		FROM participants WHERE tournament_id = ? ORDER BY seed IS NULL, seed, name
	`, tournamentID)
	if err != nil {
		return nil, apperrors.Transient("query participants", err)
	}
	defer rows.Close()

	var out []*models.Participant
	for rows.Next() {
		var p models.Participant
		if err := rows.Scan(&p.ID, &p.TournamentID, &p.Name, &p.Seed, &p.CheckedIn, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, apperrors.Transient("scan participant", err)
		}
		out = append(out, &p)
	}
	return out, nil
}

// DeleteParticipant removes a participant, refusing per §3 if it is
// referenced by any match that has progressed past pending.
func (s *Store) DeleteParticipant(ctx context.Context, id string) error {
	var inUse int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM matches
		WHERE (player1_id = ? OR player2_id = ?) AND state != ?
	`, id, id, models.MatchPending).Scan(&inUse)
	if err != nil {
		return apperrors.Transient("check participant usage", err)
	}
	if inUse > 0 {
		return apperrors.RefusedPrecondition("participant referenced by a non-pending match")
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM participants WHERE id = ?`, id)
	if err != nil {
		return apperrors.Transient("delete participant", err)
	}
	return rowsAffectedOrNotFound(res, "participant")
}

// CreateStations inserts a tournament's named play areas.
func (s *Store) CreateStations(ctx context.Context, tournamentID string, names []string) ([]*models.Station, error) {
	now := time.Now().UTC()
	var out []*models.Station
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for _, name := range names {
			st := &models.Station{
				ID:           newID(),
				TournamentID: tournamentID,
				Name:         name,
				Active:       true,
				CreatedAt:    now,
				UpdatedAt:    now,
			}
			_, err := tx.ExecContext(ctx, `
				INSERT INTO stations (id, tournament_id, name, active, current_match_id, created_at, updated_at)
				VALUES (?, ?, ?, ?, NULL, ?, ?)
			`, st.ID, st.TournamentID, st.Name, st.Active, st.CreatedAt, st.UpdatedAt)
			if err != nil {
				return apperrors.Transient("insert station", err)
			}
			out = append(out, st)
		}
		return nil
	})
	return out, err
}

// GetStationsByTournament lists a tournament's stations, name ascending.
func (s *Store) GetStationsByTournament(ctx context.Context, tournamentID string) ([]*models.Station, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tournament_id, name, active, current_match_id, created_at, updated_at
		FROM stations WHERE tournament_id = ? ORDER BY name
	`, tournamentID)
	if err != nil {
		return nil, apperrors.Transient("query stations", err)
	}
	defer rows.Close()

	var out []*models.Station
	for rows.Next() {
		var st models.Station
		if err := rows.Scan(&st.ID, &st.TournamentID, &st.Name, &st.Active, &st.CurrentMatchID, &st.CreatedAt, &st.UpdatedAt); err != nil {
			return nil, apperrors.Transient("scan station", err)
		}
		out = append(out, &st)
	}
	return out, nil
}

func rowsAffectedOrNotFound(res sql.Result, entity string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return apperrors.Transient("rows affected", err)
	}
	if n == 0 {
		return apperrors.NotFound(fmt.Sprintf("%s not found", entity))
	}
	return nil
}
