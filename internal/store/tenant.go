package store

import (
	"context"
	"database/sql"

	"tournamentlive/internal/apperrors"
	"tournamentlive/internal/models"
)

// ListActiveTenants returns every tenant not marked disabled, for the
// poller's multi-tenant scan.
func (s *Store) ListActiveTenants(ctx context.Context) ([]*models.Tenant, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, slug, disabled, created_at, updated_at
		FROM tenants WHERE disabled = FALSE ORDER BY id
	`)
	if err != nil {
		return nil, apperrors.Transient("query tenants", err)
	}
	defer rows.Close()

	var out []*models.Tenant
	for rows.Next() {
		var t models.Tenant
		if err := rows.Scan(&t.ID, &t.Name, &t.Slug, &t.Disabled, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, apperrors.Transient("scan tenant", err)
		}
		out = append(out, &t)
	}
	return out, nil
}

// GetTenant fetches a tenant by id.
func (s *Store) GetTenant(ctx context.Context, id int64) (*models.Tenant, error) {
	var t models.Tenant
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, slug, disabled, created_at, updated_at
		FROM tenants WHERE id = ?
	`, id).Scan(&t.ID, &t.Name, &t.Slug, &t.Disabled, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFound("tenant not found")
	}
	if err != nil {
		return nil, apperrors.Transient("query tenant", err)
	}
	return &t, nil
}

// GetTenantSettings fetches a tenant's configured settings, falling back
// to the §6 defaults when no row exists yet (a tenant starts unconfigured).
func (s *Store) GetTenantSettings(ctx context.Context, tenantID int64) (models.TenantSettings, error) {
	var settings models.TenantSettings
	err := s.db.QueryRowContext(ctx, `
		SELECT tenant_id, poll_interval_ms, fallback_delay_ms,
		       dq_default_duration, dq_warning_threshold, auto_dq_action,
		       sponsor_rotation_interval, sponsor_rotation_order, sponsor_transition_ms,
		       timer_show_duration, timer_hide_duration
		FROM tenant_settings WHERE tenant_id = ?
	`, tenantID).Scan(
		&settings.TenantID, &settings.PollIntervalMs, &settings.FallbackDelayMs,
		&settings.DQDefaultDuration, &settings.DQWarningThreshold, &settings.AutoDQAction,
		&settings.SponsorRotationInterval, &settings.SponsorRotationOrder, &settings.SponsorTransitionMs,
		&settings.TimerShowDuration, &settings.TimerHideDuration,
	)
	if err == sql.ErrNoRows {
		return models.DefaultTenantSettings(tenantID), nil
	}
	if err != nil {
		return models.TenantSettings{}, apperrors.Transient("query tenant settings", err)
	}
	return settings, nil
}

// UpsertTenantSettings writes a tenant's full settings row.
func (s *Store) UpsertTenantSettings(ctx context.Context, settings models.TenantSettings) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tenant_settings (
			tenant_id, poll_interval_ms, fallback_delay_ms,
			dq_default_duration, dq_warning_threshold, auto_dq_action,
			sponsor_rotation_interval, sponsor_rotation_order, sponsor_transition_ms,
			timer_show_duration, timer_hide_duration
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			poll_interval_ms = VALUES(poll_interval_ms),
			fallback_delay_ms = VALUES(fallback_delay_ms),
			dq_default_duration = VALUES(dq_default_duration),
			dq_warning_threshold = VALUES(dq_warning_threshold),
			auto_dq_action = VALUES(auto_dq_action),
			sponsor_rotation_interval = VALUES(sponsor_rotation_interval),
			sponsor_rotation_order = VALUES(sponsor_rotation_order),
			sponsor_transition_ms = VALUES(sponsor_transition_ms),
			timer_show_duration = VALUES(timer_show_duration),
			timer_hide_duration = VALUES(timer_hide_duration)
	`,
		settings.TenantID, settings.PollIntervalMs, settings.FallbackDelayMs,
		settings.DQDefaultDuration, settings.DQWarningThreshold, settings.AutoDQAction,
		settings.SponsorRotationInterval, settings.SponsorRotationOrder, settings.SponsorTransitionMs,
		settings.TimerShowDuration, settings.TimerHideDuration,
	)
	if err != nil {
		return apperrors.Transient("upsert tenant settings", err)
	}
	return nil
}
