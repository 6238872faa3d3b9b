package coordinator

import (
	"context"

	"tournamentlive/internal/apperrors"
	"tournamentlive/internal/models"
)

// UpdateSponsorConfig replaces a tenant's sponsor feature configuration
// and re-arms the rotation/cycling schedules to match, all inside the
// tenant lane so a concurrent rotation tick never reads a half-written
// config off disk.
func (c *Coordinator) UpdateSponsorConfig(ctx context.Context, tenantID int64, actor string, config models.SponsorConfig) (*models.SponsorState, error) {
	result, err := c.withLane(ctx, tenantID, actor, "sponsor.config_updated", func() (interface{}, error) {
		if c.sponsors == nil {
			return nil, apperrors.RefusedPrecondition("sponsor store is not configured")
		}
		state, err := c.sponsors.Load(tenantID)
		if err != nil {
			return nil, apperrors.Transient("load sponsor state", err)
		}
		state.Config = config
		if err := c.sponsors.Save(state); err != nil {
			return nil, apperrors.Transient("save sponsor state", err)
		}
		c.rearmSponsorSchedules(tenantID, state)
		return state, nil
	})
	if err != nil {
		return nil, err
	}
	state, _ := result.(*models.SponsorState)
	return state, nil
}

// UploadSponsorItem adds or replaces a sponsor item by id.
func (c *Coordinator) UploadSponsorItem(ctx context.Context, tenantID int64, actor string, item models.SponsorItem) (*models.SponsorState, error) {
	result, err := c.withLane(ctx, tenantID, actor, "sponsor.item_uploaded", func() (interface{}, error) {
		if c.sponsors == nil {
			return nil, apperrors.RefusedPrecondition("sponsor store is not configured")
		}
		state, err := c.sponsors.Load(tenantID)
		if err != nil {
			return nil, apperrors.Transient("load sponsor state", err)
		}

		item.TenantID = tenantID
		replaced := false
		for i := range state.Sponsors {
			if state.Sponsors[i].ID == item.ID {
				state.Sponsors[i] = item
				replaced = true
				break
			}
		}
		if !replaced {
			state.Sponsors = append(state.Sponsors, item)
		}

		if err := c.sponsors.Save(state); err != nil {
			return nil, apperrors.Transient("save sponsor state", err)
		}
		c.rearmSponsorSchedules(tenantID, state)
		return state, nil
	})
	if err != nil {
		return nil, err
	}
	state, _ := result.(*models.SponsorState)
	return state, nil
}

// DeleteSponsorItem removes a sponsor item by id, refusing with NotFound
// if it doesn't exist.
func (c *Coordinator) DeleteSponsorItem(ctx context.Context, tenantID int64, actor, itemID string) (*models.SponsorState, error) {
	result, err := c.withLane(ctx, tenantID, actor, "sponsor.item_deleted", func() (interface{}, error) {
		if c.sponsors == nil {
			return nil, apperrors.RefusedPrecondition("sponsor store is not configured")
		}
		state, err := c.sponsors.Load(tenantID)
		if err != nil {
			return nil, apperrors.Transient("load sponsor state", err)
		}

		kept := state.Sponsors[:0]
		found := false
		for _, item := range state.Sponsors {
			if item.ID == itemID {
				found = true
				continue
			}
			kept = append(kept, item)
		}
		if !found {
			return nil, apperrors.NotFound("sponsor item not found")
		}
		state.Sponsors = kept

		if err := c.sponsors.Save(state); err != nil {
			return nil, apperrors.Transient("save sponsor state", err)
		}
		c.rearmSponsorSchedules(tenantID, state)
		return state, nil
	})
	if err != nil {
		return nil, err
	}
	state, _ := result.(*models.SponsorState)
	return state, nil
}

func (c *Coordinator) rearmSponsorSchedules(tenantID int64, state *models.SponsorState) {
	if c.sponsorSched == nil {
		return
	}
	c.sponsorSched.ArmRotation(tenantID, state)
	c.sponsorSched.ArmCycling(tenantID, state)
}
