package guardian

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/medplane/guardian/emergency"
	"github.com/medplane/guardian/id"
	"github.com/medplane/guardian/policy"
)

// EmergencyRequest is the input for requesting emergency access.
type EmergencyRequest struct {
	RequesterUserID string                `json:"requester_user_id"`
	PatientID       string                `json:"patient_id,omitempty"`
	Reason          string                `json:"reason"`
	EmergencyType   emergency.Type        `json:"emergency_type"`
	Scope           emergency.AccessScope `json:"scope,omitempty"`
	DurationMinutes int                   `json:"duration_minutes"`
	Permissions     []string              `json:"permissions"`
}

// RequestEmergencyAccess opens a pending emergency access grant. The grant
// confers nothing until approved. The requested duration is clamped to the
// allowed bounds, never rejected.
func (e *Engine) RequestEmergencyAccess(ctx context.Context, tenantID string, req *EmergencyRequest) (*emergency.Grant, error) {
	if req == nil || tenantID == "" || req.RequesterUserID == "" {
		return nil, fmt.Errorf("%w: tenant and requester are required", ErrValidation)
	}
	if strings.TrimSpace(req.Reason) == "" {
		return nil, fmt.Errorf("%w: a clinical reason is required", ErrValidation)
	}
	if len(req.Permissions) == 0 {
		return nil, fmt.Errorf("%w: at least one permission must be requested", ErrValidation)
	}

	emergencyType := req.EmergencyType
	if emergencyType == "" {
		emergencyType = emergency.TypeMedical
	}
	scope := req.Scope
	if scope == "" {
		if req.PatientID != "" {
			scope = emergency.ScopeSpecific
		} else {
			scope = emergency.ScopeLimited
		}
	}

	g := &emergency.Grant{
		ID:                 id.NewGrantID(),
		TenantID:           tenantID,
		RequesterUserID:    req.RequesterUserID,
		PatientID:          req.PatientID,
		Reason:             strings.TrimSpace(req.Reason),
		EmergencyType:      emergencyType,
		AccessCode:         uuid.NewString(),
		GrantedPermissions: append([]string(nil), req.Permissions...),
		Scope:              scope,
		DurationMinutes:    emergency.ClampDuration(req.DurationMinutes),
		Status:             emergency.StatusPending,
		RequestedAt:        e.now(),
		Version:            1,
	}

	if err := e.store.CreateGrant(ctx, g); err != nil {
		return nil, fmt.Errorf("create emergency grant: %w", err)
	}

	e.logger.Info("emergency access requested",
		slog.String("tenant_id", tenantID),
		slog.String("grant_id", g.ID.String()),
		slog.String("requester", g.RequesterUserID),
		slog.String("type", string(g.EmergencyType)),
	)
	if e.plugins != nil {
		e.plugins.EmitEmergencyRequested(ctx, g)
	}
	return g, nil
}

// ApproveEmergencyAccess transitions a pending grant to Active, effective
// immediately for the clamped duration. Approval synthesizes one transient
// high-priority Allow policy per granted permission code, scoped to the
// requester alone, so both authorization gates open for exactly the
// granted codes. Requesters cannot approve their own grants.
func (e *Engine) ApproveEmergencyAccess(ctx context.Context, tenantID string, grantID id.GrantID, approverUserID, notes string) (*emergency.Grant, error) {
	g, err := e.tenantGrant(ctx, tenantID, grantID)
	if err != nil {
		return nil, err
	}
	if g.Status != emergency.StatusPending {
		return nil, fmt.Errorf("%w: cannot approve grant in status %s", ErrStateConflict, g.Status)
	}
	if approverUserID == "" {
		return nil, fmt.Errorf("%w: approver is required", ErrValidation)
	}
	if approverUserID == g.RequesterUserID {
		return nil, fmt.Errorf("%w: requester cannot approve their own grant", ErrValidation)
	}

	now := e.now()
	expiresAt := now.Add(time.Duration(g.DurationMinutes) * time.Minute)

	if err := e.createSyntheticPolicies(ctx, g, expiresAt, now); err != nil {
		return nil, err
	}

	expectedVersion := g.Version
	g.Status = emergency.StatusActive
	g.ApprovedByUserID = approverUserID
	g.ApprovedAt = &now
	g.ExpiresAt = &expiresAt
	g.Notes = notes

	if err := e.store.UpdateGrant(ctx, g, expectedVersion); err != nil {
		// Another transition won the race; the synthetic policies must
		// not outlive the failed approval.
		if delErr := e.store.DeletePoliciesByGrant(ctx, g.ID); delErr != nil {
			e.logger.Error("orphaned synthetic policies after failed approval",
				slog.String("grant_id", g.ID.String()),
				slog.String("error", delErr.Error()),
			)
		}
		if errors.Is(err, emergency.ErrVersionConflict) {
			return nil, fmt.Errorf("%w: grant was modified concurrently", ErrStateConflict)
		}
		return nil, fmt.Errorf("update emergency grant: %w", err)
	}

	e.invalidateUser(ctx, tenantID, g.RequesterUserID)
	e.logger.Info("emergency access approved",
		slog.String("tenant_id", tenantID),
		slog.String("grant_id", g.ID.String()),
		slog.String("approver", approverUserID),
		slog.Time("expires_at", expiresAt),
	)
	if e.plugins != nil {
		e.plugins.EmitEmergencyTransitioned(ctx, g, emergency.StatusPending)
	}
	return g, nil
}

// RejectEmergencyAccess transitions a pending grant to Rejected.
func (e *Engine) RejectEmergencyAccess(ctx context.Context, tenantID string, grantID id.GrantID, reviewerUserID, reason string) (*emergency.Grant, error) {
	g, err := e.tenantGrant(ctx, tenantID, grantID)
	if err != nil {
		return nil, err
	}
	if g.Status != emergency.StatusPending {
		return nil, fmt.Errorf("%w: cannot reject grant in status %s", ErrStateConflict, g.Status)
	}

	now := e.now()
	expectedVersion := g.Version
	g.Status = emergency.StatusRejected
	g.ApprovedByUserID = reviewerUserID
	g.RejectedAt = &now
	g.DecisionReason = reason

	if err := e.store.UpdateGrant(ctx, g, expectedVersion); err != nil {
		if errors.Is(err, emergency.ErrVersionConflict) {
			return nil, fmt.Errorf("%w: grant was modified concurrently", ErrStateConflict)
		}
		return nil, fmt.Errorf("update emergency grant: %w", err)
	}

	if e.plugins != nil {
		e.plugins.EmitEmergencyTransitioned(ctx, g, emergency.StatusPending)
	}
	return g, nil
}

// RevokeEmergencyAccess pulls an active grant early. The synthetic policies
// are hard-deleted, so elevated access ends on the very next check.
func (e *Engine) RevokeEmergencyAccess(ctx context.Context, tenantID string, grantID id.GrantID, revokerUserID, reason string) (*emergency.Grant, error) {
	g, err := e.tenantGrant(ctx, tenantID, grantID)
	if err != nil {
		return nil, err
	}
	if g.Status != emergency.StatusActive {
		return nil, fmt.Errorf("%w: cannot revoke grant in status %s", ErrStateConflict, g.Status)
	}

	now := e.now()
	expectedVersion := g.Version
	g.Status = emergency.StatusRevoked
	g.RevokedByUserID = revokerUserID
	g.RevokedAt = &now
	g.DecisionReason = reason

	if err := e.store.UpdateGrant(ctx, g, expectedVersion); err != nil {
		if errors.Is(err, emergency.ErrVersionConflict) {
			return nil, fmt.Errorf("%w: grant was modified concurrently", ErrStateConflict)
		}
		return nil, fmt.Errorf("update emergency grant: %w", err)
	}

	if err := e.store.DeletePoliciesByGrant(ctx, g.ID); err != nil {
		return nil, fmt.Errorf("delete synthetic policies: %w", err)
	}

	e.invalidateUser(ctx, tenantID, g.RequesterUserID)
	e.logger.Info("emergency access revoked",
		slog.String("tenant_id", tenantID),
		slog.String("grant_id", g.ID.String()),
		slog.String("revoker", revokerUserID),
	)
	if e.plugins != nil {
		e.plugins.EmitEmergencyTransitioned(ctx, g, emergency.StatusActive)
	}
	return g, nil
}

// GetEmergencyGrant retrieves a grant within a tenant.
func (e *Engine) GetEmergencyGrant(ctx context.Context, tenantID string, grantID id.GrantID) (*emergency.Grant, error) {
	return e.tenantGrant(ctx, tenantID, grantID)
}

// ListEmergencyGrants returns grants matching the filter, pinned to the
// tenant.
func (e *Engine) ListEmergencyGrants(ctx context.Context, tenantID string, filter *emergency.ListFilter) ([]*emergency.Grant, error) {
	if filter == nil {
		filter = &emergency.ListFilter{}
	}
	filter.TenantID = tenantID
	return e.store.ListEmergencyGrants(ctx, filter)
}

// ExpireOverdueGrants transitions every overdue active grant to Expired and
// removes its synthetic policies. CAS losers are skipped: whoever won has
// already moved the grant out of Active. Returns the number expired.
func (e *Engine) ExpireOverdueGrants(ctx context.Context) (int, error) {
	now := e.now()
	overdue, err := e.store.ListOverdueGrants(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("list overdue grants: %w", err)
	}

	expired := 0
	for _, g := range overdue {
		expectedVersion := g.Version
		g.Status = emergency.StatusExpired
		if err := e.store.UpdateGrant(ctx, g, expectedVersion); err != nil {
			if errors.Is(err, emergency.ErrVersionConflict) {
				continue
			}
			return expired, fmt.Errorf("expire grant %s: %w", g.ID, err)
		}
		if err := e.store.DeletePoliciesByGrant(ctx, g.ID); err != nil {
			return expired, fmt.Errorf("delete synthetic policies for %s: %w", g.ID, err)
		}
		e.invalidateUser(ctx, g.TenantID, g.RequesterUserID)
		if e.plugins != nil {
			e.plugins.EmitEmergencyTransitioned(ctx, g, emergency.StatusActive)
		}
		expired++
	}
	return expired, nil
}

// tenantGrant loads a grant and hides grants from other tenants behind
// ErrNotFound.
func (e *Engine) tenantGrant(ctx context.Context, tenantID string, grantID id.GrantID) (*emergency.Grant, error) {
	g, err := e.store.GetGrant(ctx, grantID)
	if err != nil {
		return nil, err
	}
	if g.TenantID != tenantID {
		return nil, fmt.Errorf("%w: %s", emergency.ErrNotFound, grantID)
	}
	return g, nil
}

// createSyntheticPolicies writes one transient Allow policy per granted
// permission code. Partial failures roll back everything already written
// for the grant.
func (e *Engine) createSyntheticPolicies(ctx context.Context, g *emergency.Grant, expiresAt, now time.Time) error {
	for _, code := range g.GrantedPermissions {
		action, resource := splitPermissionCode(code)
		p := &policy.Policy{
			ID:             id.NewPolicyID(),
			TenantID:       g.TenantID,
			Name:           fmt.Sprintf("emergency:%s:%s", g.ID, code),
			Description:    "transient emergency access policy",
			Effect:         policy.EffectAllow,
			Priority:       e.config.SyntheticPolicyPriority,
			IsActive:       true,
			AppliesToUsers: []string{g.RequesterUserID},
			Actions:        []string{action},
			Resources:      []string{resource},
			Synthetic:      true,
			GrantID:        g.ID,
			ExpiresAt:      &expiresAt,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := e.store.CreatePolicy(ctx, p); err != nil {
			if delErr := e.store.DeletePoliciesByGrant(ctx, g.ID); delErr != nil {
				e.logger.Error("synthetic policy rollback failed",
					slog.String("grant_id", g.ID.String()),
					slog.String("error", delErr.Error()),
				)
			}
			return fmt.Errorf("create synthetic policy: %w", err)
		}
	}
	return nil
}

// splitPermissionCode derives the action and resource a synthetic policy
// covers from a dotted permission code: the last segment is the action, the
// rest the resource. A bare wildcard covers everything.
func splitPermissionCode(code string) (action, resource string) {
	if code == policy.Wildcard {
		return policy.Wildcard, policy.Wildcard
	}
	idx := strings.LastIndex(code, ".")
	if idx < 0 {
		return code, policy.Wildcard
	}
	return code[idx+1:], code[:idx]
}
