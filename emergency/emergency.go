// Package emergency defines the time-boxed emergency access grant and its
// bounded state machine.
package emergency

import (
	"errors"
	"time"

	"github.com/medplane/guardian/id"
)

var (
	// ErrNotFound is returned when a grant cannot be found.
	ErrNotFound = errors.New("guardian: emergency grant not found")

	// ErrVersionConflict is returned when an optimistic update loses a
	// race: the stored version no longer matches the expected one.
	ErrVersionConflict = errors.New("guardian: emergency grant version conflict")
)

// Status is the state of an emergency access grant.
type Status string

const (
	// StatusPending awaits approval or rejection.
	StatusPending Status = "pending"

	// StatusApproved is the transient state between approval and
	// activation. Approval activates immediately, so persisted grants
	// move straight to Active; the constant exists for transition
	// validation.
	StatusApproved Status = "approved"

	// StatusActive grants elevated access until expiry or revocation.
	StatusActive Status = "active"

	// StatusExpired is terminal: the grant ran out its duration.
	StatusExpired Status = "expired"

	// StatusRejected is terminal: the request was turned down.
	StatusRejected Status = "rejected"

	// StatusRevoked is terminal: an active grant was pulled early.
	StatusRevoked Status = "revoked"
)

// Terminal reports whether the status permits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusExpired || s == StatusRejected || s == StatusRevoked
}

// Type is the clinical severity of an emergency.
type Type string

const (
	// TypeMedical is a standard medical emergency.
	TypeMedical Type = "medical"

	// TypeLifeThreatening is an immediately life-threatening emergency.
	TypeLifeThreatening Type = "life_threatening"

	// TypeCritical is a critical-care emergency.
	TypeCritical Type = "critical"

	// TypeUrgent is an urgent but non-critical situation.
	TypeUrgent Type = "urgent"
)

// AccessScope is the breadth of an emergency grant.
type AccessScope string

const (
	// ScopeLimited grants a narrow permission set.
	ScopeLimited AccessScope = "limited"

	// ScopeFull grants the full emergency permission set.
	ScopeFull AccessScope = "full"

	// ScopeSpecific grants access to a specific patient only.
	ScopeSpecific AccessScope = "specific"
)

// Duration bounds for a grant, in minutes. Requests outside the range are
// clamped, not rejected.
const (
	MinDurationMinutes = 15
	MaxDurationMinutes = 240
)

// Grant is a time-boxed elevated-access record. It is readable only by its
// requester and mutated only through the approve/reject/revoke/expire
// transitions, each guarded by an optimistic version check.
type Grant struct {
	ID                 id.GrantID  `json:"id" db:"id"`
	TenantID           string      `json:"tenant_id" db:"tenant_id"`
	RequesterUserID    string      `json:"requester_user_id" db:"requester_user_id"`
	ApprovedByUserID   string      `json:"approved_by_user_id,omitempty" db:"approved_by_user_id"`
	RevokedByUserID    string      `json:"revoked_by_user_id,omitempty" db:"revoked_by_user_id"`
	PatientID          string      `json:"patient_id,omitempty" db:"patient_id"`
	Reason             string      `json:"reason" db:"reason"`
	EmergencyType      Type        `json:"emergency_type" db:"emergency_type"`
	AccessCode         string      `json:"access_code" db:"access_code"`
	GrantedPermissions []string    `json:"granted_permissions" db:"-"`
	Scope              AccessScope `json:"scope" db:"scope"`
	DurationMinutes    int         `json:"duration_minutes" db:"duration_minutes"`
	Status             Status      `json:"status" db:"status"`
	Notes              string      `json:"notes,omitempty" db:"notes"`
	DecisionReason     string      `json:"decision_reason,omitempty" db:"decision_reason"`

	RequestedAt time.Time  `json:"requested_at" db:"requested_at"`
	ApprovedAt  *time.Time `json:"approved_at,omitempty" db:"approved_at"`
	RejectedAt  *time.Time `json:"rejected_at,omitempty" db:"rejected_at"`
	RevokedAt   *time.Time `json:"revoked_at,omitempty" db:"revoked_at"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty" db:"expires_at"`

	// Version is the optimistic concurrency token; every successful
	// transition increments it.
	Version int `json:"version" db:"version"`
}

// ActiveAt reports whether the grant confers elevated access at t. Expiry
// is enforced here regardless of whether the background sweep has run.
func (g *Grant) ActiveAt(t time.Time) bool {
	if g.Status != StatusActive {
		return false
	}
	if g.ExpiresAt == nil {
		return false
	}
	return t.Before(*g.ExpiresAt)
}

// ClampDuration bounds a requested duration to [MinDurationMinutes,
// MaxDurationMinutes].
func ClampDuration(minutes int) int {
	if minutes < MinDurationMinutes {
		return MinDurationMinutes
	}
	if minutes > MaxDurationMinutes {
		return MaxDurationMinutes
	}
	return minutes
}

// ListFilter contains filters for listing grants.
type ListFilter struct {
	TenantID        string `json:"tenant_id,omitempty"`
	RequesterUserID string `json:"requester_user_id,omitempty"`
	PatientID       string `json:"patient_id,omitempty"`
	Status          Status `json:"status,omitempty"`
	Limit           int    `json:"limit,omitempty"`
	Offset          int    `json:"offset,omitempty"`
}
