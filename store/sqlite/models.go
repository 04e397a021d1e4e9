package sqlite

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/xraph/grove"

	"github.com/medplane/guardian/assignment"
	"github.com/medplane/guardian/auditlog"
	"github.com/medplane/guardian/emergency"
	"github.com/medplane/guardian/id"
	"github.com/medplane/guardian/permission"
	"github.com/medplane/guardian/policy"
	"github.com/medplane/guardian/role"
)

// ──────────────────────────────────────────────────
// Role model
// ──────────────────────────────────────────────────

type roleModel struct {
	grove.BaseModel `grove:"table:guardian_roles"`
	ID              string    `grove:"id,pk"`
	TenantID        string    `grove:"tenant_id,notnull"`
	Name            string    `grove:"name,notnull"`
	Code            string    `grove:"code,notnull"`
	Description     string    `grove:"description"`
	RoleType        string    `grove:"role_type,notnull"`
	Priority        int       `grove:"priority,notnull"`
	ParentID        *string   `grove:"parent_id"`
	DepartmentID    string    `grove:"department_id"`
	IsActive        bool      `grove:"is_active,notnull"`
	CreatedAt       time.Time `grove:"created_at,notnull"`
	UpdatedAt       time.Time `grove:"updated_at,notnull"`
}

func roleToModel(r *role.Role) *roleModel {
	m := &roleModel{
		ID:           r.ID.String(),
		TenantID:     r.TenantID,
		Name:         r.Name,
		Code:         r.Code,
		Description:  r.Description,
		RoleType:     string(r.RoleType),
		Priority:     r.Priority,
		DepartmentID: r.DepartmentID,
		IsActive:     r.IsActive,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
	if r.ParentID != nil {
		s := r.ParentID.String()
		m.ParentID = &s
	}
	return m
}

func roleFromModel(m *roleModel) *role.Role {
	rid, _ := id.ParseRoleID(m.ID) //nolint:errcheck // stored IDs are always valid
	r := &role.Role{
		ID:           rid,
		TenantID:     m.TenantID,
		Name:         m.Name,
		Code:         m.Code,
		Description:  m.Description,
		RoleType:     role.Type(m.RoleType),
		Priority:     m.Priority,
		DepartmentID: m.DepartmentID,
		IsActive:     m.IsActive,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
	if m.ParentID != nil {
		pid, err := id.ParseRoleID(*m.ParentID)
		if err == nil {
			r.ParentID = &pid
		}
	}
	return r
}

// ──────────────────────────────────────────────────
// Permission model
// ──────────────────────────────────────────────────

type permissionModel struct {
	grove.BaseModel    `grove:"table:guardian_permissions"`
	ID                 string    `grove:"id,pk"`
	TenantID           string    `grove:"tenant_id,notnull"`
	Code               string    `grove:"code,notnull"`
	Module             string    `grove:"module,notnull"`
	Resource           string    `grove:"resource,notnull"`
	Action             string    `grove:"action,notnull"`
	Scope              string    `grove:"scope"`
	DataClassification string    `grove:"data_classification"`
	Description        string    `grove:"description"`
	IsSystem           bool      `grove:"is_system,notnull"`
	IsActive           bool      `grove:"is_active,notnull"`
	CreatedAt          time.Time `grove:"created_at,notnull"`
	UpdatedAt          time.Time `grove:"updated_at,notnull"`
}

func permissionToModel(p *permission.Permission) *permissionModel {
	return &permissionModel{
		ID:                 p.ID.String(),
		TenantID:           p.TenantID,
		Code:               p.Code,
		Module:             p.Module,
		Resource:           p.Resource,
		Action:             p.Action,
		Scope:              string(p.Scope),
		DataClassification: string(p.DataClassification),
		Description:        p.Description,
		IsSystem:           p.IsSystem,
		IsActive:           p.IsActive,
		CreatedAt:          p.CreatedAt,
		UpdatedAt:          p.UpdatedAt,
	}
}

func permissionFromModel(m *permissionModel) *permission.Permission {
	pid, _ := id.ParsePermissionID(m.ID) //nolint:errcheck // stored IDs are always valid
	return &permission.Permission{
		ID:                 pid,
		TenantID:           m.TenantID,
		Code:               m.Code,
		Module:             m.Module,
		Resource:           m.Resource,
		Action:             m.Action,
		Scope:              permission.Scope(m.Scope),
		DataClassification: permission.Classification(m.DataClassification),
		Description:        m.Description,
		IsSystem:           m.IsSystem,
		IsActive:           m.IsActive,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}
}

// ──────────────────────────────────────────────────
// Role-Permission grant model
// ──────────────────────────────────────────────────

type roleGrantModel struct {
	grove.BaseModel `grove:"table:guardian_role_permissions"`
	RoleID          string     `grove:"role_id,pk"`
	PermissionID    string     `grove:"permission_id,pk"`
	ValidFrom       *time.Time `grove:"valid_from"`
	ValidUntil      *time.Time `grove:"valid_until"`
	GrantedBy       string     `grove:"granted_by"`
	CreatedAt       time.Time  `grove:"created_at,notnull"`
}

func roleGrantToModel(g *role.Grant) *roleGrantModel {
	return &roleGrantModel{
		RoleID:       g.RoleID.String(),
		PermissionID: g.PermissionID.String(),
		ValidFrom:    g.ValidFrom,
		ValidUntil:   g.ValidUntil,
		GrantedBy:    g.GrantedBy,
		CreatedAt:    g.CreatedAt,
	}
}

func roleGrantFromModel(m *roleGrantModel) *role.Grant {
	rid, _ := id.ParseRoleID(m.RoleID)             //nolint:errcheck // stored IDs are always valid
	pid, _ := id.ParsePermissionID(m.PermissionID) //nolint:errcheck // stored IDs are always valid
	return &role.Grant{
		RoleID:       rid,
		PermissionID: pid,
		ValidFrom:    m.ValidFrom,
		ValidUntil:   m.ValidUntil,
		GrantedBy:    m.GrantedBy,
		CreatedAt:    m.CreatedAt,
	}
}

// ──────────────────────────────────────────────────
// Assignment model
// ──────────────────────────────────────────────────

type assignmentModel struct {
	grove.BaseModel `grove:"table:guardian_assignments"`
	ID              string     `grove:"id,pk"`
	TenantID        string     `grove:"tenant_id,notnull"`
	UserID          string     `grove:"user_id,notnull"`
	RoleID          string     `grove:"role_id,notnull"`
	BranchID        string     `grove:"branch_id"`
	AssignedBy      string     `grove:"assigned_by"`
	AssignedAt      time.Time  `grove:"assigned_at,notnull"`
	ExpiresAt       *time.Time `grove:"expires_at"`
	IsActive        bool       `grove:"is_active,notnull"`
}

func assignmentToModel(a *assignment.Assignment) *assignmentModel {
	return &assignmentModel{
		ID:         a.ID.String(),
		TenantID:   a.TenantID,
		UserID:     a.UserID,
		RoleID:     a.RoleID.String(),
		BranchID:   a.BranchID,
		AssignedBy: a.AssignedBy,
		AssignedAt: a.AssignedAt,
		ExpiresAt:  a.ExpiresAt,
		IsActive:   a.IsActive,
	}
}

func assignmentFromModel(m *assignmentModel) *assignment.Assignment {
	aid, _ := id.ParseAssignmentID(m.ID) //nolint:errcheck // stored IDs are always valid
	rid, _ := id.ParseRoleID(m.RoleID)   //nolint:errcheck // stored IDs are always valid
	return &assignment.Assignment{
		ID:         aid,
		TenantID:   m.TenantID,
		UserID:     m.UserID,
		RoleID:     rid,
		BranchID:   m.BranchID,
		AssignedBy: m.AssignedBy,
		AssignedAt: m.AssignedAt,
		ExpiresAt:  m.ExpiresAt,
		IsActive:   m.IsActive,
	}
}

// ──────────────────────────────────────────────────
// Policy model
// ──────────────────────────────────────────────────

type policyModel struct {
	grove.BaseModel      `grove:"table:guardian_policies"`
	ID                   string     `grove:"id,pk"`
	TenantID             string     `grove:"tenant_id,notnull"`
	Name                 string     `grove:"name,notnull"`
	Description          string     `grove:"description"`
	Effect               string     `grove:"effect,notnull"`
	Priority             int        `grove:"priority,notnull"`
	IsActive             bool       `grove:"is_active,notnull"`
	AppliesToUsers       string     `grove:"applies_to_users"`       // JSON text
	AppliesToRoles       string     `grove:"applies_to_roles"`       // JSON text
	AppliesToDepartments string     `grove:"applies_to_departments"` // JSON text
	Actions              string     `grove:"actions"`                // JSON text
	Resources            string     `grove:"resources"`              // JSON text
	EffectiveFrom        *time.Time `grove:"effective_from"`
	EffectiveUntil       *time.Time `grove:"effective_until"`
	DaysOfWeek           string     `grove:"days_of_week"` // JSON text
	TimeOfDayStart       string     `grove:"time_of_day_start"`
	TimeOfDayEnd         string     `grove:"time_of_day_end"`
	Conditions           string     `grove:"conditions"` // JSON text
	Synthetic            bool       `grove:"synthetic,notnull"`
	GrantID              *string    `grove:"grant_id"`
	ExpiresAt            *time.Time `grove:"expires_at"`
	EvaluationCount      int64      `grove:"evaluation_count,notnull"`
	LastEvaluatedAt      *time.Time `grove:"last_evaluated_at"`
	CreatedAt            time.Time  `grove:"created_at,notnull"`
	UpdatedAt            time.Time  `grove:"updated_at,notnull"`
}

func policyToModel(p *policy.Policy) (*policyModel, error) {
	users, err := json.Marshal(p.AppliesToUsers)
	if err != nil {
		return nil, fmt.Errorf("marshal policy users: %w", err)
	}
	roles, err := json.Marshal(p.AppliesToRoles)
	if err != nil {
		return nil, fmt.Errorf("marshal policy roles: %w", err)
	}
	departments, err := json.Marshal(p.AppliesToDepartments)
	if err != nil {
		return nil, fmt.Errorf("marshal policy departments: %w", err)
	}
	actions, err := json.Marshal(p.Actions)
	if err != nil {
		return nil, fmt.Errorf("marshal policy actions: %w", err)
	}
	resources, err := json.Marshal(p.Resources)
	if err != nil {
		return nil, fmt.Errorf("marshal policy resources: %w", err)
	}
	days, err := json.Marshal(p.DaysOfWeek)
	if err != nil {
		return nil, fmt.Errorf("marshal policy days of week: %w", err)
	}
	conditions, err := json.Marshal(p.Conditions)
	if err != nil {
		return nil, fmt.Errorf("marshal policy conditions: %w", err)
	}
	m := &policyModel{
		ID:                   p.ID.String(),
		TenantID:             p.TenantID,
		Name:                 p.Name,
		Description:          p.Description,
		Effect:               string(p.Effect),
		Priority:             p.Priority,
		IsActive:             p.IsActive,
		AppliesToUsers:       string(users),
		AppliesToRoles:       string(roles),
		AppliesToDepartments: string(departments),
		Actions:              string(actions),
		Resources:            string(resources),
		EffectiveFrom:        p.EffectiveFrom,
		EffectiveUntil:       p.EffectiveUntil,
		DaysOfWeek:           string(days),
		TimeOfDayStart:       p.TimeOfDayStart,
		TimeOfDayEnd:         p.TimeOfDayEnd,
		Conditions:           string(conditions),
		Synthetic:            p.Synthetic,
		ExpiresAt:            p.ExpiresAt,
		EvaluationCount:      p.EvaluationCount,
		LastEvaluatedAt:      p.LastEvaluatedAt,
		CreatedAt:            p.CreatedAt,
		UpdatedAt:            p.UpdatedAt,
	}
	if !p.GrantID.IsNil() {
		s := p.GrantID.String()
		m.GrantID = &s
	}
	return m, nil
}

func policyFromModel(m *policyModel) (*policy.Policy, error) {
	pid, _ := id.ParsePolicyID(m.ID) //nolint:errcheck // stored IDs are always valid

	var users, roles, departments, actions, resources []string
	if m.AppliesToUsers != "" {
		if err := json.Unmarshal([]byte(m.AppliesToUsers), &users); err != nil {
			return nil, fmt.Errorf("unmarshal policy users: %w", err)
		}
	}
	if m.AppliesToRoles != "" {
		if err := json.Unmarshal([]byte(m.AppliesToRoles), &roles); err != nil {
			return nil, fmt.Errorf("unmarshal policy roles: %w", err)
		}
	}
	if m.AppliesToDepartments != "" {
		if err := json.Unmarshal([]byte(m.AppliesToDepartments), &departments); err != nil {
			return nil, fmt.Errorf("unmarshal policy departments: %w", err)
		}
	}
	if m.Actions != "" {
		if err := json.Unmarshal([]byte(m.Actions), &actions); err != nil {
			return nil, fmt.Errorf("unmarshal policy actions: %w", err)
		}
	}
	if m.Resources != "" {
		if err := json.Unmarshal([]byte(m.Resources), &resources); err != nil {
			return nil, fmt.Errorf("unmarshal policy resources: %w", err)
		}
	}
	var days []time.Weekday
	if m.DaysOfWeek != "" {
		if err := json.Unmarshal([]byte(m.DaysOfWeek), &days); err != nil {
			return nil, fmt.Errorf("unmarshal policy days of week: %w", err)
		}
	}
	var conditions map[string]any
	if m.Conditions != "" {
		if err := json.Unmarshal([]byte(m.Conditions), &conditions); err != nil {
			return nil, fmt.Errorf("unmarshal policy conditions: %w", err)
		}
	}

	p := &policy.Policy{
		ID:                   pid,
		TenantID:             m.TenantID,
		Name:                 m.Name,
		Description:          m.Description,
		Effect:               policy.Effect(m.Effect),
		Priority:             m.Priority,
		IsActive:             m.IsActive,
		AppliesToUsers:       users,
		AppliesToRoles:       roles,
		AppliesToDepartments: departments,
		Actions:              actions,
		Resources:            resources,
		EffectiveFrom:        m.EffectiveFrom,
		EffectiveUntil:       m.EffectiveUntil,
		DaysOfWeek:           days,
		TimeOfDayStart:       m.TimeOfDayStart,
		TimeOfDayEnd:         m.TimeOfDayEnd,
		Conditions:           conditions,
		Synthetic:            m.Synthetic,
		ExpiresAt:            m.ExpiresAt,
		EvaluationCount:      m.EvaluationCount,
		LastEvaluatedAt:      m.LastEvaluatedAt,
		CreatedAt:            m.CreatedAt,
		UpdatedAt:            m.UpdatedAt,
	}
	if m.GrantID != nil {
		gid, err := id.ParseGrantID(*m.GrantID)
		if err == nil {
			p.GrantID = gid
		}
	}
	return p, nil
}

// ──────────────────────────────────────────────────
// Emergency grant model
// ──────────────────────────────────────────────────

type grantModel struct {
	grove.BaseModel    `grove:"table:guardian_emergency_grants"`
	ID                 string     `grove:"id,pk"`
	TenantID           string     `grove:"tenant_id,notnull"`
	RequesterUserID    string     `grove:"requester_user_id,notnull"`
	ApprovedByUserID   string     `grove:"approved_by_user_id"`
	RevokedByUserID    string     `grove:"revoked_by_user_id"`
	PatientID          string     `grove:"patient_id"`
	Reason             string     `grove:"reason,notnull"`
	EmergencyType      string     `grove:"emergency_type,notnull"`
	AccessCode         string     `grove:"access_code,notnull"`
	GrantedPermissions string     `grove:"granted_permissions"` // JSON text
	Scope              string     `grove:"scope,notnull"`
	DurationMinutes    int        `grove:"duration_minutes,notnull"`
	Status             string     `grove:"status,notnull"`
	Notes              string     `grove:"notes"`
	DecisionReason     string     `grove:"decision_reason"`
	RequestedAt        time.Time  `grove:"requested_at,notnull"`
	ApprovedAt         *time.Time `grove:"approved_at"`
	RejectedAt         *time.Time `grove:"rejected_at"`
	RevokedAt          *time.Time `grove:"revoked_at"`
	ExpiresAt          *time.Time `grove:"expires_at"`
	Version            int        `grove:"version,notnull"`
}

func grantToModel(g *emergency.Grant) (*grantModel, error) {
	perms, err := json.Marshal(g.GrantedPermissions)
	if err != nil {
		return nil, fmt.Errorf("marshal grant permissions: %w", err)
	}
	return &grantModel{
		ID:                 g.ID.String(),
		TenantID:           g.TenantID,
		RequesterUserID:    g.RequesterUserID,
		ApprovedByUserID:   g.ApprovedByUserID,
		RevokedByUserID:    g.RevokedByUserID,
		PatientID:          g.PatientID,
		Reason:             g.Reason,
		EmergencyType:      string(g.EmergencyType),
		AccessCode:         g.AccessCode,
		GrantedPermissions: string(perms),
		Scope:              string(g.Scope),
		DurationMinutes:    g.DurationMinutes,
		Status:             string(g.Status),
		Notes:              g.Notes,
		DecisionReason:     g.DecisionReason,
		RequestedAt:        g.RequestedAt,
		ApprovedAt:         g.ApprovedAt,
		RejectedAt:         g.RejectedAt,
		RevokedAt:          g.RevokedAt,
		ExpiresAt:          g.ExpiresAt,
		Version:            g.Version,
	}, nil
}

func grantFromModel(m *grantModel) (*emergency.Grant, error) {
	gid, _ := id.ParseGrantID(m.ID) //nolint:errcheck // stored IDs are always valid
	var perms []string
	if m.GrantedPermissions != "" {
		if err := json.Unmarshal([]byte(m.GrantedPermissions), &perms); err != nil {
			return nil, fmt.Errorf("unmarshal grant permissions: %w", err)
		}
	}
	return &emergency.Grant{
		ID:                 gid,
		TenantID:           m.TenantID,
		RequesterUserID:    m.RequesterUserID,
		ApprovedByUserID:   m.ApprovedByUserID,
		RevokedByUserID:    m.RevokedByUserID,
		PatientID:          m.PatientID,
		Reason:             m.Reason,
		EmergencyType:      emergency.Type(m.EmergencyType),
		AccessCode:         m.AccessCode,
		GrantedPermissions: perms,
		Scope:              emergency.AccessScope(m.Scope),
		DurationMinutes:    m.DurationMinutes,
		Status:             emergency.Status(m.Status),
		Notes:              m.Notes,
		DecisionReason:     m.DecisionReason,
		RequestedAt:        m.RequestedAt,
		ApprovedAt:         m.ApprovedAt,
		RejectedAt:         m.RejectedAt,
		RevokedAt:          m.RevokedAt,
		ExpiresAt:          m.ExpiresAt,
		Version:            m.Version,
	}, nil
}

// ──────────────────────────────────────────────────
// Audit entry model
// ──────────────────────────────────────────────────

type auditEntryModel struct {
	grove.BaseModel `grove:"table:guardian_audit_log"`
	ID              string    `grove:"id,pk"`
	TenantID        string    `grove:"tenant_id,notnull"`
	UserID          string    `grove:"user_id,notnull"`
	Action          string    `grove:"action,notnull"`
	Resource        string    `grove:"resource,notnull"`
	Allowed         bool      `grove:"allowed,notnull"`
	Decision        string    `grove:"decision,notnull"`
	Gate            string    `grove:"gate"`
	Reason          string    `grove:"reason"`
	IPAddress       string    `grove:"ip_address"`
	EvalTimeNs      int64     `grove:"eval_time_ns,notnull"`
	CreatedAt       time.Time `grove:"created_at,notnull"`
}

func auditEntryToModel(e *auditlog.Entry) *auditEntryModel {
	return &auditEntryModel{
		ID:         e.ID.String(),
		TenantID:   e.TenantID,
		UserID:     e.UserID,
		Action:     e.Action,
		Resource:   e.Resource,
		Allowed:    e.Allowed,
		Decision:   e.Decision,
		Gate:       e.Gate,
		Reason:     e.Reason,
		IPAddress:  e.IPAddress,
		EvalTimeNs: e.EvalTimeNs,
		CreatedAt:  e.CreatedAt,
	}
}

func auditEntryFromModel(m *auditEntryModel) *auditlog.Entry {
	aid, _ := id.ParseAuditEntryID(m.ID) //nolint:errcheck // stored IDs are always valid
	return &auditlog.Entry{
		ID:         aid,
		TenantID:   m.TenantID,
		UserID:     m.UserID,
		Action:     m.Action,
		Resource:   m.Resource,
		Allowed:    m.Allowed,
		Decision:   m.Decision,
		Gate:       m.Gate,
		Reason:     m.Reason,
		IPAddress:  m.IPAddress,
		EvalTimeNs: m.EvalTimeNs,
		CreatedAt:  m.CreatedAt,
	}
}
