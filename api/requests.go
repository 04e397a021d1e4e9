package api

// ──────────────────────────────────────────────────
// Authorization requests
// ──────────────────────────────────────────────────

// AuthorizeRequest is the request body for an authorization check.
type AuthorizeRequest struct {
	UserID     string            `json:"user_id" description:"User identifier"`
	Action     string            `json:"action" description:"Action name (e.g. read)"`
	Resource   string            `json:"resource" description:"Resource identifier (e.g. patient.record)"`
	IPAddress  string            `json:"ip_address,omitempty" description:"Client IP address"`
	Location   string            `json:"location,omitempty" description:"Coarse location label"`
	Attributes map[string]string `json:"attributes,omitempty" description:"Contextual attributes"`
	RiskScore  float64           `json:"risk_score,omitempty" description:"Upstream risk signal"`
}

// BatchAuthorizeRequest contains multiple authorization checks.
type BatchAuthorizeRequest struct {
	Checks []AuthorizeRequest `json:"checks" description:"List of authorization checks"`
}

// GetUserRequest is the path parameter for user-scoped reads.
type GetUserRequest struct {
	UserID string `path:"userId" description:"User ID"`
}

// ──────────────────────────────────────────────────
// Role requests
// ──────────────────────────────────────────────────

// CreateRoleRequest is the body for creating a role.
type CreateRoleRequest struct {
	Name         string `json:"name" description:"Role name"`
	Code         string `json:"code" description:"Tenant-unique role code"`
	Description  string `json:"description,omitempty" description:"Human-readable description"`
	RoleType     string `json:"role_type,omitempty" description:"Role type (system, custom, department)"`
	Priority     int    `json:"priority,omitempty" description:"Role priority"`
	ParentID     string `json:"parent_id,omitempty" description:"Parent role ID for inheritance"`
	DepartmentID string `json:"department_id,omitempty" description:"Owning department"`
}

// UpdateRoleRequest is the body for updating a role.
type UpdateRoleRequest struct {
	Name         string `json:"name,omitempty" description:"Role name"`
	Description  string `json:"description,omitempty" description:"Human-readable description"`
	Priority     *int   `json:"priority,omitempty" description:"Role priority"`
	DepartmentID string `json:"department_id,omitempty" description:"Owning department"`
	IsActive     *bool  `json:"is_active,omitempty" description:"Active flag"`
}

// SetRoleParentRequest is the body for re-parenting a role. An empty
// parent_id detaches the role from its parent.
type SetRoleParentRequest struct {
	ParentID string `json:"parent_id,omitempty" description:"New parent role ID (empty to detach)"`
}

// GetRoleRequest is the path parameter for getting a role.
type GetRoleRequest struct {
	RoleID string `path:"roleId" description:"Role ID"`
}

// ListRolesRequest holds query parameters for listing roles.
type ListRolesRequest struct {
	RoleType     string `query:"role_type" description:"Filter by role type"`
	DepartmentID string `query:"department_id" description:"Filter by department"`
	Search       string `query:"search" description:"Search by name"`
	Limit        int    `query:"limit" description:"Maximum results (default: 50)"`
	Offset       int    `query:"offset" description:"Results to skip"`
}

// AttachPermissionRequest is the body for granting a permission to a role.
type AttachPermissionRequest struct {
	PermissionID string `json:"permission_id" description:"Permission ID to attach"`
	ValidFrom    string `json:"valid_from,omitempty" description:"Grant validity start (RFC3339)"`
	ValidUntil   string `json:"valid_until,omitempty" description:"Grant validity end (RFC3339)"`
	GrantedBy    string `json:"granted_by,omitempty" description:"Granting user ID"`
}

// ──────────────────────────────────────────────────
// Permission requests
// ──────────────────────────────────────────────────

// CreatePermissionRequest is the body for creating a permission.
type CreatePermissionRequest struct {
	Code               string `json:"code,omitempty" description:"Dotted permission code (derived from module/resource/action when empty)"`
	Module             string `json:"module,omitempty" description:"Owning module (e.g. clinical)"`
	Resource           string `json:"resource,omitempty" description:"Resource name"`
	Action             string `json:"action,omitempty" description:"Action name"`
	Scope              string `json:"scope,omitempty" description:"Access scope (own, branch, organization)"`
	DataClassification string `json:"data_classification,omitempty" description:"Data sensitivity label"`
	Description        string `json:"description,omitempty" description:"Human-readable description"`
}

// UpdatePermissionRequest is the body for updating a permission.
type UpdatePermissionRequest struct {
	Description string `json:"description,omitempty" description:"Human-readable description"`
	Scope       string `json:"scope,omitempty" description:"Access scope"`
	IsActive    *bool  `json:"is_active,omitempty" description:"Active flag"`
}

// GetPermissionRequest is the path parameter for getting a permission.
type GetPermissionRequest struct {
	PermissionID string `path:"permissionId" description:"Permission ID"`
}

// ListPermissionsRequest holds query parameters.
type ListPermissionsRequest struct {
	Module   string `query:"module" description:"Filter by module"`
	Resource string `query:"resource" description:"Filter by resource"`
	Action   string `query:"action" description:"Filter by action"`
	Search   string `query:"search" description:"Search by code"`
	Limit    int    `query:"limit" description:"Maximum results"`
	Offset   int    `query:"offset" description:"Results to skip"`
}

// ──────────────────────────────────────────────────
// Assignment requests
// ──────────────────────────────────────────────────

// AssignRoleRequest is the body for assigning a role to a user.
type AssignRoleRequest struct {
	UserID     string `json:"user_id" description:"User to assign the role to"`
	RoleID     string `json:"role_id" description:"Role ID to assign"`
	BranchID   string `json:"branch_id,omitempty" description:"Branch the assignment is scoped to"`
	AssignedBy string `json:"assigned_by,omitempty" description:"Assigning user ID"`
	ExpiresAt  string `json:"expires_at,omitempty" description:"Expiration time (RFC3339)"`
}

// GetAssignmentRequest is the path parameter for getting an assignment.
type GetAssignmentRequest struct {
	AssignmentID string `path:"assignmentId" description:"Assignment ID"`
}

// ListAssignmentsRequest holds query parameters.
type ListAssignmentsRequest struct {
	UserID   string `query:"user_id" description:"Filter by user ID"`
	RoleID   string `query:"role_id" description:"Filter by role ID"`
	BranchID string `query:"branch_id" description:"Filter by branch ID"`
	Limit    int    `query:"limit" description:"Maximum results"`
	Offset   int    `query:"offset" description:"Results to skip"`
}

// ──────────────────────────────────────────────────
// Policy requests
// ──────────────────────────────────────────────────

// CreatePolicyRequest is the body for creating an access policy.
type CreatePolicyRequest struct {
	Name                 string         `json:"name" description:"Tenant-unique policy name"`
	Description          string         `json:"description,omitempty" description:"Human-readable description"`
	Effect               string         `json:"effect" description:"Policy effect (allow or deny)"`
	Priority             int            `json:"priority,omitempty" description:"Policy priority"`
	IsActive             bool           `json:"is_active" description:"Whether the policy is active"`
	AppliesToUsers       []string       `json:"applies_to_users,omitempty" description:"User ID selectors"`
	AppliesToRoles       []string       `json:"applies_to_roles,omitempty" description:"Role code selectors"`
	AppliesToDepartments []string       `json:"applies_to_departments,omitempty" description:"Department selectors"`
	Actions              []string       `json:"actions,omitempty" description:"Covered actions (empty = all)"`
	Resources            []string       `json:"resources,omitempty" description:"Covered resources (empty = all, trailing * supported)"`
	EffectiveFrom        string         `json:"effective_from,omitempty" description:"Effective window start (RFC3339)"`
	EffectiveUntil       string         `json:"effective_until,omitempty" description:"Effective window end (RFC3339)"`
	DaysOfWeek           []int          `json:"days_of_week,omitempty" description:"Allowed weekdays (0 = Sunday)"`
	TimeOfDayStart       string         `json:"time_of_day_start,omitempty" description:"Daily window start (HH:MM)"`
	TimeOfDayEnd         string         `json:"time_of_day_end,omitempty" description:"Daily window end (HH:MM)"`
	Conditions           map[string]any `json:"conditions,omitempty" description:"Locational and contextual conditions"`
}

// UpdatePolicyRequest is the body for updating a policy.
type UpdatePolicyRequest struct {
	Name                 string         `json:"name,omitempty" description:"Policy name"`
	Description          string         `json:"description,omitempty" description:"Description"`
	Effect               string         `json:"effect,omitempty" description:"Policy effect"`
	Priority             *int           `json:"priority,omitempty" description:"Priority"`
	IsActive             *bool          `json:"is_active,omitempty" description:"Active flag"`
	AppliesToUsers       []string       `json:"applies_to_users,omitempty" description:"User ID selectors"`
	AppliesToRoles       []string       `json:"applies_to_roles,omitempty" description:"Role code selectors"`
	AppliesToDepartments []string       `json:"applies_to_departments,omitempty" description:"Department selectors"`
	Actions              []string       `json:"actions,omitempty" description:"Covered actions"`
	Resources            []string       `json:"resources,omitempty" description:"Covered resources"`
	EffectiveFrom        string         `json:"effective_from,omitempty" description:"Effective window start (RFC3339)"`
	EffectiveUntil       string         `json:"effective_until,omitempty" description:"Effective window end (RFC3339)"`
	DaysOfWeek           []int          `json:"days_of_week,omitempty" description:"Allowed weekdays"`
	TimeOfDayStart       string         `json:"time_of_day_start,omitempty" description:"Daily window start (HH:MM)"`
	TimeOfDayEnd         string         `json:"time_of_day_end,omitempty" description:"Daily window end (HH:MM)"`
	Conditions           map[string]any `json:"conditions,omitempty" description:"Conditions"`
}

// GetPolicyRequest is the path parameter for getting a policy.
type GetPolicyRequest struct {
	PolicyID string `path:"policyId" description:"Policy ID"`
}

// ListPoliciesRequest holds query parameters.
type ListPoliciesRequest struct {
	Effect    string `query:"effect" description:"Filter by effect (allow/deny)"`
	Active    string `query:"active" description:"Filter by active status (true/false)"`
	Synthetic string `query:"synthetic" description:"Filter by synthetic flag (true/false)"`
	Search    string `query:"search" description:"Search by name"`
	Limit     int    `query:"limit" description:"Maximum results"`
	Offset    int    `query:"offset" description:"Results to skip"`
}

// ──────────────────────────────────────────────────
// Emergency access requests
// ──────────────────────────────────────────────────

// RequestEmergencyAccessRequest is the body for opening an emergency grant.
type RequestEmergencyAccessRequest struct {
	RequesterUserID string   `json:"requester_user_id" description:"Requesting clinician"`
	PatientID       string   `json:"patient_id,omitempty" description:"Patient the access targets"`
	Reason          string   `json:"reason" description:"Clinical justification"`
	EmergencyType   string   `json:"emergency_type,omitempty" description:"Emergency type (medical, life_threatening, critical, urgent)"`
	Scope           string   `json:"scope,omitempty" description:"Access scope (limited, full, specific)"`
	DurationMinutes int      `json:"duration_minutes,omitempty" description:"Requested duration in minutes (clamped to 15-240)"`
	Permissions     []string `json:"permissions" description:"Permission codes to grant"`
}

// ReviewEmergencyAccessRequest is the body for approving, rejecting, or
// revoking a grant.
type ReviewEmergencyAccessRequest struct {
	ReviewerUserID string `json:"reviewer_user_id" description:"Approving, rejecting, or revoking user"`
	Notes          string `json:"notes,omitempty" description:"Approval notes"`
	Reason         string `json:"reason,omitempty" description:"Rejection or revocation reason"`
}

// GetEmergencyGrantRequest is the path parameter for getting a grant.
type GetEmergencyGrantRequest struct {
	GrantID string `path:"grantId" description:"Emergency grant ID"`
}

// ListEmergencyGrantsRequest holds query parameters.
type ListEmergencyGrantsRequest struct {
	RequesterUserID string `query:"requester_user_id" description:"Filter by requester"`
	PatientID       string `query:"patient_id" description:"Filter by patient"`
	Status          string `query:"status" description:"Filter by status"`
	Limit           int    `query:"limit" description:"Maximum results"`
	Offset          int    `query:"offset" description:"Results to skip"`
}

// ──────────────────────────────────────────────────
// Audit log requests
// ──────────────────────────────────────────────────

// ListAuditEntriesRequest holds query parameters for querying the decision
// audit trail.
type ListAuditEntriesRequest struct {
	UserID   string `query:"user_id" description:"Filter by user ID"`
	Action   string `query:"action" description:"Filter by action"`
	Resource string `query:"resource" description:"Filter by resource"`
	Allowed  string `query:"allowed" description:"Filter by outcome (true/false)"`
	After    string `query:"after" description:"After timestamp (RFC3339)"`
	Before   string `query:"before" description:"Before timestamp (RFC3339)"`
	Limit    int    `query:"limit" description:"Maximum results"`
	Offset   int    `query:"offset" description:"Results to skip"`
}
