package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/medplane/guardian/assignment"
	"github.com/medplane/guardian/auditlog"
	"github.com/medplane/guardian/emergency"
	"github.com/medplane/guardian/id"
	"github.com/medplane/guardian/permission"
	"github.com/medplane/guardian/policy"
	"github.com/medplane/guardian/role"
	"github.com/medplane/guardian/store"
)

// Compile-time check that *Store implements store.Store.
var _ store.Store = (*Store)(nil)

func TestRoleCRUD(t *testing.T) {
	ctx := context.Background()
	s := New()

	r := &role.Role{
		ID:       id.NewRoleID(),
		TenantID: "t1",
		Name:     "Attending Physician",
		Code:     "attending-physician",
		RoleType: role.TypeCustom,
		IsActive: true,
	}

	// Create
	if err := s.CreateRole(ctx, r); err != nil {
		t.Fatal(err)
	}

	// Get
	got, err := s.GetRole(ctx, r.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "Attending Physician" {
		t.Fatalf("expected Attending Physician, got %s", got.Name)
	}

	// GetByCode
	got, err = s.GetRoleByCode(ctx, "t1", "attending-physician")
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != r.ID {
		t.Fatal("code lookup mismatch")
	}

	// Update
	r.Name = "Senior Attending"
	if err := s.UpdateRole(ctx, r); err != nil {
		t.Fatal(err)
	}
	got, _ = s.GetRole(ctx, r.ID)
	if got.Name != "Senior Attending" {
		t.Fatal("update failed")
	}

	// List
	list, _ := s.ListRoles(ctx, &role.ListFilter{TenantID: "t1"})
	if len(list) != 1 {
		t.Fatalf("expected 1 role, got %d", len(list))
	}

	// Count
	count, _ := s.CountRoles(ctx, &role.ListFilter{TenantID: "t1"})
	if count != 1 {
		t.Fatalf("expected count 1, got %d", count)
	}

	// Delete
	if err := s.DeleteRole(ctx, r.ID); err != nil {
		t.Fatal(err)
	}
	_, err = s.GetRole(ctx, r.ID)
	if !errors.Is(err, role.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestPermissionCRUD(t *testing.T) {
	ctx := context.Background()
	s := New()

	p := &permission.Permission{
		ID:       id.NewPermissionID(),
		TenantID: "t1",
		Code:     "clinical.patient.read",
		Module:   "clinical",
		Resource: "patient",
		Action:   "read",
		Scope:    permission.ScopeOrganization,
		IsActive: true,
	}

	if err := s.CreatePermission(ctx, p); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetPermission(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Code != "clinical.patient.read" {
		t.Fatal("mismatch")
	}

	got, err = s.GetPermissionByCode(ctx, "t1", "clinical.patient.read")
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != p.ID {
		t.Fatal("code lookup mismatch")
	}

	if err := s.DeletePermission(ctx, p.ID); err != nil {
		t.Fatal(err)
	}
	_, err = s.GetPermission(ctx, p.ID)
	if !errors.Is(err, permission.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRolePermissionGrants(t *testing.T) {
	ctx := context.Background()
	s := New()
	now := time.Now()

	roleID := id.NewRoleID()
	perm1 := id.NewPermissionID()
	perm2 := id.NewPermissionID()

	_ = s.CreateRole(ctx, &role.Role{ID: roleID, TenantID: "t1", Name: "Nurse", Code: "nurse", IsActive: true})
	_ = s.CreatePermission(ctx, &permission.Permission{ID: perm1, TenantID: "t1", Code: "clinical.patient.read", IsActive: true})
	_ = s.CreatePermission(ctx, &permission.Permission{ID: perm2, TenantID: "t1", Code: "clinical.vitals.write", IsActive: true})

	// Attach
	_ = s.AttachPermission(ctx, &role.Grant{RoleID: roleID, PermissionID: perm1})
	_ = s.AttachPermission(ctx, &role.Grant{RoleID: roleID, PermissionID: perm2})

	grants, _ := s.ListGrants(ctx, roleID)
	if len(grants) != 2 {
		t.Fatalf("expected 2 grants, got %d", len(grants))
	}

	perms, _ := s.ListPermissionsByRole(ctx, roleID, now)
	if len(perms) != 2 {
		t.Fatalf("expected 2 permissions, got %d", len(perms))
	}

	// Detach
	_ = s.DetachPermission(ctx, roleID, perm1)
	grants, _ = s.ListGrants(ctx, roleID)
	if len(grants) != 1 {
		t.Fatalf("expected 1 grant after detach, got %d", len(grants))
	}

	// SetRolePermissions (replace all)
	_ = s.SetRolePermissions(ctx, roleID, []*role.Grant{{RoleID: roleID, PermissionID: perm1}})
	grants, _ = s.ListGrants(ctx, roleID)
	if len(grants) != 1 || grants[0].PermissionID != perm1 {
		t.Fatal("set did not replace grants")
	}
}

func TestGrantValidityWindow(t *testing.T) {
	ctx := context.Background()
	s := New()
	now := time.Now()

	roleID := id.NewRoleID()
	permID := id.NewPermissionID()
	_ = s.CreateRole(ctx, &role.Role{ID: roleID, TenantID: "t1", Name: "Locum", Code: "locum", IsActive: true})
	_ = s.CreatePermission(ctx, &permission.Permission{ID: permID, TenantID: "t1", Code: "clinical.patient.read", IsActive: true})

	// Grant valid only in the past.
	until := now.Add(-time.Hour)
	_ = s.AttachPermission(ctx, &role.Grant{RoleID: roleID, PermissionID: permID, ValidUntil: &until})

	perms, _ := s.ListPermissionsByRole(ctx, roleID, now)
	if len(perms) != 0 {
		t.Fatalf("expected expired grant to contribute nothing, got %d", len(perms))
	}

	perms, _ = s.ListPermissionsByRole(ctx, roleID, now.Add(-2*time.Hour))
	if len(perms) != 1 {
		t.Fatalf("expected 1 permission inside window, got %d", len(perms))
	}
}

func TestAssignmentCRUD(t *testing.T) {
	ctx := context.Background()
	s := New()
	now := time.Now()

	roleID := id.NewRoleID()
	_ = s.CreateRole(ctx, &role.Role{ID: roleID, TenantID: "t1", Name: "Nurse", Code: "nurse", IsActive: true})

	a := &assignment.Assignment{
		ID:         id.NewAssignmentID(),
		TenantID:   "t1",
		UserID:     "u1",
		RoleID:     roleID,
		AssignedAt: now,
		IsActive:   true,
	}

	if err := s.CreateAssignment(ctx, a); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetAssignment(ctx, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.UserID != "u1" {
		t.Fatal("mismatch")
	}

	roles, _ := s.ListRolesForUser(ctx, "t1", "u1", now)
	if len(roles) != 1 || roles[0] != roleID {
		t.Fatalf("expected role %s for u1, got %v", roleID, roles)
	}

	users, _ := s.ListUsersForRole(ctx, roleID)
	if len(users) != 1 {
		t.Fatalf("expected 1 assignment for role, got %d", len(users))
	}

	if err := s.DeleteAssignment(ctx, a.ID); err != nil {
		t.Fatal(err)
	}
	roles, _ = s.ListRolesForUser(ctx, "t1", "u1", now)
	if len(roles) != 0 {
		t.Fatal("expected no roles after delete")
	}
}

func TestExpiredAssignmentsSkippedAndPurged(t *testing.T) {
	ctx := context.Background()
	s := New()
	now := time.Now()

	roleID := id.NewRoleID()
	_ = s.CreateRole(ctx, &role.Role{ID: roleID, TenantID: "t1", Name: "Nurse", Code: "nurse", IsActive: true})

	expired := now.Add(-time.Hour)
	_ = s.CreateAssignment(ctx, &assignment.Assignment{
		ID: id.NewAssignmentID(), TenantID: "t1", UserID: "u1", RoleID: roleID,
		AssignedAt: now.Add(-2 * time.Hour), ExpiresAt: &expired, IsActive: true,
	})
	_ = s.CreateAssignment(ctx, &assignment.Assignment{
		ID: id.NewAssignmentID(), TenantID: "t1", UserID: "u1", RoleID: roleID,
		AssignedAt: now, IsActive: true,
	})

	roles, _ := s.ListRolesForUser(ctx, "t1", "u1", now)
	if len(roles) != 1 {
		t.Fatalf("expected expired assignment to be skipped, got %d roles", len(roles))
	}

	purged, err := s.DeleteExpiredAssignments(ctx, now)
	if err != nil {
		t.Fatal(err)
	}
	if purged != 1 {
		t.Fatalf("expected 1 purged, got %d", purged)
	}
}

func TestPolicyCRUD(t *testing.T) {
	ctx := context.Background()
	s := New()

	p := &policy.Policy{
		ID:             id.NewPolicyID(),
		TenantID:       "t1",
		Name:           "night-shift-only",
		Effect:         policy.EffectAllow,
		Priority:       10,
		IsActive:       true,
		AppliesToRoles: []string{"nurse"},
		Actions:        []string{"read"},
		Resources:      []string{"patient.record"},
		Conditions:     map[string]any{"ward": "icu"},
	}

	if err := s.CreatePolicy(ctx, p); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetPolicy(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "night-shift-only" {
		t.Fatal("mismatch")
	}

	got, err = s.GetPolicyByName(ctx, "t1", "night-shift-only")
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != p.ID {
		t.Fatal("name lookup mismatch")
	}

	// Returned copies must not alias stored state.
	got.Conditions["ward"] = "er"
	fresh, _ := s.GetPolicy(ctx, p.ID)
	if fresh.Conditions["ward"] != "icu" {
		t.Fatal("stored policy mutated through returned copy")
	}

	active, _ := s.ListActivePolicies(ctx, "t1")
	if len(active) != 1 {
		t.Fatalf("expected 1 active policy, got %d", len(active))
	}

	p.IsActive = false
	_ = s.UpdatePolicy(ctx, p)
	active, _ = s.ListActivePolicies(ctx, "t1")
	if len(active) != 0 {
		t.Fatalf("expected no active policies, got %d", len(active))
	}

	_ = s.DeletePolicy(ctx, p.ID)
	_, err = s.GetPolicy(ctx, p.ID)
	if !errors.Is(err, policy.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestIncrementEvaluations(t *testing.T) {
	ctx := context.Background()
	s := New()
	now := time.Now()

	p := &policy.Policy{ID: id.NewPolicyID(), TenantID: "t1", Name: "p1", Effect: policy.EffectAllow, IsActive: true}
	_ = s.CreatePolicy(ctx, p)

	if err := s.IncrementEvaluations(ctx, []id.PolicyID{p.ID}, now); err != nil {
		t.Fatal(err)
	}
	if err := s.IncrementEvaluations(ctx, []id.PolicyID{p.ID}, now); err != nil {
		t.Fatal(err)
	}

	got, _ := s.GetPolicy(ctx, p.ID)
	if got.EvaluationCount != 2 {
		t.Fatalf("expected count 2, got %d", got.EvaluationCount)
	}
	if got.LastEvaluatedAt == nil {
		t.Fatal("expected last evaluated timestamp")
	}
}

func TestDeletePoliciesByGrant(t *testing.T) {
	ctx := context.Background()
	s := New()

	grantID := id.NewGrantID()
	_ = s.CreatePolicy(ctx, &policy.Policy{
		ID: id.NewPolicyID(), TenantID: "t1", Name: "emergency:g:code",
		Effect: policy.EffectAllow, IsActive: true, Synthetic: true, GrantID: grantID,
	})
	_ = s.CreatePolicy(ctx, &policy.Policy{
		ID: id.NewPolicyID(), TenantID: "t1", Name: "regular",
		Effect: policy.EffectAllow, IsActive: true,
	})

	if err := s.DeletePoliciesByGrant(ctx, grantID); err != nil {
		t.Fatal(err)
	}

	list, _ := s.ListPolicies(ctx, &policy.ListFilter{TenantID: "t1"})
	if len(list) != 1 || list[0].Name != "regular" {
		t.Fatalf("expected only the regular policy to remain, got %d", len(list))
	}
}

func TestGrantCAS(t *testing.T) {
	ctx := context.Background()
	s := New()
	now := time.Now()

	g := &emergency.Grant{
		ID:              id.NewGrantID(),
		TenantID:        "t1",
		RequesterUserID: "u1",
		Reason:          "unresponsive patient",
		EmergencyType:   emergency.TypeMedical,
		Scope:           emergency.ScopeLimited,
		DurationMinutes: 60,
		Status:          emergency.StatusPending,
		RequestedAt:     now,
		Version:         1,
	}
	if err := s.CreateGrant(ctx, g); err != nil {
		t.Fatal(err)
	}

	// Winning transition.
	g.Status = emergency.StatusActive
	if err := s.UpdateGrant(ctx, g, 1); err != nil {
		t.Fatal(err)
	}
	if g.Version != 2 {
		t.Fatalf("expected version 2, got %d", g.Version)
	}

	// Losing transition against the stale version.
	stale := *g
	stale.Status = emergency.StatusRejected
	err := s.UpdateGrant(ctx, &stale, 1)
	if !errors.Is(err, emergency.ErrVersionConflict) {
		t.Fatalf("expected version conflict, got %v", err)
	}

	got, _ := s.GetGrant(ctx, g.ID)
	if got.Status != emergency.StatusActive {
		t.Fatalf("expected active, got %s", got.Status)
	}
}

func TestActiveAndOverdueGrants(t *testing.T) {
	ctx := context.Background()
	s := New()
	now := time.Now()

	future := now.Add(time.Hour)
	past := now.Add(-time.Minute)

	live := &emergency.Grant{
		ID: id.NewGrantID(), TenantID: "t1", RequesterUserID: "u1",
		Reason: "r", Status: emergency.StatusActive, ExpiresAt: &future,
		RequestedAt: now, Version: 2,
	}
	overdue := &emergency.Grant{
		ID: id.NewGrantID(), TenantID: "t1", RequesterUserID: "u1",
		Reason: "r", Status: emergency.StatusActive, ExpiresAt: &past,
		RequestedAt: now.Add(-2 * time.Hour), Version: 2,
	}
	_ = s.CreateGrant(ctx, live)
	_ = s.CreateGrant(ctx, overdue)

	active, _ := s.ListActiveGrantsForUser(ctx, "t1", "u1")
	if len(active) != 2 {
		t.Fatalf("expected both active-status grants, got %d", len(active))
	}

	due, _ := s.ListOverdueGrants(ctx, now)
	if len(due) != 1 || due[0].ID != overdue.ID {
		t.Fatalf("expected only the overdue grant, got %d", len(due))
	}
}

func TestAuditEntries(t *testing.T) {
	ctx := context.Background()
	s := New()
	now := time.Now()

	old := &auditlog.Entry{
		ID: id.NewAuditEntryID(), TenantID: "t1", UserID: "u1",
		Action: "read", Resource: "patient.record", Allowed: true,
		Decision: "allow", CreatedAt: now.Add(-time.Hour),
	}
	recent := &auditlog.Entry{
		ID: id.NewAuditEntryID(), TenantID: "t1", UserID: "u1",
		Action: "write", Resource: "patient.record", Allowed: false,
		Decision: "deny_no_permission", CreatedAt: now,
	}
	_ = s.InsertEntry(ctx, old)
	_ = s.InsertEntry(ctx, recent)

	// Newest first.
	entries, _ := s.QueryEntries(ctx, &auditlog.QueryFilter{TenantID: "t1"})
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].ID != recent.ID {
		t.Fatal("expected newest entry first")
	}

	denied := false
	entries, _ = s.QueryEntries(ctx, &auditlog.QueryFilter{TenantID: "t1", Allowed: &denied})
	if len(entries) != 1 || entries[0].Decision != "deny_no_permission" {
		t.Fatal("allowed filter mismatch")
	}

	purged, _ := s.PurgeEntriesBefore(ctx, now.Add(-time.Minute))
	if purged != 1 {
		t.Fatalf("expected 1 purged, got %d", purged)
	}
}

func TestDeleteByTenant(t *testing.T) {
	ctx := context.Background()
	s := New()

	_ = s.CreateRole(ctx, &role.Role{ID: id.NewRoleID(), TenantID: "t1", Name: "r1", Code: "r1"})
	_ = s.CreatePermission(ctx, &permission.Permission{ID: id.NewPermissionID(), TenantID: "t1", Code: "m.r.a"})
	_ = s.CreatePolicy(ctx, &policy.Policy{ID: id.NewPolicyID(), TenantID: "t1", Name: "pol1", Effect: policy.EffectAllow})
	_ = s.CreateRole(ctx, &role.Role{ID: id.NewRoleID(), TenantID: "t2", Name: "r2", Code: "r2"})

	_ = s.DeleteRolesByTenant(ctx, "t1")
	_ = s.DeletePermissionsByTenant(ctx, "t1")
	_ = s.DeletePoliciesByTenant(ctx, "t1")

	roles, _ := s.ListRoles(ctx, &role.ListFilter{TenantID: "t1"})
	if len(roles) != 0 {
		t.Fatal("t1 roles not deleted")
	}
	roles, _ = s.ListRoles(ctx, &role.ListFilter{TenantID: "t2"})
	if len(roles) != 1 {
		t.Fatal("t2 roles should remain")
	}
}

func TestPagination(t *testing.T) {
	ctx := context.Background()
	s := New()

	for _, code := range []string{"a", "b", "c", "d"} {
		_ = s.CreateRole(ctx, &role.Role{ID: id.NewRoleID(), TenantID: "t1", Name: code, Code: code})
	}

	page, _ := s.ListRoles(ctx, &role.ListFilter{TenantID: "t1", Limit: 2, Offset: 1})
	if len(page) != 2 {
		t.Fatalf("expected 2 roles, got %d", len(page))
	}
	if page[0].Code != "b" || page[1].Code != "c" {
		t.Fatalf("expected codes b,c, got %s,%s", page[0].Code, page[1].Code)
	}
}

func TestMigratePingClose(t *testing.T) {
	s := New()
	ctx := context.Background()

	if err := s.Migrate(ctx); err != nil {
		t.Fatal(err)
	}
	if err := s.Ping(ctx); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
}
