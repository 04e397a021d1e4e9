package guardian

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/medplane/guardian/assignment"
	"github.com/medplane/guardian/emergency"
	"github.com/medplane/guardian/id"
	"github.com/medplane/guardian/permission"
	"github.com/medplane/guardian/policy"
	"github.com/medplane/guardian/role"
	"github.com/medplane/guardian/store/memory"
)

// testClock is a settable clock for pinning evaluation time.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestEngine(t *testing.T, opts ...Option) (*Engine, *testClock) {
	t.Helper()
	// A Monday morning.
	clk := &testClock{now: time.Date(2025, 6, 2, 10, 30, 0, 0, time.UTC)}
	opts = append([]Option{WithStore(memory.New()), WithClock(clk.Now)}, opts...)
	eng, err := NewEngine(opts...)
	if err != nil {
		t.Fatal(err)
	}
	return eng, clk
}

// seedAccess creates a permission, a role granting it, and an assignment
// binding the role to the user. Returns the role.
func seedAccess(t *testing.T, eng *Engine, tenantID, userID, code string) *role.Role {
	t.Helper()
	ctx := context.Background()

	p := &permission.Permission{
		TenantID: tenantID,
		Code:     code,
		IsActive: true,
	}
	if err := eng.CreatePermission(ctx, p); err != nil {
		t.Fatal(err)
	}

	r := &role.Role{
		TenantID: tenantID,
		Name:     "Physician " + code,
		Code:     "physician-" + code,
		IsActive: true,
	}
	if err := eng.CreateRole(ctx, r); err != nil {
		t.Fatal(err)
	}
	if err := eng.AttachPermission(ctx, tenantID, &role.Grant{RoleID: r.ID, PermissionID: p.ID}); err != nil {
		t.Fatal(err)
	}
	if err := eng.AssignRole(ctx, &assignment.Assignment{TenantID: tenantID, UserID: userID, RoleID: r.ID}); err != nil {
		t.Fatal(err)
	}
	return r
}

// allowAll creates a baseline Allow policy targeting the user with no
// constraints, so the policy gate opens.
func allowAll(t *testing.T, eng *Engine, tenantID, userID string) *policy.Policy {
	t.Helper()
	p := &policy.Policy{
		TenantID:       tenantID,
		Name:           "baseline allow " + userID,
		Effect:         policy.EffectAllow,
		Priority:       1,
		IsActive:       true,
		AppliesToUsers: []string{userID},
	}
	if err := eng.CreatePolicy(context.Background(), p); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestAuthorizeRequiresArguments(t *testing.T) {
	eng, _ := newTestEngine(t)
	_, err := eng.Authorize(context.Background(), "", "u1", "read", "patient.record", nil)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAuthorizeDenyNoRoles(t *testing.T) {
	eng, _ := newTestEngine(t)
	result, err := eng.Authorize(context.Background(), "t1", "stranger", "read", "patient.record", nil)
	if err != nil {
		t.Fatal(err)
	}
	if result.Allowed {
		t.Fatal("expected deny")
	}
	if result.Decision != DecisionDenyNoRoles {
		t.Fatalf("expected %s, got %s", DecisionDenyNoRoles, result.Decision)
	}
	if result.Gate != GatePermission {
		t.Fatalf("expected permission gate, got %s", result.Gate)
	}
}

func TestAuthorizeDenyNoPermission(t *testing.T) {
	eng, _ := newTestEngine(t)
	seedAccess(t, eng, "t1", "dr-lee", "clinical.patient.read")
	allowAll(t, eng, "t1", "dr-lee")

	result, err := eng.Authorize(context.Background(), "t1", "dr-lee", "delete", "billing.invoice", nil)
	if err != nil {
		t.Fatal(err)
	}
	if result.Allowed {
		t.Fatal("expected deny")
	}
	if result.Decision != DecisionDenyNoPermission {
		t.Fatalf("expected %s, got %s", DecisionDenyNoPermission, result.Decision)
	}
}

func TestAuthorizeDenyByDefault(t *testing.T) {
	eng, _ := newTestEngine(t)
	seedAccess(t, eng, "t1", "dr-lee", "patient.record.read")
	// Permission gate passes, but no policy allows.

	result, err := eng.Authorize(context.Background(), "t1", "dr-lee", "read", "patient.record", nil)
	if err != nil {
		t.Fatal(err)
	}
	if result.Allowed {
		t.Fatal("expected deny")
	}
	if result.Decision != DecisionDenyDefault {
		t.Fatalf("expected %s, got %s", DecisionDenyDefault, result.Decision)
	}
	if result.Gate != GatePolicy {
		t.Fatalf("expected policy gate, got %s", result.Gate)
	}
}

func TestAuthorizeAllow(t *testing.T) {
	eng, _ := newTestEngine(t)
	seedAccess(t, eng, "t1", "dr-lee", "patient.record.read")
	allowAll(t, eng, "t1", "dr-lee")

	result, err := eng.Authorize(context.Background(), "t1", "dr-lee", "read", "patient.record", nil)
	if err != nil {
		t.Fatal(err)
	}
	if !result.Allowed {
		t.Fatalf("expected allow, got %s: %s", result.Decision, result.Reason)
	}
	if result.Decision != DecisionAllow {
		t.Fatalf("expected %s, got %s", DecisionAllow, result.Decision)
	}
}

func TestAuthorizeDeterministic(t *testing.T) {
	eng, _ := newTestEngine(t)
	seedAccess(t, eng, "t1", "dr-lee", "patient.record.read")
	allowAll(t, eng, "t1", "dr-lee")

	first, err := eng.Authorize(context.Background(), "t1", "dr-lee", "read", "patient.record", nil)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		result, err := eng.Authorize(context.Background(), "t1", "dr-lee", "read", "patient.record", nil)
		if err != nil {
			t.Fatal(err)
		}
		if result.Allowed != first.Allowed || result.Decision != first.Decision ||
			result.Reason != first.Reason || result.PolicyName != first.PolicyName {
			t.Fatalf("run %d diverged: %+v vs %+v", i, result, first)
		}
	}
}

func TestDenyOverridesAllow(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()
	seedAccess(t, eng, "t1", "dr-lee", "patient.record.read")

	if err := eng.CreatePolicy(ctx, &policy.Policy{
		TenantID:       "t1",
		Name:           "broad allow",
		Effect:         policy.EffectAllow,
		Priority:       100,
		IsActive:       true,
		AppliesToUsers: []string{"dr-lee"},
	}); err != nil {
		t.Fatal(err)
	}
	if err := eng.CreatePolicy(ctx, &policy.Policy{
		TenantID:       "t1",
		Name:           "record freeze",
		Effect:         policy.EffectDeny,
		Priority:       1,
		IsActive:       true,
		AppliesToUsers: []string{"dr-lee"},
		Resources:      []string{"patient.record"},
	}); err != nil {
		t.Fatal(err)
	}

	result, err := eng.Authorize(ctx, "t1", "dr-lee", "read", "patient.record", nil)
	if err != nil {
		t.Fatal(err)
	}
	if result.Allowed {
		t.Fatal("satisfied deny must win regardless of priority")
	}
	if result.Decision != DecisionDenyExplicit {
		t.Fatalf("expected %s, got %s", DecisionDenyExplicit, result.Decision)
	}
	if result.PolicyName != "record freeze" {
		t.Fatalf("expected deny attributed to record freeze, got %q", result.PolicyName)
	}
}

func TestHighestPriorityAllowAttributed(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()
	seedAccess(t, eng, "t1", "dr-lee", "patient.record.read")

	for _, p := range []*policy.Policy{
		{TenantID: "t1", Name: "low allow", Effect: policy.EffectAllow, Priority: 10, IsActive: true, AppliesToUsers: []string{"dr-lee"}},
		{TenantID: "t1", Name: "high allow", Effect: policy.EffectAllow, Priority: 20, IsActive: true, AppliesToUsers: []string{"dr-lee"}},
	} {
		if err := eng.CreatePolicy(ctx, p); err != nil {
			t.Fatal(err)
		}
	}

	result, err := eng.Authorize(ctx, "t1", "dr-lee", "read", "patient.record", nil)
	if err != nil {
		t.Fatal(err)
	}
	if !result.Allowed {
		t.Fatalf("expected allow, got %s", result.Reason)
	}
	if result.PolicyName != "high allow" || result.Priority != 20 {
		t.Fatalf("expected attribution to high allow (20), got %q (%d)", result.PolicyName, result.Priority)
	}
}

func TestOvernightTimeWindow(t *testing.T) {
	eng, clk := newTestEngine(t)
	ctx := context.Background()
	seedAccess(t, eng, "t1", "nurse-kim", "patient.vitals.read")

	if err := eng.CreatePolicy(ctx, &policy.Policy{
		TenantID:       "t1",
		Name:           "night shift access",
		Effect:         policy.EffectAllow,
		Priority:       5,
		IsActive:       true,
		AppliesToUsers: []string{"nurse-kim"},
		TimeOfDayStart: "22:00",
		TimeOfDayEnd:   "06:00",
	}); err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		at      time.Time
		allowed bool
	}{
		{time.Date(2025, 6, 2, 23, 30, 0, 0, time.UTC), true},
		{time.Date(2025, 6, 3, 2, 0, 0, 0, time.UTC), true},
		{time.Date(2025, 6, 3, 12, 0, 0, 0, time.UTC), false},
	}
	for _, tc := range cases {
		clk.Set(tc.at)
		result, err := eng.Authorize(ctx, "t1", "nurse-kim", "read", "patient.vitals", nil)
		if err != nil {
			t.Fatal(err)
		}
		if result.Allowed != tc.allowed {
			t.Fatalf("at %s: expected allowed=%v, got %v (%s)", tc.at.Format("15:04"), tc.allowed, result.Allowed, result.Reason)
		}
	}
}

func TestRoleCycleRejected(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	parent := &role.Role{TenantID: "t1", Name: "Chief", Code: "chief", IsActive: true}
	if err := eng.CreateRole(ctx, parent); err != nil {
		t.Fatal(err)
	}
	child := &role.Role{TenantID: "t1", Name: "Resident", Code: "resident", ParentID: &parent.ID, IsActive: true}
	if err := eng.CreateRole(ctx, child); err != nil {
		t.Fatal(err)
	}

	// Closing the loop must fail.
	err := eng.SetRoleParent(ctx, "t1", parent.ID, &child.ID)
	if !errors.Is(err, ErrCyclicRoleInheritance) {
		t.Fatalf("expected cycle rejection, got %v", err)
	}

	// A role can never be its own parent.
	err = eng.SetRoleParent(ctx, "t1", parent.ID, &parent.ID)
	if !errors.Is(err, ErrCyclicRoleInheritance) {
		t.Fatalf("expected self-parent rejection, got %v", err)
	}
}

func TestInheritedPermissions(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	p := &permission.Permission{TenantID: "t1", Code: "clinical.chart.read", IsActive: true}
	if err := eng.CreatePermission(ctx, p); err != nil {
		t.Fatal(err)
	}
	parent := &role.Role{TenantID: "t1", Name: "Clinician", Code: "clinician", IsActive: true}
	if err := eng.CreateRole(ctx, parent); err != nil {
		t.Fatal(err)
	}
	if err := eng.AttachPermission(ctx, "t1", &role.Grant{RoleID: parent.ID, PermissionID: p.ID}); err != nil {
		t.Fatal(err)
	}
	child := &role.Role{TenantID: "t1", Name: "Intern", Code: "intern", ParentID: &parent.ID, IsActive: true}
	if err := eng.CreateRole(ctx, child); err != nil {
		t.Fatal(err)
	}
	if err := eng.AssignRole(ctx, &assignment.Assignment{TenantID: "t1", UserID: "dr-park", RoleID: child.ID}); err != nil {
		t.Fatal(err)
	}

	set, err := eng.GetEffectivePermissions(ctx, "t1", "dr-park")
	if err != nil {
		t.Fatal(err)
	}
	if !set.Has("clinical.chart.read") {
		t.Fatalf("expected inherited permission, got %v", set.Codes())
	}

	roles, err := eng.GetUserRoles(ctx, "t1", "dr-park")
	if err != nil {
		t.Fatal(err)
	}
	if len(roles) != 2 {
		t.Fatalf("expected direct role plus ancestor, got %d", len(roles))
	}
}

func TestExpiredGrantWindowExcluded(t *testing.T) {
	eng, clk := newTestEngine(t)
	ctx := context.Background()

	p := &permission.Permission{TenantID: "t1", Code: "lab.result.read", IsActive: true}
	if err := eng.CreatePermission(ctx, p); err != nil {
		t.Fatal(err)
	}
	r := &role.Role{TenantID: "t1", Name: "Lab Tech", Code: "lab-tech", IsActive: true}
	if err := eng.CreateRole(ctx, r); err != nil {
		t.Fatal(err)
	}
	until := clk.Now().Add(time.Hour)
	if err := eng.AttachPermission(ctx, "t1", &role.Grant{RoleID: r.ID, PermissionID: p.ID, ValidUntil: &until}); err != nil {
		t.Fatal(err)
	}
	if err := eng.AssignRole(ctx, &assignment.Assignment{TenantID: "t1", UserID: "tech-1", RoleID: r.ID}); err != nil {
		t.Fatal(err)
	}

	ok, err := eng.HasPermission(ctx, "t1", "tech-1", "lab.result.read")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected permission inside validity window")
	}

	clk.Advance(2 * time.Hour)
	ok, err = eng.HasPermission(ctx, "t1", "tech-1", "lab.result.read")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected permission to lapse with its grant window")
	}
}

func TestSeedWildcardPermission(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	admin, err := eng.Seed(ctx, "t1", "system")
	if err != nil {
		t.Fatal(err)
	}
	if admin.Code != SuperAdminRoleCode {
		t.Fatalf("expected %s, got %s", SuperAdminRoleCode, admin.Code)
	}

	// Seeding again returns the existing role.
	again, err := eng.Seed(ctx, "t1", "system")
	if err != nil {
		t.Fatal(err)
	}
	if again.ID != admin.ID {
		t.Fatal("seed is not idempotent")
	}

	if err := eng.AssignRole(ctx, &assignment.Assignment{TenantID: "t1", UserID: "root-admin", RoleID: admin.ID}); err != nil {
		t.Fatal(err)
	}
	allowAll(t, eng, "t1", "root-admin")

	// The wildcard covers codes never registered in the catalog.
	for _, tc := range []struct{ action, resource string }{
		{"read", "patient.record"},
		{"delete", "billing.invoice"},
		{"export", "lab.result"},
	} {
		result, err := eng.Authorize(ctx, "t1", "root-admin", tc.action, tc.resource, nil)
		if err != nil {
			t.Fatal(err)
		}
		if !result.Allowed {
			t.Fatalf("wildcard should cover %s.%s: %s", tc.resource, tc.action, result.Reason)
		}
	}

	// System role structure is immutable.
	if err := eng.DeleteRole(ctx, "t1", admin.ID); !errors.Is(err, ErrSystemRoleImmutable) {
		t.Fatalf("expected system role immutability, got %v", err)
	}
}

func TestEnforce(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	err := eng.Enforce(ctx, "t1", "stranger", "read", "patient.record", nil)
	if !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied, got %v", err)
	}

	seedAccess(t, eng, "t1", "dr-lee", "patient.record.read")
	allowAll(t, eng, "t1", "dr-lee")
	if err := eng.Enforce(ctx, "t1", "dr-lee", "read", "patient.record", nil); err != nil {
		t.Fatal(err)
	}
}

func TestEmergencyLifecycle(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	g, err := eng.RequestEmergencyAccess(ctx, "t1", &EmergencyRequest{
		RequesterUserID: "dr-lee",
		PatientID:       "patient-42",
		Reason:          "chest pain",
		DurationMinutes: 60,
		Permissions:     []string{"patient.record.read"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if g.Status != emergency.StatusPending {
		t.Fatalf("expected pending, got %s", g.Status)
	}
	if g.DurationMinutes != 60 {
		t.Fatalf("expected 60 minutes, got %d", g.DurationMinutes)
	}
	if g.Scope != emergency.ScopeSpecific {
		t.Fatalf("patient-scoped request should default to specific scope, got %s", g.Scope)
	}

	// Pending confers nothing.
	result, err := eng.Authorize(ctx, "t1", "dr-lee", "read", "patient.record", nil)
	if err != nil {
		t.Fatal(err)
	}
	if result.Allowed {
		t.Fatal("pending grant must not confer access")
	}

	// Requesters cannot approve their own grants.
	if _, err := eng.ApproveEmergencyAccess(ctx, "t1", g.ID, "dr-lee", ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected self-approval rejection, got %v", err)
	}

	approved, err := eng.ApproveEmergencyAccess(ctx, "t1", g.ID, "dr-chen", "verified by charge nurse")
	if err != nil {
		t.Fatal(err)
	}
	if approved.Status != emergency.StatusActive {
		t.Fatalf("expected active, got %s", approved.Status)
	}
	if approved.ExpiresAt == nil {
		t.Fatal("active grant needs an expiry")
	}

	result, err = eng.Authorize(ctx, "t1", "dr-lee", "read", "patient.record", nil)
	if err != nil {
		t.Fatal(err)
	}
	if !result.Allowed {
		t.Fatalf("active grant should open both gates: %s", result.Reason)
	}

	// The grant covers only the requested codes.
	result, err = eng.Authorize(ctx, "t1", "dr-lee", "delete", "patient.record", nil)
	if err != nil {
		t.Fatal(err)
	}
	if result.Allowed {
		t.Fatal("grant must not cover unrequested codes")
	}

	revoked, err := eng.RevokeEmergencyAccess(ctx, "t1", g.ID, "dr-chen", "situation resolved")
	if err != nil {
		t.Fatal(err)
	}
	if revoked.Status != emergency.StatusRevoked {
		t.Fatalf("expected revoked, got %s", revoked.Status)
	}

	result, err = eng.Authorize(ctx, "t1", "dr-lee", "read", "patient.record", nil)
	if err != nil {
		t.Fatal(err)
	}
	if result.Allowed {
		t.Fatal("revocation must end access on the next check")
	}

	// Terminal states accept no further transitions.
	if _, err := eng.ApproveEmergencyAccess(ctx, "t1", g.ID, "dr-chen", ""); !errors.Is(err, ErrStateConflict) {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestEmergencyReject(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	g, err := eng.RequestEmergencyAccess(ctx, "t1", &EmergencyRequest{
		RequesterUserID: "dr-lee",
		Reason:          "unconscious patient in ER",
		DurationMinutes: 30,
		Permissions:     []string{"patient.record.read"},
	})
	if err != nil {
		t.Fatal(err)
	}

	rejected, err := eng.RejectEmergencyAccess(ctx, "t1", g.ID, "dr-chen", "insufficient justification")
	if err != nil {
		t.Fatal(err)
	}
	if rejected.Status != emergency.StatusRejected {
		t.Fatalf("expected rejected, got %s", rejected.Status)
	}
	if rejected.DecisionReason != "insufficient justification" {
		t.Fatalf("expected decision reason recorded, got %q", rejected.DecisionReason)
	}

	if _, err := eng.RejectEmergencyAccess(ctx, "t1", g.ID, "dr-chen", "again"); !errors.Is(err, ErrStateConflict) {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestEmergencyDurationClamped(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	low, err := eng.RequestEmergencyAccess(ctx, "t1", &EmergencyRequest{
		RequesterUserID: "dr-lee",
		Reason:          "code blue",
		DurationMinutes: 5,
		Permissions:     []string{"patient.record.read"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if low.DurationMinutes != emergency.MinDurationMinutes {
		t.Fatalf("expected clamp to %d, got %d", emergency.MinDurationMinutes, low.DurationMinutes)
	}

	high, err := eng.RequestEmergencyAccess(ctx, "t1", &EmergencyRequest{
		RequesterUserID: "dr-lee",
		Reason:          "mass casualty event",
		DurationMinutes: 10000,
		Permissions:     []string{"patient.record.read"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if high.DurationMinutes != emergency.MaxDurationMinutes {
		t.Fatalf("expected clamp to %d, got %d", emergency.MaxDurationMinutes, high.DurationMinutes)
	}
}

func TestEmergencyExpiresWithoutSweep(t *testing.T) {
	eng, clk := newTestEngine(t)
	ctx := context.Background()

	g, err := eng.RequestEmergencyAccess(ctx, "t1", &EmergencyRequest{
		RequesterUserID: "dr-lee",
		Reason:          "chest pain",
		DurationMinutes: 60,
		Permissions:     []string{"patient.record.read"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := eng.ApproveEmergencyAccess(ctx, "t1", g.ID, "dr-chen", ""); err != nil {
		t.Fatal(err)
	}

	result, err := eng.Authorize(ctx, "t1", "dr-lee", "read", "patient.record", nil)
	if err != nil {
		t.Fatal(err)
	}
	if !result.Allowed {
		t.Fatalf("expected access while active: %s", result.Reason)
	}

	// Past expiry the grant confers nothing, sweep or no sweep.
	clk.Advance(61 * time.Minute)
	result, err = eng.Authorize(ctx, "t1", "dr-lee", "read", "patient.record", nil)
	if err != nil {
		t.Fatal(err)
	}
	if result.Allowed {
		t.Fatal("expired grant must not confer access before the sweep runs")
	}
}

func TestExpireOverdueGrants(t *testing.T) {
	eng, clk := newTestEngine(t)
	ctx := context.Background()

	g, err := eng.RequestEmergencyAccess(ctx, "t1", &EmergencyRequest{
		RequesterUserID: "dr-lee",
		Reason:          "chest pain",
		DurationMinutes: 60,
		Permissions:     []string{"patient.record.read"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := eng.ApproveEmergencyAccess(ctx, "t1", g.ID, "dr-chen", ""); err != nil {
		t.Fatal(err)
	}

	clk.Advance(61 * time.Minute)
	n, err := eng.ExpireOverdueGrants(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expected 1 expired grant, got %d", n)
	}

	got, err := eng.GetEmergencyGrant(ctx, "t1", g.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != emergency.StatusExpired {
		t.Fatalf("expected expired, got %s", got.Status)
	}

	// The synthetic policies die with the grant.
	synthetic := true
	policies, err := eng.Store().ListPolicies(ctx, &policy.ListFilter{TenantID: "t1", Synthetic: &synthetic})
	if err != nil {
		t.Fatal(err)
	}
	if len(policies) != 0 {
		t.Fatalf("expected synthetic policies removed, found %d", len(policies))
	}
}

func TestEmergencyGrantHiddenAcrossTenants(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	g, err := eng.RequestEmergencyAccess(ctx, "t1", &EmergencyRequest{
		RequesterUserID: "dr-lee",
		Reason:          "chest pain",
		DurationMinutes: 60,
		Permissions:     []string{"patient.record.read"},
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := eng.GetEmergencyGrant(ctx, "t2", g.ID); !errors.Is(err, emergency.ErrNotFound) {
		t.Fatalf("expected not found across tenants, got %v", err)
	}
}

func TestSyntheticPoliciesLockedDown(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	g, err := eng.RequestEmergencyAccess(ctx, "t1", &EmergencyRequest{
		RequesterUserID: "dr-lee",
		Reason:          "chest pain",
		DurationMinutes: 60,
		Permissions:     []string{"patient.record.read"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := eng.ApproveEmergencyAccess(ctx, "t1", g.ID, "dr-chen", ""); err != nil {
		t.Fatal(err)
	}

	synthetic := true
	policies, err := eng.Store().ListPolicies(ctx, &policy.ListFilter{TenantID: "t1", Synthetic: &synthetic})
	if err != nil {
		t.Fatal(err)
	}
	if len(policies) != 1 {
		t.Fatalf("expected 1 synthetic policy, got %d", len(policies))
	}
	sp := policies[0]
	if sp.GrantID != g.ID {
		t.Fatal("synthetic policy not linked to its grant")
	}

	// Engine-owned policies cannot be edited or deleted through the
	// management surface.
	sp.Priority = 1
	if err := eng.UpdatePolicy(ctx, sp); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected edit rejection, got %v", err)
	}
	if err := eng.DeletePolicy(ctx, "t1", sp.ID); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected delete rejection, got %v", err)
	}
}

func TestEngineRequiresStore(t *testing.T) {
	if _, err := NewEngine(); !errors.Is(err, ErrStoreRequired) {
		t.Fatalf("expected ErrStoreRequired, got %v", err)
	}
}

func TestTenantIsolation(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()
	seedAccess(t, eng, "t1", "dr-lee", "patient.record.read")
	allowAll(t, eng, "t1", "dr-lee")

	// The same user in another tenant holds nothing.
	result, err := eng.Authorize(ctx, "t2", "dr-lee", "read", "patient.record", nil)
	if err != nil {
		t.Fatal(err)
	}
	if result.Allowed {
		t.Fatal("roles must not leak across tenants")
	}
	if result.Decision != DecisionDenyNoRoles {
		t.Fatalf("expected %s, got %s", DecisionDenyNoRoles, result.Decision)
	}
}

func TestAssignmentExpiry(t *testing.T) {
	eng, clk := newTestEngine(t)
	ctx := context.Background()

	p := &permission.Permission{TenantID: "t1", Code: "patient.record.read", IsActive: true}
	if err := eng.CreatePermission(ctx, p); err != nil {
		t.Fatal(err)
	}
	r := &role.Role{TenantID: "t1", Name: "Locum", Code: "locum", IsActive: true}
	if err := eng.CreateRole(ctx, r); err != nil {
		t.Fatal(err)
	}
	if err := eng.AttachPermission(ctx, "t1", &role.Grant{RoleID: r.ID, PermissionID: p.ID}); err != nil {
		t.Fatal(err)
	}
	expires := clk.Now().Add(24 * time.Hour)
	if err := eng.AssignRole(ctx, &assignment.Assignment{
		TenantID:  "t1",
		UserID:    "locum-1",
		RoleID:    r.ID,
		ExpiresAt: &expires,
	}); err != nil {
		t.Fatal(err)
	}
	allowAll(t, eng, "t1", "locum-1")

	result, err := eng.Authorize(ctx, "t1", "locum-1", "read", "patient.record", nil)
	if err != nil {
		t.Fatal(err)
	}
	if !result.Allowed {
		t.Fatalf("expected access before assignment expiry: %s", result.Reason)
	}

	clk.Advance(25 * time.Hour)
	result, err = eng.Authorize(ctx, "t1", "locum-1", "read", "patient.record", nil)
	if err != nil {
		t.Fatal(err)
	}
	if result.Allowed {
		t.Fatal("expired assignment must not confer access")
	}
}

func TestEvaluatePoliciesAlone(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()
	seedAccess(t, eng, "t1", "dr-lee", "patient.record.read")
	allowAll(t, eng, "t1", "dr-lee")

	pd, err := eng.EvaluatePolicies(ctx, "t1", "dr-lee", "read", "patient.record", nil)
	if err != nil {
		t.Fatal(err)
	}
	if !pd.IsAllowed {
		t.Fatalf("expected policy gate open: %s", pd.Reason)
	}

	pd, err = eng.EvaluatePolicies(ctx, "t1", "someone-else", "read", "patient.record", nil)
	if err != nil {
		t.Fatal(err)
	}
	if pd.IsAllowed {
		t.Fatal("expected default deny for untargeted user")
	}
}

func TestContextualConditions(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()
	seedAccess(t, eng, "t1", "dr-lee", "patient.record.read")

	if err := eng.CreatePolicy(ctx, &policy.Policy{
		TenantID:       "t1",
		Name:           "ward terminal only",
		Effect:         policy.EffectAllow,
		Priority:       5,
		IsActive:       true,
		AppliesToUsers: []string{"dr-lee"},
		Conditions:     map[string]any{"terminal": "ward-3"},
	}); err != nil {
		t.Fatal(err)
	}

	result, err := eng.Authorize(ctx, "t1", "dr-lee", "read", "patient.record", &EvalContext{
		Attributes: map[string]string{"terminal": "ward-3"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !result.Allowed {
		t.Fatalf("expected allow with matching attribute: %s", result.Reason)
	}

	result, err = eng.Authorize(ctx, "t1", "dr-lee", "read", "patient.record", &EvalContext{
		Attributes: map[string]string{"terminal": "lobby-kiosk"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.Allowed {
		t.Fatal("expected deny with mismatched attribute")
	}

	// A missing attribute also fails the condition.
	result, err = eng.Authorize(ctx, "t1", "dr-lee", "read", "patient.record", nil)
	if err != nil {
		t.Fatal(err)
	}
	if result.Allowed {
		t.Fatal("expected deny with missing attribute")
	}
}

func TestBlockedIPOverridesAllowList(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()
	seedAccess(t, eng, "t1", "dr-lee", "patient.record.read")

	if err := eng.CreatePolicy(ctx, &policy.Policy{
		TenantID:       "t1",
		Name:           "hospital network",
		Effect:         policy.EffectAllow,
		Priority:       5,
		IsActive:       true,
		AppliesToUsers: []string{"dr-lee"},
		Conditions: map[string]any{
			policy.ConditionAllowedIPs: []string{"10.0.1.5", "10.0.1.6"},
			policy.ConditionBlockedIPs: []string{"10.0.1.6"},
		},
	}); err != nil {
		t.Fatal(err)
	}

	result, err := eng.Authorize(ctx, "t1", "dr-lee", "read", "patient.record", &EvalContext{IPAddress: "10.0.1.5"})
	if err != nil {
		t.Fatal(err)
	}
	if !result.Allowed {
		t.Fatalf("expected allow from allowed IP: %s", result.Reason)
	}

	result, err = eng.Authorize(ctx, "t1", "dr-lee", "read", "patient.record", &EvalContext{IPAddress: "10.0.1.6"})
	if err != nil {
		t.Fatal(err)
	}
	if result.Allowed {
		t.Fatal("block-list must override the allow-list")
	}
}

func TestRolePolicyTargeting(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()
	r := seedAccess(t, eng, "t1", "dr-lee", "patient.record.read")

	if err := eng.CreatePolicy(ctx, &policy.Policy{
		TenantID:       "t1",
		Name:           "physicians may read",
		Effect:         policy.EffectAllow,
		Priority:       5,
		IsActive:       true,
		AppliesToRoles: []string{r.Code},
	}); err != nil {
		t.Fatal(err)
	}

	result, err := eng.Authorize(ctx, "t1", "dr-lee", "read", "patient.record", nil)
	if err != nil {
		t.Fatal(err)
	}
	if !result.Allowed {
		t.Fatalf("expected role-targeted allow: %s", result.Reason)
	}
}

func TestUnusedGrantID(t *testing.T) {
	// CreatePolicy strips engine-owned fields from admin input.
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	expiry := time.Now().Add(time.Hour)
	p := &policy.Policy{
		TenantID:       "t1",
		Name:           "sneaky",
		Effect:         policy.EffectAllow,
		Priority:       5,
		IsActive:       true,
		AppliesToUsers: []string{"dr-lee"},
		Synthetic:      true,
		GrantID:        id.NewGrantID(),
		ExpiresAt:      &expiry,
	}
	if err := eng.CreatePolicy(ctx, p); err != nil {
		t.Fatal(err)
	}
	if p.Synthetic || !p.GrantID.IsNil() || p.ExpiresAt != nil {
		t.Fatal("admin-authored policies must not carry synthetic lifecycle fields")
	}
}
