package plugin

import (
	"context"
	"log/slog"
	"testing"

	"github.com/medplane/guardian/emergency"
	"github.com/medplane/guardian/id"
	"github.com/medplane/guardian/role"
)

// testPlugin implements Plugin + RoleCreated + AfterAuthorize +
// EmergencyTransitioned.
type testPlugin struct {
	roleCreatedCalled    bool
	afterAuthorizeCalled bool
	transitionFrom       emergency.Status
	transitionCalled     bool
}

func (t *testPlugin) Name() string { return "test-plugin" }

func (t *testPlugin) OnRoleCreated(_ context.Context, _ *role.Role) error {
	t.roleCreatedCalled = true
	return nil
}

func (t *testPlugin) OnAfterAuthorize(_ context.Context, _, _ any) error {
	t.afterAuthorizeCalled = true
	return nil
}

func (t *testPlugin) OnEmergencyTransitioned(_ context.Context, _ *emergency.Grant, from emergency.Status) error {
	t.transitionCalled = true
	t.transitionFrom = from
	return nil
}

// minimalPlugin only implements Plugin (no hooks).
type minimalPlugin struct{}

func (m *minimalPlugin) Name() string { return "minimal" }

func TestRegistryDispatch(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(slog.Default())

	tp := &testPlugin{}
	reg.Register(tp)
	reg.Register(&minimalPlugin{})

	if len(reg.Plugins()) != 2 {
		t.Fatalf("expected 2 plugins, got %d", len(reg.Plugins()))
	}

	// Should dispatch RoleCreated to testPlugin only.
	reg.EmitRoleCreated(ctx, &role.Role{ID: id.NewRoleID(), Name: "admin"})
	if !tp.roleCreatedCalled {
		t.Fatal("OnRoleCreated was not called")
	}

	// Should dispatch AfterAuthorize.
	reg.EmitAfterAuthorize(ctx, nil, nil)
	if !tp.afterAuthorizeCalled {
		t.Fatal("OnAfterAuthorize was not called")
	}

	// Should dispatch EmergencyTransitioned with the prior status.
	reg.EmitEmergencyTransitioned(ctx, &emergency.Grant{ID: id.NewGrantID()}, emergency.StatusPending)
	if !tp.transitionCalled {
		t.Fatal("OnEmergencyTransitioned was not called")
	}
	if tp.transitionFrom != emergency.StatusPending {
		t.Fatalf("expected from=pending, got %s", tp.transitionFrom)
	}

	// Should not panic on hooks with no listeners.
	reg.EmitBeforeAuthorize(ctx, nil)
	reg.EmitRoleDeleted(ctx, id.NewRoleID())
	reg.EmitShutdown(ctx)
}
