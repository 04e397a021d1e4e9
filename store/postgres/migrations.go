package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the Guardian store (PostgreSQL).
var Migrations = migrate.NewGroup("guardian")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_roles",
			Version: "20250101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS guardian_roles (
    id              TEXT PRIMARY KEY,
    tenant_id       TEXT NOT NULL,
    name            TEXT NOT NULL,
    code            TEXT NOT NULL,
    description     TEXT NOT NULL DEFAULT '',
    role_type       TEXT NOT NULL DEFAULT 'custom',
    priority        INTEGER NOT NULL DEFAULT 0,
    parent_id       TEXT,
    department_id   TEXT NOT NULL DEFAULT '',
    is_active       BOOLEAN NOT NULL DEFAULT TRUE,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT now(),

    UNIQUE(tenant_id, code)
);

CREATE INDEX IF NOT EXISTS idx_guardian_roles_tenant ON guardian_roles (tenant_id);
CREATE INDEX IF NOT EXISTS idx_guardian_roles_parent ON guardian_roles (parent_id);
CREATE INDEX IF NOT EXISTS idx_guardian_roles_department ON guardian_roles (tenant_id, department_id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS guardian_roles`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_permissions",
			Version: "20250101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS guardian_permissions (
    id                  TEXT PRIMARY KEY,
    tenant_id           TEXT NOT NULL,
    code                TEXT NOT NULL,
    module              TEXT NOT NULL DEFAULT '',
    resource            TEXT NOT NULL DEFAULT '',
    action              TEXT NOT NULL DEFAULT '',
    scope               TEXT NOT NULL DEFAULT '',
    data_classification TEXT NOT NULL DEFAULT '',
    description         TEXT NOT NULL DEFAULT '',
    is_system           BOOLEAN NOT NULL DEFAULT FALSE,
    is_active           BOOLEAN NOT NULL DEFAULT TRUE,
    created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at          TIMESTAMPTZ NOT NULL DEFAULT now(),

    UNIQUE(tenant_id, code)
);

CREATE INDEX IF NOT EXISTS idx_guardian_permissions_tenant ON guardian_permissions (tenant_id);
CREATE INDEX IF NOT EXISTS idx_guardian_permissions_resource ON guardian_permissions (tenant_id, resource, action);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS guardian_permissions`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_role_permissions",
			Version: "20250101000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS guardian_role_permissions (
    role_id         TEXT NOT NULL REFERENCES guardian_roles(id) ON DELETE CASCADE,
    permission_id   TEXT NOT NULL REFERENCES guardian_permissions(id) ON DELETE CASCADE,
    valid_from      TIMESTAMPTZ,
    valid_until     TIMESTAMPTZ,
    granted_by      TEXT NOT NULL DEFAULT '',
    created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),

    PRIMARY KEY (role_id, permission_id)
);

CREATE INDEX IF NOT EXISTS idx_guardian_role_perms_role ON guardian_role_permissions (role_id);
CREATE INDEX IF NOT EXISTS idx_guardian_role_perms_perm ON guardian_role_permissions (permission_id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS guardian_role_permissions`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_assignments",
			Version: "20250101000004",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS guardian_assignments (
    id              TEXT PRIMARY KEY,
    tenant_id       TEXT NOT NULL,
    user_id         TEXT NOT NULL,
    role_id         TEXT NOT NULL REFERENCES guardian_roles(id) ON DELETE CASCADE,
    branch_id       TEXT NOT NULL DEFAULT '',
    assigned_by     TEXT NOT NULL DEFAULT '',
    assigned_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
    expires_at      TIMESTAMPTZ,
    is_active       BOOLEAN NOT NULL DEFAULT TRUE,

    UNIQUE(tenant_id, user_id, role_id, branch_id)
);

CREATE INDEX IF NOT EXISTS idx_guardian_assign_tenant ON guardian_assignments (tenant_id);
CREATE INDEX IF NOT EXISTS idx_guardian_assign_user ON guardian_assignments (tenant_id, user_id);
CREATE INDEX IF NOT EXISTS idx_guardian_assign_role ON guardian_assignments (role_id);
CREATE INDEX IF NOT EXISTS idx_guardian_assign_expires ON guardian_assignments (expires_at);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS guardian_assignments`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_policies",
			Version: "20250101000005",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS guardian_policies (
    id                      TEXT PRIMARY KEY,
    tenant_id               TEXT NOT NULL,
    name                    TEXT NOT NULL,
    description             TEXT NOT NULL DEFAULT '',
    effect                  TEXT NOT NULL DEFAULT 'allow',
    priority                INTEGER NOT NULL DEFAULT 0,
    is_active               BOOLEAN NOT NULL DEFAULT TRUE,
    applies_to_users        JSONB NOT NULL DEFAULT '[]',
    applies_to_roles        JSONB NOT NULL DEFAULT '[]',
    applies_to_departments  JSONB NOT NULL DEFAULT '[]',
    actions                 JSONB NOT NULL DEFAULT '[]',
    resources               JSONB NOT NULL DEFAULT '[]',
    effective_from          TIMESTAMPTZ,
    effective_until         TIMESTAMPTZ,
    days_of_week            JSONB NOT NULL DEFAULT '[]',
    time_of_day_start       TEXT NOT NULL DEFAULT '',
    time_of_day_end         TEXT NOT NULL DEFAULT '',
    conditions              JSONB NOT NULL DEFAULT '{}',
    synthetic               BOOLEAN NOT NULL DEFAULT FALSE,
    grant_id                TEXT,
    expires_at              TIMESTAMPTZ,
    evaluation_count        BIGINT NOT NULL DEFAULT 0,
    last_evaluated_at       TIMESTAMPTZ,
    created_at              TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at              TIMESTAMPTZ NOT NULL DEFAULT now(),

    UNIQUE(tenant_id, name)
);

CREATE INDEX IF NOT EXISTS idx_guardian_policies_tenant ON guardian_policies (tenant_id);
CREATE INDEX IF NOT EXISTS idx_guardian_policies_active ON guardian_policies (tenant_id, is_active, priority);
CREATE INDEX IF NOT EXISTS idx_guardian_policies_grant ON guardian_policies (grant_id) WHERE synthetic;
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS guardian_policies`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_emergency_grants",
			Version: "20250101000006",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS guardian_emergency_grants (
    id                  TEXT PRIMARY KEY,
    tenant_id           TEXT NOT NULL,
    requester_user_id   TEXT NOT NULL,
    approved_by_user_id TEXT NOT NULL DEFAULT '',
    revoked_by_user_id  TEXT NOT NULL DEFAULT '',
    patient_id          TEXT NOT NULL DEFAULT '',
    reason              TEXT NOT NULL,
    emergency_type      TEXT NOT NULL DEFAULT 'medical',
    access_code         TEXT NOT NULL,
    granted_permissions JSONB NOT NULL DEFAULT '[]',
    scope               TEXT NOT NULL DEFAULT 'limited',
    duration_minutes    INTEGER NOT NULL DEFAULT 60,
    status              TEXT NOT NULL DEFAULT 'pending',
    notes               TEXT NOT NULL DEFAULT '',
    decision_reason     TEXT NOT NULL DEFAULT '',
    requested_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
    approved_at         TIMESTAMPTZ,
    rejected_at         TIMESTAMPTZ,
    revoked_at          TIMESTAMPTZ,
    expires_at          TIMESTAMPTZ,
    version             INTEGER NOT NULL DEFAULT 1
);

CREATE INDEX IF NOT EXISTS idx_guardian_grants_tenant ON guardian_emergency_grants (tenant_id);
CREATE INDEX IF NOT EXISTS idx_guardian_grants_requester ON guardian_emergency_grants (tenant_id, requester_user_id, status);
CREATE INDEX IF NOT EXISTS idx_guardian_grants_overdue ON guardian_emergency_grants (status, expires_at);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS guardian_emergency_grants`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_audit_log",
			Version: "20250101000007",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS guardian_audit_log (
    id              TEXT PRIMARY KEY,
    tenant_id       TEXT NOT NULL,
    user_id         TEXT NOT NULL,
    action          TEXT NOT NULL,
    resource        TEXT NOT NULL,
    allowed         BOOLEAN NOT NULL,
    decision        TEXT NOT NULL,
    gate            TEXT NOT NULL DEFAULT '',
    reason          TEXT NOT NULL DEFAULT '',
    ip_address      TEXT NOT NULL DEFAULT '',
    eval_time_ns    BIGINT NOT NULL DEFAULT 0,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_guardian_audit_tenant ON guardian_audit_log (tenant_id);
CREATE INDEX IF NOT EXISTS idx_guardian_audit_user ON guardian_audit_log (tenant_id, user_id);
CREATE INDEX IF NOT EXISTS idx_guardian_audit_created ON guardian_audit_log (created_at);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS guardian_audit_log`)
				return err
			},
		},
	)
}
