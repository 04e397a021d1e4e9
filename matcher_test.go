package guardian

import "testing"

func TestMatchPermission(t *testing.T) {
	cases := []struct {
		held     string
		required string
		want     bool
	}{
		{"patient.record.read", "patient.record.read", true},
		{"patient.record.read", "patient.record.write", false},
		{"*", "anything.at.all", true},
		{"patient.*", "patient.record.read", true},
		{"patient.*", "patient.vitals.read", true},
		{"patient.*", "billing.invoice.read", false},
		{"patient.record.*", "patient.record.read", true},
		{"patient.record.*", "patient.recordkeeping.audit", false},
	}
	for _, tc := range cases {
		if got := matchPermission(tc.held, tc.required); got != tc.want {
			t.Errorf("matchPermission(%q, %q) = %v, want %v", tc.held, tc.required, got, tc.want)
		}
	}
}

func TestMatchAction(t *testing.T) {
	cases := []struct {
		actions []string
		action  string
		want    bool
	}{
		{nil, "read", true},
		{[]string{"read"}, "read", true},
		{[]string{"read"}, "write", false},
		{[]string{"*"}, "write", true},
		{[]string{"read", "write"}, "write", true},
	}
	for _, tc := range cases {
		if got := matchAction(tc.actions, tc.action); got != tc.want {
			t.Errorf("matchAction(%v, %q) = %v, want %v", tc.actions, tc.action, got, tc.want)
		}
	}
}

func TestMatchResource(t *testing.T) {
	cases := []struct {
		patterns []string
		resource string
		want     bool
	}{
		{nil, "patient.record", true},
		{[]string{"patient.record"}, "patient.record", true},
		{[]string{"patient.record"}, "patient.vitals", false},
		{[]string{"*"}, "patient.record", true},
		{[]string{"patient.*"}, "patient.record", true},
		{[]string{"patient.*"}, "billing.invoice", false},
		{[]string{"patient*"}, "patient.record", true},
		{[]string{"billing.*", "patient.*"}, "patient.record", true},
	}
	for _, tc := range cases {
		if got := matchResource(tc.patterns, tc.resource); got != tc.want {
			t.Errorf("matchResource(%v, %q) = %v, want %v", tc.patterns, tc.resource, got, tc.want)
		}
	}
}

func TestPermissionSet(t *testing.T) {
	s := newPermissionSet()
	s.Add("patient.record.read")
	s.Add("lab.*")
	s.Add("lab.*")

	if !s.Has("patient.record.read") {
		t.Fatal("exact code missing")
	}
	if !s.Has("lab.result.read") {
		t.Fatal("subtree pattern not honored")
	}
	if s.Has("billing.invoice.read") {
		t.Fatal("unheld code matched")
	}
	if s.Len() != 2 {
		t.Fatalf("expected 2 distinct codes, got %d", s.Len())
	}

	s.Add("*")
	if !s.Has("billing.invoice.read") {
		t.Fatal("wildcard not honored")
	}

	codes := s.Codes()
	if len(codes) != 3 || codes[0] != "*" {
		t.Fatalf("unexpected codes: %v", codes)
	}
}
