package id

import (
	"encoding/json"
	"testing"
)

func TestNewAndString(t *testing.T) {
	rid := NewRoleID()
	if rid.IsNil() {
		t.Fatal("new ID should not be nil")
	}
	if rid.Prefix() != PrefixRole {
		t.Fatalf("expected prefix %q, got %q", PrefixRole, rid.Prefix())
	}
	if rid.String() == "" {
		t.Fatal("expected non-empty string form")
	}
}

func TestParseRoundTrip(t *testing.T) {
	gid := NewGrantID()
	parsed, err := Parse(gid.String())
	if err != nil {
		t.Fatal(err)
	}
	if parsed.String() != gid.String() {
		t.Fatalf("round trip mismatch: %s != %s", parsed, gid)
	}
}

func TestParseEmpty(t *testing.T) {
	if _, err := Parse(""); err == nil {
		t.Fatal("expected error for empty string")
	}
}

func TestParseWithPrefixMismatch(t *testing.T) {
	pid := NewPolicyID()
	if _, err := ParseRoleID(pid.String()); err == nil {
		t.Fatal("expected prefix mismatch error")
	}
}

func TestNilID(t *testing.T) {
	if !Nil.IsNil() {
		t.Fatal("Nil should report IsNil")
	}
	if Nil.String() != "" {
		t.Fatal("Nil should stringify to empty")
	}
	v, err := Nil.Value()
	if err != nil {
		t.Fatal(err)
	}
	if v != nil {
		t.Fatalf("Nil should store NULL, got %v", v)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	type wrapper struct {
		ID ID `json:"id"`
	}
	w := wrapper{ID: NewPermissionID()}
	data, err := json.Marshal(w)
	if err != nil {
		t.Fatal(err)
	}
	var out wrapper
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatal(err)
	}
	if out.ID.String() != w.ID.String() {
		t.Fatalf("json round trip mismatch: %s != %s", out.ID, w.ID)
	}
}

func TestScan(t *testing.T) {
	aid := NewAssignmentID()

	var scanned ID
	if err := scanned.Scan(aid.String()); err != nil {
		t.Fatal(err)
	}
	if scanned.String() != aid.String() {
		t.Fatalf("scan mismatch: %s != %s", scanned, aid)
	}

	var fromNil ID
	if err := fromNil.Scan(nil); err != nil {
		t.Fatal(err)
	}
	if !fromNil.IsNil() {
		t.Fatal("scanning nil should produce Nil ID")
	}

	var bad ID
	if err := bad.Scan(42); err == nil {
		t.Fatal("expected error scanning int")
	}
}
