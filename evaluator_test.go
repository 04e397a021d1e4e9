package guardian

import (
	"testing"
	"time"

	"github.com/medplane/guardian/policy"
)

func TestParseTimeOfDay(t *testing.T) {
	cases := []struct {
		in      string
		minutes int
		ok      bool
	}{
		{"00:00", 0, true},
		{"06:00", 360, true},
		{"22:00", 1320, true},
		{"23:59", 1439, true},
		{"24:00", 0, false},
		{"12:60", 0, false},
		{"-1:00", 0, false},
		{"noon", 0, false},
		{"", 0, false},
		{"12", 0, false},
	}
	for _, tc := range cases {
		got, ok := parseTimeOfDay(tc.in)
		if ok != tc.ok || got != tc.minutes {
			t.Errorf("parseTimeOfDay(%q) = (%d, %v), want (%d, %v)", tc.in, got, ok, tc.minutes, tc.ok)
		}
	}
}

func TestTemporalSatisfied(t *testing.T) {
	monday := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	at := func(hour, minute int) time.Time {
		return monday.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
	}

	cases := []struct {
		name string
		p    policy.Policy
		now  time.Time
		want bool
	}{
		{"no constraints", policy.Policy{}, at(12, 0), true},
		{"inside daytime window", policy.Policy{TimeOfDayStart: "09:00", TimeOfDayEnd: "17:00"}, at(12, 0), true},
		{"window boundary start", policy.Policy{TimeOfDayStart: "09:00", TimeOfDayEnd: "17:00"}, at(9, 0), true},
		{"window boundary end", policy.Policy{TimeOfDayStart: "09:00", TimeOfDayEnd: "17:00"}, at(17, 0), true},
		{"outside daytime window", policy.Policy{TimeOfDayStart: "09:00", TimeOfDayEnd: "17:00"}, at(18, 0), false},
		{"overnight late evening", policy.Policy{TimeOfDayStart: "22:00", TimeOfDayEnd: "06:00"}, at(23, 30), true},
		{"overnight early morning", policy.Policy{TimeOfDayStart: "22:00", TimeOfDayEnd: "06:00"}, at(2, 0), true},
		{"overnight midday", policy.Policy{TimeOfDayStart: "22:00", TimeOfDayEnd: "06:00"}, at(12, 0), false},
		{"matching weekday", policy.Policy{DaysOfWeek: []time.Weekday{time.Monday}}, at(12, 0), true},
		{"wrong weekday", policy.Policy{DaysOfWeek: []time.Weekday{time.Sunday}}, at(12, 0), false},
		{"weekday and window both required", policy.Policy{DaysOfWeek: []time.Weekday{time.Monday}, TimeOfDayStart: "09:00", TimeOfDayEnd: "17:00"}, at(18, 0), false},
		{"malformed start fails closed", policy.Policy{TimeOfDayStart: "banana", TimeOfDayEnd: "17:00"}, at(12, 0), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := temporalSatisfied(&tc.p, tc.now); got != tc.want {
				t.Fatalf("temporalSatisfied = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestEffectiveWindowSatisfied(t *testing.T) {
	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	cases := []struct {
		name string
		p    policy.Policy
		want bool
	}{
		{"no window", policy.Policy{}, true},
		{"open window", policy.Policy{EffectiveFrom: &past, EffectiveUntil: &future}, true},
		{"not yet effective", policy.Policy{EffectiveFrom: &future}, false},
		{"already lapsed", policy.Policy{EffectiveUntil: &past}, false},
		{"until is exclusive", policy.Policy{EffectiveUntil: &now}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := effectiveWindowSatisfied(&tc.p, now); got != tc.want {
				t.Fatalf("effectiveWindowSatisfied = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestLocationalSatisfied(t *testing.T) {
	cases := []struct {
		name string
		cond map[string]any
		ip   string
		want bool
	}{
		{"no conditions", nil, "10.0.1.5", true},
		{"allowed ip", map[string]any{policy.ConditionAllowedIPs: []string{"10.0.1.5"}}, "10.0.1.5", true},
		{"unlisted ip", map[string]any{policy.ConditionAllowedIPs: []string{"10.0.1.5"}}, "192.168.1.1", false},
		{"empty allow list is no restriction", map[string]any{policy.ConditionAllowedIPs: []string{}}, "192.168.1.1", true},
		{"blocked ip", map[string]any{policy.ConditionBlockedIPs: []string{"10.0.1.6"}}, "10.0.1.6", false},
		{"not blocked", map[string]any{policy.ConditionBlockedIPs: []string{"10.0.1.6"}}, "10.0.1.5", true},
		{"blocked overrides allowed", map[string]any{
			policy.ConditionAllowedIPs: []string{"10.0.1.6"},
			policy.ConditionBlockedIPs: []string{"10.0.1.6"},
		}, "10.0.1.6", false},
		{"decoded json list", map[string]any{policy.ConditionAllowedIPs: []any{"10.0.1.5"}}, "10.0.1.5", true},
		{"single string coerced", map[string]any{policy.ConditionAllowedIPs: "10.0.1.5"}, "10.0.1.5", true},
		{"malformed list fails closed", map[string]any{policy.ConditionAllowedIPs: 42}, "10.0.1.5", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := &policy.Policy{Conditions: tc.cond}
			if got := locationalSatisfied(p, tc.ip); got != tc.want {
				t.Fatalf("locationalSatisfied = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestContextualSatisfied(t *testing.T) {
	cases := []struct {
		name  string
		cond  map[string]any
		attrs map[string]string
		want  bool
	}{
		{"no conditions", nil, nil, true},
		{"exact match", map[string]any{"department": "cardiology"}, map[string]string{"department": "cardiology"}, true},
		{"mismatch", map[string]any{"department": "cardiology"}, map[string]string{"department": "radiology"}, false},
		{"missing attribute", map[string]any{"department": "cardiology"}, nil, false},
		{"non-string condition fails closed", map[string]any{"department": 7}, map[string]string{"department": "7"}, false},
		{"ip keys skipped", map[string]any{policy.ConditionAllowedIPs: []string{"10.0.1.5"}}, nil, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := &policy.Policy{Conditions: tc.cond}
			ec := &EvalContext{Attributes: tc.attrs}
			if got := contextualSatisfied(p, ec); got != tc.want {
				t.Fatalf("contextualSatisfied = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestRiskScoreAttribute(t *testing.T) {
	eng, _ := newTestEngine(t)
	ec := eng.normalizeContext("u1", &EvalContext{RiskScore: 0.7})
	if ec.Attributes["riskScore"] != "0.7" {
		t.Fatalf("expected riskScore attribute, got %v", ec.Attributes)
	}

	// A caller-provided attribute wins over the derived one.
	ec = eng.normalizeContext("u1", &EvalContext{
		RiskScore:  0.7,
		Attributes: map[string]string{"riskScore": "low"},
	})
	if ec.Attributes["riskScore"] != "low" {
		t.Fatalf("expected caller attribute preserved, got %v", ec.Attributes)
	}
}

func TestNormalizeContextDoesNotMutateCaller(t *testing.T) {
	eng, _ := newTestEngine(t)
	orig := &EvalContext{RiskScore: 0.5}
	eng.normalizeContext("u1", orig)
	if orig.UserID != "" || !orig.Now.IsZero() || orig.Attributes != nil {
		t.Fatalf("caller context mutated: %+v", orig)
	}
}
