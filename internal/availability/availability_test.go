package availability

import (
	"testing"
	"time"
)

// 2025-03-03 is a Monday.
func monday(h, m int) time.Time {
	return time.Date(2025, 3, 3, h, m, 0, 0, time.UTC)
}

func TestIsWithin_NilRuleIsAlwaysOpen(t *testing.T) {
	if !IsWithin(nil, monday(3, 0), monday(4, 0), time.UTC) {
		t.Fatalf("expected nil rule to accept any interval")
	}
	if !IsWithin(nil, monday(23, 30), monday(23, 30).Add(2*time.Hour), time.UTC) {
		t.Fatalf("expected nil rule to accept cross-midnight interval")
	}
}

func TestIsWithin_ClosedDay(t *testing.T) {
	rule := Rule{{Dow: 2, Start: "00:00", End: "24:00"}}

	for h := 0; h < 23; h++ {
		if IsWithin(rule, monday(h, 0), monday(h+1, 0), time.UTC) {
			t.Fatalf("expected monday %02d:00 to be rejected by tuesday-only rule", h)
		}
	}
}

func TestIsWithin_WindowContainment(t *testing.T) {
	rule := Rule{{Dow: 1, Start: "09:00", End: "17:00"}}

	if !IsWithin(rule, monday(9, 0), monday(10, 0), time.UTC) {
		t.Fatalf("expected 09:00-10:00 to be accepted")
	}
	if IsWithin(rule, monday(8, 0), monday(9, 30), time.UTC) {
		t.Fatalf("expected 08:00-09:30 to be rejected")
	}
	if !IsWithin(rule, monday(16, 0), monday(17, 0), time.UTC) {
		t.Fatalf("expected interval ending exactly at window end to be accepted")
	}
	if IsWithin(rule, monday(16, 30), monday(17, 15), time.UTC) {
		t.Fatalf("expected interval running past window end to be rejected")
	}
}

func TestIsWithin_SplitShift(t *testing.T) {
	rule := Rule{
		{Dow: 1, Start: "08:00", End: "12:00"},
		{Dow: 1, Start: "14:00", End: "18:00"},
	}

	if !IsWithin(rule, monday(15, 0), monday(16, 0), time.UTC) {
		t.Fatalf("expected afternoon window to accept 15:00-16:00")
	}
	if IsWithin(rule, monday(11, 30), monday(14, 30), time.UTC) {
		t.Fatalf("expected interval spanning the break to be rejected")
	}
}

func TestIsWithin_CrossMidnightRejected(t *testing.T) {
	rule := Rule{{Dow: 1, Start: "00:00", End: "24:00"}}

	if IsWithin(rule, monday(23, 30), monday(23, 30).Add(time.Hour), time.UTC) {
		t.Fatalf("expected interval crossing midnight to be rejected")
	}
	if !IsWithin(rule, monday(23, 0), monday(23, 0).Add(time.Hour), time.UTC) {
		t.Fatalf("expected interval ending at 24:00 to be accepted")
	}

	// 00:10 on Tuesday is not compared as a Monday time of day.
	late := Rule{{Dow: 1, Start: "22:00", End: "23:59"}}
	if IsWithin(late, monday(23, 30), monday(23, 30).Add(40*time.Minute), time.UTC) {
		t.Fatalf("expected end past midnight to be rejected by a late window")
	}
}

func TestIsWithin_UsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*60*60)
	rule := Rule{{Dow: 0, Start: "20:00", End: "23:00"}}

	// Monday 01:00 UTC is Sunday 20:00 at UTC-5.
	if !IsWithin(rule, monday(1, 0), monday(2, 0), loc) {
		t.Fatalf("expected weekday and clock to be taken in the given location")
	}
}

func TestParse_MalformedIsNoRule(t *testing.T) {
	cases := []string{
		`{not json`,
		`{"dow":1}`,
		`[{"dow":9,"start":"09:00","end":"10:00"}]`,
		`[{"dow":1,"start":"9am","end":"10:00"}]`,
		`[{"dow":1,"start":"11:00","end":"10:00"}]`,
		`null`,
		``,
	}

	for _, c := range cases {
		if rule := Parse([]byte(c)); rule != nil {
			t.Fatalf("expected nil rule for %q, got %v", c, rule)
		}
	}
}

func TestParse_Valid(t *testing.T) {
	rule := Parse([]byte(`[{"dow":3,"start":"09:00","end":"17:00"}]`))
	if len(rule) != 1 {
		t.Fatalf("expected 1 window, got %d", len(rule))
	}
	if rule[0].Dow != 3 || rule[0].Start != "09:00" || rule[0].End != "17:00" {
		t.Fatalf("unexpected window: %+v", rule[0])
	}
}

func TestParseClock(t *testing.T) {
	if m, err := ParseClock("09:30"); err != nil || m != 570 {
		t.Fatalf("expected 570, got %d (%v)", m, err)
	}
	if m, err := ParseClock("24:00"); err != nil || m != 1440 {
		t.Fatalf("expected 1440, got %d (%v)", m, err)
	}
	for _, bad := range []string{"24:01", "9:00", "09:60", "ab:cd", ""} {
		if _, err := ParseClock(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}
