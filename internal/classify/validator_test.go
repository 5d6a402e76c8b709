package classify

import "testing"

const unknown = "Other/Unknown"

func TestValidator_ExactMatch(t *testing.T) {
	v := NewValidator([]string{"Engineer", unknown}, unknown, false)

	if got := v.Validate("Engineer"); got != "Engineer" {
		t.Errorf("got %q, want Engineer", got)
	}
	if got := v.Validate("  engineer  "); got != "Engineer" {
		t.Errorf("case-insensitive exact match failed: got %q", got)
	}
}

func TestValidator_Containment(t *testing.T) {
	v := NewValidator([]string{"Engineer", unknown}, unknown, false)

	if got := v.Validate("senior engineer role"); got != "Engineer" {
		t.Errorf("containment match failed: got %q", got)
	}
	// Category contained in response and vice versa.
	v2 := NewValidator([]string{"Senior Software Engineer", unknown}, unknown, false)
	if got := v2.Validate("software"); got != "Senior Software Engineer" {
		t.Errorf("reverse containment failed: got %q", got)
	}
}

func TestValidator_ShortStringGuard(t *testing.T) {
	v := NewValidator([]string{"HR", unknown}, unknown, false)

	// "HR" is too short for the containment tier; "hrx" shares no whole word.
	if got := v.Validate("hrx"); got != unknown {
		t.Errorf("short-string guard failed: got %q", got)
	}
	// Exact tier still matches short categories.
	if got := v.Validate("hr"); got != "HR" {
		t.Errorf("exact match on short category failed: got %q", got)
	}
}

func TestValidator_WordOverlap(t *testing.T) {
	v := NewValidator([]string{"Data Analyst", unknown}, unknown, false)

	if got := v.Validate("analyst data entry"); got != "Data Analyst" {
		t.Errorf("word-overlap match failed: got %q", got)
	}
	// One of two words meets the half-count threshold.
	if got := v.Validate("data processing"); got != "Data Analyst" {
		t.Errorf("half-overlap match failed: got %q", got)
	}
}

func TestValidator_NoMatch(t *testing.T) {
	v := NewValidator([]string{"Engineer", "Data Analyst", unknown}, unknown, false)

	if got := v.Validate("xyz123"); got != unknown {
		t.Errorf("expected unknown for unmatched response, got %q", got)
	}
	if got := v.Validate(""); got != unknown {
		t.Errorf("expected unknown for empty response, got %q", got)
	}
}

func TestValidator_Strict(t *testing.T) {
	v := NewValidator([]string{"Engineer", unknown}, unknown, true)

	if got := v.Validate("Engineer"); got != "Engineer" {
		t.Errorf("strict exact match failed: got %q", got)
	}
	if got := v.Validate("senior engineer role"); got != unknown {
		t.Errorf("strict mode should skip containment tier, got %q", got)
	}
}

func TestValidator_TierOrder(t *testing.T) {
	// Exact equality wins over containment even when another category would
	// contain the response.
	v := NewValidator([]string{"Data Entry Engineer", "Data Engineer", unknown}, unknown, false)

	if got := v.Validate("data engineer"); got != "Data Engineer" {
		t.Errorf("exact tier should win: got %q", got)
	}
}
