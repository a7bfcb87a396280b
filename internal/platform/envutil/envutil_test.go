package envutil

import "testing"

func TestInt(t *testing.T) {
	t.Setenv("DEGREEPLAN_TEST_INT", "42")
	if got := Int("DEGREEPLAN_TEST_INT", 7, nil); got != 42 {
		t.Fatalf("Int: got %d want 42", got)
	}
	t.Setenv("DEGREEPLAN_TEST_INT", "forty-two")
	if got := Int("DEGREEPLAN_TEST_INT", 7, nil); got != 7 {
		t.Fatalf("Int fallback: got %d want 7", got)
	}
	if got := Int("DEGREEPLAN_TEST_INT_UNSET", 9, nil); got != 9 {
		t.Fatalf("Int unset: got %d want 9", got)
	}
}

func TestGetAndBool(t *testing.T) {
	t.Setenv("DEGREEPLAN_TEST_STR", "  value ")
	if got := Get("DEGREEPLAN_TEST_STR", "def", nil); got != "value" {
		t.Fatalf("Get: got %q", got)
	}
	if got := Get("DEGREEPLAN_TEST_STR_UNSET", "def", nil); got != "def" {
		t.Fatalf("Get default: got %q", got)
	}
	t.Setenv("DEGREEPLAN_TEST_BOOL", "on")
	if !Bool("DEGREEPLAN_TEST_BOOL", false, nil) {
		t.Fatalf("Bool: expected true")
	}
	t.Setenv("DEGREEPLAN_TEST_BOOL", "maybe")
	if Bool("DEGREEPLAN_TEST_BOOL", false, nil) {
		t.Fatalf("Bool: expected default false")
	}
}
