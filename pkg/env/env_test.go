package env

import "testing"

func TestGetTrimsAndFallsBack(t *testing.T) {
	t.Setenv("BOARDPRO_TEST_VALUE", "  console ")
	if got := Get("BOARDPRO_TEST_VALUE", "json"); got != "console" {
		t.Fatalf("expected console, got %q", got)
	}
	t.Setenv("BOARDPRO_TEST_VALUE", "   ")
	if got := Get("BOARDPRO_TEST_VALUE", "json"); got != "json" {
		t.Fatalf("expected fallback, got %q", got)
	}
}

func TestFirst(t *testing.T) {
	t.Setenv("BOARDPRO_TEST_A", "")
	t.Setenv("BOARDPRO_TEST_B", "b")
	if got := First("BOARDPRO_TEST_A", "BOARDPRO_TEST_B"); got != "b" {
		t.Fatalf("expected b, got %q", got)
	}
	if got := First(); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
}
