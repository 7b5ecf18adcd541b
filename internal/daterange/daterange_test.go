package daterange

import "testing"

func TestExpandAllDays(t *testing.T) {
	out := ExpandAll("/archive/{20240101..20240105}/data.zip")
	want := []string{
		"/archive/20240101/data.zip",
		"/archive/20240102/data.zip",
		"/archive/20240103/data.zip",
		"/archive/20240104/data.zip",
		"/archive/20240105/data.zip",
	}
	if len(out) != len(want) {
		t.Fatalf("got %d entries, want %d: %v", len(out), len(want), out)
	}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("entry %d = %q, want %q", i, out[i], want[i])
		}
	}
}

func TestExpandAllMonths(t *testing.T) {
	out := ExpandAll("/archive/{202401..202403}/data.zip")
	want := []string{"/archive/202401/data.zip", "/archive/202402/data.zip", "/archive/202403/data.zip"}
	if len(out) != len(want) {
		t.Fatalf("got %v", out)
	}
}

func TestExpandInvalidRangeReturnsUnchanged(t *testing.T) {
	out := ExpandAll("/archive/{20240105..20240101}/data.zip")
	if len(out) != 1 || out[0] != "/archive/{20240105..20240101}/data.zip" {
		t.Fatalf("expected unchanged input for start > end, got %v", out)
	}

	out = ExpandAll("/archive/{20240101..202402}/data.zip")
	if len(out) != 1 {
		t.Fatalf("expected unchanged input for mismatched endpoint lengths, got %v", out)
	}
}

func TestExpandAllCapsAt365Days(t *testing.T) {
	out := ExpandAll("{20200101..20211231}") // far more than 365 days
	if len(out) != maxDays {
		t.Fatalf("got %d entries, want capped at %d", len(out), maxDays)
	}
}

func TestExpandNoToken(t *testing.T) {
	out := ExpandAll("/static/path")
	if len(out) != 1 || out[0] != "/static/path" {
		t.Fatalf("got %v", out)
	}
}

func TestSafeExpandAllTruncates(t *testing.T) {
	result, truncated := SafeExpandAll([]string{"{20200101..20211231}"}, 10)
	if !truncated {
		t.Fatalf("expected truncated=true")
	}
	if len(result) != 10 {
		t.Fatalf("got %d results, want 10", len(result))
	}
}

func TestSafeExpandAllDefaultCap(t *testing.T) {
	result, truncated := SafeExpandAll([]string{"/static"}, 0)
	if truncated || len(result) != 1 {
		t.Fatalf("got %v truncated=%v", result, truncated)
	}
}
