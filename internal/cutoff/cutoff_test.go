package cutoff

import "testing"

func TestReached(t *testing.T) {
	tests := []struct {
		name     string
		oldestDT string
		cutoff   string
		want     bool
	}{
		{"no cutoff configured", "2024-01-01 00:00:00", "", false},
		{"no timestamp to compare", "", "2024-01-01", false},
		{"both empty", "", "", false},
		{"at midnight of cutoff", "2024-01-01 00:00:00", "2024-01-01", true},
		{"before cutoff", "2023-12-31 23:59:59", "2024-01-01", true},
		{"just after midnight of cutoff", "2024-01-01 00:00:01", "2024-01-01", false},
		{"day after cutoff", "2024-01-02 00:00:00", "2024-01-01", false},
		{"well before cutoff", "2022-06-15 12:00:00", "2024-01-01", true},
		{"unparsable timestamp", "yesterday", "2024-01-01", false},
		{"unparsable cutoff", "2024-01-01 00:00:00", "new year", false},
		{"timestamp without time part", "2024-01-01", "2024-01-01", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Reached(tt.oldestDT, tt.cutoff); got != tt.want {
				t.Errorf("Reached(%q, %q) = %v, want %v", tt.oldestDT, tt.cutoff, got, tt.want)
			}
		})
	}
}

func TestReached_LenientCutoffFormat(t *testing.T) {
	// Single-digit month/day must behave identically to the padded form.
	cases := [][2]string{
		{"2024-1-1", "2024-01-01"},
		{"2024-1-15", "2024-01-15"},
		{"2024-10-1", "2024-10-01"},
	}

	for _, c := range cases {
		lenient, padded := c[0], c[1]
		for _, oldest := range []string{
			"2023-12-31 23:59:59",
			"2024-01-01 00:00:00",
			"2024-12-31 00:00:00",
		} {
			if got, want := Reached(oldest, lenient), Reached(oldest, padded); got != want {
				t.Errorf("Reached(%q, %q) = %v, but Reached(%q, %q) = %v", oldest, lenient, got, oldest, padded, want)
			}
		}
	}

	if !Reached("2024-01-01 00:00:00", "2024-1-1") {
		t.Error("expected lenient cutoff 2024-1-1 to match midnight 2024-01-01")
	}
}
