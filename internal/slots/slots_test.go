package slots

import (
	"errors"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		raw     string
		want    TimeSlot
		wantErr bool
	}{
		{"09:00", "09:00", false},
		{"14:00:00", "14:00", false},
		{" 16:00 ", "16:00", false},
		{"10:00-03:00", "10:00", false},
		{"9:00", "", true},
		{"25:00", "", true},
		{"manhã", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := Normalize(tt.raw)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidSlot) {
				t.Errorf("Normalize(%q) error = %v, want ErrInvalidSlot", tt.raw, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("Normalize(%q) = %q, %v; want %q", tt.raw, got, err, tt.want)
		}
	}
}

func TestMinuteOfDay(t *testing.T) {
	if got := TimeSlot("10:30").MinuteOfDay(); got != 630 {
		t.Fatalf("expected 630, got %d", got)
	}
	if got := TimeSlot("00:00").MinuteOfDay(); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
	if got := TimeSlot("bogus").MinuteOfDay(); got != -1 {
		t.Fatalf("expected -1 for invalid slot, got %d", got)
	}
}

func TestNewCatalog(t *testing.T) {
	c, err := NewCatalog(DefaultCatalog)
	if err != nil {
		t.Fatalf("default catalog rejected: %v", err)
	}
	if c.Len() != 8 {
		t.Fatalf("expected 8 slots, got %d", c.Len())
	}
	if !c.Contains("14:00") || c.Contains("12:00") {
		t.Fatalf("unexpected membership results")
	}
	if got := c.Strings(); got[0] != "08:00" || got[7] != "17:00" {
		t.Fatalf("unexpected order: %v", got)
	}

	bad := [][]string{
		nil,
		{"09:00", "08:00"},
		{"08:00", "08:00"},
		{"08:00", "8:30"},
	}
	for _, raw := range bad {
		if _, err := NewCatalog(raw); !errors.Is(err, ErrInvalidCatalog) {
			t.Errorf("NewCatalog(%v) error = %v, want ErrInvalidCatalog", raw, err)
		}
	}
}

func TestCatalogSlotsIsACopy(t *testing.T) {
	c := MustCatalog(DefaultCatalog)
	s := c.Slots()
	s[0] = "23:00"
	if c.Slots()[0] != "08:00" {
		t.Fatalf("catalog mutated through Slots()")
	}
}

func TestAllInUsesContainmentNotLength(t *testing.T) {
	c := MustCatalog([]string{"08:00", "09:00", "10:00"})

	// Same size as the catalog but with an off-catalog value.
	if c.AllIn(NewSet("08:00", "09:00", "12:00")) {
		t.Fatal("off-catalog slot must not complete the set")
	}
	// Duplicates collapse and do not fill the gap.
	if c.AllIn(NewSet("08:00", "08:00", "09:00")) {
		t.Fatal("duplicates must not complete the set")
	}
	if !c.AllIn(NewSet("10:00", "08:00", "09:00", "15:00")) {
		t.Fatal("superset should contain every catalog slot")
	}
}
