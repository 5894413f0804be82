package domain

import (
	"errors"
	"testing"
	"time"
)

func TestParseWeekday(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Weekday
		wantErr bool
	}{
		{"monday", time.Monday, false},
		{"Monday", time.Monday, false},
		{" SUNDAY ", time.Sunday, false},
		{"sat", time.Saturday, false},
		{"thu", time.Thursday, false},
		{"funday", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseWeekday(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrValidation) {
				t.Errorf("ParseWeekday(%q) error = %v, want ErrValidation", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseWeekday(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
		}
	}
}

func TestParseWeekdayList(t *testing.T) {
	got, err := ParseWeekdayList("friday, saturday,")
	if err != nil {
		t.Fatalf("ParseWeekdayList: %v", err)
	}
	if len(got) != 2 || got[0] != time.Friday || got[1] != time.Saturday {
		t.Errorf("got %v", got)
	}

	if got, err := ParseWeekdayList(""); err != nil || len(got) != 0 {
		t.Errorf("empty list = %v, %v", got, err)
	}

	if _, err := ParseWeekdayList("friday,someday"); err == nil {
		t.Error("expected error for unknown day")
	}
}

func TestDaysUntil(t *testing.T) {
	tests := []struct {
		from, to time.Weekday
		want     int
	}{
		{time.Monday, time.Monday, 0},
		{time.Monday, time.Friday, 4},
		{time.Friday, time.Monday, 3},
		{time.Sunday, time.Saturday, 6},
		{time.Saturday, time.Sunday, 1},
	}
	for _, tt := range tests {
		if got := DaysUntil(tt.from, tt.to); got != tt.want {
			t.Errorf("DaysUntil(%v, %v) = %d, want %d", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestSameDate(t *testing.T) {
	loc := time.FixedZone("EDT", -4*3600)
	a := time.Date(2024, 6, 10, 23, 30, 0, 0, loc)
	b := time.Date(2024, 6, 10, 14, 0, 0, 0, time.UTC) // 10:00 on the 10th in loc

	if !SameDate(a, b, loc) {
		t.Error("expected same local date")
	}
	if SameDate(a, b, time.UTC) {
		t.Error("expected different UTC dates")
	}
}
