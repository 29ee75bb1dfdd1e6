package portfolio

import (
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-03-31")
	if err != nil {
		t.Fatalf("ParseDate() error = %v", err)
	}
	if got, want := d, NewDate(2025, time.March, 31); got != want {
		t.Errorf("ParseDate() = %v, want %v", got, want)
	}
	if _, err := ParseDate("31/03/2025"); err == nil {
		t.Error("ParseDate() accepted a non ISO date")
	}
}

func TestDate_Add_NormalizesAcrossMonths(t *testing.T) {
	d := NewDate(2025, time.January, 31).Add(1)
	if got, want := d, NewDate(2025, time.February, 1); got != want {
		t.Errorf("Add(1) = %v, want %v", got, want)
	}
	if got, want := NewDate(2025, time.March, 1).Add(-1), NewDate(2025, time.February, 28); got != want {
		t.Errorf("Add(-1) = %v, want %v", got, want)
	}
}

func TestRange_Contains(t *testing.T) {
	r := NewRange(NewDate(2025, 1, 10), NewDate(2025, 1, 20))
	tests := []struct {
		day  Date
		want bool
	}{
		{NewDate(2025, 1, 9), false},
		{NewDate(2025, 1, 10), true},
		{NewDate(2025, 1, 15), true},
		{NewDate(2025, 1, 20), true},
		{NewDate(2025, 1, 21), false},
	}
	for _, tt := range tests {
		if got := r.Contains(tt.day); got != tt.want {
			t.Errorf("Contains(%v) = %v, want %v", tt.day, got, tt.want)
		}
	}
}

func TestHistory_AppendKeepsOrder(t *testing.T) {
	h := &History[float64]{}
	h.Append(NewDate(2025, 1, 3), 3)
	h.Append(NewDate(2025, 1, 1), 1)
	h.Append(NewDate(2025, 1, 2), 2)

	var days []Date
	for day := range h.Values() {
		days = append(days, day)
	}
	for i := 1; i < len(days); i++ {
		if !days[i-1].Before(days[i]) {
			t.Fatalf("history out of order: %v", days)
		}
	}
}

func TestHistory_ValueAsOf(t *testing.T) {
	h := &History[float64]{}
	h.Append(NewDate(2025, 1, 2), 100)
	h.Append(NewDate(2025, 1, 6), 110)

	tests := []struct {
		name string
		day  Date
		want float64
		ok   bool
	}{
		{"exact day", NewDate(2025, 1, 2), 100, true},
		{"gap carries forward", NewDate(2025, 1, 4), 100, true},
		{"after last", NewDate(2025, 2, 1), 110, true},
		{"before first", NewDate(2025, 1, 1), 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := h.ValueAsOf(tt.day)
			if ok != tt.ok || got != tt.want {
				t.Errorf("ValueAsOf(%v) = %v, %v, want %v, %v", tt.day, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestPeriod_Parse(t *testing.T) {
	p, err := ParsePeriod("monthly")
	if err != nil {
		t.Fatalf("ParsePeriod() error = %v", err)
	}
	if p != Monthly {
		t.Errorf("ParsePeriod(monthly) = %v", p)
	}
	if _, err := ParsePeriod("fortnight"); err == nil {
		t.Error("ParsePeriod() accepted an unknown period")
	}
}
