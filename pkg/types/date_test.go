package types

import (
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-03-09")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Year != 2024 || d.Month != time.March || d.Day != 9 {
		t.Errorf("ParseDate = %+v", d)
	}
	if d.String() != "2024-03-09" {
		t.Errorf("String() = %s, want 2024-03-09", d.String())
	}
	if _, err := ParseDate("09/03/2024"); err == nil {
		t.Error("expected error for non-ISO date")
	}
}

func TestDateBefore(t *testing.T) {
	a := Date{Year: 2023, Month: time.December, Day: 31}
	b := Date{Year: 2024, Month: time.January, Day: 1}
	if !a.Before(b) || b.Before(a) {
		t.Error("ordering across year boundary is wrong")
	}
	if a.Before(a) {
		t.Error("a date must not be before itself")
	}
}

func TestDateTimeRoundTrip(t *testing.T) {
	d := Date{Year: 2024, Month: time.June, Day: 15}
	if got := DateOf(d.Time()); got != d {
		t.Errorf("DateOf(Time()) = %+v, want %+v", got, d)
	}
	if !(Date{}).IsZero() {
		t.Error("zero date must report IsZero")
	}
}
