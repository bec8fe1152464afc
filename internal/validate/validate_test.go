package validate

import (
	"testing"
	"time"
)

func TestIsMissing(t *testing.T) {
	for _, raw := range []string{"", "NA", "na", "N/A", "ND", ".", "  NA  "} {
		if !IsMissing(raw) {
			t.Errorf("IsMissing(%q) = false, want true", raw)
		}
	}
	for _, raw := range []string{"0", "none", "NAB"} {
		if IsMissing(raw) {
			t.Errorf("IsMissing(%q) = true, want false", raw)
		}
	}
}

func TestOptionalInt(t *testing.T) {
	v, err := OptionalInt(" 42 ", "age")
	if err != nil || v == nil || *v != 42 {
		t.Errorf("OptionalInt(42) = (%v, %v)", v, err)
	}
	v, err = OptionalInt("NA", "age")
	if err != nil || v != nil {
		t.Errorf("OptionalInt(NA) = (%v, %v), want (nil, nil)", v, err)
	}
	if _, err = OptionalInt("4.2", "age"); err == nil {
		t.Error("expected error for a non-integer cell")
	}
}

func TestOptionalBool(t *testing.T) {
	cases := map[string]bool{
		"yes": true, "Y": true, "TRUE": true, "1": true,
		"no": false, "n": false, "False": false, "0": false,
	}
	for raw, want := range cases {
		v, err := OptionalBool(raw, "flag")
		if err != nil || v == nil || *v != want {
			t.Errorf("OptionalBool(%q) = (%v, %v), want %v", raw, v, err, want)
		}
	}
	if _, err := OptionalBool("maybe", "flag"); err == nil {
		t.Error("expected error for an unparseable boolean")
	}
}

func TestOptionalDateLayouts(t *testing.T) {
	for _, raw := range []string{"2024-03-09", "09/03/2024", "2024/03/09", "09-Mar-2024"} {
		v, err := OptionalDate(raw, "d")
		if err != nil || v == nil {
			t.Errorf("OptionalDate(%q) = (%v, %v)", raw, v, err)
			continue
		}
		if v.Year != 2024 || v.Month != time.March || v.Day != 9 {
			t.Errorf("OptionalDate(%q) = %v", raw, v)
		}
	}
	if _, err := OptionalDate("not a date", "d"); err == nil {
		t.Error("expected error for an unparseable date")
	}
}

func TestOptionalDateTimeAcceptsDateOnly(t *testing.T) {
	v, err := OptionalDateTime("2024-03-09", "ts")
	if err != nil || v == nil {
		t.Fatalf("OptionalDateTime(date-only) = (%v, %v)", v, err)
	}
	if v.Hour() != 0 || v.Location() != time.UTC {
		t.Errorf("date-only datetime = %v, want midnight UTC", v)
	}
	v, err = OptionalDateTime("2024-03-09 14:30:00", "ts")
	if err != nil || v == nil || v.Hour() != 14 {
		t.Errorf("OptionalDateTime(full) = (%v, %v)", v, err)
	}
}

func TestTracked(t *testing.T) {
	var tr Tracked
	if tr.Updated("age") {
		t.Error("unset field reports updated")
	}
	tr.Mark("age")
	tr.Mark("sex")
	tr.Mark("age")
	if !tr.Updated("age") || !tr.Updated("sex") {
		t.Error("marked fields must report updated")
	}
	fields := tr.UpdatedFields()
	if len(fields) != 2 || fields[0] != "age" || fields[1] != "sex" {
		t.Errorf("UpdatedFields() = %v, want [age sex]", fields)
	}
}
