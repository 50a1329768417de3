package org

import (
	"testing"
	"time"
)

func TestServing(t *testing.T) {
	cases := map[Status]bool{
		StatusActive:     true,
		StatusOnboarding: true,
		StatusSuspended:  false,
		StatusChurned:    false,
	}
	for status, want := range cases {
		o := &Organization{Status: status}
		if got := o.Serving(); got != want {
			t.Errorf("%s.Serving() = %v, want %v", status, got, want)
		}
	}
}

func TestLocation(t *testing.T) {
	o := &Organization{Timezone: "Europe/Madrid"}
	if loc := o.Location(); loc.String() != "Europe/Madrid" {
		t.Errorf("location = %v", loc)
	}

	for _, o := range []*Organization{nil, {}, {Timezone: "Atlantis/Nowhere"}} {
		if loc := o.Location(); loc != time.UTC {
			t.Errorf("location fallback = %v, want UTC", loc)
		}
	}
}

func TestParseStatus(t *testing.T) {
	if s, err := ParseStatus("active"); err != nil || s != StatusActive {
		t.Fatalf("ParseStatus(active) = %v, %v", s, err)
	}
	if _, err := ParseStatus("dormant"); err == nil {
		t.Fatal("expected error for unknown status")
	}
}
