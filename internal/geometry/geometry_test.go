package geometry_test

import (
	"errors"
	"testing"

	"stereocap/internal/geometry"
)

func TestLookupKnownLabels(t *testing.T) {
	cases := []struct {
		label string
		want  geometry.Entry
	}{
		{"LOW", geometry.Entry{FileWidth: 1344, FileHeight: 990, ImageWidth: 1328, ImageHeight: 990}},
		{"MEDIUM", geometry.Entry{FileWidth: 2032, FileHeight: 1080, ImageWidth: 2024, ImageHeight: 1080}},
		{"medium", geometry.Entry{FileWidth: 2032, FileHeight: 1080, ImageWidth: 2024, ImageHeight: 1080}},
		{" low ", geometry.Entry{FileWidth: 1344, FileHeight: 990, ImageWidth: 1328, ImageHeight: 990}},
	}
	for _, tc := range cases {
		entry, err := geometry.Lookup(tc.label)
		if err != nil {
			t.Fatalf("Lookup(%q) failed: %v", tc.label, err)
		}
		if entry != tc.want {
			t.Fatalf("Lookup(%q) = %+v, want %+v", tc.label, entry, tc.want)
		}
	}
}

func TestLookupUnknownLabel(t *testing.T) {
	_, err := geometry.Lookup("ULTRA")
	if err == nil {
		t.Fatal("expected error for unknown label")
	}
	if !errors.Is(err, geometry.ErrUnknownResolution) {
		t.Fatalf("expected ErrUnknownResolution, got %v", err)
	}
}

func TestEntryDerivedDimensions(t *testing.T) {
	entry, err := geometry.Lookup("MEDIUM")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if got := entry.BandWidth(); got != 1012 {
		t.Fatalf("BandWidth = %d, want 1012", got)
	}
	if got := entry.BandHeight(); got != 540 {
		t.Fatalf("BandHeight = %d, want 540", got)
	}
	if got := entry.ImageBytes(); got != 2024*1080*2 {
		t.Fatalf("ImageBytes = %d, want %d", got, 2024*1080*2)
	}
	if got := entry.RawSamples(); got != 2032*1080 {
		t.Fatalf("RawSamples = %d, want %d", got, 2032*1080)
	}
}
