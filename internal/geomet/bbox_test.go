package geomet

import "testing"

func TestBBoxString(t *testing.T) {
	got, err := BBoxString([]LonLat{
		{Lon: -110.0, Lat: 49.0},
		{Lon: -114.1, Lat: 53.6},
	})
	if err != nil {
		t.Fatalf("bbox: %v", err)
	}
	if got != "-114.1,49,-110,53.6" {
		t.Fatalf("bbox = %q", got)
	}
}

func TestBBoxStringNeedsTwoPoints(t *testing.T) {
	if _, err := BBoxString([]LonLat{{Lon: -110, Lat: 49}}); err == nil {
		t.Fatal("expected an error for a single point")
	}
}

func TestNormalizeBBox(t *testing.T) {
	// Maxima first come back reordered, keeping each value's exact text.
	got, err := NormalizeBBox("-110.0,53.60,-114.1,49.0")
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if got != "-114.1,49.0,-110.0,53.60" {
		t.Fatalf("normalized = %q", got)
	}
}

func TestNormalizeBBoxRejectsBadInput(t *testing.T) {
	if _, err := NormalizeBBox("-110.0,53.6"); err == nil {
		t.Fatal("expected an error for fewer than 4 values")
	}
	if _, err := NormalizeBBox("a,b,c,d"); err == nil {
		t.Fatal("expected an error for non-numeric values")
	}
}

func TestProvinceCodeValid(t *testing.T) {
	if !Alberta.Valid() {
		t.Fatal("AB should be valid")
	}
	if ProvinceCode("XX").Valid() {
		t.Fatal("XX should not be valid")
	}
	if len(Provinces()) != 13 {
		t.Fatalf("provinces = %d, want 13", len(Provinces()))
	}
}
