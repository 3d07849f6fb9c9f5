package usecases_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/samirrijal/criticaltracks/internal/core/domain"
	"github.com/samirrijal/criticaltracks/internal/core/usecases"
)

func TestDecodeLocations_KeepsBlobOrder(t *testing.T) {
	data := `{"locations":{
		"z":{"longitude":13413000,"latitude":52521900},
		"a":{"longitude":13413050,"latitude":52521920},
		"m":{"longitude":2350000,"latitude":48860000}
	}}`

	got, err := usecases.DecodeLocations(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []domain.IdentifiedLocation{
		{ID: "z", Location: domain.RawLocation{Longitude: 13413000, Latitude: 52521900}},
		{ID: "a", Location: domain.RawLocation{Longitude: 13413050, Latitude: 52521920}},
		{ID: "m", Location: domain.RawLocation{Longitude: 2350000, Latitude: 48860000}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("locations mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeLocations_EmptyMapping(t *testing.T) {
	got, err := usecases.DecodeLocations(`{"locations":{}}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", got)
	}
}

func TestDecodeLocations_IgnoresUnknownFields(t *testing.T) {
	data := `{"version":2,"meta":{"source":"gps"},"locations":{"x":{"longitude":1,"latitude":2,"speed":4}}}`
	got, err := usecases.DecodeLocations(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].ID != "x" {
		t.Fatalf("unexpected locations: %+v", got)
	}
}

func TestDecodeLocations_DuplicateIdentifier(t *testing.T) {
	data := `{"locations":{"a":{"longitude":1,"latitude":1},"b":{"longitude":2,"latitude":2},"a":{"longitude":3,"latitude":3}}}`
	got, err := usecases.DecodeLocations(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []domain.IdentifiedLocation{
		{ID: "a", Location: domain.RawLocation{Longitude: 3, Latitude: 3}},
		{ID: "b", Location: domain.RawLocation{Longitude: 2, Latitude: 2}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("locations mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeLocations_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty", ``},
		{"not json", `hello`},
		{"array", `[]`},
		{"missing locations", `{"positions":{}}`},
		{"locations not object", `{"locations":[1,2]}`},
		{"missing latitude", `{"locations":{"a":{"longitude":1}}}`},
		{"missing longitude", `{"locations":{"a":{"latitude":1}}}`},
		{"string coordinate", `{"locations":{"a":{"longitude":"1","latitude":1}}}`},
		{"truncated", `{"locations":{"a":{"longitude":1,"latitude":1}`},
		{"trailing data", `{"locations":{}} {}`},
		{"duplicate locations", `{"locations":{},"locations":{}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := usecases.DecodeLocations(tt.data); err == nil {
				t.Errorf("expected error for %q", tt.data)
			}
		})
	}
}

func TestDecodeSnapshot_WrapsDecodeError(t *testing.T) {
	_, err := usecases.DecodeSnapshot(domain.SnapshotRecord{Timestamp: "2024-01-01T00:00:00", Data: `{}`})
	var decErr *usecases.DecodeError
	if !errors.As(err, &decErr) {
		t.Fatalf("expected *DecodeError, got %T: %v", err, err)
	}
	if decErr.Timestamp != "2024-01-01T00:00:00" {
		t.Errorf("unexpected timestamp %q", decErr.Timestamp)
	}
}

func TestCoordinates_ScalesMicrodegrees(t *testing.T) {
	snap := domain.Snapshot{Locations: []domain.IdentifiedLocation{
		{ID: "a", Location: domain.RawLocation{Longitude: 13400000, Latitude: 52500000}},
		{ID: "b", Location: domain.RawLocation{Longitude: -2935000, Latitude: 43263000}},
	}}
	got := usecases.Coordinates(snap)
	want := []domain.Coordinate{
		{Lon: float32(13400000) / 1e6, Lat: float32(52500000) / 1e6},
		{Lon: float32(-2935000) / 1e6, Lat: float32(43263000) / 1e6},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("coordinates mismatch (-want +got):\n%s", diff)
	}
}

func TestProcessSnapshot(t *testing.T) {
	rec := domain.SnapshotRecord{
		Timestamp: "2024-05-01T12:00:00",
		Data: `{"locations":{
			"lonely":{"longitude":13500000,"latitude":52600000},
			"a":{"longitude":13413000,"latitude":52521900},
			"b":{"longitude":13413050,"latitude":52521920},
			"c":{"longitude":13413020,"latitude":52521860}
		}}`,
	}

	got, err := usecases.ProcessSnapshot(rec, usecases.DefaultDensityFilter())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []domain.Feature{
		domain.NewPointFeature(domain.Coordinate{Lon: float32(13413000) / 1e6, Lat: float32(52521900) / 1e6}),
		domain.NewPointFeature(domain.Coordinate{Lon: float32(13413050) / 1e6, Lat: float32(52521920) / 1e6}),
		domain.NewPointFeature(domain.Coordinate{Lon: float32(13413020) / 1e6, Lat: float32(52521860) / 1e6}),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("features mismatch (-want +got):\n%s", diff)
	}
}

func TestProcessSnapshot_Undecodable(t *testing.T) {
	_, err := usecases.ProcessSnapshot(domain.SnapshotRecord{Timestamp: "t", Data: "{"}, usecases.DefaultDensityFilter())
	var decErr *usecases.DecodeError
	if !errors.As(err, &decErr) {
		t.Fatalf("expected *DecodeError, got %v", err)
	}
}

func TestFilterPoints_NeverNil(t *testing.T) {
	got := usecases.FilterPoints(nil, usecases.DefaultDensityFilter())
	if got == nil {
		t.Error("expected empty non-nil slice")
	}
}
