package usecases

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/samirrijal/criticaltracks/internal/core/domain"
)

// locationsKey is the top-level blob field holding the identifier mapping.
const locationsKey = "locations"

type rawLocationJSON struct {
	Longitude *float32 `json:"longitude"`
	Latitude  *float32 `json:"latitude"`
}

// DecodeSnapshot decodes a stored record into a Snapshot.
func DecodeSnapshot(rec domain.SnapshotRecord) (domain.Snapshot, error) {
	locs, err := DecodeLocations(rec.Data)
	if err != nil {
		return domain.Snapshot{}, &DecodeError{Timestamp: rec.Timestamp, Err: err}
	}
	return domain.Snapshot{Timestamp: rec.Timestamp, Locations: locs}, nil
}

// DecodeLocations parses {"locations": {"<id>": {"longitude": n, "latitude": n}}}.
//
// The result follows the key order of the blob. Other top-level keys are
// ignored. A repeated identifier keeps its first position and its last value.
func DecodeLocations(data string) ([]domain.IdentifiedLocation, error) {
	dec := json.NewDecoder(strings.NewReader(data))

	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}

	var (
		locs  []domain.IdentifiedLocation
		found bool
	)
	for dec.More() {
		key, err := readKey(dec)
		if err != nil {
			return nil, err
		}
		if key != locationsKey {
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return nil, fmt.Errorf("field %q: %w", key, err)
			}
			continue
		}
		if found {
			return nil, fmt.Errorf("duplicate field %q", locationsKey)
		}
		found = true
		if locs, err = decodeLocationMap(dec); err != nil {
			return nil, err
		}
	}
	if err := expectDelim(dec, '}'); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("trailing data after snapshot object")
	}
	if !found {
		return nil, fmt.Errorf("missing field %q", locationsKey)
	}
	if locs == nil {
		locs = []domain.IdentifiedLocation{}
	}
	return locs, nil
}

func decodeLocationMap(dec *json.Decoder) ([]domain.IdentifiedLocation, error) {
	if err := expectDelim(dec, '{'); err != nil {
		return nil, fmt.Errorf("field %q: %w", locationsKey, err)
	}

	var locs []domain.IdentifiedLocation
	index := make(map[string]int)
	for dec.More() {
		id, err := readKey(dec)
		if err != nil {
			return nil, err
		}

		var raw rawLocationJSON
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("location %q: %w", id, err)
		}
		if raw.Longitude == nil {
			return nil, fmt.Errorf("location %q: missing field \"longitude\"", id)
		}
		if raw.Latitude == nil {
			return nil, fmt.Errorf("location %q: missing field \"latitude\"", id)
		}

		loc := domain.RawLocation{Longitude: *raw.Longitude, Latitude: *raw.Latitude}
		if i, ok := index[id]; ok {
			locs[i].Location = loc
			continue
		}
		index[id] = len(locs)
		locs = append(locs, domain.IdentifiedLocation{ID: id, Location: loc})
	}
	if err := expectDelim(dec, '}'); err != nil {
		return nil, err
	}
	return locs, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("expected %q: %w", want, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}

func readKey(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", err
	}
	key, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("expected object key, got %v", tok)
	}
	return key, nil
}

// Coordinates scales a snapshot's locations to decimal degrees, identifiers dropped.
func Coordinates(s domain.Snapshot) []domain.Coordinate {
	coords := make([]domain.Coordinate, len(s.Locations))
	for i, l := range s.Locations {
		coords[i] = l.Location.Coordinate()
	}
	return coords
}

// FilterPoints returns a feature for every coordinate the filter keeps,
// in input order. The result is never nil.
func FilterPoints(points []domain.Coordinate, filter DensityFilter) []domain.Feature {
	features := make([]domain.Feature, 0)
	for _, p := range points {
		if filter.Keep(p, points) {
			features = append(features, domain.NewPointFeature(p))
		}
	}
	return features
}

// ProcessSnapshot decodes one record and returns its surviving points.
// Decode failures are returned as *DecodeError.
func ProcessSnapshot(rec domain.SnapshotRecord, filter DensityFilter) ([]domain.Feature, error) {
	features, _, err := processRecord(rec, filter)
	return features, err
}

func processRecord(rec domain.SnapshotRecord, filter DensityFilter) ([]domain.Feature, int, error) {
	snap, err := DecodeSnapshot(rec)
	if err != nil {
		return nil, 0, err
	}
	points := Coordinates(snap)
	return FilterPoints(points, filter), len(points), nil
}
