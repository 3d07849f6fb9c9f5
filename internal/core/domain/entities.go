package domain

// SnapshotRecord is a stored row: a timestamp and its serialized location blob.
type SnapshotRecord struct {
	Timestamp string `json:"timestamp"`
	Data      string `json:"data"`
}

// Snapshot is a decoded record. Locations keep the blob's key order.
type Snapshot struct {
	Timestamp string               `json:"timestamp"`
	Locations []IdentifiedLocation `json:"locations"`
}

// PointGeometry is a GeoJSON point; Coordinates are [lon, lat].
type PointGeometry struct {
	Type        string     `json:"type"`
	Coordinates [2]float32 `json:"coordinates"`
}

// Feature is a single output point in GeoJSON feature form.
type Feature struct {
	Type     string        `json:"type"`
	Geometry PointGeometry `json:"geometry"`
}

// NewPointFeature wraps a coordinate as a point feature.
func NewPointFeature(c Coordinate) Feature {
	return Feature{
		Type: "Feature",
		Geometry: PointGeometry{
			Type:        "Point",
			Coordinates: [2]float32{c.Lon, c.Lat},
		},
	}
}

// FilteredSnapshot holds the surviving points of one snapshot.
// It only appears in output when Data is non-empty.
type FilteredSnapshot struct {
	Timestamp string    `json:"timestamp"`
	Data      []Feature `json:"data"`
}

// RecordFailure describes a snapshot that could not be decoded.
type RecordFailure struct {
	Timestamp string `json:"timestamp"`
	Error     string `json:"error"`
}

// RunReport is the result of one batch run over a time range.
type RunReport struct {
	RunID     string             `json:"run_id"`
	// RequestID is the RunRequest.ID of an asynchronous run, empty otherwise.
	RequestID string             `json:"request_id,omitempty"`
	Start     string             `json:"start"`
	End       string             `json:"end"`
	Snapshots []FilteredSnapshot `json:"snapshots"`
	Failures  []RecordFailure    `json:"failures,omitempty"`
	Processed int                `json:"processed"`
	Empty     int                `json:"empty"`
}

// RunRequest asks a worker to analyze a time range asynchronously.
type RunRequest struct {
	ID        string `json:"id"`
	Start     string `json:"start"`
	End       string `json:"end"`
	Requested string `json:"requested_at"`
}

// RunSummary is the broker payload announcing a finished run.
type RunSummary struct {
	RunID     string `json:"run_id"`
	RequestID string `json:"request_id,omitempty"`
	Start     string `json:"start"`
	End       string `json:"end"`
	Snapshots int    `json:"snapshots"`
	Failures  int    `json:"failures"`
	Processed int    `json:"processed"`
	Empty     int    `json:"empty"`
}

// Summary reduces a report to its counts.
func (r *RunReport) Summary() RunSummary {
	return RunSummary{
		RunID:     r.RunID,
		RequestID: r.RequestID,
		Start:     r.Start,
		End:       r.End,
		Snapshots: len(r.Snapshots),
		Failures:  len(r.Failures),
		Processed: r.Processed,
		Empty:     r.Empty,
	}
}

// SnapshotEvent is the broker payload for one filtered snapshot.
type SnapshotEvent struct {
	RunID     string    `json:"run_id"`
	RequestID string    `json:"request_id,omitempty"`
	Timestamp string    `json:"timestamp"`
	Data      []Feature `json:"data"`
}

// Event builds the broker payload for one of the report's snapshots.
func (r *RunReport) Event(fs *FilteredSnapshot) SnapshotEvent {
	return SnapshotEvent{
		RunID:     r.RunID,
		RequestID: r.RequestID,
		Timestamp: fs.Timestamp,
		Data:      fs.Data,
	}
}
