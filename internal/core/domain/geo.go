package domain

// microdegreesPerDegree is the fixed scale of the stored location encoding.
const microdegreesPerDegree float32 = 1_000_000

// Coordinate is a WGS 84 position in decimal degrees, single precision.
// Ranges are not enforced; callers supply valid values.
type Coordinate struct {
	Lon float32 `json:"lon"`
	Lat float32 `json:"lat"`
}

// RawLocation is a stored position scaled by 1,000,000 (microdegrees).
type RawLocation struct {
	Longitude float32 `json:"longitude"`
	Latitude  float32 `json:"latitude"`
}

// Coordinate converts the microdegree pair to decimal degrees.
func (r RawLocation) Coordinate() Coordinate {
	return Coordinate{
		Lon: r.Longitude / microdegreesPerDegree,
		Lat: r.Latitude / microdegreesPerDegree,
	}
}

// IdentifiedLocation is one entry of a snapshot's location mapping.
type IdentifiedLocation struct {
	ID       string      `json:"id"`
	Location RawLocation `json:"location"`
}
