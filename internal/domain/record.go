package domain

import "time"

// Status classifies a weighment as reported by the checkweigher.
type Status int

const (
	// StatusStable means the reading settled within the scale's motion band.
	StatusStable Status = iota

	// StatusUnstable means the reading never settled.
	StatusUnstable

	// StatusOver means the reading exceeded the target band.
	StatusOver

	// StatusUnder means the reading fell short of the target band.
	StatusUnder
)

// String returns a human-readable representation of the status.
func (s Status) String() string {
	switch s {
	case StatusStable:
		return "Stable"
	case StatusUnstable:
		return "Unstable"
	case StatusOver:
		return "Over"
	case StatusUnder:
		return "Under"
	default:
		return "Unknown"
	}
}

// WeightRecord is the validated result of parsing one scale frame.
// It is immutable: created once per valid frame, consumed by the
// template engine, then discarded.
type WeightRecord struct {
	// Weight is the measured value in Unit.
	Weight float64

	// Unit is the measurement unit reported by the scale (e.g. "g", "kg").
	Unit string

	// Status classifies the weighment.
	Status Status

	// Target is the target qualifier code reported alongside the status.
	Target string

	// Product is the product code on the line at the time of weighing.
	Product string

	// Timestamp is the scale's clock reading for the weighment.
	Timestamp time.Time
}
