// Package segment classifies customers by how recently they bought.
package segment

import "fmt"

// Segment is a recency class. The zero value is Active.
type Segment int

const (
	Active Segment = iota
	Warm
	Cold
	Lost
)

// Upper bounds (inclusive) of the recency buckets, in days.
const (
	ActiveMaxDays = 30
	WarmMaxDays   = 90
	ColdMaxDays   = 180
)

// All lists the segments in column order.
var All = []Segment{Active, Warm, Cold, Lost}

// Classify maps a recency in days to its segment. Boundary values belong to the more recent bucket.
func Classify(recencyDays int) Segment {
	switch {
	case recencyDays <= ActiveMaxDays:
		return Active
	case recencyDays <= WarmMaxDays:
		return Warm
	case recencyDays <= ColdMaxDays:
		return Cold
	default:
		return Lost
	}
}

func (s Segment) String() string {
	switch s {
	case Active:
		return "Active"
	case Warm:
		return "Warm"
	case Cold:
		return "Cold"
	case Lost:
		return "Lost"
	default:
		return fmt.Sprintf("Segment(%d)", int(s))
	}
}

// Describe is the one-line explanation shown next to segment columns.
func (s Segment) Describe() string {
	switch s {
	case Active:
		return fmt.Sprintf("purchased in the last %d days", ActiveMaxDays)
	case Warm:
		return fmt.Sprintf("%d-%d days ago", ActiveMaxDays+1, WarmMaxDays)
	case Cold:
		return fmt.Sprintf("%d-%d days ago", WarmMaxDays+1, ColdMaxDays)
	default:
		return fmt.Sprintf("more than %d days ago", ColdMaxDays)
	}
}

// MarshalText renders the segment name in JSON and exports.
func (s Segment) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText accepts the names produced by MarshalText.
func (s *Segment) UnmarshalText(text []byte) error {
	for _, candidate := range All {
		if candidate.String() == string(text) {
			*s = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown segment %q", string(text))
}
