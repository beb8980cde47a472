package enums

// Region is the two-tier shipping partition of Malaysian states.
type Region string

const (
	RegionWest Region = "west"
	RegionEast Region = "east"
)

// IsValid reports whether the value is a known Region.
func (r Region) IsValid() bool {
	return r == RegionWest || r == RegionEast
}
