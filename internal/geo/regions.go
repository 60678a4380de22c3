// Package geo labels an observation with a coarse ocean name and the nearest
// reference country. Both lookups are deliberately approximate: regions are
// bounding predicates and country distance is measured in raw degrees.
//
// The tables are built once at process start and shared read-only, so a
// RegionClassifier or CountryLookup is safe for concurrent use.
package geo

// UnknownOcean is returned when no region predicate matches.
const UnknownOcean = "Unknown Ocean"

// OceanRegion is a named ocean with one predicate per coordinate axis.
type OceanRegion struct {
	Name string
	Lat  func(lat float64) bool
	Lon  func(lon float64) bool
}

// Contains reports whether both axis predicates hold.
func (r OceanRegion) Contains(lat, lon float64) bool {
	return r.Lat(lat) && r.Lon(lon)
}

func between(lo, hi float64) func(float64) bool {
	return func(v float64) bool { return lo <= v && v <= hi }
}

// DefaultRegions returns the reference ocean table in match order.
//
// Boundaries overlap at several seams; whichever region comes first wins.
// The Pacific longitude test keeps both clauses, including the 100..290 branch
// past the antimeridian.
func DefaultRegions() []OceanRegion {
	return []OceanRegion{
		{
			Name: "Pacific Ocean",
			Lat:  between(-60, 60),
			Lon: func(lon float64) bool {
				return (100 <= lon && lon <= 290) || (-180 <= lon && lon <= -70)
			},
		},
		{Name: "Atlantic Ocean", Lat: between(-60, 60), Lon: between(-70, 20)},
		{Name: "Indian Ocean", Lat: between(-60, 30), Lon: between(20, 100)},
		{Name: "Arctic Ocean", Lat: between(60, 90), Lon: between(-180, 180)},
		{Name: "Southern Ocean", Lat: between(-90, -60), Lon: between(-180, 180)},
	}
}

// RegionClassifier maps coordinates to the first matching ocean region.
type RegionClassifier struct {
	regions []OceanRegion
}

// NewRegionClassifier copies regions so later changes to the caller's slice
// cannot reorder matching.
func NewRegionClassifier(regions []OceanRegion) *RegionClassifier {
	cp := make([]OceanRegion, len(regions))
	copy(cp, regions)
	return &RegionClassifier{regions: cp}
}

// Classify returns the name of the first region containing (lat, lon), or
// UnknownOcean.
func (c *RegionClassifier) Classify(lat, lon float64) string {
	for _, r := range c.regions {
		if r.Contains(lat, lon) {
			return r.Name
		}
	}
	return UnknownOcean
}

// Names lists region names in match order.
func (c *RegionClassifier) Names() []string {
	names := make([]string, len(c.regions))
	for i, r := range c.regions {
		names[i] = r.Name
	}
	return names
}
