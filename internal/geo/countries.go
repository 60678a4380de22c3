package geo

import "math"

// UnknownCountry is returned when no country lies within its influence radius.
const UnknownCountry = "Unknown Country"

// Country is a reference centroid with an influence radius, all in degrees.
type Country struct {
	Name  string  `json:"name"`
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
	Range float64 `json:"range"`
}

// DefaultCountries returns the reference country table. Order breaks ties.
func DefaultCountries() []Country {
	return []Country{
		{Name: "Japan", Lat: 36.2048, Lon: 138.2529, Range: 10},
		{Name: "USA", Lat: 37.0902, Lon: -95.7129, Range: 15},
		{Name: "Australia", Lat: -25.2744, Lon: 133.7751, Range: 15},
		{Name: "India", Lat: 20.5937, Lon: 78.9629, Range: 10},
		{Name: "Brazil", Lat: -14.2350, Lon: -51.9253, Range: 15},
	}
}

// Distance is the planar Euclidean distance between two points in degrees.
// It ignores curvature and the antimeridian.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := lat1 - lat2
	dLon := lon1 - lon2
	return math.Sqrt(dLat*dLat + dLon*dLon)
}

// CountryLookup finds the nearest reference country in range.
type CountryLookup struct {
	countries []Country
}

// NewCountryLookup copies countries to pin the tie-break order.
func NewCountryLookup(countries []Country) *CountryLookup {
	cp := make([]Country, len(countries))
	copy(cp, countries)
	return &CountryLookup{countries: cp}
}

// Nearest returns the closest country whose radius covers (lat, lon), or
// UnknownCountry. Only a strictly smaller distance displaces the incumbent,
// so earlier table entries win ties.
func (l *CountryLookup) Nearest(lat, lon float64) string {
	nearest := UnknownCountry
	best := math.Inf(1)
	for _, c := range l.countries {
		d := Distance(lat, lon, c.Lat, c.Lon)
		if d <= c.Range && d < best {
			best = d
			nearest = c.Name
		}
	}
	return nearest
}

// Countries returns a copy of the reference table.
func (l *CountryLookup) Countries() []Country {
	cp := make([]Country, len(l.countries))
	copy(cp, l.countries)
	return cp
}
