package geo

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNearest_DefaultCountries(t *testing.T) {
	l := NewCountryLookup(DefaultCountries())

	tests := []struct {
		name string
		lat  float64
		lon  float64
		want string
	}{
		{"off honshu", 36.0, 138.0, "Japan"},
		{"great plains", 37, -95, "USA"},
		{"northern territory", -20, 135, "Australia"},
		{"central india", 20, 80, "India"},
		{"amazon basin", -10, -50, "Brazil"},
		{"gulf of guinea", 0, 0, UnknownCountry},
		{"central asia", 45, 60, UnknownCountry},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, l.Nearest(tt.lat, tt.lon))
		})
	}
}

func TestNearest_RadiusIsInclusive(t *testing.T) {
	l := NewCountryLookup([]Country{{Name: "A", Lat: 0, Lon: 0, Range: 5}})

	assert.Equal(t, "A", l.Nearest(3, 4))
	assert.Equal(t, UnknownCountry, l.Nearest(3, 4.001))
}

func TestNearest_EarlierEntryWinsTie(t *testing.T) {
	a := Country{Name: "A", Lat: 0, Lon: 10, Range: 20}
	b := Country{Name: "B", Lat: 0, Lon: -10, Range: 20}

	assert.Equal(t, "A", NewCountryLookup([]Country{a, b}).Nearest(0, 0))
	assert.Equal(t, "B", NewCountryLookup([]Country{b, a}).Nearest(0, 0))
}

func TestNearest_CloserCandidateWinsRegardlessOfOrder(t *testing.T) {
	far := Country{Name: "Far", Lat: 0, Lon: 8, Range: 20}
	near := Country{Name: "Near", Lat: 0, Lon: 2, Range: 20}

	assert.Equal(t, "Near", NewCountryLookup([]Country{far, near}).Nearest(0, 0))
	assert.Equal(t, "Near", NewCountryLookup([]Country{near, far}).Nearest(0, 0))
}

// A closer centroid whose radius does not reach the point is not a candidate.
func TestNearest_OutOfRangeCentroidIgnored(t *testing.T) {
	small := Country{Name: "Small", Lat: 0, Lon: 1, Range: 0.5}
	large := Country{Name: "Large", Lat: 0, Lon: 3, Range: 5}

	assert.Equal(t, "Large", NewCountryLookup([]Country{small, large}).Nearest(0, 0))
}

func TestNearest_NeverExceedsRange(t *testing.T) {
	countries := DefaultCountries()
	l := NewCountryLookup(countries)
	byName := make(map[string]Country, len(countries))
	for _, c := range countries {
		byName[c.Name] = c
	}
	rng := rand.New(rand.NewPCG(7, 11))

	for range 5000 {
		lat := rng.Float64()*180 - 90
		lon := rng.Float64()*360 - 180

		got := l.Nearest(lat, lon)
		require.Equal(t, got, l.Nearest(lat, lon))
		if got == UnknownCountry {
			continue
		}
		c, ok := byName[got]
		require.True(t, ok, "unexpected country %q", got)
		require.LessOrEqual(t, Distance(lat, lon, c.Lat, c.Lon), c.Range)
	}
}

func TestDistance(t *testing.T) {
	assert.Equal(t, 5.0, Distance(0, 0, 3, 4))
	assert.Equal(t, 0.0, Distance(12.5, -40, 12.5, -40))
	assert.Equal(t, Distance(1, 2, 3, 4), Distance(3, 4, 1, 2))
}

func TestCountries_ReturnsCopy(t *testing.T) {
	l := NewCountryLookup(DefaultCountries())
	cs := l.Countries()
	cs[0].Range = 0

	assert.Equal(t, "Japan", l.Nearest(36.0, 138.0))
}
