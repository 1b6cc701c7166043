package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var (
	bucharest = Point{Lat: 44.4268, Lon: 26.1025}
	cluj      = Point{Lat: 46.7712, Lon: 23.6236}
)

func TestDistance_Identity(t *testing.T) {
	assert.Equal(t, 0.0, Distance(bucharest, bucharest))
}

func TestDistance_Symmetric(t *testing.T) {
	assert.InDelta(t, Distance(bucharest, cluj), Distance(cluj, bucharest), 1e-9)
}

func TestDistance_KnownPair(t *testing.T) {
	assert.InDelta(t, 324, Distance(bucharest, cluj), 5)
}

func TestDistance_Antipodes(t *testing.T) {
	d := Distance(Point{Lat: 0, Lon: 0}, Point{Lat: 0, Lon: 180})
	assert.InDelta(t, 3.14159265*EarthRadiusKm, d, 0.01)
}
