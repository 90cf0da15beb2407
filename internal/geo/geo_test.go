package geo_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sparklabs/spark-backend/internal/geo"
)

func TestDistance_SamePoint(t *testing.T) {
	assert.Equal(t, 0.0, geo.Distance(51.5074, -0.1278, 51.5074, -0.1278))
}

func TestDistance_Symmetry(t *testing.T) {
	coords := [][4]float64{
		{51.5074, -0.1278, 48.8566, 2.3522},
		{-33.8688, 151.2093, 35.6762, 139.6503},
		{0, 0, 0, 180},
	}
	for _, c := range coords {
		ab := geo.Distance(c[0], c[1], c[2], c[3])
		ba := geo.Distance(c[2], c[3], c[0], c[1])
		assert.InDelta(t, ab, ba, 1e-9)
	}
}

func TestDistance_KnownValues(t *testing.T) {
	// London -> Paris is roughly 344 km.
	d := geo.Distance(51.5074, -0.1278, 48.8566, 2.3522)
	assert.InDelta(t, 344, d, 2)

	// Half the Earth's circumference between antipodal equator points.
	d = geo.Distance(0, 0, 0, 180)
	assert.InDelta(t, 20015, d, 5)
}
