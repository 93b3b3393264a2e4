package vdl2

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestLocationRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var p = GeoPoint{
			Lat: float64(rapid.IntRange(-900, 900).Draw(t, "lat")) / 10,
			Lon: float64(rapid.IntRange(-1800, 1800).Draw(t, "lon")) / 10,
		}
		var enc = encode_vdl2_location(p)
		var got, err = parse_vdl2_location(enc[:])
		if err != nil {
			t.Fatalf("parse %s: %v", p, err)
		}
		if math.Abs(got.Lat-p.Lat) > 1e-9 || math.Abs(got.Lon-p.Lon) > 1e-9 {
			t.Fatalf("got %s, want %s", got, p)
		}
	})
}

func TestLocationOutOfRange(t *testing.T) {
	var enc = encode_vdl2_location(GeoPoint{Lat: 95, Lon: 0})
	var _, err = parse_vdl2_location(enc[:])
	require.ErrorIs(t, err, ErrBadLength)

	_, err = parse_vdl2_location([]byte{0x01})
	require.ErrorIs(t, err, ErrTooShort)
}

func TestGeoPointString(t *testing.T) {
	assert.Equal(t, "52.2 N 21.0 E", GeoPoint{Lat: 52.2, Lon: 21.0}.String())
	assert.Equal(t, "33.9 S 151.2 E", GeoPoint{Lat: -33.9, Lon: 151.2}.String())
	assert.Equal(t, "40.6 N 73.8 W", GeoPoint{Lat: 40.6, Lon: -73.8}.String())
}

func TestDistance(t *testing.T) {
	var warsaw = GeoPoint{Lat: 52.23, Lon: 21.01}
	var krakow = GeoPoint{Lat: 50.06, Lon: 19.94}

	assert.InDelta(t, 252, warsaw.DistanceKm(krakow), 5)
	assert.InDelta(t, 0, warsaw.DistanceKm(warsaw), 1e-9)
	assert.InDelta(t, math.Pi*EARTH_RADIUS_KM, GeoPoint{Lat: 0, Lon: 0}.DistanceKm(GeoPoint{Lat: 0, Lon: 180}), 1e-6)
}

func TestMGRS(t *testing.T) {
	var m, err = GeoPoint{Lat: 52.2, Lon: 21.0}.MGRS(3)
	require.NoError(t, err)
	assert.Regexp(t, `^34U`, m)
}

func TestStationDistance(t *testing.T) {
	t.Cleanup(func() { SetStationLocation(nil) })

	var p = GeoPoint{Lat: 50.1, Lon: 19.9}

	SetStationLocation(nil)
	var _, ok = station_distance_km(p)
	assert.False(t, ok)
	assert.NotContains(t, describe_location(p), "km away")
	assert.NotContains(t, location_json(p), "dist_km")

	SetStationLocation(&GeoPoint{Lat: 52.2, Lon: 21.0})
	var d float64
	d, ok = station_distance_km(p)
	assert.True(t, ok)
	assert.InDelta(t, 250, d, 10)
	assert.Contains(t, describe_location(p), "km away")
	assert.Contains(t, location_json(p), "dist_km")
	assert.Contains(t, location_json(p), "mgrs")
}
