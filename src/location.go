package vdl2

/*------------------------------------------------------------------
 *
 * Purpose:	Positions reported in XID frames, and how far they are
 *		from the receiving station.
 *
 * Description:	Aircraft and ground station locations are 12 bit two's
 *		complement latitude and longitude in units of 0.1 degree,
 *		packed into 3 octets whose bits arrive in reverse order.
 *		Aircraft locations may add one octet of altitude, in
 *		units of 1000 ft.
 *
 *------------------------------------------------------------------*/

import (
	"fmt"
	"math"
	"sync"

	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
	"github.com/tzneal/coordconv"
)

const EARTH_RADIUS_KM = 6371.0

const LOCATION_LEN = 3

type GeoPoint struct {
	Lat float64
	Lon float64
}

func (p GeoPoint) latlng() s2.LatLng {
	return s2.LatLng{
		Lat: s1.Angle(D2R(p.Lat)),
		Lng: s1.Angle(D2R(p.Lon)),
	}
}

// Great circle distance.

func (p GeoPoint) DistanceKm(q GeoPoint) float64 {
	return p.latlng().Distance(q.latlng()).Radians() * EARTH_RADIUS_KM
}

// precision is the number of digits per axis, 0 to 5.

func (p GeoPoint) MGRS(precision int) (string, error) {
	var s, err = coordconv.DefaultMGRSConverter.ConvertFromGeodetic(p.latlng(), precision)
	if err != nil {
		return "", fmt.Errorf("MGRS for %.1f,%.1f: %w", p.Lat, p.Lon, err)
	}
	return s, nil
}

func (p GeoPoint) String() string {
	return fmt.Sprintf("%.1f %c %.1f %c",
		math.Abs(p.Lat), IfThenElse(p.Lat < 0, 'S', 'N'),
		math.Abs(p.Lon), IfThenElse(p.Lon < 0, 'W', 'E'))
}

func parse_vdl2_location(buf []byte) (GeoPoint, error) {
	if len(buf) < LOCATION_LEN {
		return GeoPoint{}, fmt.Errorf("%w: location of %d octets", ErrTooShort, len(buf)) //nolint:exhaustruct
	}

	var b [LOCATION_LEN]uint32
	for i := range b {
		b[i] = reverse(uint32(buf[i]), 8)
	}

	var lat = sign_extend(b[0]<<4|b[1]>>4, 12)
	var lon = sign_extend((b[1]&0x0f)<<8|b[2], 12)

	var p = GeoPoint{Lat: float64(lat) / 10, Lon: float64(lon) / 10}
	if p.Lat < -90 || p.Lat > 90 || p.Lon < -180 || p.Lon > 180 {
		return GeoPoint{}, fmt.Errorf("%w: location %s out of range", ErrBadLength, p) //nolint:exhaustruct
	}

	return p, nil
}

func encode_vdl2_location(p GeoPoint) [LOCATION_LEN]byte {
	var lat = uint32(int32(math.Round(p.Lat*10))) & 0xfff
	var lon = uint32(int32(math.Round(p.Lon*10))) & 0xfff

	var b = [LOCATION_LEN]uint32{lat >> 4, (lat&0x0f)<<4 | lon>>8, lon & 0xff}

	var out [LOCATION_LEN]byte
	for i := range b {
		out[i] = byte(reverse(b[i], 8))
	}
	return out
}

/*------------------------------------------------------------------
 *
 * Where we are.  Optional, set from the configuration.
 *
 *------------------------------------------------------------------*/

var (
	station_mu       sync.RWMutex
	station_location *GeoPoint
)

func SetStationLocation(p *GeoPoint) {
	station_mu.Lock()
	defer station_mu.Unlock()

	station_location = p
}

// Distance from the station, false if its location isn't known.

func station_distance_km(p GeoPoint) (float64, bool) {
	station_mu.RLock()
	defer station_mu.RUnlock()

	if station_location == nil {
		return 0, false
	}
	return station_location.DistanceKm(p), true
}

// Location with MGRS and distance, for text output.

func describe_location(p GeoPoint) string {
	var s = p.String()
	if m, err := p.MGRS(3); err == nil {
		s += " (" + m + ")"
	}
	if d, ok := station_distance_km(p); ok {
		s += fmt.Sprintf(", %.0f km away", d)
	}
	return s
}

func location_json(p GeoPoint) map[string]any {
	var m = map[string]any{"lat": p.Lat, "lon": p.Lon}
	if mgrs, err := p.MGRS(3); err == nil {
		m["mgrs"] = mgrs
	}
	if d, ok := station_distance_km(p); ok {
		m["dist_km"] = d
	}
	return m
}
