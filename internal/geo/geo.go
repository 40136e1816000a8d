// Package geo provides the distance and geofence math used by the
// resolver and the webhook dispatcher.
package geo

import (
	"math"

	"fieldmap/internal/model"
)

const earthRadiusM = 6371000.0

// Distance returns the haversine great-circle distance in metres between
// two WGS84 coordinates.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	return earthRadiusM * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// ValidCoords reports whether a latitude/longitude pair is inside the
// WGS84 bounds.
func ValidCoords(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// Contains reports whether the point lies inside the fence polygon,
// using ray casting over the vertex list. A fence with fewer than three
// vertices contains nothing.
func Contains(fence model.Geofence, lat, lon float64) bool {
	vs := fence.Vertices
	if len(vs) < 3 {
		return false
	}
	inside := false
	j := len(vs) - 1
	for i := 0; i < len(vs); i++ {
		vi, vj := vs[i], vs[j]
		if (vi.Lon > lon) != (vj.Lon > lon) &&
			lat < (vj.Lat-vi.Lat)*(lon-vi.Lon)/(vj.Lon-vi.Lon)+vi.Lat {
			inside = !inside
		}
		j = i
	}
	return inside
}
