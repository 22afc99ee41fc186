package geo

import (
	"math"

	"github.com/golang/geo/s2"
	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"
)

// EarthRadius en metros (WGS84 ecuatorial); es el radio que usa la UI para la distancia a la base.
const EarthRadius = 6378137.0

func point(lat, lon float64) s2.Point {
	return s2.PointFromLatLng(s2.LatLngFromDegrees(lat, lon))
}

// AngularSeparation devuelve el ángulo central en grados entre dos posiciones.
// s2 usa atan2(|a×b|, a·b), estable para puntos casi coincidentes o antipodales.
func AngularSeparation(lat1, lon1, lat2, lon2 float64) float64 {
	return point(lat1, lon1).Distance(point(lat2, lon2)).Degrees()
}

// Distance es la separación sobre la esfera en metros.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	return point(lat1, lon1).Distance(point(lat2, lon2)).Radians() * EarthRadius
}

// InitialBearing devuelve el rumbo inicial de 1 hacia 2, en grados [0,360).
func InitialBearing(lat1, lon1, lat2, lon2 float64) float64 {
	if lat1 == lat2 && lon1 == lon2 {
		return 0
	}
	b := orbgeo.Bearing(orb.Point{lon1, lat1}, orb.Point{lon2, lat2})
	if b < 0 {
		b += 360
	}
	if b >= 360 {
		b -= 360
	}
	return b
}

func cosLat(lat float64) float64 {
	return math.Cos(math.Abs(lat) * math.Pi / 180)
}
