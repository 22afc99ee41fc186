package geo

import (
	"errors"
	"fmt"
)

const (
	MinZoom     = 0
	MaxZoom     = 21
	DefaultZoom = 15

	// TargetRadiusPixels: radio en píxeles que debe cubrir la separación baliza/base.
	TargetRadiusPixels = 200

	zoom1DegreesPerPixel = 0.703125
)

// ErrZoomOutOfRange se devuelve cuando la conversión de píxeles no tiene escala definida.
var ErrZoomOutOfRange = errors.New("zoom out of range")

// scales[z] = grados por píxel en el ecuador para zoom z (1..21); scales[0] no se usa.
var scales = func() [MaxZoom + 1]float64 {
	var s [MaxZoom + 1]float64
	s[1] = zoom1DegreesPerPixel
	for z := 2; z <= MaxZoom; z++ {
		s[z] = s[z-1] / 2
	}
	return s
}()

// Scale devuelve los grados por píxel en el ecuador para zoom z.
func Scale(zoom int) (float64, error) {
	if zoom < 1 || zoom > MaxZoom {
		return 0, fmt.Errorf("scale for zoom %d: %w", zoom, ErrZoomOutOfRange)
	}
	return scales[zoom], nil
}

// ClampZoom mantiene el zoom de la vista dentro de [0,21].
func ClampZoom(zoom int) int {
	switch {
	case zoom < MinZoom:
		return MinZoom
	case zoom > MaxZoom:
		return MaxZoom
	}
	return zoom
}

// SelectZoom elige el zoom más alto cuyo radio de TargetRadiusPixels cubre sep (grados)
// a la latitud lat. Sólo aleja: nunca devuelve más que currentZoom.
func SelectZoom(sep float64, currentZoom int, lat float64) int {
	c := cosLat(lat)
	if sep > scales[1]*c*TargetRadiusPixels {
		return MinZoom
	}
	best := 1
	for z := 1; z <= MaxZoom; z++ {
		if sep <= scales[z]*c*TargetRadiusPixels {
			best = z
		}
	}
	if best > currentZoom {
		return ClampZoom(currentZoom)
	}
	return best
}

// PixelToDegrees convierte un desplazamiento en píxeles desde el centro de la imagen
// a un desplazamiento en grados. y crece hacia abajo en pantalla.
func PixelToDegrees(dx, dy float64, zoom int, lat float64) (dLat, dLon float64, err error) {
	s, err := Scale(zoom)
	if err != nil {
		return 0, 0, err
	}
	dLon = dx * s
	dLat = -dy * s * cosLat(lat)
	return dLat, dLon, nil
}
