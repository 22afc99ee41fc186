package tracking

import (
	"strconv"
	"strings"

	"beacon-base/internal/codec"

	"github.com/paulmach/orb"
)

// Color es el nombre de color que entiende el proveedor de mapas.
type Color string

// Palette en orden de asignación: el primer track es rojo, el segundo amarillo...
var Palette = [MaxTracks]Color{"red", "yellow", "green", "blue", "purple", "gray", "brown", "orange"}

const pathWeight = 5

// Track es una baliza con su último fix y el recorrido acumulado.
type Track struct {
	ID     string         `json:"id"`
	Color  Color          `json:"color"`
	Latest codec.Fix      `json:"latest"`
	Path   orb.LineString `json:"path"` // (lon,lat) en orden de llegada
	Fixes  int            `json:"fixes"`
}

// PathParam serializa el recorrido tal y como viaja en la URL:
// "&path=color:NAME|weight:5|lat,lon|lat,lon...".
func (t *Track) PathParam() string {
	return pathParam(t.Color, t.Path)
}

func pathParam(c Color, path orb.LineString) string {
	var sb strings.Builder
	sb.WriteString("&path=color:")
	sb.WriteString(string(c))
	sb.WriteString("|weight:")
	sb.WriteString(strconv.Itoa(pathWeight))
	for _, p := range path {
		sb.WriteByte('|')
		sb.WriteString(FormatCoord(p.Lat()))
		sb.WriteByte(',')
		sb.WriteString(FormatCoord(p.Lon()))
	}
	return sb.String()
}

// FormatCoord usa 6 decimales (~0.1 m), suficiente para el mapa estático.
func FormatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

func (t *Track) clone() Track {
	c := *t
	c.Path = append(orb.LineString(nil), t.Path...)
	return c
}
