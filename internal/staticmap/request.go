package staticmap

import (
	"strconv"
	"strings"

	"beacon-base/internal/codec"
	"beacon-base/internal/geo"
	"beacon-base/internal/tracking"
)

const (
	BaseURL = "https://maps.googleapis.com/maps/api/staticmap"

	// MaxURLLength es el límite de la Static Maps API.
	MaxURLLength = 8192

	BaseColor tracking.Color = "white"
)

// View es el centro y zoom del mapa mostrado.
type View struct {
	CenterLat float64 `json:"center_lat"`
	CenterLon float64 `json:"center_lon"`
	Zoom      int     `json:"zoom"`
}

// DefaultView es la vista de arranque: sin centro conocido y zoom 15.
func DefaultView() View {
	return View{Zoom: geo.DefaultZoom}
}

// Options controla tamaño y estilo de la imagen.
type Options struct {
	Width   int
	Height  int
	MapType string
}

func DefaultOptions() Options {
	return Options{Width: 640, Height: 480, MapType: "hybrid"}
}

// Marker es un punto de color en el mapa.
type Marker struct {
	Color tracking.Color
	Lat   float64
	Lon   float64
}

// Path es una polilínea ya serializada de un track.
type Path struct {
	TrackID string
	Param   string
}

// Request describe la imagen a pedir; no hace I/O.
type Request struct {
	View    View
	Markers []Marker
	Paths   []Path
	Options Options
}

// Assemble compone la petición: marcador blanco para la base si se conoce, un marcador
// por track y una polilínea por track con al menos dos puntos.
func Assemble(view View, tracks []tracking.Track, base *codec.Fix, opts Options) Request {
	req := Request{View: view, Options: opts}
	if base != nil {
		req.Markers = append(req.Markers, Marker{Color: BaseColor, Lat: base.Latitude, Lon: base.Longitude})
	}
	for _, t := range tracks {
		req.Markers = append(req.Markers, Marker{Color: t.Color, Lat: t.Latest.Latitude, Lon: t.Latest.Longitude})
	}
	for i := range tracks {
		if len(tracks[i].Path) < 2 {
			continue
		}
		req.Paths = append(req.Paths, Path{TrackID: tracks[i].ID, Param: tracks[i].PathParam()})
	}
	return req
}

// URL serializa la petición con la clave del proveedor. El orden de los parámetros
// es fijo: center, markers, path, zoom, size, maptype, format, key.
func (r Request) URL(key string) string {
	var sb strings.Builder
	sb.WriteString(BaseURL)
	sb.WriteString("?center=")
	sb.WriteString(tracking.FormatCoord(r.View.CenterLat))
	sb.WriteByte(',')
	sb.WriteString(tracking.FormatCoord(r.View.CenterLon))
	for _, m := range r.Markers {
		sb.WriteString("&markers=color:")
		sb.WriteString(string(m.Color))
		sb.WriteByte('|')
		sb.WriteString(tracking.FormatCoord(m.Lat))
		sb.WriteByte(',')
		sb.WriteString(tracking.FormatCoord(m.Lon))
	}
	for _, p := range r.Paths {
		sb.WriteString(p.Param)
	}
	sb.WriteString("&zoom=")
	sb.WriteString(strconv.Itoa(r.View.Zoom))
	sb.WriteString("&size=")
	sb.WriteString(strconv.Itoa(r.Options.Width))
	sb.WriteByte('x')
	sb.WriteString(strconv.Itoa(r.Options.Height))
	sb.WriteString("&maptype=")
	sb.WriteString(r.Options.MapType)
	sb.WriteString("&format=png&key=")
	sb.WriteString(key)
	return sb.String()
}

// ShareLink devuelve el enlace de Google Maps para copiar una posición.
func ShareLink(lat, lon float64) string {
	return "https://www.google.com/maps/search/?api=1&map_action=map&query=" +
		tracking.FormatCoord(lat) + "," + tracking.FormatCoord(lon)
}

// PixelToLocation convierte un píxel (x,y) de la imagen, con origen arriba a la
// izquierda, en la posición correspondiente.
func (v View) PixelToLocation(x, y float64, opts Options) (lat, lon float64, err error) {
	dx := x - float64(opts.Width)/2
	dy := y - float64(opts.Height)/2
	dLat, dLon, err := geo.PixelToDegrees(dx, dy, v.Zoom, v.CenterLat)
	if err != nil {
		return 0, 0, err
	}
	return v.CenterLat + dLat, v.CenterLon + dLon, nil
}
