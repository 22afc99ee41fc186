package tracking

import (
	"errors"
	"fmt"

	"beacon-base/internal/codec"

	"github.com/paulmach/orb"
)

// MaxTracks es el número máximo de balizas simultáneas.
const MaxTracks = 8

var (
	ErrCapacityExceeded = errors.New("tracking: capacity exceeded")
	ErrUnknownTrack     = errors.New("tracking: unknown track")
)

// maxPathLengths[n]: presupuesto de caracteres por recorrido con n tracks activos.
// Mantiene la URL completa por debajo de 8192 con todos los marcadores.
var maxPathLengths = [MaxTracks + 1]int{7000, 7000, 3400, 2200, 1600, 1300, 1050, 900, 780}

// MaxPathLength devuelve el presupuesto por recorrido para count tracks.
func MaxPathLength(count int) int {
	if count < 0 {
		count = 0
	}
	if count > MaxTracks {
		count = MaxTracks
	}
	return maxPathLengths[count]
}

// Effect indica a quien llama qué cambió con el último Ingest.
type Effect struct {
	NewTrack         bool
	Recenter         bool
	CapacityExceeded bool
	Evicted          int
}

// Tracker guarda los tracks en orden de primera aparición. No es seguro para uso
// concurrente: lo maneja sólo la goroutine de control.
type Tracker struct {
	order    []*Track
	byID     map[string]*Track
	centered bool
}

func NewTracker() *Tracker {
	return &Tracker{byID: make(map[string]*Track)}
}

// Len devuelve el número de tracks activos.
func (tr *Tracker) Len() int { return len(tr.order) }

// Ingest registra un fix para id.
func (tr *Tracker) Ingest(id string, fix codec.Fix) (Effect, error) {
	var eff Effect

	t, ok := tr.byID[id]
	if !ok {
		if len(tr.order) >= MaxTracks {
			eff.CapacityExceeded = true
			return eff, fmt.Errorf("ingest %q: %w", id, ErrCapacityExceeded)
		}
		t = &Track{ID: id, Color: Palette[len(tr.order)]}
		tr.order = append(tr.order, t)
		tr.byID[id] = t
		eff.NewTrack = true
	}

	if !tr.centered {
		tr.centered = true
		eff.Recenter = true
	}

	t.Latest = fix
	t.Fixes++
	t.Path = append(t.Path, orb.Point{fix.Longitude, fix.Latitude})

	budget := MaxPathLength(len(tr.order))
	if eff.NewTrack {
		// el presupuesto compartido bajó: recortar todos
		for _, other := range tr.order {
			eff.Evicted += evict(other, budget)
		}
	} else {
		eff.Evicted += evict(t, budget)
	}
	return eff, nil
}

// EvictOldest recorta el recorrido de id hasta que su forma serializada quepa en maxLen.
// Devuelve los puntos eliminados.
func (tr *Tracker) EvictOldest(id string, maxLen int) (int, error) {
	t, ok := tr.byID[id]
	if !ok {
		return 0, fmt.Errorf("evict %q: %w", id, ErrUnknownTrack)
	}
	return evict(t, maxLen), nil
}

// Con >=3 puntos se quita el índice 1 (se conserva el ancla inicial), con 2 se quita
// el más viejo y con 1 ya no se puede recortar. El último punto nunca se toca.
func evict(t *Track, maxLen int) int {
	removed := 0
	size := len(t.PathParam())
	for size > maxLen && len(t.Path) > 1 {
		var gone orb.Point
		if len(t.Path) >= 3 {
			gone = t.Path[1]
			t.Path = append(t.Path[:1], t.Path[2:]...)
		} else {
			gone = t.Path[0]
			t.Path = t.Path[1:]
		}
		size -= len(FormatCoord(gone.Lat())) + len(FormatCoord(gone.Lon())) + 2
		removed++
	}
	return removed
}

// Get devuelve una copia del track id.
func (tr *Tracker) Get(id string) (Track, bool) {
	t, ok := tr.byID[id]
	if !ok {
		return Track{}, false
	}
	return t.clone(), true
}

// Tracks devuelve copias en orden de primera aparición.
func (tr *Tracker) Tracks() []Track {
	out := make([]Track, 0, len(tr.order))
	for _, t := range tr.order {
		out = append(out, t.clone())
	}
	return out
}
