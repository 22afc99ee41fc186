package pipeline

import (
	"time"

	"beacon-base/internal/codec"
	"beacon-base/internal/staticmap"
	"beacon-base/internal/tracking"
)

// AppState es una foto inmutable del estado tras cada ciclo o acción.
type AppState struct {
	CycleID string         `json:"cycle_id"`
	View    staticmap.View `json:"view"`

	Base   *codec.Fix       `json:"base,omitempty"`
	Tracks []tracking.Track `json:"tracks"`

	MTQ    int  `json:"mtq"`
	HasMTQ bool `json:"has_mtq"`

	LastBeacon string  `json:"last_beacon,omitempty"`
	DistanceM  float64 `json:"distance_m"`
	CourseDeg  float64 `json:"course_deg"`
	HasRange   bool    `json:"has_range"`

	Interval   time.Duration `json:"interval"`
	LastUpdate time.Time     `json:"last_update"`
	NextUpdate time.Time     `json:"next_update"`

	MapSource    staticmap.Source `json:"map_source,omitempty"`
	MapURLLength int              `json:"map_url_length"`
	Image        []byte           `json:"-"`

	Console []string `json:"console"`
}

// Console guarda las últimas n líneas de estado.
type Console struct {
	max   int
	lines []string
}

func NewConsole(max int) *Console {
	if max <= 0 {
		max = 1
	}
	return &Console{max: max}
}

func (c *Console) Add(msg string) {
	c.lines = append(c.lines, msg)
	if over := len(c.lines) - c.max; over > 0 {
		c.lines = append(c.lines[:0], c.lines[over:]...)
	}
}

func (c *Console) Lines() []string {
	return append([]string(nil), c.lines...)
}
