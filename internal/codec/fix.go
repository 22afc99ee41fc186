package codec

import "time"

// Fix es una muestra de posición reportada por una baliza o por la GNSS de la base.
type Fix struct {
	Timestamp   time.Time `json:"timestamp"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	Altitude    int       `json:"altitude"`
	Speed       float64   `json:"speed"`
	Heading     float64   `json:"heading"`
	HDOP        float64   `json:"hdop"`
	Satellites  int       `json:"satellites"`
	Pressure    int       `json:"pressure"`
	Temperature float64   `json:"temperature"`
	Battery     float64   `json:"battery"`
	Sequence    int       `json:"sequence"`

	// StationID y QueueDepth viajan juntos al final de la línea (",serial,mtq").
	StationID  string `json:"station_id,omitempty"`
	QueueDepth int    `json:"queue_depth,omitempty"`

	// Relay es el destino RockBLOCK opcional al inicio de la línea (p.ej. "RB0001234").
	Relay string `json:"relay,omitempty"`
}

// HasStation indica si la línea traía el par opcional serial/MTQ.
func (f Fix) HasStation() bool { return f.StationID != "" }
