package pipeline

// TrackingObject es el fix normalizado que se reenvía aguas arriba.
type TrackingObject struct {
	ID       string `json:"id"`
	Source   string `json:"source"` // serial | inbox
	Datetime string `json:"dt"`

	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
	Alt  int     `json:"alt"`
	Spd  float64 `json:"spd"`
	Crs  float64 `json:"crs"`
	HDOP float64 `json:"hdop"`
	Sats int     `json:"sats"`

	Pressure int     `json:"pressure"`
	Temp     float64 `json:"temp"`
	Battery  float64 `json:"battery"`
	MOMSN    int     `json:"momsn"`
	MTQ      int     `json:"mtq"`
	Relay    string  `json:"relay,omitempty"`

	Fix int `json:"fix"` // 1 si sats>3 y coords válidas
}
