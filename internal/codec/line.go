package codec

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	// DateTimeLayout es el formato fijo YYYYMMDDHHMMSS del primer campo.
	DateTimeLayout = "20060102150405"

	// MinBeaconFields: datetime … battery, count.
	MinBeaconFields = 12
	// MinBaseFields: datetime, lat, lon, alt, speed, heading, hdop, sats.
	MinBaseFields = 8

	relayPrefix = "RB"
	relayLen    = 9
)

// ParseError describe una línea de telemetría que no pasa la validación.
type ParseError struct {
	Line   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse telemetry line %q: %s", e.Line, e.Reason)
}

func parseErr(line, format string, args ...any) error {
	return &ParseError{Line: line, Reason: fmt.Sprintf(format, args...)}
}

// ParseLine parsea una línea completa de baliza (con o sin prefijo RB).
func ParseLine(line string) (Fix, error) {
	return parseFields(line, MinBeaconFields)
}

// ParseBaseLine parsea la respuesta GNSS de la base; sólo exige los 8 primeros campos.
func ParseBaseLine(line string) (Fix, error) {
	return parseFields(line, MinBaseFields)
}

func parseFields(line string, minFields int) (Fix, error) {
	trimmed := strings.TrimRight(line, "\r\n")
	if trimmed == "" {
		return Fix{}, parseErr(line, "empty line")
	}
	parts := strings.Split(trimmed, ",")

	// elegir la variante según la forma del primer campo
	var relay string
	switch {
	case isDateTime(parts[0]):
	case isRelayID(parts[0]):
		relay = parts[0]
		parts = parts[1:]
	default:
		return Fix{}, parseErr(line, "first field %q is neither a datetime nor a relay id", parts[0])
	}

	if len(parts) < minFields {
		return Fix{}, parseErr(line, "got %d fields, want at least %d", len(parts), minFields)
	}
	if !isDateTime(parts[0]) {
		return Fix{}, parseErr(line, "invalid datetime %q", parts[0])
	}

	ts, err := time.ParseInLocation(DateTimeLayout, parts[0], time.UTC)
	if err != nil {
		return Fix{}, parseErr(line, "invalid datetime %q: %v", parts[0], err)
	}

	fix := Fix{Timestamp: ts, Relay: relay}
	p := fieldParser{line: line, parts: parts}

	fix.Latitude = p.float(1, "latitude")
	fix.Longitude = p.float(2, "longitude")
	fix.Altitude = p.int(3, "altitude")
	fix.Speed = p.float(4, "speed")
	fix.Heading = normalizeHeading(parts[5])
	fix.HDOP = p.float(6, "hdop")
	fix.Satellites = p.int(7, "satellites")
	if p.err != nil {
		return Fix{}, p.err
	}
	if fix.Latitude < -90 || fix.Latitude > 90 {
		return Fix{}, parseErr(line, "latitude %v out of range", fix.Latitude)
	}
	if fix.Longitude < -180 || fix.Longitude > 180 {
		return Fix{}, parseErr(line, "longitude %v out of range", fix.Longitude)
	}

	if len(parts) >= MinBeaconFields {
		fix.Pressure = p.int(8, "pressure")
		fix.Temperature = p.float(9, "temperature")
		fix.Battery = p.float(10, "battery")
		fix.Sequence = p.int(11, "count")
	}
	if len(parts) == MinBeaconFields+1 {
		return Fix{}, parseErr(line, "station id %q without queue depth", parts[12])
	}
	if len(parts) >= MinBeaconFields+2 {
		fix.StationID = strings.TrimSpace(parts[12])
		fix.QueueDepth = p.int(13, "queue depth")
	}
	if p.err != nil {
		return Fix{}, p.err
	}
	return fix, nil
}

// Format serializa el fix en el formato de cable; ParseLine(Format(f)) == f.
func Format(f Fix) string {
	var sb strings.Builder
	if f.Relay != "" {
		sb.WriteString(f.Relay)
		sb.WriteByte(',')
	}
	sb.WriteString(f.Timestamp.UTC().Format(DateTimeLayout))
	for _, v := range []string{
		ftoa(f.Latitude),
		ftoa(f.Longitude),
		strconv.Itoa(f.Altitude),
		ftoa(f.Speed),
		ftoa(f.Heading),
		ftoa(f.HDOP),
		strconv.Itoa(f.Satellites),
		strconv.Itoa(f.Pressure),
		ftoa(f.Temperature),
		ftoa(f.Battery),
		strconv.Itoa(f.Sequence),
	} {
		sb.WriteByte(',')
		sb.WriteString(v)
	}
	if f.HasStation() {
		sb.WriteByte(',')
		sb.WriteString(f.StationID)
		sb.WriteByte(',')
		sb.WriteString(strconv.Itoa(f.QueueDepth))
	}
	return sb.String()
}

func ftoa(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

func isDateTime(s string) bool {
	if len(s) != len(DateTimeLayout) {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func isRelayID(s string) bool {
	if len(s) != relayLen || !strings.HasPrefix(s, relayPrefix) {
		return false
	}
	for i := len(relayPrefix); i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// glitches del sensor: cualquier rumbo fuera de [0,360) queda en 0
func normalizeHeading(s string) float64 {
	h, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(h) || h < 0 || h >= 360 {
		return 0
	}
	return h
}

// fieldParser acumula el primer error para no repetir el if en cada campo.
type fieldParser struct {
	line  string
	parts []string
	err   error
}

func (p *fieldParser) float(i int, name string) float64 {
	if p.err != nil {
		return 0
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(p.parts[i]), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		p.err = parseErr(p.line, "invalid %s %q", name, p.parts[i])
		return 0
	}
	return v
}

// int acepta "120" y también "120.4" (redondeado), como hacía el mapper con la presión.
func (p *fieldParser) int(i int, name string) int {
	if p.err != nil {
		return 0
	}
	s := strings.TrimSpace(p.parts[i])
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		p.err = parseErr(p.line, "invalid %s %q", name, p.parts[i])
		return 0
	}
	return int(math.Round(v))
}
