package pipeline

import (
	"time"

	"beacon-base/internal/codec"
)

const (
	SourceSerial = "serial"
	SourceInbox  = "inbox"
)

func coordsValid(lat, lon float64) bool {
	if lat == 0 && lon == 0 {
		return false
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return false
	}
	return true
}

func CalcFix(sats int, lat, lon float64) int {
	if sats > 3 && coordsValid(lat, lon) {
		return 1
	}
	return 0
}

func BuildTracking(id, source string, f codec.Fix) *TrackingObject {
	return &TrackingObject{
		ID:       id,
		Source:   source,
		Datetime: f.Timestamp.UTC().Format(time.RFC3339),
		Lat:      f.Latitude,
		Lon:      f.Longitude,
		Alt:      f.Altitude,
		Spd:      f.Speed,
		Crs:      f.Heading,
		HDOP:     f.HDOP,
		Sats:     f.Satellites,
		Pressure: f.Pressure,
		Temp:     f.Temperature,
		Battery:  f.Battery,
		MOMSN:    f.Sequence,
		MTQ:      f.QueueDepth,
		Relay:    f.Relay,
		Fix:      CalcFix(f.Satellites, f.Latitude, f.Longitude),
	}
}

// ToPayload aplana el objeto para google.protobuf.Struct.
func ToPayload(tr *TrackingObject) map[string]any {
	m := map[string]any{
		"id":       tr.ID,
		"source":   tr.Source,
		"dt":       tr.Datetime,
		"lat":      tr.Lat,
		"lon":      tr.Lon,
		"alt":      tr.Alt,
		"spd":      tr.Spd,
		"crs":      tr.Crs,
		"hdop":     tr.HDOP,
		"sats":     tr.Sats,
		"pressure": tr.Pressure,
		"temp":     tr.Temp,
		"battery":  tr.Battery,
		"momsn":    tr.MOMSN,
		"mtq":      tr.MTQ,
		"fix":      tr.Fix,
	}
	if tr.Relay != "" {
		m["relay"] = tr.Relay
	}
	return m
}
