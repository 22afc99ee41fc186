package codec

import (
	"strconv"
	"strings"
)

// ReplyKind clasifica lo que devolvió la base tras un comando de menú.
type ReplyKind int

const (
	ReplyEmpty      ReplyKind = iota // no llegó nada
	ReplyError                       // "ERROR..."
	ReplyFlush                       // eco "FLUSH_MT[,mtq]"
	ReplyData                        // línea de telemetría válida
	ReplyQueueDepth                  // sólo un entero: el MTQ
	ReplyMalformed                   // algo no vacío que no se pudo parsear
)

func (k ReplyKind) String() string {
	switch k {
	case ReplyEmpty:
		return "empty"
	case ReplyError:
		return "error"
	case ReplyFlush:
		return "flush"
	case ReplyData:
		return "data"
	case ReplyQueueDepth:
		return "queue_depth"
	case ReplyMalformed:
		return "malformed"
	}
	return "unknown"
}

const (
	errorMarker = "ERROR"
	flushMarker = "FLUSH"
)

// Reply es el resultado tipado de clasificar una respuesta serie.
type Reply struct {
	Kind       ReplyKind
	Raw        string
	Fix        Fix
	QueueDepth int
	HasQueue   bool
	Err        error
}

// Classify interpreta una respuesta cruda. minFields es MinBaseFields o MinBeaconFields
// según el comando que la originó.
func Classify(raw string, minFields int) Reply {
	line := strings.TrimRight(raw, "\r\n")
	r := Reply{Raw: line}

	switch {
	case strings.TrimSpace(line) == "":
		r.Kind = ReplyEmpty
		return r
	case strings.HasPrefix(line, errorMarker):
		r.Kind = ReplyError
		return r
	case strings.HasPrefix(line, flushMarker):
		r.Kind = ReplyFlush
		if parts := strings.Split(line, ","); len(parts) >= 2 {
			if n, err := strconv.Atoi(strings.TrimSpace(parts[1])); err == nil {
				r.QueueDepth, r.HasQueue = n, true
			}
		}
		return r
	}

	if n, err := strconv.Atoi(strings.TrimSpace(line)); err == nil {
		r.Kind = ReplyQueueDepth
		r.QueueDepth, r.HasQueue = n, true
		return r
	}

	fix, err := parseFields(line, minFields)
	if err != nil {
		r.Kind = ReplyMalformed
		r.Err = err
		return r
	}
	r.Kind = ReplyData
	r.Fix = fix
	if fix.HasStation() {
		r.QueueDepth, r.HasQueue = fix.QueueDepth, true
	}
	return r
}
