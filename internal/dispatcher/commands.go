package dispatcher

import (
	"time"

	"beacon-base/internal/codec"
)

/* =======================================================================
                        COMMAND DEFINITION
======================================================================= */

// Command es una opción del menú serie de la base.
type Command struct {
	Name             string
	Build            func() []byte
	Timeout          time.Duration
	MinFields        int
	Handler          func(r codec.Reply) Outcome
	MinRetryInterval time.Duration
}

// Outcome es lo que un handler extrae de la respuesta.
type Outcome struct {
	Command string
	Reply   codec.Reply
	Fix     *codec.Fix
	Queue   int
	HasMTQ  bool
	Status  string
	Err     error
}

const (
	CmdBase   = "base"
	CmdBeacon = "beacon"
	CmdFlush  = "flush"

	GNSSTimeout    = 35 * time.Second
	IridiumTimeout = 65 * time.Second
)

// menu devuelve el byte de opción seguido de CR.
func menu(choice byte) func() []byte {
	return func() []byte { return []byte{choice, '\r'} }
}

// DefaultCommands son los tres comandos del firmware de la base.
func DefaultCommands() []Command {
	return []Command{
		{
			Name:      CmdBase,
			Build:     menu('2'),
			Timeout:   GNSSTimeout,
			MinFields: codec.MinBaseFields,
			Handler:   HandleBaseReply,
		},
		{
			Name:      CmdBeacon,
			Build:     menu('4'),
			Timeout:   IridiumTimeout,
			MinFields: codec.MinBeaconFields,
			Handler:   HandleBeaconReply,
		},
		{
			Name:             CmdFlush,
			Build:            menu('5'),
			Timeout:          IridiumTimeout,
			MinFields:        codec.MinBeaconFields,
			Handler:          HandleFlushReply,
			MinRetryInterval: 10 * time.Second,
		},
	}
}

/* =======================================================================
                           REPLY HANDLERS
======================================================================= */

const (
	msgNoData    = "No serial data received!"
	msgError     = "ERROR received!"
	msgParseFail = "Serial parse failed!"
)

func common(r codec.Reply) (Outcome, bool) {
	out := Outcome{Reply: r}
	switch r.Kind {
	case codec.ReplyEmpty:
		out.Status = msgNoData
		return out, true
	case codec.ReplyError:
		out.Status = msgError
		return out, true
	case codec.ReplyMalformed:
		out.Status = msgParseFail
		out.Err = r.Err
		return out, true
	}
	return out, false
}

// HandleBaseReply: la base contesta con su posición GNSS o con ERROR.
func HandleBaseReply(r codec.Reply) Outcome {
	out, done := common(r)
	if done {
		return out
	}
	if r.Kind == codec.ReplyData {
		fix := r.Fix
		out.Fix = &fix
		out.Status = "Base location received"
		return out
	}
	out.Status = msgParseFail
	return out
}

// HandleBeaconReply: un mensaje de baliza (con MTQ), sólo el MTQ, ERROR o el eco de FLUSH_MT.
func HandleBeaconReply(r codec.Reply) Outcome {
	out, done := common(r)
	if done {
		return out
	}
	out.Queue, out.HasMTQ = r.QueueDepth, r.HasQueue
	switch r.Kind {
	case codec.ReplyData:
		fix := r.Fix
		out.Fix = &fix
		out.Status = "Beacon data received"
	case codec.ReplyQueueDepth:
		out.Status = "No beacon data - only MTQ received"
	case codec.ReplyFlush:
		out.Status = "FLUSH_MT and MTQ received"
	}
	return out
}

// HandleFlushReply: FLUSH_MT devuelve sólo el MTQ o un ERROR.
func HandleFlushReply(r codec.Reply) Outcome {
	out, done := common(r)
	if done {
		return out
	}
	switch r.Kind {
	case codec.ReplyQueueDepth, codec.ReplyFlush:
		out.Queue, out.HasMTQ = r.QueueDepth, r.HasQueue
		out.Status = "Request sent"
	default:
		out.Status = msgParseFail
	}
	return out
}
