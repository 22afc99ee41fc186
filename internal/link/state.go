package link

// SessionState es la fase de la última petición serie.
type SessionState int

const (
	StateIdle          SessionState = iota
	StateAwaitingReply              // comando escrito, leyendo
	StateReplyOK                    // llegó respuesta
	StateReplyError                 // fallo de E/S en el puerto
	StateTimeout                    // se agotaron los intentos sin datos
)

func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingReply:
		return "awaiting_reply"
	case StateReplyOK:
		return "reply_ok"
	case StateReplyError:
		return "reply_error"
	case StateTimeout:
		return "timeout"
	}
	return "unknown"
}
