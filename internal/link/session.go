package link

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// ErrTimeout: pasó el timeout sin recibir ni un byte.
var ErrTimeout = errors.New("link: no reply before timeout")

const (
	readChunk  = 200
	terminator = "\r\n"
)

// Result es lo que devolvió la base para un comando.
type Result struct {
	Data     string
	Partial  bool // llegaron datos pero no el "\r\n"
	Attempts int
}

// Session serializa peticiones comando/respuesta sobre un Port.
type Session struct {
	mu          sync.Mutex
	port        Port
	readTimeout time.Duration
	state       SessionState
	log         *slog.Logger
}

// NewSession envuelve port. readTimeout debe ser el timeout de lectura con el que se abrió.
func NewSession(port Port, readTimeout time.Duration, log *slog.Logger) *Session {
	if readTimeout <= 0 {
		readTimeout = DefaultReadTimeout
	}
	return &Session{port: port, readTimeout: readTimeout, log: log.With("component", "link")}
}

// State devuelve la fase de la última petición.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) setState(st SessionState) {
	s.state = st
}

// Request vacía la entrada, escribe cmd y lee hasta timeout/readTimeout intentos de 200 bytes.
// El timeout se cuenta en intentos de lectura, no en reloj de pared. Sin reintentos.
func (s *Session) Request(cmd string, timeout time.Duration) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	attempts := int(timeout / s.readTimeout)
	if attempts < 1 {
		attempts = 1
	}

	if err := s.port.Flush(); err != nil {
		s.setState(StateReplyError)
		return Result{}, fmt.Errorf("flush input: %w", err)
	}
	if _, err := s.port.Write([]byte(cmd)); err != nil {
		s.setState(StateReplyError)
		return Result{}, fmt.Errorf("write %q: %w", cmd, err)
	}
	s.setState(StateAwaitingReply)

	var (
		sb  strings.Builder
		buf = make([]byte, readChunk)
		res Result
	)
	for res.Attempts < attempts {
		res.Attempts++
		n, err := s.port.Read(buf)
		if n > 0 {
			sb.Write(buf[:n])
		}
		if err != nil && !errors.Is(err, io.EOF) {
			s.setState(StateReplyError)
			return Result{Data: sb.String(), Partial: sb.Len() > 0, Attempts: res.Attempts}, fmt.Errorf("read reply: %w", err)
		}
		if sb.Len() > 0 && strings.Contains(sb.String(), terminator) {
			break
		}
	}

	res.Data = sb.String()
	if res.Data == "" {
		s.setState(StateTimeout)
		s.log.Debug("serial timeout", "cmd", strings.TrimSpace(cmd), "attempts", res.Attempts)
		return Result{Attempts: res.Attempts}, ErrTimeout
	}
	res.Partial = !strings.Contains(res.Data, terminator)
	if res.Partial {
		s.log.Warn("serial reply without terminator", "cmd", strings.TrimSpace(cmd), "bytes", len(res.Data))
	}
	s.setState(StateReplyOK)
	return res, nil
}

// Close cierra el puerto.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setState(StateIdle)
	return s.port.Close()
}
