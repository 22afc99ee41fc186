package dispatcher

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"beacon-base/internal/codec"
	"beacon-base/internal/link"
)

var (
	ErrUnknownCommand = errors.New("dispatcher: unknown command")
	ErrTooSoon        = errors.New("dispatcher: retry interval not elapsed")
)

// Requester es la sesión serie; link.Session lo implementa.
type Requester interface {
	Request(cmd string, timeout time.Duration) (link.Result, error)
}

type perCmdState struct {
	Count       int
	LastAttempt time.Time
}

// Dispatcher envía comandos de menú y enruta la respuesta a su handler.
type Dispatcher struct {
	session Requester
	log     *slog.Logger
	now     func() time.Time

	mu       sync.RWMutex
	registry map[string]Command
	state    map[string]*perCmdState
}

func New(session Requester, lg *slog.Logger) *Dispatcher {
	d := &Dispatcher{
		session:  session,
		log:      lg.With("component", "dispatcher"),
		now:      time.Now,
		registry: map[string]Command{},
		state:    map[string]*perCmdState{},
	}
	for _, c := range DefaultCommands() {
		d.RegisterCommand(c)
	}
	return d
}

func (d *Dispatcher) RegisterCommand(c Command) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.registry[c.Name] = c
}

func (d *Dispatcher) getCmd(name string) (Command, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	c, ok := d.registry[name]
	return c, ok
}

/* =======================================================================
                                 RUN
======================================================================= */

// Run envía el comando name y devuelve lo que extrajo su handler. Un timeout del
// puerto no es error: se trata como respuesta vacía.
func (d *Dispatcher) Run(name string) (Outcome, error) {
	cmd, ok := d.getCmd(name)
	if !ok {
		return Outcome{}, fmt.Errorf("run %q: %w", name, ErrUnknownCommand)
	}

	d.mu.Lock()
	st, ok := d.state[name]
	if !ok {
		st = &perCmdState{}
		d.state[name] = st
	}
	now := d.now()
	if cmd.MinRetryInterval > 0 && !st.LastAttempt.IsZero() && now.Sub(st.LastAttempt) < cmd.MinRetryInterval {
		d.mu.Unlock()
		return Outcome{Command: name}, fmt.Errorf("run %q: %w", name, ErrTooSoon)
	}
	st.Count++
	st.LastAttempt = now
	count := st.Count
	d.mu.Unlock()

	d.log.Info("command sent", "cmd", name, "timeout", cmd.Timeout, "count", count)

	res, err := d.session.Request(string(cmd.Build()), cmd.Timeout)
	if err != nil && !errors.Is(err, link.ErrTimeout) {
		d.log.Error("command failed", "cmd", name, "err", err)
		return Outcome{Command: name}, fmt.Errorf("run %q: %w", name, err)
	}

	reply := codec.Classify(res.Data, cmd.MinFields)
	out := cmd.Handler(reply)
	out.Command = name

	d.log.Info("command reply",
		"cmd", name,
		"kind", reply.Kind.String(),
		"partial", res.Partial,
		"status", out.Status,
	)
	return out, nil
}
