package observability

import (
	"io"
	"log/slog"
	"os"
)

// NewLogger devuelve el logger JSON del proceso. Los extras (p.ej. el fichero de
// consola de la sesión) reciben las mismas líneas que stdout.
func NewLogger(extra ...io.Writer) *slog.Logger {
	return NewLoggerLevel(slog.LevelInfo, extra...)
}

func NewLoggerLevel(level slog.Leveler, extra ...io.Writer) *slog.Logger {
	var w io.Writer = os.Stdout
	if len(extra) > 0 {
		w = io.MultiWriter(append([]io.Writer{os.Stdout}, extra...)...)
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// ParseLevel acepta debug, info, warn o error; cualquier otra cosa es info.
func ParseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return l
}
