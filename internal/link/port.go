package link

import (
	"fmt"
	"time"

	"github.com/tarm/serial"
)

// Port es lo mínimo que la sesión necesita del puerto serie.
type Port interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Flush() error
	Close() error
}

const (
	DefaultBaud        = 115200
	DefaultReadTimeout = 250 * time.Millisecond
)

// PortConfig describe el puerto de la base.
type PortConfig struct {
	Name        string
	Baud        int
	ReadTimeout time.Duration
}

// OpenSerial abre el puerto real (8N1).
func OpenSerial(cfg PortConfig) (Port, error) {
	if cfg.Baud == 0 {
		cfg.Baud = DefaultBaud
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}
	p, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Name,
		Baud:        cfg.Baud,
		ReadTimeout: cfg.ReadTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", cfg.Name, err)
	}
	return p, nil
}
