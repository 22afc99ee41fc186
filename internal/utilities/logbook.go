package utilities

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"beacon-base/internal/codec"
)

// Logbook mantiene un CSV append-only por baliza.
type Logbook struct {
	dir string

	mu    sync.Mutex
	files map[string]string
}

func NewLogbook(dir string) *Logbook {
	return &Logbook{dir: dir, files: make(map[string]string)}
}

// BeaconLogName: Beacon_Log_<fecha del primer fix>_<id>.csv
func BeaconLogName(id string, first codec.Fix) string {
	return "Beacon_Log_" + first.Timestamp.UTC().Format(codec.DateTimeLayout) + "_" + safeName(id) + ".csv"
}

// Append escribe en el log de id la línea tal como llegó (raw); si raw está vacía se
// usa Format(fix). El primer fix de un id crea (trunca) el fichero.
func (l *Logbook) Append(id string, fix codec.Fix, raw string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	name, ok := l.files[id]
	flags := os.O_APPEND | os.O_WRONLY
	if !ok {
		if err := ensureDir(l.dir); err != nil {
			return "", err
		}
		name = filepath.Join(l.dir, BeaconLogName(id, fix))
		flags = os.O_CREATE | os.O_TRUNC | os.O_WRONLY
	}

	f, err := os.OpenFile(name, flags, 0644)
	if err != nil {
		return "", fmt.Errorf("open beacon log %s: %w", name, err)
	}
	defer f.Close()

	line := strings.TrimRight(raw, "\r\n")
	if line == "" {
		line = codec.Format(fix)
	}
	if _, err := f.WriteString(line + "\r\n"); err != nil {
		return name, fmt.Errorf("write beacon log %s: %w", name, err)
	}
	l.files[id] = name
	return name, nil
}

func safeName(id string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ':
			return '_'
		}
		return r
	}, id)
}
