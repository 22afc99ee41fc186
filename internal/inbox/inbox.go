package inbox

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"beacon-base/internal/codec"
)

// nombre de adjunto RockBLOCK: <imei de 15 dígitos>-<momsn>.bin
var reBin = regexp.MustCompile(`^([0-9]{15})-([0-9]+)\.bin$`)

// Message es un .bin nuevo ya parseado.
type Message struct {
	IMEI  string
	MOMSN int
	Path  string
	Raw   string // línea tal como llegó, sin espacios finales
	Fix   codec.Fix
}

// Scanner encuentra adjuntos .bin nuevos bajo dir. No es seguro para uso concurrente.
type Scanner struct {
	dir  string
	seen map[string]bool

	pending map[string]int // tamaño del último intento fallido
	log     *slog.Logger
}

// NewScanner prepara el escaneo de dir. Con ignoreExisting los ficheros presentes
// al arrancar se marcan como vistos.
func NewScanner(dir string, ignoreExisting bool, lg *slog.Logger) (*Scanner, error) {
	s := &Scanner{dir: dir, seen: make(map[string]bool), pending: make(map[string]int), log: lg.With("component", "inbox")}
	if !ignoreExisting {
		return s, nil
	}
	files, err := s.list()
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		s.seen[f.path] = true
	}
	s.log.Info("ignoring existing bin files", "count", len(files))
	return s, nil
}

type binFile struct {
	path  string
	imei  string
	momsn int
}

func (s *Scanner) list() ([]binFile, error) {
	var out []binFile
	err := filepath.WalkDir(s.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		m := reBin.FindStringSubmatch(d.Name())
		if m == nil {
			return nil
		}
		momsn, err := strconv.Atoi(m[2])
		if err != nil {
			return nil
		}
		out = append(out, binFile{path: path, imei: m[1], momsn: momsn})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan inbox %s: %w", s.dir, err)
	}
	return out, nil
}

// Scan devuelve los mensajes nuevos ordenados por MOMSN. Un fichero inválido se
// registra como visto y no se vuelve a intentar.
func (s *Scanner) Scan() ([]Message, error) {
	files, err := s.list()
	if err != nil {
		return nil, err
	}
	sort.Slice(files, func(i, j int) bool {
		if files[i].momsn != files[j].momsn {
			return files[i].momsn < files[j].momsn
		}
		return files[i].path < files[j].path
	})

	var msgs []Message
	for _, f := range files {
		if s.seen[f.path] {
			continue
		}

		raw, err := os.ReadFile(f.path)
		if err != nil {
			s.log.Warn("read bin failed", "file", f.path, "err", err)
			continue
		}
		// todavía se está escribiendo
		if len(raw) == 0 {
			continue
		}
		line := strings.TrimSpace(string(raw))
		fix, err := codec.ParseLine(line)
		if err != nil {
			// sólo se descarta si el tamaño no cambió desde el último intento
			if prev, ok := s.pending[f.path]; !ok || prev != len(raw) {
				s.pending[f.path] = len(raw)
				continue
			}
			delete(s.pending, f.path)
			s.seen[f.path] = true
			s.log.Warn("ignoring bin file", "file", filepath.Base(f.path), "err", err)
			continue
		}
		delete(s.pending, f.path)
		s.seen[f.path] = true
		s.log.Info("new SBD file", "imei", f.imei, "momsn", f.momsn)
		msgs = append(msgs, Message{IMEI: f.imei, MOMSN: f.momsn, Path: f.path, Raw: line, Fix: fix})
	}
	return msgs, nil
}
