package utilities

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ConsoleLogName devuelve Base_Console_Log_<YYYYMMDD>_<HHMMSS>.txt para t.
func ConsoleLogName(t time.Time) string {
	return "Base_Console_Log_" + t.Format("20060102") + "_" + t.Format("150405") + ".txt"
}

// OpenConsoleLog crea el fichero de consola de esta sesión en dir.
func OpenConsoleLog(dir string, now time.Time) (*os.File, error) {
	if err := ensureDir(dir); err != nil {
		return nil, err
	}
	name := filepath.Join(dir, ConsoleLogName(now))
	f, err := os.OpenFile(name, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open console log: %w", err)
	}
	return f, nil
}

// Crear carpeta si no existe
func ensureDir(dir string) error {
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create log dir %s: %w", dir, err)
	}
	return nil
}
