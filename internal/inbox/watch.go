package inbox

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Watch avisa por el canal devuelto cada vez que se escribe un .bin en dir; un Create
// sin datos todavía no avisa.
// Los avisos se colapsan: si nadie lee, no se acumulan. El canal se cierra con ctx.
func Watch(ctx context.Context, dir string, lg *slog.Logger) (<-chan struct{}, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("inbox watcher: %w", err)
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	notify := make(chan struct{}, 1)
	go func() {
		defer close(notify)
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if !strings.HasSuffix(ev.Name, ".bin") || !ev.Has(fsnotify.Write) {
					continue
				}
				select {
				case notify <- struct{}{}:
				default:
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				lg.Warn("inbox watcher error", "component", "inbox", "err", err)
			}
		}
	}()
	return notify, nil
}
