package pipeline

import (
	"context"
	"fmt"
	"time"

	"beacon-base/internal/dispatcher"
	"beacon-base/internal/geo"
	"beacon-base/internal/staticmap"
)

// TickInterval es la resolución del temporizador de control.
const TickInterval = 250 * time.Millisecond

type actionKind int

const (
	actZoomIn actionKind = iota
	actZoomOut
	actPan
	actFlush
)

type action struct {
	kind  actionKind
	x, y  float64
	reply chan error
}

/* =======================================================================
                          GOROUTINE DE CONTROL
======================================================================= */

// Run atiende el temporizador, las acciones de usuario y los avisos del inbox hasta
// que ctx se cancela. Un ciclo en curso siempre termina antes de salir.
func (e *Engine) Run(ctx context.Context, inboxNotify <-chan struct{}) {
	ticker := time.NewTicker(TickInterval)
	defer ticker.Stop()

	work := context.WithoutCancel(ctx)
	for {
		select {
		case <-ctx.Done():
			e.log.Info("engine stopped")
			return
		case <-ticker.C:
			if e.sched.Tick(e.opts.Now()) {
				e.Cycle(work)
			}
		case a := <-e.actions:
			a.reply <- e.apply(work, a)
		case _, ok := <-inboxNotify:
			if !ok {
				inboxNotify = nil
				continue
			}
			e.InboxCycle(work)
		}
	}
}

func (e *Engine) submit(ctx context.Context, a action) error {
	a.reply = make(chan error, 1)
	select {
	case e.actions <- a:
	case <-ctx.Done():
		return fmt.Errorf("submit action: %w", ctx.Err())
	}
	select {
	case err := <-a.reply:
		return err
	case <-ctx.Done():
		return fmt.Errorf("await action: %w", ctx.Err())
	}
}

func (e *Engine) ZoomIn(ctx context.Context) error  { return e.submit(ctx, action{kind: actZoomIn}) }
func (e *Engine) ZoomOut(ctx context.Context) error { return e.submit(ctx, action{kind: actZoomOut}) }

// Pan centra el mapa en el píxel (x,y) de la imagen mostrada.
func (e *Engine) Pan(ctx context.Context, x, y float64) error {
	return e.submit(ctx, action{kind: actPan, x: x, y: y})
}

// Flush pide a la base vaciar la cola MT de la RockBLOCK.
func (e *Engine) Flush(ctx context.Context) error {
	return e.submit(ctx, action{kind: actFlush})
}

func (e *Engine) apply(ctx context.Context, a action) error {
	switch a.kind {
	case actZoomIn:
		e.status("Zooming in")
		if e.view.Zoom >= geo.MaxZoom {
			return nil
		}
		e.view.Zoom++
	case actZoomOut:
		e.status("Zooming out")
		if e.view.Zoom <= geo.MinZoom {
			return nil
		}
		e.view.Zoom--
	case actPan:
		e.status("Moving map")
		lat, lon, err := e.view.PixelToLocation(a.x, a.y, e.opts.Map)
		if err != nil {
			return err
		}
		e.view.CenterLat, e.view.CenterLon = lat, lon
	case actFlush:
		e.status("Requesting FLUSH_MT")
		out, ok := e.run(dispatcher.CmdFlush)
		if ok && out.HasMTQ {
			e.setMTQ(out.Queue)
		}
		e.publish()
		return nil
	}
	e.redraw(ctx)
	return nil
}

// redraw vuelve a pedir la imagen tras un cambio de vista; no reenvía nada.
func (e *Engine) redraw(ctx context.Context) {
	req := e.request()
	e.applyImage(req, e.deps.Renderer.Render(ctx, req))
	e.publish()
}

// Locate convierte un píxel de la imagen en posición y enlace para compartir.
// Es de sólo lectura: usa el último snapshot.
func (e *Engine) Locate(x, y float64) (lat, lon float64, link string, err error) {
	st := e.Snapshot()
	lat, lon, err = st.View.PixelToLocation(x, y, e.opts.Map)
	if err != nil {
		return 0, 0, "", err
	}
	return lat, lon, staticmap.ShareLink(lat, lon), nil
}
