package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"beacon-base/internal/codec"
	"beacon-base/internal/dispatcher"
	"beacon-base/internal/geo"
	"beacon-base/internal/inbox"
	"beacon-base/internal/observability"
	"beacon-base/internal/staticmap"
	"beacon-base/internal/store"
	"beacon-base/internal/tracking"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/pool"
)

// defaultTrackID se usa cuando la línea de la baliza no trae número de serie.
const defaultTrackID = "beacon"

/* =======================================================================
                            COLABORADORES
======================================================================= */

// Runner envía comandos a la base; dispatcher.Dispatcher lo implementa.
type Runner interface {
	Run(name string) (dispatcher.Outcome, error)
}

// Renderer descarga la imagen del mapa; staticmap.Renderer lo implementa.
type Renderer interface {
	Render(ctx context.Context, req staticmap.Request) staticmap.Result
}

// Forwarder reenvía fixes; grpcclient.GRPCClient lo implementa.
type Forwarder interface {
	SendData(ctx context.Context, deviceID string, payload map[string]any) error
}

// Logbook escribe el CSV de cada track; utilities.Logbook lo implementa.
type Logbook interface {
	Append(id string, fix codec.Fix, raw string) (string, error)
}

// Inbox entrega adjuntos .bin nuevos; inbox.Scanner lo implementa.
type Inbox interface {
	Scan() ([]inbox.Message, error)
}

type Deps struct {
	Runner    Runner
	Renderer  Renderer
	Store     store.Store
	Logbook   Logbook
	Inbox     Inbox     // opcional
	Forwarder Forwarder // opcional
	Logger    *slog.Logger
}

type Options struct {
	Interval     time.Duration
	Map          staticmap.Options
	ConsoleLines int
	Now          func() time.Time
}

/* =======================================================================
                                ENGINE
======================================================================= */

type freshFix struct {
	id  string
	fix codec.Fix
	obj *TrackingObject
}

// Engine es el estado de la aplicación. Todo lo que muta corre en la goroutine de
// control (Run); los lectores usan Snapshot.
type Engine struct {
	deps Deps
	opts Options
	log  *slog.Logger

	tracker *tracking.Tracker
	sched   *Scheduler
	console *Console

	view      staticmap.View
	centered  bool
	base      *codec.Fix
	mtq       int
	hasMTQ    bool
	lastID    string
	image     []byte
	imageSrc  staticmap.Source
	urlLength int
	cycleID   string

	// acumulado del ciclo en curso
	fresh  []freshFix
	dirty  bool
	doZoom bool

	snap    atomic.Pointer[AppState]
	actions chan action
}

func NewEngine(deps Deps, opts Options) *Engine {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.ConsoleLines == 0 {
		opts.ConsoleLines = 20
	}
	if opts.Map == (staticmap.Options{}) {
		opts.Map = staticmap.DefaultOptions()
	}
	e := &Engine{
		deps:    deps,
		opts:    opts,
		log:     deps.Logger.With("component", "pipeline"),
		tracker: tracking.NewTracker(),
		sched:   NewScheduler(opts.Interval, opts.Now()),
		console: NewConsole(opts.ConsoleLines),
		view:    staticmap.DefaultView(),
		actions: make(chan action),
	}
	e.publish()
	return e
}

// Snapshot devuelve la última foto publicada. Nunca es nil.
func (e *Engine) Snapshot() *AppState {
	return e.snap.Load()
}

// LatestFix lee del store el último fix persistido de un emisor. Sobrevive a
// reinicios cuando el store es Redis; devuelve store.ErrNotFound si no hay ninguno.
func (e *Engine) LatestFix(ctx context.Context, id string) (codec.Fix, error) {
	return e.deps.Store.LatestFix(ctx, id)
}

func (e *Engine) status(msg string, args ...any) {
	e.console.Add(msg)
	e.log.Info(msg, append([]any{"cycle", e.cycleID}, args...)...)
}

/* =======================================================================
                                 CICLO
======================================================================= */

// Cycle ejecuta una actualización completa: base, baliza, inbox, distancia/rumbo,
// zoom, mapa + reenvío en paralelo y publicación.
func (e *Engine) Cycle(ctx context.Context) {
	start := e.opts.Now()
	e.cycleID = uuid.NewString()
	e.fresh = nil
	e.dirty = false
	e.doZoom = false
	observability.Cycles.Inc()
	defer observability.ObserveCycleLatency(start)

	e.status("Starting update")
	e.queryBase()
	e.queryBeacon()
	e.scanInbox()
	e.finishCycle(ctx)
}

// InboxCycle procesa sólo el inbox (aviso del watcher), sin hablar con la base.
func (e *Engine) InboxCycle(ctx context.Context) {
	e.cycleID = uuid.NewString()
	e.fresh = nil
	e.dirty = false
	e.doZoom = false
	e.scanInbox()
	if !e.dirty {
		return
	}
	e.finishCycle(ctx)
}

func (e *Engine) finishCycle(ctx context.Context) {
	if e.doZoom {
		e.updateZoom()
	}
	if e.dirty {
		e.renderAndForward(ctx)
	}
	e.publish()
}

func (e *Engine) run(cmd string) (dispatcher.Outcome, bool) {
	out, err := e.deps.Runner.Run(cmd)
	if err != nil {
		if errors.Is(err, dispatcher.ErrTooSoon) {
			e.status("Flush requested too soon")
			return out, false
		}
		e.status("Serial request failed!", "cmd", cmd, "err", err)
		return out, false
	}
	observability.SerialReplies.WithLabelValues(cmd, out.Reply.Kind.String()).Inc()
	switch out.Reply.Kind {
	case codec.ReplyEmpty:
		observability.SerialTimeouts.WithLabelValues(cmd).Inc()
	case codec.ReplyMalformed:
		observability.ParseErrors.Inc()
	}
	e.status(out.Status, "cmd", cmd, "kind", out.Reply.Kind.String())
	return out, true
}

func (e *Engine) queryBase() {
	e.status("Requesting base location (could take " + seconds(dispatcher.GNSSTimeout) + ")")
	out, ok := e.run(dispatcher.CmdBase)
	if !ok || out.Fix == nil {
		return
	}
	first := e.base == nil
	fix := *out.Fix
	e.base = &fix
	if first && !e.centered {
		e.view.CenterLat, e.view.CenterLon = fix.Latitude, fix.Longitude
	}
	e.dirty = true
}

func (e *Engine) queryBeacon() {
	e.status("Requesting beacon data (could take " + seconds(dispatcher.IridiumTimeout) + ")")
	out, ok := e.run(dispatcher.CmdBeacon)
	if !ok {
		return
	}
	if out.HasMTQ {
		e.setMTQ(out.Queue)
	}
	if out.Fix == nil {
		return
	}
	id := out.Fix.StationID
	if id == "" {
		e.log.Warn("beacon reply without serial number", "cycle", e.cycleID, "track", defaultTrackID)
		id = defaultTrackID
	}
	e.ingest(id, *out.Fix, out.Reply.Raw, SourceSerial)
}

func (e *Engine) scanInbox() {
	if e.deps.Inbox == nil {
		return
	}
	msgs, err := e.deps.Inbox.Scan()
	if err != nil {
		e.log.Warn("inbox scan failed", "cycle", e.cycleID, "err", err)
		return
	}
	for _, m := range msgs {
		e.ingest(m.IMEI, m.Fix, m.Raw, SourceInbox)
	}
}

func (e *Engine) setMTQ(mtq int) {
	e.mtq, e.hasMTQ = mtq, true
	e.sched.SetQueueDepth(mtq)
}

func (e *Engine) ingest(id string, fix codec.Fix, raw, source string) {
	eff, err := e.tracker.Ingest(id, fix)
	if errors.Is(err, tracking.ErrCapacityExceeded) {
		observability.CapacityDrops.Inc()
		e.status("Beacon limit reached!", "id", id)
		return
	}
	if err != nil {
		e.log.Error("ingest failed", "cycle", e.cycleID, "id", id, "err", err)
		return
	}
	observability.FixesIngested.WithLabelValues(source).Inc()
	if eff.Evicted > 0 {
		observability.PathEvictions.Add(float64(eff.Evicted))
	}
	if eff.NewTrack {
		e.status("New beacon found (" + id + ")")
		e.doZoom = true
	}
	if eff.Recenter {
		e.view.CenterLat, e.view.CenterLon = fix.Latitude, fix.Longitude
		e.centered = true
	}
	if _, err := e.deps.Logbook.Append(id, fix, raw); err != nil {
		e.log.Warn("beacon log write failed", "cycle", e.cycleID, "id", id, "err", err)
	}
	e.lastID = id
	e.fresh = append(e.fresh, freshFix{id: id, fix: fix, obj: BuildTracking(id, source, fix)})
	e.dirty = true
}

/* =======================================================================
                         DISTANCIA, RUMBO Y ZOOM
======================================================================= */

func (e *Engine) beaconFix() (codec.Fix, bool) {
	if e.lastID == "" {
		return codec.Fix{}, false
	}
	t, ok := e.tracker.Get(e.lastID)
	if !ok {
		return codec.Fix{}, false
	}
	return t.Latest, true
}

func (e *Engine) rangeToBeacon() (dist, course float64, ok bool) {
	b, found := e.beaconFix()
	if e.base == nil || !found {
		return 0, 0, false
	}
	dist = geo.Distance(e.base.Latitude, e.base.Longitude, b.Latitude, b.Longitude)
	course = geo.InitialBearing(e.base.Latitude, e.base.Longitude, b.Latitude, b.Longitude)
	return dist, course, true
}

// Sólo aleja: mantiene base y baliza nueva dentro del radio objetivo.
func (e *Engine) updateZoom() {
	b, found := e.beaconFix()
	if e.base == nil || !found {
		return
	}
	sep := geo.AngularSeparation(e.base.Latitude, e.base.Longitude, b.Latitude, b.Longitude)
	z := geo.SelectZoom(sep, e.view.Zoom, e.view.CenterLat)
	if z != e.view.Zoom {
		e.log.Info("zoom adjusted", "cycle", e.cycleID, "from", e.view.Zoom, "to", z, "sep_deg", sep)
		e.view.Zoom = z
	}
}

/* =======================================================================
                           MAPA Y REENVÍO
======================================================================= */

func (e *Engine) request() staticmap.Request {
	return staticmap.Assemble(e.view, e.tracker.Tracks(), e.base, e.opts.Map)
}

func (e *Engine) renderAndForward(ctx context.Context) {
	req := e.request()
	fresh := e.fresh
	e.status("Updating map")

	var res staticmap.Result
	var wg conc.WaitGroup
	wg.Go(func() {
		res = e.deps.Renderer.Render(ctx, req)
	})
	wg.Go(func() {
		e.forward(ctx, fresh)
	})
	wg.Wait()

	e.applyImage(req, res)
}

func (e *Engine) applyImage(req staticmap.Request, res staticmap.Result) {
	observability.MapFetches.WithLabelValues(string(res.Source)).Inc()
	if res.Err != nil {
		e.status("Map image download failed!", "source", string(res.Source))
	}
	e.image = res.Image
	e.imageSrc = res.Source
	e.urlLength = len(req.URL(""))
}

// forward guarda y reenvía los fixes del ciclo. Corre en paralelo con el render:
// sólo toca lo que recibe, nunca el tracker.
func (e *Engine) forward(ctx context.Context, fresh []freshFix) {
	if len(fresh) == 0 {
		return
	}
	cycle := e.cycleID
	p := pool.New().WithErrors().WithContext(ctx).WithMaxGoroutines(4)
	for _, f := range fresh {
		p.Go(func(ctx context.Context) error {
			if err := e.deps.Store.SaveFix(ctx, f.id, f.fix); err != nil {
				observability.StoreErrors.Inc()
				e.log.Warn("store fix failed", "cycle", cycle, "id", f.id, "err", err)
			}
			if e.deps.Forwarder == nil {
				return nil
			}
			if err := e.deps.Forwarder.SendData(ctx, f.id, ToPayload(f.obj)); err != nil {
				observability.ForwardErrors.Inc()
				return err
			}
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		e.log.Warn("forward failed", "cycle", cycle, "err", err)
	}
}

/* =======================================================================
                              PUBLICACIÓN
======================================================================= */

func (e *Engine) publish() {
	st := &AppState{
		CycleID:      e.cycleID,
		View:         e.view,
		Tracks:       e.tracker.Tracks(),
		MTQ:          e.mtq,
		HasMTQ:       e.hasMTQ,
		LastBeacon:   e.lastID,
		Interval:     e.sched.Interval(),
		LastUpdate:   e.sched.Last(),
		NextUpdate:   e.sched.Next(),
		MapSource:    e.imageSrc,
		MapURLLength: e.urlLength,
		Image:        e.image,
		Console:      e.console.Lines(),
	}
	if e.base != nil {
		b := *e.base
		st.Base = &b
	}
	st.DistanceM, st.CourseDeg, st.HasRange = e.rangeToBeacon()
	e.snap.Store(st)
}

func seconds(d time.Duration) string {
	return strconv.Itoa(int(d/time.Second)) + "s"
}
