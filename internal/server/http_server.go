package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"beacon-base/internal/codec"
	"beacon-base/internal/observability"
	"beacon-base/internal/pipeline"
	"beacon-base/internal/staticmap"
	"beacon-base/internal/store"
	"beacon-base/internal/tracking"

	"github.com/gin-gonic/gin"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Engine es lo que la vista necesita del pipeline; *pipeline.Engine lo implementa.
type Engine interface {
	Snapshot() *pipeline.AppState
	ZoomIn(ctx context.Context) error
	ZoomOut(ctx context.Context) error
	Pan(ctx context.Context, x, y float64) error
	Flush(ctx context.Context) error
	Locate(x, y float64) (lat, lon float64, link string, err error)
	LatestFix(ctx context.Context, id string) (codec.Fix, error)
}

// actionTimeout acota la espera de una acción; un flush puede tardar un ciclo Iridium.
const actionTimeout = 90 * time.Second

func NewRouter(eng Engine, log *slog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), requestLog(log.With("component", "http")))

	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/metrics", gin.WrapH(observability.MetricsHandler()))

	r.GET("/api/state", func(c *gin.Context) {
		c.JSON(http.StatusOK, eng.Snapshot())
	})
	r.GET("/api/tracks.geojson", func(c *gin.Context) {
		c.JSON(http.StatusOK, TracksGeoJSON(eng.Snapshot()))
	})
	r.GET("/api/tracks/:id/latest", func(c *gin.Context) {
		fix, err := eng.LatestFix(c.Request.Context(), c.Param("id"))
		switch {
		case errors.Is(err, store.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case err != nil:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusOK, fix)
		}
	})
	r.GET("/map.png", func(c *gin.Context) {
		st := eng.Snapshot()
		if len(st.Image) == 0 {
			c.Status(http.StatusNoContent)
			return
		}
		c.Header("Cache-Control", "no-store")
		c.Header("X-Map-Source", string(st.MapSource))
		c.Data(http.StatusOK, "image/png", st.Image)
	})

	r.POST("/api/zoom/in", action(eng, func(ctx context.Context, _ *gin.Context) error { return eng.ZoomIn(ctx) }))
	r.POST("/api/zoom/out", action(eng, func(ctx context.Context, _ *gin.Context) error { return eng.ZoomOut(ctx) }))
	r.POST("/api/flush", action(eng, func(ctx context.Context, _ *gin.Context) error { return eng.Flush(ctx) }))
	r.POST("/api/pan", action(eng, func(ctx context.Context, c *gin.Context) error {
		x, y, err := pixel(c)
		if err != nil {
			return err
		}
		return eng.Pan(ctx, x, y)
	}))

	r.GET("/api/locate", func(c *gin.Context) {
		x, y, err := pixel(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		lat, lon, link, err := eng.Locate(x, y)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"lat": lat, "lon": lon, "link": link})
	})
	return r
}

/* =======================================================================
                               HELPERS
======================================================================= */

var errBadPixel = errors.New("x and y must be numbers")

type badRequest struct{ error }

func pixel(c *gin.Context) (x, y float64, err error) {
	x, errX := strconv.ParseFloat(c.Query("x"), 64)
	y, errY := strconv.ParseFloat(c.Query("y"), 64)
	if errX != nil || errY != nil {
		return 0, 0, badRequest{errBadPixel}
	}
	return x, y, nil
}

func action(eng Engine, fn func(ctx context.Context, c *gin.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), actionTimeout)
		defer cancel()
		if err := fn(ctx, c); err != nil {
			status := http.StatusUnprocessableEntity
			var br badRequest
			switch {
			case errors.As(err, &br):
				status = http.StatusBadRequest
			case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
				status = http.StatusServiceUnavailable
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, eng.Snapshot())
	}
}

func requestLog(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"took", time.Since(start),
		)
	}
}

// TracksGeoJSON exporta cada track como LineString (si tiene recorrido) más un Point
// con su último fix, y la base como Point blanco.
func TracksGeoJSON(st *pipeline.AppState) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	if st.Base != nil {
		f := geojson.NewFeature(orb.Point{st.Base.Longitude, st.Base.Latitude})
		f.Properties["id"] = "base"
		f.Properties["color"] = string(staticmap.BaseColor)
		f.Properties["timestamp"] = st.Base.Timestamp
		fc.Append(f)
	}
	for _, t := range st.Tracks {
		fc.Append(latestFeature(t))
		if len(t.Path) >= 2 {
			f := geojson.NewFeature(t.Path)
			f.Properties["id"] = t.ID
			f.Properties["color"] = string(t.Color)
			f.Properties["fixes"] = t.Fixes
			fc.Append(f)
		}
	}
	return fc
}

func latestFeature(t tracking.Track) *geojson.Feature {
	f := geojson.NewFeature(orb.Point{t.Latest.Longitude, t.Latest.Latitude})
	f.Properties["id"] = t.ID
	f.Properties["color"] = string(t.Color)
	f.Properties["timestamp"] = t.Latest.Timestamp
	f.Properties["altitude"] = t.Latest.Altitude
	f.Properties["battery"] = t.Latest.Battery
	f.Properties["sequence"] = t.Latest.Sequence
	return f
}
