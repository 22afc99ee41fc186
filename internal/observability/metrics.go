package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Cycles = promauto.NewCounter(prometheus.CounterOpts{
		Name: "beacon_update_cycles_total",
		Help: "Total de ciclos de actualización ejecutados",
	})
	SerialReplies = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "beacon_serial_replies_total",
		Help: "Respuestas serie por comando y tipo",
	}, []string{"cmd", "kind"})
	SerialTimeouts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "beacon_serial_timeouts_total",
		Help: "Comandos sin respuesta antes del timeout",
	}, []string{"cmd"})
	ParseErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "beacon_parse_errors_total",
		Help: "Líneas de telemetría rechazadas",
	})
	FixesIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "beacon_fixes_ingested_total",
		Help: "Fixes aceptados por origen (serial, inbox)",
	}, []string{"source"})
	CapacityDrops = promauto.NewCounter(prometheus.CounterOpts{
		Name: "beacon_capacity_drops_total",
		Help: "Fixes descartados por superar el máximo de balizas",
	})
	PathEvictions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "beacon_path_evictions_total",
		Help: "Waypoints eliminados para respetar el largo de URL",
	})
	MapFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "beacon_map_fetches_total",
		Help: "Imágenes de mapa servidas por origen (live, cached, blank)",
	}, []string{"source"})
	ForwardErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "beacon_forward_errors_total",
		Help: "Errores al reenviar fixes por gRPC",
	})
	StoreErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "beacon_store_errors_total",
		Help: "Errores al escribir en el store",
	})
	CycleLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "beacon_cycle_latency_seconds",
		Help:    "Duración de un ciclo completo",
		Buckets: []float64{0.5, 1, 5, 15, 35, 65, 100, 150},
	})
)

func ObserveCycleLatency(start time.Time) {
	CycleLatency.Observe(time.Since(start).Seconds())
}

// MetricsHandler expone el registro por defecto.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
