package listener

import (
	"time"

	"github.com/AndrewLester/truetime/pkg/truetime"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "truetime"

// Metrics exports sync outcomes as prometheus collectors.
type Metrics struct {
	truetime.NoOpEventListener

	now func() time.Time

	syncs           *prometheus.CounterVec
	requestFailures prometheus.Counter
	fallbacks       prometheus.Counter
	offset          prometheus.Gauge
	delay           prometheus.Gauge
	lastSync        prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		now: time.Now,
		syncs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "syncs_total",
			Help:      "Sync cycles by result.",
		}, []string{"result"}),
		requestFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "request_failures_total",
			Help:      "SNTP requests that failed and were retried.",
		}),
		fallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallbacks_total",
			Help:      "Reads answered with device time because no sync had succeeded.",
		}),
		offset: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "clock_offset_seconds",
			Help:      "Offset of the device clock from the selected server at the last sync.",
		}),
		delay: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "round_trip_delay_seconds",
			Help:      "Round-trip delay of the selected exchange at the last sync.",
		}),
		lastSync: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_sync_timestamp_seconds",
			Help:      "Unix time of the last successful sync.",
		}),
	}

	for _, c := range []prometheus.Collector{m.syncs, m.requestFailures, m.fallbacks, m.offset, m.delay, m.lastSync} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	// Both results are exported from the start.
	m.syncs.WithLabelValues("success")
	m.syncs.WithLabelValues("failure")
	return m, nil
}

func (m *Metrics) RequestFailed(string, error) {
	m.requestFailures.Inc()
}

func (m *Metrics) SyncSucceeded(result truetime.SyncResult) {
	m.syncs.WithLabelValues("success").Inc()
	m.offset.Set(result.ClockOffset.Seconds())
	m.delay.Set(result.RoundTripDelay.Seconds())
	m.lastSync.Set(float64(m.now().UnixNano()) / 1e9)
}

func (m *Metrics) SyncFailed(error) {
	m.syncs.WithLabelValues("failure").Inc()
}

func (m *Metrics) FallbackToDeviceTime() {
	m.fallbacks.Inc()
}
