package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "overburnt"

// SessionCollector records per-session runtime metrics: ticks, inputs and level outcomes.
type SessionCollector struct {
	sessionsActive prometheus.Gauge
	ticksTotal     prometheus.Counter
	tickDuration   prometheus.Histogram
	inputsTotal    *prometheus.CounterVec
	levelsFinished *prometheus.CounterVec
	revenueTotal   prometheus.Counter
	stalledTotal   prometheus.Counter
}

func NewSessionCollector() *SessionCollector {
	return &SessionCollector{
		sessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "active",
			Help:      "Number of sessions currently running",
		}),
		ticksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "ticks_total",
			Help:      "Simulation ticks stepped across all sessions",
		}),
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "tick_duration_seconds",
			Help:      "Wall time spent stepping one tick",
			Buckets:   []float64{0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
		}),
		inputsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "inputs_total",
			Help:      "Player inputs by kind and whether the board accepted them",
		}, []string{"kind", "status"}),
		levelsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "levels_finished_total",
			Help:      "Finished level attempts by level and result",
		}, []string{"level", "result"}),
		revenueTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "client_revenue_total",
			Help:      "Revenue earned from fulfilled client requests",
		}),
		stalledTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "requests_stalled_total",
			Help:      "Client requests that found no free slot on arrival",
		}),
	}
}

// Register adds every collector to reg. A nil reg leaves metrics disabled.
func (c *SessionCollector) Register(reg prometheus.Registerer) error {
	if reg == nil {
		return nil
	}
	for _, m := range []prometheus.Collector{
		c.sessionsActive,
		c.ticksTotal,
		c.tickDuration,
		c.inputsTotal,
		c.levelsFinished,
		c.revenueTotal,
		c.stalledTotal,
	} {
		if err := reg.Register(m); err != nil {
			return err
		}
	}
	return nil
}

func (c *SessionCollector) SessionOpened() { c.sessionsActive.Inc() }
func (c *SessionCollector) SessionClosed() { c.sessionsActive.Dec() }

func (c *SessionCollector) RecordTick(d time.Duration) {
	c.ticksTotal.Inc()
	c.tickDuration.Observe(d.Seconds())
}

func (c *SessionCollector) RecordInput(kind string, accepted bool) {
	status := "accepted"
	if !accepted {
		status = "ignored"
	}
	c.inputsTotal.WithLabelValues(kind, status).Inc()
}

func (c *SessionCollector) RecordLevelFinished(levelID, result string) {
	c.levelsFinished.WithLabelValues(levelID, result).Inc()
}

func (c *SessionCollector) RecordRevenue(delta int) {
	if delta > 0 {
		c.revenueTotal.Add(float64(delta))
	}
}

func (c *SessionCollector) RecordStalled() { c.stalledTotal.Inc() }
