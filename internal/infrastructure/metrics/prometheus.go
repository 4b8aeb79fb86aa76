package metrics

import (
	"log"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusSink implements Sink using the Prometheus client library.
// Registration errors are logged but never propagated.
type PrometheusSink struct {
	alarmsScheduledTotal *prometheus.CounterVec
	alarmsFiredTotal     *prometheus.CounterVec
	deliveryFailures     prometheus.Counter
	pendingAlarms        prometheus.Gauge
	conflictsTotal       prometheus.Counter
}

// NewPrometheusSink creates the collectors and registers them with reg.
func NewPrometheusSink(reg prometheus.Registerer) *PrometheusSink {
	s := &PrometheusSink{
		alarmsScheduledTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lecturealarm_alarms_scheduled_total",
			Help: "Total number of alarm jobs registered, by kind.",
		}, []string{"kind"}),
		alarmsFiredTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lecturealarm_alarms_fired_total",
			Help: "Total number of alarms that fired, by kind.",
		}, []string{"kind"}),
		deliveryFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lecturealarm_delivery_failures_total",
			Help: "Total number of notifications the delivery service rejected.",
		}),
		pendingAlarms: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lecturealarm_pending_alarms",
			Help: "Number of alarm jobs currently waiting to fire.",
		}),
		conflictsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lecturealarm_conflicts_detected_total",
			Help: "Total number of timetable conflicts detected on create, edit or batch add.",
		}),
	}

	s.register(reg, s.alarmsScheduledTotal, "lecturealarm_alarms_scheduled_total")
	s.register(reg, s.alarmsFiredTotal, "lecturealarm_alarms_fired_total")
	s.register(reg, s.deliveryFailures, "lecturealarm_delivery_failures_total")
	s.register(reg, s.pendingAlarms, "lecturealarm_pending_alarms")
	s.register(reg, s.conflictsTotal, "lecturealarm_conflicts_detected_total")
	return s
}

func (s *PrometheusSink) register(reg prometheus.Registerer, c prometheus.Collector, name string) {
	if reg == nil {
		return
	}
	if err := reg.Register(c); err != nil {
		log.Printf("metrics: failed to register %s: %v", name, err)
	}
}

func (s *PrometheusSink) AlarmScheduled(kind string) {
	s.alarmsScheduledTotal.WithLabelValues(kind).Inc()
}

func (s *PrometheusSink) AlarmFired(kind string) {
	s.alarmsFiredTotal.WithLabelValues(kind).Inc()
}

func (s *PrometheusSink) DeliveryFailed() {
	s.deliveryFailures.Inc()
}

func (s *PrometheusSink) PendingAlarms(count int) {
	s.pendingAlarms.Set(float64(count))
}

func (s *PrometheusSink) ConflictDetected() {
	s.conflictsTotal.Inc()
}

var _ Sink = (*PrometheusSink)(nil)
