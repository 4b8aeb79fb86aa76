// Package metrics records alarm scheduling and delivery counters.
package metrics

// Sink defines the interface for recording metrics.
// All methods are fire-and-forget: implementations must not block or propagate errors.
type Sink interface {
	AlarmScheduled(kind string)
	AlarmFired(kind string)
	DeliveryFailed()
	PendingAlarms(count int)
	ConflictDetected()
}

// NoopSink discards every observation.
type NoopSink struct{}

func (NoopSink) AlarmScheduled(string) {}
func (NoopSink) AlarmFired(string)     {}
func (NoopSink) DeliveryFailed()       {}
func (NoopSink) PendingAlarms(int)     {}
func (NoopSink) ConflictDetected()     {}

var _ Sink = NoopSink{}
