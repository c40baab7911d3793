// Package manager owns a set of running monitors, fans messages and
// timer ticks out to them, and aggregates verdict callbacks toward a
// live-update sink.
package manager

import (
	"log/slog"
	"sync"

	"github.com/git-afsantos/hplrv/internal/hplast"
	"github.com/git-afsantos/hplrv/internal/monitor"
	"github.com/git-afsantos/hplrv/internal/pattern"
)

// VerdictDelta is one verdict transition observed by the manager,
// pushed onward to the live-update bus.
type VerdictDelta struct {
	Monitor   int
	Value     bool
	Timestamp float64
	Witness   []monitor.WitnessRecord
}

// StatusEntry is one row of a status_report snapshot.
type StatusEntry struct {
	ID       string
	Title    string
	Property string
	State    pattern.State
	Verdict  *bool
	Witness  []monitor.WitnessRecord
}

// Sink receives verdict deltas as they are decided. The manager's bus
// wiring implements this; tests can substitute a channel-backed fake.
type Sink interface {
	Publish(VerdictDelta)
}

// Diagnostic receives non-fatal predicate evaluation failures tagged
// with the owning monitor's id.
type Diagnostic func(monitorID string, err error)

// Lifecycle records launch/shutdown events for diagnostics, independent of
// verdict computation. The manager never reads these back; it only
// notifies. A nil Lifecycle (the default) disables recording entirely.
type Lifecycle interface {
	Record(monitorID, event string)
}

// Manager owns an ordered collection of monitors built from specs and
// dispatches messages/timer ticks to them.
type Manager struct {
	mu       sync.RWMutex
	monitors []*monitor.Monitor
	byTopic  map[string][]int

	logger    *slog.Logger
	sink      Sink
	diag      Diagnostic
	lifecycle Lifecycle
}

// Option configures a Manager at construction time.
type Option func(*Manager)

// WithLogger overrides the default slog.Default() logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithSink wires a live-update sink; verdict deltas are published to it
// as monitors decide.
func WithSink(s Sink) Option {
	return func(m *Manager) { m.sink = s }
}

// WithDiagnostic wires a sink for predicate evaluation failures.
func WithDiagnostic(d Diagnostic) Option {
	return func(m *Manager) { m.diag = d }
}

// WithLifecycle wires an optional launch/shutdown event recorder.
func WithLifecycle(l Lifecycle) Option {
	return func(m *Manager) { m.lifecycle = l }
}

// New builds a Manager over the given specs, one Monitor per spec, in
// order. The per-topic dispatch index is built once here.
func New(specs []*pattern.MonitorSpec, opts ...Option) *Manager {
	m := &Manager{
		byTopic: map[string][]int{},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}

	for i, spec := range specs {
		idx := i
		callbacks := monitor.Callbacks{
			OnSuccess:   func(t float64, w []monitor.WitnessRecord) { m.onDecided(idx, true, t, w) },
			OnViolation: func(t float64, w []monitor.WitnessRecord) { m.onDecided(idx, false, t, w) },
		}
		diagID := spec.ID
		var diag monitor.Diagnostic
		if m.diag != nil {
			diag = func(err error) { m.diag(diagID, err) }
		}
		mon := monitor.New(spec, callbacks, diag)
		m.monitors = append(m.monitors, mon)
		for _, topic := range spec.Topics() {
			m.byTopic[topic] = append(m.byTopic[topic], i)
		}
	}
	return m
}

func (m *Manager) onDecided(idx int, value bool, t float64, witness []monitor.WitnessRecord) {
	mon := m.monitors[idx]
	m.logger.Info("monitor decided", "monitor_id", mon.ID(), "verdict", value)
	if m.sink != nil {
		m.sink.Publish(VerdictDelta{Monitor: idx, Value: value, Timestamp: t, Witness: witness})
	}
}

// Launch starts every monitor at t, in order.
func (m *Manager) Launch(t float64) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, mon := range m.monitors {
		if err := mon.Launch(t); err != nil {
			m.logger.Warn("launch failed", "monitor_id", mon.ID(), "error", err)
			continue
		}
		m.logger.Info("monitor launched", "monitor_id", mon.ID())
		if m.lifecycle != nil {
			m.lifecycle.Record(mon.ID(), "launch")
		}
	}
}

// Shutdown stops every monitor at t, in order.
func (m *Manager) Shutdown(t float64) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, mon := range m.monitors {
		if err := mon.Shutdown(t); err != nil {
			m.logger.Warn("shutdown failed", "monitor_id", mon.ID(), "error", err)
			continue
		}
		m.logger.Info("monitor shut down", "monitor_id", mon.ID())
		if m.lifecycle != nil {
			m.lifecycle.Record(mon.ID(), "shutdown")
		}
	}
}

// OnTimer advances every monitor's automatic timer transition at t.
func (m *Manager) OnTimer(t float64) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, mon := range m.monitors {
		mon.OnTimer(t)
	}
}

// OnMessage dispatches msg, received on topic at t, to every monitor
// subscribed to that topic. Monitors not indexed under topic are
// skipped entirely (never even locked).
func (m *Manager) OnMessage(topic string, msg hplast.Message, t float64) {
	m.mu.RLock()
	indices := m.byTopic[topic]
	m.mu.RUnlock()
	for _, i := range indices {
		m.monitors[i].OnMessage(topic, msg, t)
	}
}

// StatusReport takes a copy-on-read snapshot of every monitor's state.
func (m *Manager) StatusReport() []StatusEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]StatusEntry, len(m.monitors))
	for i, mon := range m.monitors {
		spec := mon.Spec()
		var verdict *bool
		if v, ok := mon.Verdict(); ok {
			verdict = &v
		}
		out[i] = StatusEntry{
			ID:       spec.ID,
			Title:    spec.Title,
			Property: spec.Text,
			State:    mon.State(),
			Verdict:  verdict,
			Witness:  mon.Witness(),
		}
	}
	return out
}

// Len returns the number of monitors owned by the manager.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.monitors)
}
