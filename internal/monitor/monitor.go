// Package monitor executes a pattern.MonitorSpec against a stream of
// timestamped messages and timer ticks, advancing a per-instance state
// machine and emitting verdicts through caller-supplied callbacks.
package monitor

import (
	"fmt"
	"sync"

	"github.com/git-afsantos/hplrv/internal/hplast"
	"github.com/git-afsantos/hplrv/internal/pattern"
)

// WitnessRecord is one entry in a monitor's ordered, append-only-per-cycle
// witness trail.
type WitnessRecord struct {
	Topic     string
	Timestamp float64
	Message   hplast.Message
}

// TriggerRecord is a pooled trigger occurrence, held while a monitor
// waits for a matching behaviour (requirement) or waits to leave ACTIVE
// (response/prevention).
type TriggerRecord struct {
	Topic     string
	Timestamp float64
	Message   hplast.Message
	Bindings  hplast.Bindings
}

// Callbacks are invoked synchronously, while the monitor's lock is held,
// as the state machine crosses the corresponding transition. They must
// not call back into the same monitor.
type Callbacks struct {
	OnEnterScope func(t float64)
	OnExitScope  func(t float64)
	OnSuccess    func(t float64, witness []WitnessRecord)
	OnViolation  func(t float64, witness []WitnessRecord)
}

// Diagnostic receives non-fatal predicate evaluation failures. It is
// invoked while the monitor's lock is held, so it must not block.
type Diagnostic func(err error)

// Monitor is one runtime instance of a pattern.MonitorSpec. The spec is
// shared and immutable; everything else here is owned exclusively by
// this instance.
type Monitor struct {
	mu   sync.Mutex
	spec *pattern.MonitorSpec

	state        pattern.State
	witness      []WitnessRecord
	scopeMark    int // witness length at the start of the current scope cycle
	pool         []TriggerRecord
	bindings     hplast.Bindings
	lastTrigger  bool // requirement, pool_size == 0: "a qualifying trigger has been seen"
	timeLaunch   float64
	timeState    float64
	timeShutdown float64

	callbacks Callbacks
	diag      Diagnostic
}

// New creates a Monitor off (state OFF) for the given spec.
func New(spec *pattern.MonitorSpec, callbacks Callbacks, diag Diagnostic) *Monitor {
	return &Monitor{
		spec:         spec,
		state:        pattern.StateOff,
		timeLaunch:   -1,
		timeShutdown: -1,
		callbacks:    callbacks,
		diag:         diag,
	}
}

// ID returns the underlying property's id.
func (m *Monitor) ID() string { return m.spec.ID }

// Spec returns the shared, immutable spec this monitor executes.
func (m *Monitor) Spec() *pattern.MonitorSpec { return m.spec }

// State returns the monitor's current state.
func (m *Monitor) State() pattern.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Verdict reports the monitor's decided verdict, if any. ok is false
// while the monitor has not yet reached TRUE or FALSE.
func (m *Monitor) Verdict() (value bool, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch m.state {
	case pattern.StateTrue:
		return true, true
	case pattern.StateFalse:
		return false, true
	default:
		return false, false
	}
}

// Witness returns a copy of the current witness trail.
func (m *Monitor) Witness() []WitnessRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]WitnessRecord, len(m.witness))
	copy(out, m.witness)
	return out
}

// Launch resets the monitor and starts it at t. It fails with
// ErrAlreadyRunning unless the monitor is currently OFF.
func (m *Monitor) Launch(t float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != pattern.StateOff {
		return fmt.Errorf("monitor %s: %w", m.spec.ID, ErrAlreadyRunning)
	}
	m.witness = nil
	m.scopeMark = 0
	m.pool = nil
	m.bindings = hplast.Bindings{}
	m.lastTrigger = false
	m.state = m.spec.InitialState
	m.timeLaunch = t
	m.timeState = t
	m.timeShutdown = -1

	if m.state == pattern.StateActive || m.state == pattern.StateSafe {
		m.fireEnterScope(t)
	}
	return nil
}

// Shutdown stops the monitor at t. It fails with ErrNotRunning if the
// monitor is already OFF.
func (m *Monitor) Shutdown(t float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == pattern.StateOff {
		return fmt.Errorf("monitor %s: %w", m.spec.ID, ErrNotRunning)
	}
	m.state = pattern.StateOff
	m.timeShutdown = t
	return nil
}

// OnTimer advances the automatic timer transition for t without
// dispatching any message.
func (m *Monitor) OnTimer(t float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkTimer(t)
}

// OnMessage dispatches msg, received on topic at t, against the current
// state. It returns true iff some descriptor fired. Predicate evaluation
// failures are swallowed (treated as non-match) and reported to the
// diagnostic sink, never returned here.
func (m *Monitor) OnMessage(topic string, msg hplast.Message, t float64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.checkTimer(t)

	byState, ok := m.spec.OnMsg[topic]
	if !ok {
		return false
	}
	descriptors, ok := byState[m.state]
	if !ok {
		return false
	}

	for _, d := range descriptors {
		matched, err := d.Predicate.Evaluate(msg, m.bindings)
		if err != nil {
			wrapped := fmt.Errorf("monitor %s: topic %s: %w: %v", m.spec.ID, topic, ErrPredicateEvaluation, err)
			if m.diag != nil {
				m.diag(wrapped)
			}
			continue
		}
		if !matched {
			continue
		}
		m.fire(d, topic, msg, t)
		return true
	}
	return false
}
