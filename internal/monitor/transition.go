package monitor

import (
	"github.com/git-afsantos/hplrv/internal/hplast"
	"github.com/git-afsantos/hplrv/internal/pattern"
)

func (m *Monitor) setState(s pattern.State, t float64) {
	m.state = s
	m.timeState = t
}

func (m *Monitor) recordWitness(topic string, msg hplast.Message, t float64) {
	m.witness = append(m.witness, WitnessRecord{Topic: topic, Timestamp: t, Message: msg})
}

func (m *Monitor) snapshotWitness() []WitnessRecord {
	out := make([]WitnessRecord, len(m.witness))
	copy(out, m.witness)
	return out
}

func cloneBindings(b hplast.Bindings) hplast.Bindings {
	out := make(hplast.Bindings, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

func (m *Monitor) fireEnterScope(t float64) {
	if m.callbacks.OnEnterScope != nil {
		m.callbacks.OnEnterScope(t)
	}
}

func (m *Monitor) fireExitScope(t float64) {
	if m.callbacks.OnExitScope != nil {
		m.callbacks.OnExitScope(t)
	}
}

func (m *Monitor) fireSuccess(t float64) {
	if m.callbacks.OnSuccess != nil {
		m.callbacks.OnSuccess(t, m.snapshotWitness())
	}
}

func (m *Monitor) fireViolation(t float64) {
	if m.callbacks.OnViolation != nil {
		m.callbacks.OnViolation(t, m.snapshotWitness())
	}
}

// pushPool appends a trigger record and evicts from the front (FIFO) if
// the spec's pool is bounded.
func (m *Monitor) pushPool(rec TriggerRecord) {
	m.pool = append(m.pool, rec)
	if m.spec.PoolSize > 0 {
		for len(m.pool) > m.spec.PoolSize {
			m.pool = m.pool[1:]
		}
	}
}

// decayPool silently ages out pool entries whose deadline has passed.
// The upstream text flags decay-caused verdicts as an ambiguous corner
// (an unmatched requirement trigger "whose deadline passes"); this
// implementation takes the conservative reading and only prunes stale
// entries here, leaving verdict decisions to the matching descriptors
// (Behaviour/Terminator) that already run on every dispatch.
func (m *Monitor) decayPool(t float64) {
	if !m.spec.HasTimeout || len(m.pool) == 0 {
		return
	}
	timeout := m.spec.Timeout.Seconds()
	cut := 0
	for cut < len(m.pool) && m.pool[cut].Timestamp+timeout < t {
		cut++
	}
	if cut > 0 {
		m.pool = m.pool[cut:]
	}
}

// checkTimer applies the automatic, timestamp-driven transitions that
// don't need a matching message: absence/requirement moving to SAFE (or,
// with no safe state, to TRUE) once a finite window elapses without a
// violating behaviour, response's
// pending-obligation window lapsing into a violation, prevention's
// pending-obligation window lapsing back to SAFE, and pool decay for
// the three pool-bearing patterns.
func (m *Monitor) checkTimer(t float64) {
	switch m.state {
	case pattern.StateOff, pattern.StateTrue, pattern.StateFalse:
		return
	}
	if !m.spec.HasTimeout {
		return
	}

	timeout := m.spec.Timeout.Seconds()
	switch m.spec.Kind {
	case pattern.KindAbsence, pattern.KindRequirement:
		if m.state == pattern.StateActive && t-m.timeState >= timeout {
			if m.spec.HasSafeState {
				m.setState(pattern.StateSafe, t)
			} else {
				m.setState(pattern.StateTrue, t)
				m.fireSuccess(t)
			}
		}
		m.decayPool(t)
	case pattern.KindResponse:
		// ACTIVE is only ever entered via a pending, unanswered trigger
		// (see fireTrigger); letting its deadline lapse is the violation
		// itself, not a quiet return to SAFE.
		if m.state == pattern.StateActive && t-m.timeState >= timeout {
			m.pool = nil
			m.setState(pattern.StateFalse, t)
			m.fireViolation(t)
		}
		m.decayPool(t)
	case pattern.KindPrevention:
		// Unlike response, an expiring prohibition window is not a
		// violation: the forbidden behaviour simply never showed up in
		// time. Clear the pending obligation and return to SAFE.
		if m.state == pattern.StateActive && t-m.timeState >= timeout {
			m.pool = nil
			m.setState(pattern.StateSafe, t)
		}
		m.decayPool(t)
	}
}

// fire applies the transition table of §4.3 for a matched descriptor.
func (m *Monitor) fire(d pattern.Descriptor, topic string, msg hplast.Message, t float64) {
	switch d.Kind {
	case pattern.EventActivator:
		m.fireActivator(msg, topic, t)
	case pattern.EventTerminator:
		m.fireTerminator(d, topic, msg, t)
	case pattern.EventBehaviour:
		m.fireBehaviour(d, topic, msg, t)
	case pattern.EventTrigger:
		m.fireTrigger(topic, msg, t)
	}
}

func (m *Monitor) fireActivator(msg hplast.Message, topic string, t float64) {
	m.scopeMark = len(m.witness)
	m.recordWitness(topic, msg, t)
	if m.spec.ActivatorAlias != "" {
		m.bindings[m.spec.ActivatorAlias] = msg
	}

	switch m.spec.Kind {
	case pattern.KindResponse, pattern.KindPrevention:
		m.setState(pattern.StateSafe, t)
	default:
		m.setState(pattern.StateActive, t)
	}
	m.fireEnterScope(t)
}

func (m *Monitor) fireTerminator(d pattern.Descriptor, topic string, msg hplast.Message, t float64) {
	m.recordWitness(topic, msg, t)

	if d.Verdict == nil {
		wasEntered := m.state == pattern.StateActive || m.state == pattern.StateSafe
		m.setState(pattern.StateInactive, t)
		m.pool = nil
		m.lastTrigger = false
		if m.spec.ActivatorAlias != "" {
			delete(m.bindings, m.spec.ActivatorAlias)
		}
		m.witness = m.witness[:m.scopeMark]
		if wasEntered {
			m.fireExitScope(t)
		}
		return
	}

	if *d.Verdict {
		m.setState(pattern.StateTrue, t)
		m.fireSuccess(t)
	} else {
		m.setState(pattern.StateFalse, t)
		m.fireViolation(t)
	}
}

func (m *Monitor) fireBehaviour(d pattern.Descriptor, topic string, msg hplast.Message, t float64) {
	m.recordWitness(topic, msg, t)

	switch m.spec.Kind {
	case pattern.KindAbsence:
		m.setState(pattern.StateFalse, t)
		m.fireViolation(t)

	case pattern.KindExistence:
		if !m.spec.HasSafeState {
			m.setState(pattern.StateTrue, t)
			m.fireSuccess(t)
		} else {
			m.setState(pattern.StateSafe, t)
		}

	case pattern.KindRequirement:
		if m.requirementSatisfied(msg) {
			// remains ACTIVE
		} else {
			m.setState(pattern.StateFalse, t)
			m.fireViolation(t)
		}

	case pattern.KindResponse:
		if len(m.pool) > 0 {
			m.pool = m.pool[1:]
		}
		if len(m.pool) == 0 {
			m.setState(pattern.StateSafe, t)
		}

	case pattern.KindPrevention:
		if len(m.pool) > 0 {
			m.pool = m.pool[1:]
			m.setState(pattern.StateFalse, t)
			m.fireViolation(t)
		}
	}
}

// requirementSatisfied checks the behaviour message against the pool
// (or, with pool_size == 0, against the latest trigger flag), consuming
// the matching pool entry on success.
func (m *Monitor) requirementSatisfied(behaviourMsg hplast.Message) bool {
	if m.spec.PoolSize == 0 {
		return m.lastTrigger
	}
	for i, rec := range m.pool {
		dep, hasDep := m.spec.DependentPredicates[rec.Topic]
		matched := true
		if hasDep {
			var err error
			matched, err = dep.Evaluate(behaviourMsg, hplast.Bindings{"1": rec.Message})
			if err != nil {
				if m.diag != nil {
					m.diag(ErrPredicateEvaluation)
				}
				matched = false
			}
		}
		if matched {
			m.pool = append(append([]TriggerRecord{}, m.pool[:i]...), m.pool[i+1:]...)
			return true
		}
	}
	return false
}

func (m *Monitor) fireTrigger(topic string, msg hplast.Message, t float64) {
	m.recordWitness(topic, msg, t)
	rec := TriggerRecord{Topic: topic, Timestamp: t, Message: msg, Bindings: cloneBindings(m.bindings)}

	switch m.spec.Kind {
	case pattern.KindRequirement:
		if m.spec.PoolSize == 0 {
			m.lastTrigger = true
		} else {
			m.pushPool(rec)
		}

	case pattern.KindResponse, pattern.KindPrevention:
		fromSafe := m.state == pattern.StateSafe
		m.pushPool(rec)
		if fromSafe {
			m.setState(pattern.StateActive, t)
		}
	}
}
