package pattern

import "github.com/git-afsantos/hplrv/internal/hplast"

// buildAbsence lowers "no B" properties: s0 = ACTIVE, pool_size = 0. The
// scope is violated the instant the behaviour occurs while active.
func buildAbsence(property hplast.Property) (*MonitorSpec, error) {
	b, err := newBase(property, StateActive)
	if err != nil {
		return nil, err
	}
	spec := b.spec
	spec.Kind = KindAbsence
	spec.PoolSize = 0
	spec.HasSafeState = spec.HasTimeout && spec.ReentrantScope

	scope := property.Scope()
	switch {
	case scope.IsAfter() && scope.IsUntil():
		b.addActivator(scope.Activator())
		absenceAddTerminator(b, scope.Terminator())
	case scope.IsAfter():
		b.addActivator(scope.Activator())
	case scope.IsUntil():
		absenceAddTerminator(b, scope.Terminator())
	}

	absenceAddBehaviour(b, property.Pattern().Behaviour())
	return spec, nil
}

func absenceAddTerminator(b *base, event hplast.Event) {
	if event == nil {
		return
	}
	spec := b.spec
	verdict := verdictTrue()
	if spec.ReentrantScope {
		verdict = nil
	}
	for _, e := range event.SimpleEvents() {
		d := Descriptor{
			Kind:           EventTerminator,
			Predicate:      e.Predicate(),
			ActivatorAlias: aliasIfReferenced(e, spec.ActivatorAlias),
			Verdict:        verdict,
		}
		b.addMsg(e.Topic(), StateActive, d)
		if spec.HasSafeState {
			b.addMsg(e.Topic(), StateSafe, d)
		}
	}
}

func absenceAddBehaviour(b *base, event hplast.Event) {
	if event == nil {
		return
	}
	spec := b.spec
	for _, e := range event.SimpleEvents() {
		b.addMsg(e.Topic(), StateActive, Descriptor{
			Kind:           EventBehaviour,
			Predicate:      e.Predicate(),
			ActivatorAlias: aliasIfReferenced(e, spec.ActivatorAlias),
		})
	}
}
