package pattern

import "github.com/git-afsantos/hplrv/internal/hplast"

// buildResponse lowers "A causes B" properties: s0 = SAFE. A safe state is
// intrinsic to response (the scope starts decided-safe and only degrades to
// ACTIVE while a trigger obligation is outstanding), so HasSafeState is
// always true.
func buildResponse(property hplast.Property) (*MonitorSpec, error) {
	patt := property.Pattern()
	behaviour := patt.Behaviour()
	trigger := patt.Trigger()

	b, err := newBase(property, StateSafe)
	if err != nil {
		return nil, err
	}
	spec := b.spec
	spec.Kind = KindResponse
	spec.HasSafeState = true

	spec.PoolSize = 0
	if spec.TriggerAlias != "" && behaviour != nil {
		for _, e := range behaviour.SimpleEvents() {
			if e.ContainsReference(spec.TriggerAlias) {
				spec.PoolSize = -1
				break
			}
		}
	}
	if spec.PoolSize == 0 && spec.HasTimeout {
		spec.PoolSize = 1
	}

	scope := property.Scope()
	switch {
	case scope.IsAfter() && scope.IsUntil():
		b.addActivator(scope.Activator())
		responseAddTerminator(b, scope.Terminator())
	case scope.IsAfter():
		b.addActivator(scope.Activator())
	case scope.IsUntil():
		responseAddTerminator(b, scope.Terminator())
	}

	responseAddBehaviour(b, behaviour)
	if trigger != nil {
		responseAddTrigger(b, trigger)
	}
	return spec, nil
}

func responseAddTerminator(b *base, event hplast.Event) {
	if event == nil {
		return
	}
	spec := b.spec
	for _, e := range event.SimpleEvents() {
		alias := aliasIfReferenced(e, spec.ActivatorAlias)
		b.addMsg(e.Topic(), StateActive, Descriptor{Kind: EventTerminator, Predicate: e.Predicate(), ActivatorAlias: alias, Verdict: verdictFalse()})
		if spec.ReentrantScope {
			b.addMsg(e.Topic(), StateSafe, Descriptor{Kind: EventTerminator, Predicate: e.Predicate(), ActivatorAlias: alias})
		} else {
			b.addMsg(e.Topic(), StateSafe, Descriptor{Kind: EventTerminator, Predicate: e.Predicate(), ActivatorAlias: alias, Verdict: verdictTrue()})
		}
	}
}

func responseAddBehaviour(b *base, event hplast.Event) {
	if event == nil {
		return
	}
	spec := b.spec
	for _, e := range event.SimpleEvents() {
		b.addMsg(e.Topic(), StateActive, Descriptor{
			Kind:           EventBehaviour,
			Predicate:      e.Predicate(),
			ActivatorAlias: aliasIfReferenced(e, spec.ActivatorAlias),
			TriggerAlias:   aliasIfReferenced(e, spec.TriggerAlias),
		})
	}
}

func responseAddTrigger(b *base, event hplast.Event) {
	spec := b.spec
	for _, e := range event.SimpleEvents() {
		alias := aliasIfReferenced(e, spec.ActivatorAlias)
		d := Descriptor{Kind: EventTrigger, Predicate: e.Predicate(), ActivatorAlias: alias}
		if spec.PoolSize != 0 {
			b.addMsg(e.Topic(), StateActive, d)
		}
		b.addMsg(e.Topic(), StateSafe, d)
	}
}
