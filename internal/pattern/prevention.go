package pattern

import "github.com/git-afsantos/hplrv/internal/hplast"

// buildPrevention lowers "A forbids B" properties: s0 = SAFE.
func buildPrevention(property hplast.Property) (*MonitorSpec, error) {
	patt := property.Pattern()
	behaviour := patt.Behaviour()
	trigger := patt.Trigger()

	b, err := newBase(property, StateSafe)
	if err != nil {
		return nil, err
	}
	spec := b.spec
	spec.Kind = KindPrevention
	spec.HasSafeState = true

	spec.PoolSize = 1
	if spec.TriggerAlias != "" && behaviour != nil {
		for _, e := range behaviour.SimpleEvents() {
			if e.ContainsReference(spec.TriggerAlias) {
				spec.PoolSize = -1
				break
			}
		}
	}

	scope := property.Scope()
	switch {
	case scope.IsAfter() && scope.IsUntil():
		b.addActivator(scope.Activator())
		preventionAddTerminator(b, scope.Terminator())
	case scope.IsAfter():
		b.addActivator(scope.Activator())
	case scope.IsUntil():
		preventionAddTerminator(b, scope.Terminator())
	}

	preventionAddBehaviour(b, behaviour)
	if trigger != nil {
		preventionAddTrigger(b, trigger)
	}
	return spec, nil
}

func preventionAddTerminator(b *base, event hplast.Event) {
	if event == nil {
		return
	}
	spec := b.spec
	var verdict *bool
	if !spec.ReentrantScope {
		verdict = verdictTrue()
	}
	for _, e := range event.SimpleEvents() {
		alias := aliasIfReferenced(e, spec.ActivatorAlias)
		d := Descriptor{Kind: EventTerminator, Predicate: e.Predicate(), ActivatorAlias: alias, Verdict: verdict}
		b.addMsg(e.Topic(), StateActive, d)
		b.addMsg(e.Topic(), StateSafe, d)
	}
}

func preventionAddBehaviour(b *base, event hplast.Event) {
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

func preventionAddTrigger(b *base, event hplast.Event) {
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
