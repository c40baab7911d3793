package pattern

import "github.com/git-afsantos/hplrv/internal/hplast"

// buildExistence lowers "some B" properties: s0 = ACTIVE, pool_size = 0.
// Unlike absence, HasSafeState here is purely a function of whether the
// scope has a terminator at all (global scope ⇒ no safe state, the
// behaviour decides the verdict outright).
func buildExistence(property hplast.Property) (*MonitorSpec, error) {
	b, err := newBase(property, StateActive)
	if err != nil {
		return nil, err
	}
	spec := b.spec
	spec.Kind = KindExistence
	spec.PoolSize = 0

	scope := property.Scope()
	switch {
	case scope.IsAfter() && scope.IsUntil():
		b.addActivator(scope.Activator())
		existenceAddTerminator(b, scope.Terminator())
	case scope.IsAfter():
		b.addActivator(scope.Activator())
	case scope.IsUntil():
		existenceAddTerminator(b, scope.Terminator())
	}

	existenceAddBehaviour(b, property.Pattern().Behaviour())
	return spec, nil
}

func existenceAddTerminator(b *base, event hplast.Event) {
	if event == nil {
		return
	}
	spec := b.spec
	spec.HasSafeState = true
	for _, e := range event.SimpleEvents() {
		alias := aliasIfReferenced(e, spec.ActivatorAlias)
		d := Descriptor{Kind: EventTerminator, Predicate: e.Predicate(), ActivatorAlias: alias, Verdict: verdictFalse()}
		b.addMsg(e.Topic(), StateActive, d)
		if spec.ReentrantScope {
			b.addMsg(e.Topic(), StateSafe, Descriptor{Kind: EventTerminator, Predicate: e.Predicate(), ActivatorAlias: alias})
		}
	}
}

func existenceAddBehaviour(b *base, event hplast.Event) {
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
