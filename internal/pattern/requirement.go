package pattern

import "github.com/git-afsantos/hplrv/internal/hplast"

// buildRequirement lowers "B requires A" properties: s0 = ACTIVE. The
// behaviour B demands that a qualifying trigger A has already been
// observed and is still pending in the pool.
func buildRequirement(property hplast.Property) (*MonitorSpec, error) {
	patt := property.Pattern()
	behaviour := patt.Behaviour()
	trigger := patt.Trigger()

	b, err := newBase(property, StateActive)
	if err != nil {
		return nil, err
	}
	spec := b.spec
	spec.Kind = KindRequirement

	hasTriggerRefs := false
	if behaviour != nil && behaviour.IsSimpleEvent() && behaviour.Alias() != "" && trigger != nil {
		for _, te := range trigger.SimpleEvents() {
			if te.ContainsReference(behaviour.Alias()) {
				hasTriggerRefs = true
				break
			}
		}
	}

	switch {
	case hasTriggerRefs:
		spec.PoolSize = -1
	case spec.HasTimeout:
		spec.PoolSize = 1
	default:
		spec.PoolSize = 0
	}
	spec.HasSafeState = (spec.HasTimeout || spec.ReentrantScope) && !hasTriggerRefs

	scope := property.Scope()
	switch {
	case scope.IsAfter() && scope.IsUntil():
		b.addActivator(scope.Activator())
		requirementAddTerminator(b, scope.Terminator())
	case scope.IsAfter():
		b.addActivator(scope.Activator())
	case scope.IsUntil():
		requirementAddTerminator(b, scope.Terminator())
	}

	requirementAddBehaviour(b, behaviour)
	if trigger != nil {
		requirementAddTrigger(b, trigger, behaviour)
	}
	return spec, nil
}

func requirementAddTerminator(b *base, event hplast.Event) {
	if event == nil {
		return
	}
	spec := b.spec
	verdict := verdictTrue()
	if spec.ReentrantScope {
		verdict = nil
	}
	for _, e := range event.SimpleEvents() {
		alias := aliasIfReferenced(e, spec.ActivatorAlias)
		d := Descriptor{Kind: EventTerminator, Predicate: e.Predicate(), ActivatorAlias: alias, Verdict: verdict}
		b.addMsg(e.Topic(), StateActive, d)
		if spec.HasSafeState {
			b.addMsg(e.Topic(), StateSafe, d)
		}
	}
}

// requirementAddBehaviour always attaches the activator alias (even when
// the behaviour event does not itself reference it), because the pool
// match at dispatch time needs it available in bindings.
func requirementAddBehaviour(b *base, event hplast.Event) {
	if event == nil {
		return
	}
	spec := b.spec
	for _, e := range event.SimpleEvents() {
		b.addMsg(e.Topic(), StateActive, Descriptor{
			Kind:           EventBehaviour,
			Predicate:      e.Predicate(),
			ActivatorAlias: spec.ActivatorAlias,
		})
	}
}

func requirementAddTrigger(b *base, event hplast.Event, behaviour hplast.Event) {
	spec := b.spec
	behaviourAlias := ""
	if behaviour != nil && behaviour.IsSimpleEvent() {
		behaviourAlias = behaviour.Alias()
	}
	for _, e := range event.SimpleEvents() {
		alias := aliasIfReferenced(e, spec.ActivatorAlias)
		firingPredicate := e.Predicate()
		if behaviourAlias != "" {
			phi, psi := firingPredicate.RefactorReference(behaviourAlias)
			if psi != nil && !psi.IsVacuous() {
				psi = psi.ReplaceThisWithVar("1")
				psi = psi.ReplaceVarWithThis(behaviourAlias)
				spec.DependentPredicates[e.Topic()] = psi
			}
			firingPredicate = phi
		}
		d := Descriptor{Kind: EventTrigger, Predicate: firingPredicate, ActivatorAlias: alias}
		b.addMsg(e.Topic(), StateActive, d)
		if spec.HasSafeState {
			b.addMsg(e.Topic(), StateSafe, d)
		}
	}
}
