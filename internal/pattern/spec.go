// Package pattern lowers a scope x pattern property into a MonitorSpec: the
// immutable, shared state-machine description that internal/monitor
// executes. It is the direct Go re-expression of the five *Builder classes
// in the upstream Python reference (absence/existence/requirement/response/
// prevention), generalized to Go's typed-enum + tagged-struct idiom instead
// of class inheritance.
package pattern

import (
	"time"

	"github.com/google/uuid"

	"github.com/git-afsantos/hplrv/internal/hplast"
)

// State is the monitor's runtime state. The numeric values mirror the
// upstream constants (OFF=0, TRUE=-1, FALSE=-2, INACTIVE=1, ACTIVE=2,
// SAFE=3) purely for fidelity; nothing in this module depends on the
// specific integers.
type State int

const (
	StateTrue     State = -1
	StateFalse    State = -2
	StateOff      State = 0
	StateInactive State = 1
	StateActive   State = 2
	StateSafe     State = 3
)

func (s State) String() string {
	switch s {
	case StateTrue:
		return "TRUE"
	case StateFalse:
		return "FALSE"
	case StateOff:
		return "OFF"
	case StateInactive:
		return "INACTIVE"
	case StateActive:
		return "ACTIVE"
	case StateSafe:
		return "SAFE"
	default:
		return "UNKNOWN"
	}
}

// EventKind tags which of the four descriptor variants a Descriptor is.
type EventKind int

const (
	EventActivator EventKind = iota + 1
	EventTerminator
	EventBehaviour
	EventTrigger
)

// Descriptor is one entry in a MonitorSpec's per-(topic,state) event table.
type Descriptor struct {
	Kind      EventKind
	Predicate hplast.Predicate

	// ActivatorAlias is the activator's alias, set when this descriptor's
	// underlying event references it (requirement behaviours always carry
	// it).
	ActivatorAlias string

	// TriggerAlias is the trigger's alias; only meaningful on Behaviour
	// descriptors, set only when the behaviour event references it.
	TriggerAlias string

	// Verdict applies to Terminator descriptors only: nil means "none"
	// (scope exit without a decision), otherwise true/false.
	Verdict *bool
}

func verdictTrue() *bool  { v := true; return &v }
func verdictFalse() *bool { v := false; return &v }

// Kind identifies which of the five patterns a MonitorSpec was built from.
// The runtime needs this because a Behaviour descriptor's meaning (what
// state it leads to) differs by pattern even though the table shape is
// identical.
type Kind int

const (
	KindAbsence Kind = iota + 1
	KindExistence
	KindRequirement
	KindResponse
	KindPrevention
)

func (k Kind) String() string {
	switch k {
	case KindAbsence:
		return "absence"
	case KindExistence:
		return "existence"
	case KindRequirement:
		return "requirement"
	case KindResponse:
		return "response"
	case KindPrevention:
		return "prevention"
	default:
		return "unknown"
	}
}

// MonitorSpec is the immutable, shareable output of the pattern builder.
type MonitorSpec struct {
	ID          string
	Title       string
	Description string
	Text        string

	Kind Kind

	InitialState   State
	HasTimeout     bool
	Timeout        time.Duration
	ReentrantScope bool

	// PoolSize: -1 unbounded, 0 none, k bounded.
	PoolSize     int
	HasSafeState bool

	// OnMsg[topic][state] is an ordered list of event descriptors tried in
	// declared order; the first whose predicate matches fires.
	OnMsg map[string]map[State][]Descriptor

	// DependentPredicates[topic] holds the residual, cross-event
	// constraint used by the requirement pattern's pool matching.
	DependentPredicates map[string]hplast.Predicate

	ActivatorAlias string
	TriggerAlias   string
	BehaviourAlias string
}

// Topics returns the set of topics this spec dispatches on, used by the
// manager to build its per-topic index.
func (s *MonitorSpec) Topics() []string {
	topics := make([]string, 0, len(s.OnMsg))
	for t := range s.OnMsg {
		topics = append(topics, t)
	}
	return topics
}

// base carries the shared construction state across the common steps of
// §4.1 ("Common construction") before a pattern-specific builder adds its
// terminator/behaviour/trigger tables.
type base struct {
	spec *MonitorSpec
}

func newBase(property hplast.Property, s0 State) (*base, error) {
	meta := property.Metadata()
	id := meta["id"]
	if id == "" {
		id = uuid.NewString()
	}
	spec := &MonitorSpec{
		ID:                  id,
		Title:               meta["title"],
		Description:         meta["description"],
		Text:                property.String(),
		OnMsg:               map[string]map[State][]Descriptor{},
		DependentPredicates: map[string]hplast.Predicate{},
	}

	patt := property.Pattern()
	if mt := patt.MaxTime(); mt != hplast.Infinity {
		spec.Timeout = mt
		spec.HasTimeout = true
	}

	scope := property.Scope()
	if act := scope.Activator(); act != nil && act.IsSimpleEvent() {
		spec.ActivatorAlias = act.Alias()
	}
	if trig := patt.Trigger(); trig != nil && trig.IsSimpleEvent() {
		spec.TriggerAlias = trig.Alias()
	}
	if beh := patt.Behaviour(); beh != nil && beh.IsSimpleEvent() {
		spec.BehaviourAlias = beh.Alias()
	}

	b := &base{spec: spec}

	switch {
	case scope.IsAfter() && scope.IsUntil():
		// Open question (i), resolved: combined case, activator then
		// terminator, reentrant.
		spec.InitialState = StateInactive
		spec.ReentrantScope = true
	case scope.IsAfter():
		spec.InitialState = StateInactive
	case scope.IsUntil():
		spec.InitialState = s0
	case scope.IsGlobal():
		spec.InitialState = s0
	default:
		return nil, ErrUnknownScope
	}
	return b, nil
}

func (b *base) addMsg(topic string, state State, d Descriptor) {
	m := b.spec.OnMsg
	if m[topic] == nil {
		m[topic] = map[State][]Descriptor{}
	}
	m[topic][state] = append(m[topic][state], d)
}

// addActivator implements the shared "add activator" rule: one Activator
// descriptor per simple event of the activator disjunction, filed under
// [topic][INACTIVE].
func (b *base) addActivator(event hplast.Event) {
	if event == nil {
		return
	}
	for _, e := range event.SimpleEvents() {
		b.addMsg(e.Topic(), StateInactive, Descriptor{
			Kind:      EventActivator,
			Predicate: e.Predicate(),
		})
	}
}

func aliasIfReferenced(e hplast.Event, alias string) string {
	if alias == "" {
		return ""
	}
	if e.ContainsReference(alias) {
		return alias
	}
	return ""
}

// Build lowers property into a MonitorSpec, dispatching on the pattern kind.
// An unrecognized pattern is a fatal construction error: no spec is
// produced.
func Build(property hplast.Property) (*MonitorSpec, error) {
	patt := property.Pattern()
	switch {
	case patt.IsAbsence():
		return buildAbsence(property)
	case patt.IsExistence():
		return buildExistence(property)
	case patt.IsRequirement():
		return buildRequirement(property)
	case patt.IsResponse():
		return buildResponse(property)
	case patt.IsPrevention():
		return buildPrevention(property)
	default:
		return nil, ErrUnknownPattern
	}
}
