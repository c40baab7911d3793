// Package hplast defines the capability-set view over a compiled property
// that the builder and runtime consume. Surface syntax parsing and AST
// construction live outside this module; anything implementing these
// interfaces can be lowered into a MonitorSpec.
package hplast

import "time"

// Message is one observed occurrence on a topic, carrying named fields.
type Message struct {
	Topic string
	Data  map[string]any
}

// Bindings maps an alias (an earlier-captured event's symbolic name) to the
// message that was bound to it.
type Bindings map[string]Message

// Predicate is an opaque boolean expression over a message's fields and the
// current bindings. Concrete implementations live in package predicate.
type Predicate interface {
	// Evaluate checks the predicate against msg using bindings for any
	// alias references. A missing field or type mismatch is reported as
	// an error, never as a panic; callers treat errors as "false" per the
	// runtime's PredicateEvaluationError policy.
	Evaluate(msg Message, bindings Bindings) (bool, error)

	// IsVacuous reports whether this predicate is the vacuous-truth
	// constant (always true, trivially).
	IsVacuous() bool

	// RefactorReference splits the predicate into the part independent of
	// alias (phi) and the residual constraint that mentions alias (psi).
	// psi is nil when the predicate does not reference alias at all.
	RefactorReference(alias string) (phi Predicate, psi Predicate)

	// ReplaceThisWithVar returns a copy where references to the predicate's
	// own message ("this") are retagged as references to the named
	// variable, so the predicate can later be re-anchored to a different
	// message via ReplaceVarWithThis.
	ReplaceThisWithVar(varName string) Predicate

	// ReplaceVarWithThis is the inverse of ReplaceThisWithVar: references
	// to varName are retagged back to "this".
	ReplaceVarWithThis(varName string) Predicate

	// ContainsReference reports whether the predicate mentions alias.
	ContainsReference(alias string) bool

	String() string
}

// Event is either a simple event (one topic, one predicate, optional alias)
// or a disjunction of simple events.
type Event interface {
	IsSimpleEvent() bool
	Alias() string
	SimpleEvents() []Event
	Topic() string
	Predicate() Predicate
	ContainsReference(alias string) bool
}

// Scope describes the temporal window a pattern is evaluated over.
type Scope interface {
	IsGlobal() bool
	IsAfter() bool
	IsUntil() bool
	Activator() Event // nil when the scope has no activator
	Terminator() Event
}

// Pattern describes the shape of the property within its scope.
type Pattern interface {
	IsAbsence() bool
	IsExistence() bool
	IsRequirement() bool
	IsResponse() bool
	IsPrevention() bool
	Behaviour() Event
	Trigger() Event // nil for absence/existence
	MaxTime() time.Duration
}

// Infinity is the sentinel MaxTime value meaning "no timeout".
const Infinity = time.Duration(-1)

// Property is one compiled scope x pattern specification plus metadata.
type Property interface {
	Scope() Scope
	Pattern() Pattern
	Metadata() map[string]string
	String() string
}
