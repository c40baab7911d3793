package hplast

import "time"

// This file provides a synthetic, parser-free implementation of the AST
// capability set: literal Go values that satisfy Event/Scope/Pattern/
// Property directly. It is the "test implementation" the design notes call
// for, promoted to a real adapter used by the config-driven builder in
// internal/config and by tests, since a full HPL surface-syntax parser is
// out of scope.

// SimpleEvent is a single named topic with one predicate and an optional
// alias.
type SimpleEvent struct {
	EventTopic     string
	EventPredicate Predicate
	EventAlias     string
}

func (e *SimpleEvent) IsSimpleEvent() bool    { return true }
func (e *SimpleEvent) Alias() string          { return e.EventAlias }
func (e *SimpleEvent) SimpleEvents() []Event  { return []Event{e} }
func (e *SimpleEvent) Topic() string          { return e.EventTopic }
func (e *SimpleEvent) Predicate() Predicate   { return e.EventPredicate }
func (e *SimpleEvent) ContainsReference(alias string) bool {
	if e.EventPredicate == nil {
		return false
	}
	return e.EventPredicate.ContainsReference(alias)
}

// Disjunction is an "or" of simple events, e.g. the activator of a scope
// that can be opened by more than one topic.
type Disjunction struct {
	Events []*SimpleEvent
}

func (d *Disjunction) IsSimpleEvent() bool { return len(d.Events) == 1 }
func (d *Disjunction) Alias() string {
	if len(d.Events) == 1 {
		return d.Events[0].Alias()
	}
	return ""
}
func (d *Disjunction) SimpleEvents() []Event {
	out := make([]Event, len(d.Events))
	for i, e := range d.Events {
		out[i] = e
	}
	return out
}
func (d *Disjunction) Topic() string {
	if len(d.Events) == 1 {
		return d.Events[0].Topic()
	}
	return ""
}
func (d *Disjunction) Predicate() Predicate {
	if len(d.Events) == 1 {
		return d.Events[0].Predicate()
	}
	return nil
}
func (d *Disjunction) ContainsReference(alias string) bool {
	for _, e := range d.Events {
		if e.ContainsReference(alias) {
			return true
		}
	}
	return false
}

// Of wraps a single SimpleEvent as an Event for scope/pattern fields.
func Of(e *SimpleEvent) Event {
	if e == nil {
		return nil
	}
	return e
}

// LiteralScope is a literal Scope implementation.
type LiteralScope struct {
	Global              bool
	After               bool
	Until               bool
	ActivatorEvent      Event
	TerminatorEvent     Event
}

func (s *LiteralScope) IsGlobal() bool    { return s.Global }
func (s *LiteralScope) IsAfter() bool     { return s.After }
func (s *LiteralScope) IsUntil() bool     { return s.Until }
func (s *LiteralScope) Activator() Event  { return s.ActivatorEvent }
func (s *LiteralScope) Terminator() Event { return s.TerminatorEvent }

// LiteralPattern is a literal Pattern implementation.
type LiteralPattern struct {
	Absence, Existence, Requirement, Response, Prevention bool
	BehaviourEvent                                        Event
	TriggerEvent                                          Event
	Timeout                                                time.Duration // Infinity for "no timeout"
}

func (p *LiteralPattern) IsAbsence() bool     { return p.Absence }
func (p *LiteralPattern) IsExistence() bool   { return p.Existence }
func (p *LiteralPattern) IsRequirement() bool { return p.Requirement }
func (p *LiteralPattern) IsResponse() bool    { return p.Response }
func (p *LiteralPattern) IsPrevention() bool  { return p.Prevention }
func (p *LiteralPattern) Behaviour() Event    { return p.BehaviourEvent }
func (p *LiteralPattern) Trigger() Event      { return p.TriggerEvent }
func (p *LiteralPattern) MaxTime() time.Duration {
	if p.Timeout == 0 {
		return Infinity
	}
	return p.Timeout
}

// LiteralProperty is a literal Property implementation.
type LiteralProperty struct {
	PropScope    Scope
	PropPattern  Pattern
	PropMetadata map[string]string
	Text         string
}

func (p *LiteralProperty) Scope() Scope               { return p.PropScope }
func (p *LiteralProperty) Pattern() Pattern            { return p.PropPattern }
func (p *LiteralProperty) Metadata() map[string]string { return p.PropMetadata }
func (p *LiteralProperty) String() string              { return p.Text }
