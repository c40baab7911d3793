package config

import (
	"fmt"
	"sort"

	"github.com/git-afsantos/hplrv/internal/hplast"
	"github.com/git-afsantos/hplrv/internal/pattern"
	"github.com/git-afsantos/hplrv/internal/predicate"
)

// Names returns the configured monitor names in a stable (sorted) order.
// Monitor index in the manager, and therefore in every verdict delta and
// status entry, is derived from this order, so it must be deterministic
// across runs of the same config file.
func (c *Config) Names() []string {
	names := make([]string, 0, len(c.Monitor))
	for name := range c.Monitor {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// BuildSpecs compiles every [monitor.NAME] table into a MonitorSpec, in the
// order returned by Names.
func (c *Config) BuildSpecs() ([]*pattern.MonitorSpec, error) {
	names := c.Names()
	specs := make([]*pattern.MonitorSpec, 0, len(names))
	for _, name := range names {
		prop, err := buildProperty(name, c.Monitor[name])
		if err != nil {
			return nil, fmt.Errorf("monitor %q: %w", name, err)
		}
		spec, err := pattern.Build(prop)
		if err != nil {
			return nil, fmt.Errorf("monitor %q: %w", name, err)
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

func buildProperty(name string, mc MonitorConfig) (hplast.Property, error) {
	activator, err := buildEvent(mc.Activator)
	if err != nil {
		return nil, fmt.Errorf("activator: %w", err)
	}
	terminator, err := buildEvent(mc.Terminator)
	if err != nil {
		return nil, fmt.Errorf("terminator: %w", err)
	}
	behaviour, err := buildEvent(mc.Behaviour)
	if err != nil {
		return nil, fmt.Errorf("behaviour: %w", err)
	}
	trigger, err := buildEvent(mc.Trigger)
	if err != nil {
		return nil, fmt.Errorf("trigger: %w", err)
	}
	if behaviour == nil {
		return nil, fmt.Errorf("behaviour is required")
	}

	scope := &hplast.LiteralScope{
		Global:          mc.Scope == "global",
		After:           mc.Scope == "after" || mc.Scope == "after_until",
		Until:           mc.Scope == "until" || mc.Scope == "after_until",
		ActivatorEvent:  activator,
		TerminatorEvent: terminator,
	}

	patt := &hplast.LiteralPattern{
		Absence:        mc.Pattern == "absence",
		Existence:      mc.Pattern == "existence",
		Requirement:    mc.Pattern == "requirement",
		Response:       mc.Pattern == "response",
		Prevention:     mc.Pattern == "prevention",
		BehaviourEvent: behaviour,
		TriggerEvent:   trigger,
		Timeout:        mc.Timeout.Duration,
	}

	title := mc.Title
	if title == "" {
		title = name
	}

	return &hplast.LiteralProperty{
		PropScope:   scope,
		PropPattern: patt,
		PropMetadata: map[string]string{
			"id":          name,
			"title":       title,
			"description": mc.Description,
		},
		Text: propertyText(name, mc),
	}, nil
}

// buildEvent turns a disjunction of configured events into an hplast.Event.
// A nil/empty slice yields a nil Event (the scope or pattern slot is
// simply absent, as with a global scope's activator).
func buildEvent(events []EventConfig) (hplast.Event, error) {
	if len(events) == 0 {
		return nil, nil
	}
	simple := make([]*hplast.SimpleEvent, 0, len(events))
	for _, ev := range events {
		expr, err := predicate.Parse(ev.Condition)
		if err != nil {
			return nil, fmt.Errorf("topic %q: %w", ev.Topic, err)
		}
		simple = append(simple, &hplast.SimpleEvent{
			EventTopic:     ev.Topic,
			EventPredicate: expr,
			EventAlias:     ev.Alias,
		})
	}
	if len(simple) == 1 {
		return hplast.Of(simple[0]), nil
	}
	return &hplast.Disjunction{Events: simple}, nil
}

func propertyText(name string, mc MonitorConfig) string {
	return fmt.Sprintf("%s: %s of %s", mc.Scope, mc.Pattern, name)
}
