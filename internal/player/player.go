// Package player drives a manager from an ordered trace of timestamped
// messages, standing in for an external scheduler.
package player

import (
	"math/rand"

	"github.com/git-afsantos/hplrv/internal/hplast"
)

// Message is one message occurrence in a trace event.
type Message struct {
	Topic string
	Data  map[string]any
}

// TraceEvent groups every message that occurs at the same timestamp.
type TraceEvent struct {
	Timestamp float64
	Messages  []Message
}

// Trace is an ordered (non-decreasing timestamp) sequence of events.
type Trace struct {
	Events []TraceEvent
}

// Target is the subset of a manager's ABI the player drives.
type Target interface {
	OnMessage(topic string, msg hplast.Message, t float64)
	OnTimer(t float64)
}

// Replay delivers tr to target at frequency f (timer ticks at every
// multiple of 1/f), interleaving messages that share a timestamp in
// random order. rnd may be nil, in which case a new source with the fixed
// seed 1 is used.
func Replay(tr Trace, f float64, target Target, rnd *rand.Rand) {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(1))
	}

	var dt float64
	var nextTick float64
	ticking := f > 0
	if ticking {
		dt = 1 / f
		nextTick = dt
	}

	for _, ev := range tr.Events {
		if ticking {
			for nextTick <= ev.Timestamp {
				target.OnTimer(nextTick)
				nextTick += dt
			}
		}

		msgs := make([]Message, len(ev.Messages))
		copy(msgs, ev.Messages)
		rnd.Shuffle(len(msgs), func(i, j int) { msgs[i], msgs[j] = msgs[j], msgs[i] })

		for _, m := range msgs {
			target.OnMessage(m.Topic, hplast.Message{Topic: m.Topic, Data: m.Data}, ev.Timestamp)
		}
	}
}
