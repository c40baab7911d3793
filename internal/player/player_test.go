package player

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/git-afsantos/hplrv/internal/hplast"
)

type recordingTarget struct {
	messages []struct {
		topic string
		t     float64
	}
	timers []float64
}

func (r *recordingTarget) OnMessage(topic string, msg hplast.Message, t float64) {
	r.messages = append(r.messages, struct {
		topic string
		t     float64
	}{topic, t})
}

func (r *recordingTarget) OnTimer(t float64) {
	r.timers = append(r.timers, t)
}

func TestReplayDeliversTimerTicksAtFrequencyMultiples(t *testing.T) {
	tr := Trace{Events: []TraceEvent{
		{Timestamp: 0.25, Messages: []Message{{Topic: "a", Data: nil}}},
	}}
	target := &recordingTarget{}
	Replay(tr, 10, target, rand.New(rand.NewSource(1)))

	want := []float64{0.1, 0.2}
	if len(target.timers) != len(want) {
		t.Fatalf("timers = %v, want %v", target.timers, want)
	}
	for i, w := range want {
		if target.timers[i] != w {
			t.Errorf("timers[%d] = %v, want %v", i, target.timers[i], w)
		}
	}
}

func TestReplayNoTimerWhenFrequencyZero(t *testing.T) {
	tr := Trace{Events: []TraceEvent{{Timestamp: 1, Messages: []Message{{Topic: "a"}}}}}
	target := &recordingTarget{}
	Replay(tr, 0, target, rand.New(rand.NewSource(1)))
	if len(target.timers) != 0 {
		t.Fatalf("timers = %v, want none", target.timers)
	}
	if len(target.messages) != 1 {
		t.Fatalf("messages = %v, want one", target.messages)
	}
}

func TestReplayDeliversAllMessagesAtSharedTimestamp(t *testing.T) {
	tr := Trace{Events: []TraceEvent{
		{Timestamp: 1, Messages: []Message{{Topic: "a"}, {Topic: "b"}, {Topic: "c"}}},
	}}
	target := &recordingTarget{}
	Replay(tr, 0, target, rand.New(rand.NewSource(7)))

	if len(target.messages) != 3 {
		t.Fatalf("messages = %v, want 3", target.messages)
	}
	seen := map[string]bool{}
	for _, m := range target.messages {
		seen[m.topic] = true
		if m.t != 1 {
			t.Errorf("message %s delivered at t=%v, want 1", m.topic, m.t)
		}
	}
	for _, topic := range []string{"a", "b", "c"} {
		if !seen[topic] {
			t.Errorf("topic %q was not delivered", topic)
		}
	}
}

func TestDecodeTraceFile(t *testing.T) {
	raw := `[
		{"timestamp": 1, "messages": [{"topic": "/a", "data": {"x": 1}}]},
		{"timestamp": 2, "messages": []}
	]`
	tr, err := DecodeTraceFile(strings.NewReader(raw))
	if err != nil {
		t.Fatal(err)
	}
	if len(tr.Events) != 2 {
		t.Fatalf("events = %d, want 2", len(tr.Events))
	}
	if tr.Events[0].Timestamp != 1 || tr.Events[0].Messages[0].Topic != "/a" {
		t.Fatalf("event[0] = %+v", tr.Events[0])
	}
	if tr.Events[0].Messages[0].Data["x"].(float64) != 1 {
		t.Fatalf("data.x = %v, want 1", tr.Events[0].Messages[0].Data["x"])
	}
}

func TestDecodeTraceFileInvalidJSON(t *testing.T) {
	_, err := DecodeTraceFile(strings.NewReader("not json"))
	if err == nil {
		t.Fatal("expected decode error")
	}
}
