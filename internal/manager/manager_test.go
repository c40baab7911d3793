package manager

import (
	"testing"
	"time"

	"github.com/git-afsantos/hplrv/internal/hplast"
	"github.com/git-afsantos/hplrv/internal/pattern"
	"github.com/git-afsantos/hplrv/internal/predicate"
)

func simple(topic, cond, alias string) *hplast.SimpleEvent {
	expr, err := predicate.Parse(cond)
	if err != nil {
		panic(err)
	}
	return &hplast.SimpleEvent{EventTopic: topic, EventPredicate: expr, EventAlias: alias}
}

func globalSpec(t *testing.T, id string, patt *hplast.LiteralPattern) *pattern.MonitorSpec {
	t.Helper()
	prop := &hplast.LiteralProperty{
		PropScope:    &hplast.LiteralScope{Global: true},
		PropPattern:  patt,
		PropMetadata: map[string]string{"id": id, "title": id},
	}
	spec, err := pattern.Build(prop)
	if err != nil {
		t.Fatal(err)
	}
	return spec
}

type fakeSink struct {
	deltas []VerdictDelta
}

func (f *fakeSink) Publish(d VerdictDelta) { f.deltas = append(f.deltas, d) }

type fakeLifecycle struct {
	events []string
}

func (f *fakeLifecycle) Record(monitorID, event string) {
	f.events = append(f.events, monitorID+":"+event)
}

func TestManagerDispatchesOnlyToSubscribedTopics(t *testing.T) {
	s1 := globalSpec(t, "m1", &hplast.LiteralPattern{Absence: true, BehaviourEvent: hplast.Of(simple("/a", "x < 0", ""))})
	s2 := globalSpec(t, "m2", &hplast.LiteralPattern{Existence: true, BehaviourEvent: hplast.Of(simple("/b", "x > 0", ""))})

	m := New([]*pattern.MonitorSpec{s1, s2})
	m.Launch(0)

	m.OnMessage("/a", hplast.Message{Topic: "/a", Data: map[string]any{"x": -1.0}}, 1)

	report := m.StatusReport()
	if report[0].State != pattern.StateFalse {
		t.Fatalf("monitor 0 state = %v, want FALSE", report[0].State)
	}
	if report[1].Verdict != nil {
		t.Fatalf("monitor 1 should be unaffected by /a traffic, got verdict %v", *report[1].Verdict)
	}
}

func TestManagerPublishesDeltasToSink(t *testing.T) {
	s1 := globalSpec(t, "m1", &hplast.LiteralPattern{Absence: true, BehaviourEvent: hplast.Of(simple("/a", "x < 0", ""))})
	sink := &fakeSink{}
	m := New([]*pattern.MonitorSpec{s1}, WithSink(sink))
	m.Launch(0)

	m.OnMessage("/a", hplast.Message{Topic: "/a", Data: map[string]any{"x": -1.0}}, 1)

	if len(sink.deltas) != 1 {
		t.Fatalf("deltas = %d, want 1", len(sink.deltas))
	}
	if sink.deltas[0].Value != false || sink.deltas[0].Monitor != 0 {
		t.Fatalf("delta = %+v, want {Value:false Monitor:0}", sink.deltas[0])
	}
}

func TestManagerRecordsLifecycle(t *testing.T) {
	s1 := globalSpec(t, "m1", &hplast.LiteralPattern{Absence: true, BehaviourEvent: hplast.Of(simple("/a", "x < 0", ""))})
	lc := &fakeLifecycle{}
	m := New([]*pattern.MonitorSpec{s1}, WithLifecycle(lc))

	m.Launch(0)
	m.Shutdown(1)

	want := []string{"m1:launch", "m1:shutdown"}
	if len(lc.events) != len(want) {
		t.Fatalf("events = %v, want %v", lc.events, want)
	}
	for i := range want {
		if lc.events[i] != want[i] {
			t.Fatalf("events[%d] = %q, want %q", i, lc.events[i], want[i])
		}
	}
}

func TestManagerStatusReportOrder(t *testing.T) {
	s1 := globalSpec(t, "m1", &hplast.LiteralPattern{Absence: true, BehaviourEvent: hplast.Of(simple("/a", "x < 0", ""))})
	s2 := globalSpec(t, "m2", &hplast.LiteralPattern{Existence: true, BehaviourEvent: hplast.Of(simple("/b", "x > 0", ""))})
	m := New([]*pattern.MonitorSpec{s1, s2})

	report := m.StatusReport()
	if len(report) != 2 || report[0].ID != "m1" || report[1].ID != "m2" {
		t.Fatalf("status report = %+v, want ordered [m1, m2]", report)
	}
	if m.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", m.Len())
	}
}

func TestManagerOnTimerFansOut(t *testing.T) {
	s1 := globalSpec(t, "m1", &hplast.LiteralPattern{
		Absence:        true,
		BehaviourEvent: hplast.Of(simple("/a", "x > 0", "")),
		Timeout:        100 * time.Millisecond,
	})
	m := New([]*pattern.MonitorSpec{s1})
	m.Launch(0)
	m.OnTimer(0.2)

	report := m.StatusReport()
	if report[0].Verdict == nil || *report[0].Verdict != true {
		t.Fatalf("verdict = %v, want true", report[0].Verdict)
	}
}
