package livebus

import (
	"github.com/git-afsantos/hplrv/internal/manager"
	"github.com/git-afsantos/hplrv/internal/monitor"
)

// statusLine is one entry of the array sent as the first line after
// accept: one per monitor, in index order.
type statusLine struct {
	ID       string         `json:"id"`
	Title    string         `json:"title"`
	Property string         `json:"property"`
	Verdict  *bool          `json:"verdict"`
	Witness  []witnessLine  `json:"witness,omitempty"`
}

// deltaLine is one verdict transition, sent as its own line.
type deltaLine struct {
	Value     bool          `json:"value"`
	Monitor   int           `json:"monitor"`
	Timestamp float64       `json:"timestamp"`
	Witness   []witnessLine `json:"witness"`
}

type witnessLine struct {
	Topic     string         `json:"topic"`
	Timestamp float64        `json:"timestamp"`
	Message   map[string]any `json:"message"`
}

func toWitnessLines(records []monitor.WitnessRecord) []witnessLine {
	out := make([]witnessLine, len(records))
	for i, r := range records {
		out[i] = witnessLine{Topic: r.Topic, Timestamp: r.Timestamp, Message: r.Message.Data}
	}
	return out
}

func toStatusLines(entries []manager.StatusEntry) []statusLine {
	out := make([]statusLine, len(entries))
	for i, e := range entries {
		out[i] = statusLine{
			ID:       e.ID,
			Title:    e.Title,
			Property: e.Property,
			Verdict:  e.Verdict,
			Witness:  toWitnessLines(e.Witness),
		}
	}
	return out
}

func toDeltaLine(d manager.VerdictDelta) deltaLine {
	return deltaLine{
		Value:     d.Value,
		Monitor:   d.Monitor,
		Timestamp: d.Timestamp,
		Witness:   toWitnessLines(d.Witness),
	}
}
