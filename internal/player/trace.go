package player

import (
	"encoding/json"
	"fmt"
	"io"
)

// wireEvent mirrors the player's input shape verbatim: an array of
// {timestamp, messages:[{topic, data}]}.
type wireEvent struct {
	Timestamp float64      `json:"timestamp"`
	Messages  []wireMessage `json:"messages"`
}

type wireMessage struct {
	Topic string         `json:"topic"`
	Data  map[string]any `json:"data"`
}

// DecodeTraceFile reads a JSON trace file into a Trace. Decoding itself
// is ordinary encoding/json; it carries no replay semantics.
func DecodeTraceFile(r io.Reader) (Trace, error) {
	var events []wireEvent
	if err := json.NewDecoder(r).Decode(&events); err != nil {
		return Trace{}, fmt.Errorf("decode trace: %w", err)
	}

	tr := Trace{Events: make([]TraceEvent, len(events))}
	for i, ev := range events {
		msgs := make([]Message, len(ev.Messages))
		for j, m := range ev.Messages {
			msgs[j] = Message{Topic: m.Topic, Data: m.Data}
		}
		tr.Events[i] = TraceEvent{Timestamp: ev.Timestamp, Messages: msgs}
	}
	return tr, nil
}
