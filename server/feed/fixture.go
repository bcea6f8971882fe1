package feed

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// FixtureCapture replays a pre-recorded event stream from a fixture file.
// Fixture format:
//
//	{"events": [
//	  {"t": 1.0, "obs": {"zoneId": "seat_1", "rank": "10", "confidence": 0.97}},
//	  {"t": 2.0, "command": "split", "seatId": "seat_1"}
//	]}
type FixtureCapture struct {
	Path string
}

type fixtureFile struct {
	Events []json.RawMessage `json:"events"`
}

// Stream loads and timestamp-orders the fixture events.
func (f FixtureCapture) Stream() ([]Event, error) {
	raw, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	var file fixtureFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", f.Path, err)
	}

	events := make([]Event, 0, len(file.Events))
	for i, item := range file.Events {
		ev, err := decodeEvent(item)
		if err != nil {
			return nil, fmt.Errorf("fixture %s event %d: %w", f.Path, i, err)
		}
		events = append(events, ev)
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].T < events[j].T })
	return events, nil
}

func decodeEvent(raw json.RawMessage) (Event, error) {
	var head struct {
		T       float64      `json:"t"`
		Obs     *Observation `json:"obs"`
		Command string       `json:"command"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return Event{}, err
	}
	ev := Event{T: head.T, Obs: head.Obs, Command: head.Command}
	if ev.Obs == nil && ev.Command == "" {
		return Event{}, fmt.Errorf("event carries neither an observation nor a command")
	}
	if ev.Command != "" {
		var payload map[string]any
		if err := json.Unmarshal(raw, &payload); err != nil {
			return Event{}, err
		}
		delete(payload, "t")
		delete(payload, "command")
		ev.Payload = payload
	}
	return ev, nil
}
