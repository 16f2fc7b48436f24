package main

// EventHit tells a crew member their ship took a projectile
const EventHit = "hit"

// Event is a one-shot notification addressed to one player
type Event struct {
	Name   string
	Player PlayerID
}

// EventSink receives one-shot events emitted during a tick
type EventSink interface {
	Emit(name string, player PlayerID)
}

// EventBuffer collects events in emission order
type EventBuffer struct {
	Events []Event
}

func (b *EventBuffer) Emit(name string, player PlayerID) {
	b.Events = append(b.Events, Event{Name: name, Player: player})
}

// Drain returns the buffered events and resets the buffer
func (b *EventBuffer) Drain() []Event {
	out := b.Events
	b.Events = nil
	return out
}

type nopSink struct{}

func (nopSink) Emit(string, PlayerID) {}
