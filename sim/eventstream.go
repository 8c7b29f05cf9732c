// sim/eventstream.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"fmt"
	"log/slog"
	"runtime"
	"slices"
	"sync"
	"time"

	av "github.com/mmp/trajgen/aviation"
	"github.com/mmp/trajgen/log"
)

// EventStream provides a basic pub/sub event interface that allows the
// simulation to post notable events (phase changes, abnormal events,
// conflict holds, and so forth) and other parts of the system to
// subscribe and receive them.
type EventStream struct {
	mu            sync.Mutex
	events        []Event
	subscriptions map[*EventsSubscription]any
	lastPost      time.Time
	warnedLong    bool
	done          chan struct{}
	lg            *log.Logger
}

type EventsSubscription struct {
	stream *EventStream
	// offset is offset in the EventStream stream array up to which the
	// subscriber has consumed events so far.
	offset      int
	source      string
	lastGet     time.Time
	warnedNoGet bool
}

func (e *EventsSubscription) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("offset", e.offset),
		slog.String("source", e.source),
		slog.Time("last_get", e.lastGet))
}

func NewEventStream(lg *log.Logger) *EventStream {
	es := &EventStream{
		subscriptions: make(map[*EventsSubscription]any),
		lastPost:      time.Now(),
		done:          make(chan struct{}),
		lg:            lg,
	}
	go es.monitor()
	return es
}

// Subscribe registers a new subscriber to the stream. Events posted
// before the subscription are never reported to it.
func (e *EventStream) Subscribe() *EventsSubscription {
	// Record the subscriber's callsite, so that we can more easily debug
	// subscribers that aren't consuming events.
	_, fn, line, _ := runtime.Caller(1)

	e.mu.Lock()
	defer e.mu.Unlock()

	sub := &EventsSubscription{
		stream:  e,
		offset:  len(e.events),
		source:  fmt.Sprintf("%s:%d", fn, line),
		lastGet: time.Now(),
	}
	e.subscriptions[sub] = nil
	return sub
}

func (e *EventStream) monitor() {
	tick := time.NewTicker(5 * time.Second)
	defer tick.Stop()

	for {
		select {
		case <-e.done:
			return
		case <-tick.C:
		}

		e.mu.Lock()

		e.compact()

		if len(e.events) > 10000 && !e.warnedLong {
			// It's likely that one of the subscribers is out to lunch if
			// the stream has grown this long.
			e.lg.Warn("Long EventStream", slog.Int("length", len(e.events)),
				slog.Int("subscriptions", len(e.subscriptions)))
			e.warnedLong = true
		}

		if time.Since(e.lastPost) < 5*time.Second {
			for sub := range e.subscriptions {
				if d := time.Since(sub.lastGet); d > 10*time.Second && !sub.warnedNoGet {
					e.lg.Warn("Subscriber has not called Get() recently",
						slog.Duration("duration", d), slog.Any("subscriber", sub))
					sub.warnedNoGet = true
				}
			}
		}

		e.mu.Unlock()
	}
}

// Unsubscribe removes a subscriber from the subscriber list
func (e *EventsSubscription) Unsubscribe() {
	e.stream.mu.Lock()
	defer e.stream.mu.Unlock()

	if _, ok := e.stream.subscriptions[e]; !ok {
		e.stream.lg.Errorf("Attempted to unsubscribe invalid subscription: %+v", e)
	}
	delete(e.stream.subscriptions, e)
	e.stream = nil
}

// Post adds an event to the event stream.
func (e *EventStream) Post(event Event) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.lg.Debug("posted event", slog.Any("event", event))

	// Ignore the event if no one's paying attention.
	if len(e.subscriptions) > 0 {
		e.lastPost = time.Now()
		e.events = append(e.events, event)
	}
}

// Get returns all of the events from the stream since the last time Get
// was called for the subscription.
func (e *EventsSubscription) Get() []Event {
	e.stream.mu.Lock()
	defer e.stream.mu.Unlock()

	if _, ok := e.stream.subscriptions[e]; !ok {
		e.stream.lg.Errorf("Attempted to get with unregistered subscription: %+v", e)
		return nil
	}

	events := slices.Clone(e.stream.events[e.offset:])
	e.offset = len(e.stream.events)
	e.lastGet = time.Now()
	e.warnedNoGet = false

	return events
}

func (e *EventStream) Destroy() {
	e.mu.Lock()
	defer e.mu.Unlock()

	select {
	case <-e.done:
	default:
		close(e.done)
	}
	clear(e.subscriptions)
}

// compact reclaims storage for events that all subscribers have seen.
func (e *EventStream) compact() {
	minOffset := len(e.events)
	for sub := range e.subscriptions {
		minOffset = min(minOffset, sub.offset)
	}

	if minOffset > cap(e.events)/2 {
		n := len(e.events) - minOffset

		copy(e.events, e.events[minOffset:])
		e.events = e.events[:n]

		for sub := range e.subscriptions {
			sub.offset -= minOffset
		}

		e.warnedLong = false // reset this after a successful compact.
	}
}

// implements slog.LogValuer
func (e *EventStream) LogValue() slog.Value {
	e.mu.Lock()
	defer e.mu.Unlock()

	items := []slog.Attr{slog.Int("len", len(e.events)), slog.Int("cap", cap(e.events))}
	if len(e.events) > 0 {
		items = append(items, slog.Any("last_element", e.events[len(e.events)-1]))
	}
	items = append(items, slog.Int("subscriptions", len(e.subscriptions)))
	return slog.GroupValue(items...)
}

///////////////////////////////////////////////////////////////////////////

type EventType int

const (
	PhaseChangeEvent EventType = iota
	AbnormalEvent
	LandedEvent
	ConflictHoldEvent
	ClearanceStallEvent
	RerouteEvent
	TacticalHoldEvent
	TacticalReleaseEvent
	VehicleArrivedEvent
	StatusMessageEvent
	NumEventTypes
)

func (t EventType) String() string {
	return []string{"PhaseChange", "Abnormal", "Landed", "ConflictHold", "ClearanceStall",
		"Reroute", "TacticalHold", "TacticalRelease", "VehicleArrived", "StatusMessage"}[t]
}

type Event struct {
	Type EventType
	Time time.Time
	// Callsign is the aircraft or ground vehicle the event concerns.
	Callsign string
	// Other is the other aircraft in a conflict.
	Other string
	Phase av.FlightPhase
	Text  string
}

func (e *Event) String() string {
	switch e.Type {
	case ConflictHoldEvent:
		return fmt.Sprintf("%s %s: %s held for %s: %s", e.Time.Format(time.RFC3339), e.Type, e.Callsign,
			e.Other, e.Text)
	case StatusMessageEvent:
		return fmt.Sprintf("%s %s: %s", e.Time.Format(time.RFC3339), e.Type, e.Text)
	default:
		return fmt.Sprintf("%s %s: %s %s %s", e.Time.Format(time.RFC3339), e.Type, e.Callsign, e.Phase, e.Text)
	}
}

func (e Event) LogValue() slog.Value {
	attrs := []slog.Attr{slog.String("type", e.Type.String()), slog.Time("time", e.Time)}
	if e.Callsign != "" {
		attrs = append(attrs, slog.String("callsign", e.Callsign), slog.String("phase", e.Phase.String()))
	}
	if e.Other != "" {
		attrs = append(attrs, slog.String("other", e.Other))
	}
	if e.Text != "" {
		attrs = append(attrs, slog.String("text", e.Text))
	}
	return slog.GroupValue(attrs...)
}
