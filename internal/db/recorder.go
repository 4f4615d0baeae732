package db

import (
	"github.com/banshee-data/rake.receiver/internal/monitoring"
	"github.com/banshee-data/rake.receiver/internal/rake"
)

// EventRecorder buffers receiver events and writes them to sqlite from a
// single background goroutine, keeping the streaming path free of I/O. It
// implements rake.EventSink. Events are dropped (with a log line) if the
// buffer fills faster than sqlite can drain it.
type EventRecorder struct {
	db     *DB
	events chan interface{}
	done   chan struct{}
}

const recorderBuffer = 1024

// NewEventRecorder starts the background writer.
func NewEventRecorder(db *DB) *EventRecorder {
	r := &EventRecorder{
		db:     db,
		events: make(chan interface{}, recorderBuffer),
		done:   make(chan struct{}),
	}
	go r.run()
	return r
}

func (r *EventRecorder) run() {
	defer close(r.done)
	for ev := range r.events {
		var err error
		switch ev := ev.(type) {
		case rake.FingerEvent:
			err = r.db.InsertFingerEvent(ev)
		case rake.SpeedUpdate:
			err = r.db.InsertSpeedUpdate(ev)
		}
		if err != nil {
			monitoring.Logf("Error recording receiver event: %v", err)
		}
	}
}

func (r *EventRecorder) enqueue(ev interface{}) {
	select {
	case r.events <- ev:
	default:
		monitoring.Logf("Event buffer full, dropping %T", ev)
	}
}

// RecordFingerEvent implements rake.EventSink.
func (r *EventRecorder) RecordFingerEvent(ev rake.FingerEvent) {
	r.enqueue(ev)
}

// RecordSpeedUpdate implements rake.EventSink.
func (r *EventRecorder) RecordSpeedUpdate(up rake.SpeedUpdate) {
	r.enqueue(up)
}

// Close drains any buffered events and stops the writer. The recorder must
// not be used after Close.
func (r *EventRecorder) Close() {
	close(r.events)
	<-r.done
}
