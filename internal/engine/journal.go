package engine

// EventKind distinguishes journal events.
type EventKind string

const (
	// EventMount is recorded after a component is mounted.
	EventMount EventKind = "mount"

	// EventRefresh is recorded after a subtree is rebuilt.
	EventRefresh EventKind = "refresh"

	// EventWindow is recorded after a refresh window drains.
	EventWindow EventKind = "window"
)

// Event is one entry of the render journal.
type Event struct {
	Kind       EventKind
	Component  string
	TemplateID string
	Ref        string

	// Window, Tasks and Failed describe EventWindow entries.
	Window int
	Tasks  int
	Failed int
}

// Journal records what the engine did. Implemented by journal.Recorder.
type Journal interface {
	Record(ev Event) error
}

func (e *Engine) record(ev Event) {
	if e.journal == nil {
		return
	}
	if err := e.journal.Record(ev); err != nil {
		e.logger.Warn("journal write failed", "kind", ev.Kind, "error", err)
	}
}
