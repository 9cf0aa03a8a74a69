package collector

// EventKind distinguishes collection events.
type EventKind int

const (
	// EventRecord is emitted after a record was appended.
	EventRecord EventKind = iota

	// EventSkip is emitted when an item did not produce a record.
	EventSkip

	// EventPageError is emitted when a search page could not be fetched.
	EventPageError
)

// String returns the event kind name.
func (k EventKind) String() string {
	switch k {
	case EventRecord:
		return "record"
	case EventSkip:
		return "skip"
	case EventPageError:
		return "page_error"
	default:
		return "unknown"
	}
}

// Event reports progress of a collection.
type Event struct {
	Kind EventKind
	Term string

	// ItemID is empty for EventPageError.
	ItemID string

	// Records is the number of records collected so far.
	Records int

	// Outcome is set for EventRecord and EventSkip.
	Outcome Outcome

	// Err is set for EventPageError.
	Err error
}

// Observer receives collection events. Observe is called synchronously on the
// collecting goroutine.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

// Observe calls fn(e).
func (fn ObserverFunc) Observe(e Event) {
	fn(e)
}
