package fluxgraph

// Event is the unit of data flowing through an aggregation graph. It is
// immutable once emitted; augmentation produces a new Event rather than
// mutating the original.
type Event struct {
	Body Variant
	Key  string
	Time int64 // milliseconds since epoch
	ID   string
}

// NewEvent constructs an Event. ID is left empty; callers that need a
// unique identifier should populate it via WithID (e.g. using
// github.com/google/uuid at the producer boundary).
func NewEvent(body Variant, key string, timeMillis int64) Event {
	return Event{Body: body, Key: key, Time: timeMillis}
}

// WithID returns a copy of the Event carrying the given identifier.
func (e Event) WithID(id string) Event {
	e.ID = id
	return e
}

// WithBody returns a copy of the Event with its body replaced. Used by the
// aggregator operator to produce the augmented downstream event without
// mutating the inbound one.
func (e Event) WithBody(body Variant) Event {
	e.Body = body
	return e
}
