package usecase

// Emitter is the outbound push channel for one streaming turn
// (server-sent-events shaped). Implementations must preserve call order;
// the relay guarantees the emotion event precedes all content events,
// which precede the terminal event.
type Emitter interface {
	// Event sends a named event with a payload.
	Event(name, payload string) error
	// Data sends an unnamed data event (raw upstream frame or terminal
	// sentinel).
	Data(payload string) error
}
