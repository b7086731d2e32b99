package docgraph

// Event names a notification emitted through an EventHub.
type Event string

// Events emitted by a Store and a TransactionLog.
const (
	EventChanged             Event = "changed"
	EventTransactionBegan    Event = "transactionBegan"
	EventTransactionEnding   Event = "transactionEnding"
	EventTransactionEnded    Event = "transactionEnded"
	EventTransactionCanceled Event = "transactionCanceled"
	EventDidUndo             Event = "didUndo"
	EventDidRedo             Event = "didRedo"
)

// A Handle identifies one handler registration. Pass it to
// EventHub.RemoveHandler to unregister exactly that registration.
type Handle struct {
	event Event
	seq   uint64
}

// Event returns the event the registration was made for.
func (h Handle) Event() Event { return h.event }

type registration struct {
	seq     uint64
	handler any
}

// EventHub maps event names to ordered lists of handlers.
//
// The hub does not know the shape of its handlers; an emitter passes an
// invoker to OnEvent that decides how each handler is called. Registering the
// same function twice results in two registrations.
//
// The zero value is ready to use. An EventHub is not safe for concurrent use.
type EventHub struct {
	handlers map[Event][]registration
	seq      uint64
}

// AddHandler registers handler under event and returns the registration's
// handle.
func (h *EventHub) AddHandler(event Event, handler any) Handle {
	if h.handlers == nil {
		h.handlers = make(map[Event][]registration)
	}
	h.seq++
	h.handlers[event] = append(h.handlers[event], registration{seq: h.seq, handler: handler})
	return Handle{event: event, seq: h.seq}
}

// RemoveHandler unregisters the registration identified by handle and reports
// whether it was still registered.
func (h *EventHub) RemoveHandler(handle Handle) bool {
	regs := h.handlers[handle.event]
	for i, r := range regs {
		if r.seq != handle.seq {
			continue
		}
		next := make([]registration, 0, len(regs)-1)
		next = append(next, regs[:i]...)
		h.handlers[handle.event] = append(next, regs[i+1:]...)
		return true
	}
	return false
}

// OnEvent calls invoke once for each handler registered under event, in
// registration order. Handlers added or removed while OnEvent runs take effect
// from the next emission.
func (h *EventHub) OnEvent(event Event, invoke func(handler any)) {
	for _, r := range h.handlers[event] {
		invoke(r.handler)
	}
}
