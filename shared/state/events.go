package state

// EventKind tells listeners which part of the state changed.
type EventKind int

const (
	// EventState follows any change that bumps the general revision.
	EventState EventKind = iota + 1
	// EventKeyList asks key-list views to re-fetch.
	EventKeyList
	// EventKeySelection follows changes to the current key or its count.
	EventKeySelection
)

// String returns the wire name of the kind.
func (k EventKind) String() string {
	switch k {
	case EventState:
		return "state"
	case EventKeyList:
		return "key_list"
	case EventKeySelection:
		return "key_selection"
	default:
		return "unknown"
	}
}

// Event is delivered to listeners after a mutation completes.
type Event struct {
	Kind     EventKind
	Revision uint64
}

// Subscribe registers fn for change events and returns a function that removes it.
// Listeners run synchronously on the mutating goroutine, after the store lock is released.
func (s *Store) Subscribe(fn func(Event)) (cancel func()) {
	s.mu.Lock()
	id := s.nextListenerID
	s.nextListenerID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// unlockAndEmit releases the lock taken by a mutator and delivers events.
func (s *Store) unlockAndEmit(events []Event) {
	listeners := make([]func(Event), 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	for _, e := range events {
		for _, fn := range listeners {
			fn(e)
		}
	}
}
