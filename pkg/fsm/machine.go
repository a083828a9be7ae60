package fsm

import (
	"fmt"
	"sync"
)

type State string
type Event string

// Listener observes every committed transition. Listeners run outside the
// machine's lock and may query it.
type Listener func(from, to State, event Event)

// TransitionError is returned by Fire when event is not valid from From.
type TransitionError struct {
	From  State
	Event Event
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid transition from %s via %s", e.From, e.Event)
}

type StateMachine struct {
	mu          sync.RWMutex
	current     State
	transitions map[State]map[Event]State
	listeners   []Listener
}

func New(initial State) *StateMachine {
	return &StateMachine{
		current:     initial,
		transitions: make(map[State]map[Event]State),
	}
}

func (sm *StateMachine) Current() State {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.current
}

func (sm *StateMachine) AddTransition(from, to State, event Event) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if _, ok := sm.transitions[from]; !ok {
		sm.transitions[from] = make(map[Event]State)
	}
	sm.transitions[from][event] = to
}

// OnTransition registers a listener called after each committed transition.
func (sm *StateMachine) OnTransition(l Listener) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.listeners = append(sm.listeners, l)
}

// Can reports whether event is valid from the current state.
func (sm *StateMachine) Can(event Event) bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	_, ok := sm.transitions[sm.current][event]
	return ok
}

// Fire commits the transition for event and then notifies the listeners.
// It is thread-safe; callers that need whole sequences of transitions to be
// atomic serialize them themselves.
func (sm *StateMachine) Fire(event Event) error {
	sm.mu.Lock()
	from := sm.current
	next, ok := sm.transitions[from][event]
	if !ok {
		sm.mu.Unlock()
		return &TransitionError{From: from, Event: event}
	}
	sm.current = next
	listeners := append([]Listener(nil), sm.listeners...)
	sm.mu.Unlock()

	for _, l := range listeners {
		l(from, next, event)
	}
	return nil
}

// Personal.AI order the ending
