// Package fsm holds the pure session state transitions.
package fsm

import "fmt"

type State string

type Event string

const (
	StateStopped   State = "stopped"
	StatePlaying   State = "playing"
	StatePaused    State = "paused"
	StateAutopause State = "autopause"
)

const (
	EventPlay        Event = "play"
	EventPause       Event = "pause"
	EventResume      Event = "resume"
	EventStop        Event = "stop"
	EventListen      Event = "listen"
	EventIdleTimeout Event = "idle_timeout"
	EventShutdown    Event = "shutdown"
	EventExited      Event = "exited"
)

// States lists every state, in declaration order.
func States() []State {
	return []State{StateStopped, StatePlaying, StatePaused, StateAutopause}
}

// Events lists every event, in declaration order.
func Events() []Event {
	return []Event{EventPlay, EventPause, EventResume, EventStop, EventListen, EventIdleTimeout, EventShutdown, EventExited}
}

// Transition is total over known states: every pair yields a state, and
// unhandled pairs keep the current state and return an error.
func Transition(current State, event Event) (State, error) {
	switch event {
	case EventShutdown, EventExited:
		if !known(current) {
			return current, fmt.Errorf("unknown state %q", current)
		}
		return StateStopped, nil
	}

	switch current {
	case StateStopped:
		switch event {
		case EventPlay, EventResume:
			return StatePlaying, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StatePlaying:
		switch event {
		case EventPlay, EventResume:
			return StatePlaying, nil
		case EventPause, EventStop:
			return StatePaused, nil
		case EventListen:
			return StateAutopause, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StatePaused:
		switch event {
		case EventPlay, EventResume:
			return StatePlaying, nil
		case EventPause, EventStop:
			return StatePaused, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateAutopause:
		switch event {
		case EventPlay, EventResume, EventIdleTimeout:
			return StatePlaying, nil
		case EventPause, EventStop:
			return StatePaused, nil
		case EventListen:
			return StateAutopause, nil
		default:
			return current, invalidTransition(current, event)
		}
	default:
		return current, fmt.Errorf("unknown state %q", current)
	}
}

func known(state State) bool {
	switch state {
	case StateStopped, StatePlaying, StatePaused, StateAutopause:
		return true
	default:
		return false
	}
}

func invalidTransition(state State, event Event) error {
	return fmt.Errorf("invalid transition: %s --(%s)--> ?", state, event)
}
