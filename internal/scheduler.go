package internal

// State of the dispatch engine.
type State int32

const (
	StateIdle State = iota
	StateResolving
	StateInvoking
	StateApplying
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateResolving:
		return "resolving"
	case StateInvoking:
		return "invoking"
	case StateApplying:
		return "applying"
	default:
		return "unknown"
	}
}

type Scheduler struct {
	state State

	// incremented for each wave, reset when the scheduler goes idle
	wave int

	// total waves run since creation
	clock int
}

func NewScheduler() *Scheduler {
	return &Scheduler{
		state: StateIdle,
	}
}

func (s *Scheduler) State() State { return s.state }

func (s *Scheduler) Busy() bool { return s.state != StateIdle }

// Begin moves to resolving for a new wave and returns its index within the dispatch.
func (s *Scheduler) Begin() int {
	s.state = StateResolving
	s.wave++
	s.clock++
	return s.wave
}

func (s *Scheduler) Transition(to State) {
	s.state = to
}

// Idle ends the dispatch and returns how many waves it took.
func (s *Scheduler) Idle() int {
	waves := s.wave
	s.state = StateIdle
	s.wave = 0
	return waves
}

func (s *Scheduler) Time() int {
	return s.clock
}
