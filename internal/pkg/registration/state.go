package registration

import "fmt"

// State is the phase of one completion attempt.
type State string

const (
	StateVerifying       State = "verifying"
	StateCreatingAccount State = "creating_account"
	StateSuccess         State = "success"
	StateError           State = "error"
)

var transitions = map[State][]State{
	StateVerifying:       {StateCreatingAccount, StateError},
	StateCreatingAccount: {StateSuccess, StateError},
}

// IsTerminal reports whether no further automatic transition may happen.
func (s State) IsTerminal() bool {
	return s == StateSuccess || s == StateError
}

// Transition validates a move between states and returns the target.
func Transition(from, to State) (State, error) {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return to, nil
		}
	}
	return from, fmt.Errorf("illegal registration transition %s -> %s", from, to)
}

// machine tracks one attempt and records the states it went through.
type machine struct {
	state State
	trail []State
}

func newMachine() *machine {
	return &machine{state: StateVerifying, trail: []State{StateVerifying}}
}

func (m *machine) to(next State) {
	s, err := Transition(m.state, next)
	if err != nil {
		panic(err)
	}
	m.state = s
	m.trail = append(m.trail, s)
}
