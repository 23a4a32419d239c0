package pipeline

import "fmt"

// State is one step of a summarization run.
type State string

const (
	StateStart       State = "start"
	StateStage1Split State = "stage1_split"
	StateStage1Infer State = "stage1_infer"
	StateStage1Merge State = "stage1_merge"
	StateStage2Split State = "stage2_split"
	StateStage2Infer State = "stage2_infer"
	StateStage2Merge State = "stage2_merge"
	StateDone        State = "done"
	StateAborted     State = "aborted"
)

var forward = map[State]State{
	StateStart:       StateStage1Split,
	StateStage1Split: StateStage1Infer,
	StateStage1Infer: StateStage1Merge,
	StateStage1Merge: StateStage2Split,
	StateStage2Split: StateStage2Infer,
	StateStage2Infer: StateStage2Merge,
	StateStage2Merge: StateDone,
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateDone || s == StateAborted
}

// TransitionError reports an illegal state change.
type TransitionError struct {
	From State
	To   State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("illegal pipeline transition %s -> %s", e.From, e.To)
}

// Machine tracks the state of one run and rejects out-of-order steps.
type Machine struct {
	state   State
	history []State
}

// NewMachine returns a machine in StateStart.
func NewMachine() *Machine {
	return &Machine{state: StateStart, history: []State{StateStart}}
}

// State returns the current state.
func (m *Machine) State() State { return m.state }

// History returns every state visited, in order.
func (m *Machine) History() []State {
	return append([]State(nil), m.history...)
}

// Transition moves to next. Only the single forward successor, or Aborted
// from a non-terminal state, is accepted.
func (m *Machine) Transition(next State) error {
	if m.state.Terminal() {
		return &TransitionError{From: m.state, To: next}
	}
	if next != StateAborted && forward[m.state] != next {
		return &TransitionError{From: m.state, To: next}
	}
	m.state = next
	m.history = append(m.history, next)
	return nil
}
