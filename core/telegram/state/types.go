package state

import (
	"errors"
	"fmt"
	"sort"
)

// State identifies a finite-state-machine step used in conversations.
type State string

// StateIdle indicates there is no active conversation with the user.
// An absent store entry reads as StateIdle.
const StateIdle State = "IDLE"

// Kind is the shape of inbound content a state may accept.
type Kind string

const (
	KindText     Kind = "text"
	KindVideo    Kind = "video"
	KindCallback Kind = "callback"
)

// ErrUnknownState is returned when writing a state that the table does not declare.
var ErrUnknownState = errors.New("state: unknown state")

// Step describes one waiting state: the content it accepts, the states it may
// move to, and the scratch keys that must be present when it runs.
type Step struct {
	Accepts  Kind
	Next     []State
	Requires []string
}

// Table is the transition table of a conversation.
type Table map[State]Step

// Known reports whether st is Idle or declared in the table.
func (t Table) Known(st State) bool {
	if st == StateIdle {
		return true
	}
	_, ok := t[st]
	return ok
}

// Accepts reports whether content of kind is expected while in st.
// Idle accepts nothing.
func (t Table) Accepts(st State, kind Kind) bool {
	step, ok := t[st]
	return ok && step.Accepts == kind
}

// Requires returns the scratch keys st consumes.
func (t Table) Requires(st State) []string {
	return t[st].Requires
}

// Validate checks that every state in all has a step, that the table holds no
// extra states, and that every transition target is known.
func (t Table) Validate(all []State) error {
	var problems []string
	declared := make(map[State]struct{}, len(all))
	for _, st := range all {
		declared[st] = struct{}{}
		if st == StateIdle {
			continue
		}
		step, ok := t[st]
		if !ok {
			problems = append(problems, fmt.Sprintf("%s: no step", st))
			continue
		}
		if step.Accepts == "" {
			problems = append(problems, fmt.Sprintf("%s: accepts nothing", st))
		}
		if len(step.Next) == 0 {
			problems = append(problems, fmt.Sprintf("%s: no transitions", st))
		}
	}
	for st, step := range t {
		if _, ok := declared[st]; !ok {
			problems = append(problems, fmt.Sprintf("%s: not in state list", st))
		}
		for _, next := range step.Next {
			if !t.Known(next) {
				problems = append(problems, fmt.Sprintf("%s -> %s: unknown target", st, next))
			}
		}
	}
	if len(problems) == 0 {
		return nil
	}
	sort.Strings(problems)
	return fmt.Errorf("state table: %v", problems)
}
