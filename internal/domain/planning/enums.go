package planning

import (
	"fmt"
	"strings"
)

// Semester identifies one half of an academic year. Summer sorts before winter,
// which matches the calendar order within a year.
type Semester string

const (
	SemesterSummer Semester = "summer"
	SemesterWinter Semester = "winter"
)

func (s Semester) Valid() bool {
	return s == SemesterSummer || s == SemesterWinter
}

func ParseSemester(raw string) (Semester, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "summer", "sose", "sommersemester", "ss":
		return SemesterSummer, nil
	case "winter", "wise", "wintersemester", "ws":
		return SemesterWinter, nil
	default:
		return "", fmt.Errorf("unknown semester %q", raw)
	}
}

// State is the lifecycle of a leaf entry. Any transition is allowed.
type State string

const (
	StateNotPlanned   State = "not_planned"
	StateMaybePlanned State = "maybe_planned"
	StatePlanned      State = "planned"
	StateDone         State = "done"
)

func (s State) Valid() bool {
	switch s {
	case StateNotPlanned, StateMaybePlanned, StatePlanned, StateDone:
		return true
	default:
		return false
	}
}

// Counts reports whether an entry in this state contributes credits and modules.
func (s State) Counts() bool {
	return s == StateDone || s == StatePlanned
}

func ParseState(raw string) (State, error) {
	s := State(strings.ToLower(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", fmt.Errorf("unknown state %q", raw)
	}
	return s, nil
}
