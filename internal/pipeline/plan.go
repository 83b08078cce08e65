package pipeline

import (
	"fmt"
	"strings"

	"github.com/jonathan/application-agent/internal/state"
)

// UnitKind says how the runner drives a unit.
type UnitKind int

const (
	// UnitStage runs one stage on the trunk.
	UnitStage UnitKind = iota
	// UnitParallel fans its stages out over the runner's pool.
	UnitParallel
	// UnitGate runs one threshold stage and may re-enter an earlier unit.
	UnitGate
)

func (k UnitKind) String() string {
	switch k {
	case UnitStage:
		return "stage"
	case UnitParallel:
		return "parallel"
	case UnitGate:
		return "gate"
	}
	return fmt.Sprintf("UnitKind(%d)", int(k))
}

// Unit is one step of a plan.
type Unit struct {
	Name   string
	Kind   UnitKind
	Stages []Stage
	// ReEnter names the earlier unit a gate sends the run back to.
	ReEnter string
}

// Single wraps one stage as a unit named after it.
func Single(s Stage) Unit {
	return Unit{Name: s.Name(), Kind: UnitStage, Stages: []Stage{s}}
}

// Parallel groups stages that only read slots written before the group.
func Parallel(name string, stages ...Stage) Unit {
	return Unit{Name: name, Kind: UnitParallel, Stages: stages}
}

// Gate wraps a threshold stage. When it leaves a retry pending, the runner
// continues from the unit named reenter.
func Gate(s Stage, reenter string) Unit {
	return Unit{Name: s.Name(), Kind: UnitGate, Stages: []Stage{s}, ReEnter: reenter}
}

// StageNames returns the names of the unit's stages in declared order.
func (u Unit) StageNames() []string {
	out := make([]string, len(u.Stages))
	for i, s := range u.Stages {
		out[i] = s.Name()
	}
	return out
}

// HaltPolicy decides whether new errors after a unit stop the run.
type HaltPolicy int

const (
	// HaltNever marches on regardless of errors.
	HaltNever HaltPolicy = iota
	// HaltOnErrors stops after the first unit that added an error.
	HaltOnErrors
)

// Plan is an ordered list of units.
type Plan struct {
	Name  string
	Units []Unit
	Halt  HaltPolicy
}

// StageCount is the number of stage executions in a run without retries.
func (p Plan) StageCount() int {
	n := 0
	for _, u := range p.Units {
		n += len(u.Stages)
	}
	return n
}

// UnitIndex returns the position of the named unit, or -1.
func (p Plan) UnitIndex(name string) int {
	for i, u := range p.Units {
		if u.Name == name {
			return i
		}
	}
	return -1
}

// DependencyError reports slots a stage reads that no earlier unit writes.
type DependencyError struct {
	Stage   string
	Missing []state.Slot
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("stage %s reads %v before any earlier unit writes them", e.Stage, e.Missing)
}

// PlanError collects every structural problem found by Validate.
type PlanError struct {
	Plan     string
	Problems []error
}

func (e *PlanError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("invalid plan %q:", e.Plan))
	for _, p := range e.Problems {
		sb.WriteString("\n  - ")
		sb.WriteString(p.Error())
	}
	return sb.String()
}

func (e *PlanError) Unwrap() []error {
	return e.Problems
}

// Validate checks the structural rules a plan must satisfy before it runs:
// unique unit names, well-formed units, every read slot written by a strictly
// earlier unit, one writer per slot, and gates re-entering an earlier unit.
func (p Plan) Validate() error {
	var problems []error
	addf := func(format string, args ...any) {
		problems = append(problems, fmt.Errorf(format, args...))
	}

	if len(p.Units) == 0 {
		addf("plan has no units")
	}

	unitPos := make(map[string]int, len(p.Units))
	stageNames := make(map[string]bool)
	writer := make(map[state.Slot]string)
	available := make(map[state.Slot]bool)

	for i, u := range p.Units {
		if u.Name == "" {
			addf("unit %d has no name", i)
		} else if _, dup := unitPos[u.Name]; dup {
			addf("duplicate unit name %q", u.Name)
		} else {
			unitPos[u.Name] = i
		}

		switch u.Kind {
		case UnitStage, UnitGate:
			if len(u.Stages) != 1 {
				addf("%s unit %q must hold exactly one stage, has %d", u.Kind, u.Name, len(u.Stages))
			}
		case UnitParallel:
			if len(u.Stages) == 0 {
				addf("parallel unit %q has no stages", u.Name)
			}
		default:
			addf("unit %q has unknown kind %d", u.Name, int(u.Kind))
		}

		if u.Kind == UnitGate {
			pos, ok := unitPos[u.ReEnter]
			switch {
			case u.ReEnter == "":
				addf("gate %q has no re-entry unit", u.Name)
			case !ok || pos >= i:
				addf("gate %q re-enters %q, which is not an earlier unit", u.Name, u.ReEnter)
			}
		} else if u.ReEnter != "" {
			addf("only gates can re-enter; unit %q sets %q", u.Name, u.ReEnter)
		}

		groupWrites := make(map[state.Slot]string)
		for _, s := range u.Stages {
			if s == nil {
				addf("unit %q holds a nil stage", u.Name)
				continue
			}
			name := s.Name()
			if stageNames[name] {
				addf("stage %q appears more than once", name)
			}
			stageNames[name] = true

			var missing []state.Slot
			for _, slot := range s.Reads() {
				if !slot.Known() {
					addf("stage %q reads unknown slot %q", name, slot)
					continue
				}
				if !available[slot] {
					missing = append(missing, slot)
				}
			}
			if len(missing) > 0 {
				problems = append(problems, &DependencyError{Stage: name, Missing: missing})
			}

			for _, slot := range s.Writes() {
				if !slot.Known() {
					addf("stage %q writes unknown slot %q", name, slot)
					continue
				}
				if other, taken := writer[slot]; taken {
					addf("slot %q is written by both %q and %q", slot, other, name)
					continue
				}
				writer[slot] = name
				groupWrites[slot] = name
			}
		}

		if u.Kind == UnitParallel {
			for _, s := range u.Stages {
				if s == nil {
					continue
				}
				for _, slot := range s.Reads() {
					if w, ok := groupWrites[slot]; ok && w != s.Name() {
						addf("parallel unit %q: stage %q reads %q written by sibling %q", u.Name, s.Name(), slot, w)
					}
				}
			}
		}

		// Slots become readable only after the whole unit completes
		for slot := range groupWrites {
			available[slot] = true
		}
	}

	if len(problems) > 0 {
		return &PlanError{Plan: p.Name, Problems: problems}
	}
	return nil
}
