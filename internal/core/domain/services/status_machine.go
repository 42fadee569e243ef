package services

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/pkg/errs"

	"github.com/looplab/fsm"
)

// ErrTransitionNotAllowed is returned by Check for moves outside the transition table.
var ErrTransitionNotAllowed = errors.New("status transition is not allowed")

// TransitionMode selects the transition table.
type TransitionMode string

const (
	// Strict allows the lifecycle moves only:
	//
	//	pending    -> processing, failed
	//	processing -> completed, failed
	//	completed  -> completed
	//	failed     -> processing (job retry), failed
	Strict TransitionMode = "strict"

	// Permissive allows any status to any status.
	Permissive TransitionMode = "permissive"
)

const (
	eventProcess  = "process"
	eventComplete = "complete"
	eventFail     = "fail"
	eventReset    = "reset"
)

// eventFor names the fsm event that leads into each status.
var eventFor = map[order.Status]string{
	order.Pending:    eventReset,
	order.Processing: eventProcess,
	order.Completed:  eventComplete,
	order.Failed:     eventFail,
}

// StatusMachine answers whether an order may move between two statuses.
// It is immutable and safe for concurrent use.
//
// Example usage:
//
//	machine, _ := services.NewStatusMachine(services.Strict)
//	if err := machine.Check(o.Status(), order.Completed); err != nil {
//	    return err // wraps ErrTransitionNotAllowed
//	}
type StatusMachine struct {
	mode   TransitionMode
	events fsm.Events
}

// NewStatusMachine builds the table for mode. An empty mode means Strict.
func NewStatusMachine(mode TransitionMode) (StatusMachine, error) {
	switch mode {
	case "", Strict:
		return StatusMachine{mode: Strict, events: strictEvents()}, nil
	case Permissive:
		return StatusMachine{mode: Permissive, events: permissiveEvents()}, nil
	default:
		return StatusMachine{}, errs.NewValueIsInvalidErrorWithCause(
			"transition mode", fmt.Errorf("%q is not one of strict, permissive", string(mode)))
	}
}

// ParseTransitionMode reads a mode from configuration text.
func ParseTransitionMode(raw string) (TransitionMode, error) {
	mode := TransitionMode(strings.ToLower(strings.TrimSpace(raw)))
	if _, err := NewStatusMachine(mode); err != nil {
		return "", err
	}
	if mode == "" {
		return Strict, nil
	}
	return mode, nil
}

func (m StatusMachine) Mode() TransitionMode {
	return m.mode
}

// CanTransition reports whether from -> to is in the table. Unknown statuses never transition.
func (m StatusMachine) CanTransition(from, to order.Status) bool {
	if from.Validate() != nil || to.Validate() != nil {
		return false
	}
	return m.newFSM(from).Can(eventFor[to])
}

// Check is CanTransition returning an error that names the allowed targets.
func (m StatusMachine) Check(from, to order.Status) error {
	if err := to.Validate(); err != nil {
		return err
	}
	if m.CanTransition(from, to) {
		return nil
	}
	return fmt.Errorf("%w: %s -> %s (allowed: %s)",
		ErrTransitionNotAllowed, from, to, strings.Join(statusNames(m.AllowedTargets(from)), ", "))
}

// AllowedTargets lists the statuses reachable from from, in lifecycle order.
func (m StatusMachine) AllowedTargets(from order.Status) []order.Status {
	if from.Validate() != nil {
		return nil
	}

	available := m.newFSM(from).AvailableTransitions()
	targets := make([]order.Status, 0, len(available))
	for _, s := range order.AllStatuses() {
		if slices.Contains(available, eventFor[s]) {
			targets = append(targets, s)
		}
	}
	return targets
}

func (m StatusMachine) newFSM(current order.Status) *fsm.FSM {
	return fsm.NewFSM(string(current), m.events, fsm.Callbacks{})
}

func strictEvents() fsm.Events {
	return fsm.Events{
		{Name: eventProcess, Src: []string{string(order.Pending), string(order.Failed)}, Dst: string(order.Processing)},
		{Name: eventComplete, Src: []string{string(order.Processing), string(order.Completed)}, Dst: string(order.Completed)},
		{Name: eventFail, Src: []string{string(order.Pending), string(order.Processing), string(order.Failed)}, Dst: string(order.Failed)},
	}
}

func permissiveEvents() fsm.Events {
	all := statusNames(order.AllStatuses())
	return fsm.Events{
		{Name: eventReset, Src: all, Dst: string(order.Pending)},
		{Name: eventProcess, Src: all, Dst: string(order.Processing)},
		{Name: eventComplete, Src: all, Dst: string(order.Completed)},
		{Name: eventFail, Src: all, Dst: string(order.Failed)},
	}
}

func statusNames(statuses []order.Status) []string {
	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = string(s)
	}
	return names
}
