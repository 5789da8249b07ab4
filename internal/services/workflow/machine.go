package workflowservice

import (
	"brandpulse/internal/domain/workflow"
	"brandpulse/pkg/errors"
)

// transitions is the engine's state graph. Every edge points forward.
var transitions = map[workflow.State][]workflow.State{
	workflow.StateInitialized:         {workflow.StateCollecting},
	workflow.StateCollecting:          {workflow.StateScoring},
	workflow.StateScoring:             {workflow.StateAssessingRisk},
	workflow.StateAssessingRisk:       {workflow.StateGeneratingResponses, workflow.StateFinalizing, workflow.StateCrisisEscalation},
	workflow.StateGeneratingResponses: {workflow.StateApproving, workflow.StateFinalizing},
	workflow.StateApproving:           {workflow.StateAutoPublishing, workflow.StateEscalatingToHuman, workflow.StateFinalizing},
	workflow.StateAutoPublishing:      {workflow.StateEscalatingToHuman, workflow.StateFinalizing},
	workflow.StateEscalatingToHuman:   {workflow.StateFinalizing},
	workflow.StateCrisisEscalation:    {workflow.StateFinalized},
	workflow.StateFinalizing:          {workflow.StateFinalized},
}

// CanTransition reports whether from -> to is an edge of the state graph
func CanTransition(from, to workflow.State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// machine tracks the current state, the visited path and the run status
type machine struct {
	state   workflow.State
	visited []workflow.State
	status  workflow.Status
}

func newMachine() *machine {
	return &machine{
		state:   workflow.StateInitialized,
		visited: []workflow.State{workflow.StateInitialized},
		status:  workflow.StatusRunning,
	}
}

func (m *machine) transition(to workflow.State) error {
	if !CanTransition(m.state, to) {
		return errors.Wrapf(errors.ErrInvalidTransition, "%s -> %s", m.state, to)
	}
	m.state = to
	m.visited = append(m.visited, to)
	return nil
}

// abort jumps to finalized from any non-terminal state
func (m *machine) abort() error {
	if m.state == workflow.StateFinalized {
		return errors.Wrapf(errors.ErrInvalidTransition, "%s -> %s", m.state, workflow.StateFinalized)
	}
	m.state = workflow.StateFinalized
	m.visited = append(m.visited, workflow.StateFinalized)
	return nil
}

// finish sets the terminal status once; later calls are rejected
func (m *machine) finish(status workflow.Status) error {
	if m.status.Terminal() {
		return errors.Wrapf(errors.ErrInvalidTransition, "status already %s", m.status)
	}
	if !status.Terminal() {
		return errors.Wrapf(errors.ErrInvalidTransition, "status %s is not terminal", status)
	}
	m.status = status
	return nil
}

func (m *machine) reached(s workflow.State) bool {
	for _, v := range m.visited {
		if v == s {
			return true
		}
	}
	return false
}
