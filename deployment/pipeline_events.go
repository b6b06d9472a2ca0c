package deployment

import (
	"github.com/crytic/solpipe/events"
	"github.com/crytic/solpipe/verification"
)

// PipelineEvents defines event emitters for a Pipeline.
type PipelineEvents struct {
	// StateChanged emits events every time the Pipeline moves to a new State during a Run.
	StateChanged events.EventEmitter[StateChangedEvent]

	// VerificationFinished emits events when a verification submission was answered by the explorer.
	VerificationFinished events.EventEmitter[VerificationFinishedEvent]
}

// StateChangedEvent describes an event where a Pipeline moved from one State to another.
type StateChangedEvent struct {
	// Previous is the State the Pipeline was in.
	Previous State

	// Current is the State the Pipeline is now in.
	Current State
}

// VerificationFinishedEvent describes an event where the explorer answered a verification submission.
type VerificationFinishedEvent struct {
	// ContractName is the label of the submitted contract.
	ContractName string

	// Outcome is the explorer's response.
	Outcome verification.Outcome
}
