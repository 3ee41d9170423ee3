// Package entity defines the entity kinds managed by the status
// coordinator and the closed status enumeration each kind carries.
//
// Every kind has a designated initial status and a designated error
// status. The coordinator itself treats no status as terminal; terminal
// behavior is a validator convention.
package entity

import "fmt"

// Kind identifies a category of coordinated entity.
type Kind string

// Entity kind constants.
const (
	KindAgent        Kind = "agent"
	KindTask         Kind = "task"
	KindWorkflow     Kind = "workflow"
	KindMessage      Kind = "message"
	KindFeedback     Kind = "feedback"
	KindModelSession Kind = "model-session"
)

// Status is a named state within a kind's enumeration.
type Status string

// Agent statuses.
const (
	AgentIdle      Status = "IDLE"
	AgentThinking  Status = "THINKING"
	AgentExecuting Status = "EXECUTING"
	AgentPaused    Status = "PAUSED"
	AgentBlocked   Status = "BLOCKED"
	AgentDone      Status = "DONE"
	AgentError     Status = "ERROR"
)

// Task statuses.
const (
	TaskPending    Status = "PENDING"
	TaskDoing      Status = "DOING"
	TaskBlocked    Status = "BLOCKED"
	TaskPaused     Status = "PAUSED"
	TaskValidating Status = "AWAITING_VALIDATION"
	TaskDone       Status = "DONE"
	TaskError      Status = "ERROR"
)

// Workflow statuses.
const (
	WorkflowInitial  Status = "INITIAL"
	WorkflowRunning  Status = "RUNNING"
	WorkflowPaused   Status = "PAUSED"
	WorkflowBlocked  Status = "BLOCKED"
	WorkflowStopped  Status = "STOPPED"
	WorkflowFinished Status = "FINISHED"
	WorkflowError    Status = "ERROR"
)

// Message statuses.
const (
	MessageQueued     Status = "QUEUED"
	MessageDelivering Status = "DELIVERING"
	MessageDelivered  Status = "DELIVERED"
	MessageFailed     Status = "FAILED"
)

// Feedback statuses.
const (
	FeedbackPending    Status = "PENDING"
	FeedbackProcessing Status = "PROCESSING"
	FeedbackResolved   Status = "RESOLVED"
	FeedbackError      Status = "ERROR"
)

// Model-session statuses.
const (
	SessionStarting  Status = "STARTING"
	SessionActive    Status = "ACTIVE"
	SessionCompleted Status = "COMPLETED"
	SessionError     Status = "ERROR"
)

// kindInfo fixes the status enumeration for one kind.
type kindInfo struct {
	initial  Status
	errorSt  Status
	statuses []Status
}

var kinds = map[Kind]kindInfo{
	KindAgent: {
		initial: AgentIdle,
		errorSt: AgentError,
		statuses: []Status{
			AgentIdle, AgentThinking, AgentExecuting,
			AgentPaused, AgentBlocked, AgentDone, AgentError,
		},
	},
	KindTask: {
		initial: TaskPending,
		errorSt: TaskError,
		statuses: []Status{
			TaskPending, TaskDoing, TaskBlocked, TaskPaused,
			TaskValidating, TaskDone, TaskError,
		},
	},
	KindWorkflow: {
		initial: WorkflowInitial,
		errorSt: WorkflowError,
		statuses: []Status{
			WorkflowInitial, WorkflowRunning, WorkflowPaused,
			WorkflowBlocked, WorkflowStopped, WorkflowFinished, WorkflowError,
		},
	},
	KindMessage: {
		initial: MessageQueued,
		errorSt: MessageFailed,
		statuses: []Status{
			MessageQueued, MessageDelivering, MessageDelivered, MessageFailed,
		},
	},
	KindFeedback: {
		initial: FeedbackPending,
		errorSt: FeedbackError,
		statuses: []Status{
			FeedbackPending, FeedbackProcessing, FeedbackResolved, FeedbackError,
		},
	},
	KindModelSession: {
		initial: SessionStarting,
		errorSt: SessionError,
		statuses: []Status{
			SessionStarting, SessionActive, SessionCompleted, SessionError,
		},
	},
}

// AllKinds returns every known entity kind in a stable order.
func AllKinds() []Kind {
	return []Kind{
		KindAgent, KindTask, KindWorkflow,
		KindMessage, KindFeedback, KindModelSession,
	}
}

// ParseKind converts a string to a Kind, rejecting unknown values.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.Valid() {
		return "", fmt.Errorf("unknown entity kind: %q", s)
	}
	return k, nil
}

// Valid reports whether the kind is one of the known kinds.
func (k Kind) Valid() bool {
	_, ok := kinds[k]
	return ok
}

// String returns the kind name.
func (k Kind) String() string {
	return string(k)
}

// InitialStatus returns the designated starting status for the kind.
func (k Kind) InitialStatus() Status {
	return kinds[k].initial
}

// ErrorStatus returns the status used when an entity of this kind fails.
func (k Kind) ErrorStatus() Status {
	return kinds[k].errorSt
}

// Statuses returns a copy of the kind's closed status enumeration.
func (k Kind) Statuses() []Status {
	info, ok := kinds[k]
	if !ok {
		return nil
	}
	out := make([]Status, len(info.statuses))
	copy(out, info.statuses)
	return out
}

// Has reports whether the status belongs to the kind's enumeration.
func (k Kind) Has(s Status) bool {
	for _, st := range kinds[k].statuses {
		if st == s {
			return true
		}
	}
	return false
}

// String returns the status name.
func (s Status) String() string {
	return string(s)
}
