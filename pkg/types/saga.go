package types

import "time"

// SagaState is a saga transaction's position in its state machine.
type SagaState string

const (
	SagaPending      SagaState = "Pending"
	SagaExecuting    SagaState = "Executing"
	SagaCommitting   SagaState = "Committing"
	SagaCommitted    SagaState = "Committed"
	SagaCompensating SagaState = "Compensating"
	SagaAborted      SagaState = "Aborted"
)

// Terminal reports whether the state is terminal.
func (s SagaState) Terminal() bool {
	return s == SagaCommitted || s == SagaAborted
}

// CompensationStrategy controls how compensations run on failure.
type CompensationStrategy string

const (
	CompensationSequential CompensationStrategy = "Sequential"
	CompensationParallel   CompensationStrategy = "Parallel"
)

// RetryPolicy controls step retry/backoff.
type RetryPolicy struct {
	MaxAttempts       int
	BaseDelayMs       int
	BackoffMultiplier float64
	MaxDelayMs        int
	Jitter            float64 // in [0,1]
}

// DefaultRetryPolicy is merged with any step-level override.
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts:       3,
	BaseDelayMs:       100,
	BackoffMultiplier: 2.0,
	MaxDelayMs:        5000,
	Jitter:            0.1,
}

// Step is one node of a saga's DAG.
type Step struct {
	ID                  string
	ParticipantID       string
	Method              string
	Params              []byte // JSON
	CompensationMethod  string
	DependsOn           []string
	RetryPolicy         *RetryPolicy // nil means DefaultRetryPolicy
}

// SagaDefinition is the DAG a saga executes.
type SagaDefinition struct {
	ID                    string
	Name                  string
	Steps                 []Step
	CompensationStrategy  CompensationStrategy
}

// SagaTransaction is the persisted record of one saga run.
type SagaTransaction struct {
	ID          string
	State       SagaState
	Definition  SagaDefinition
	StepResults map[string]StepResult
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// StepResult is one row of saga_step_results.
type StepResult struct {
	TransactionID string
	StepID        string
	IsCompensation bool
	Success       bool
	Data          []byte
	Error         string
	RetryCount    int
	StartedAt     time.Time
	CompletedAt   time.Time
}

// LockMode is the acquisition mode for a distributed lock.
type LockMode string

const (
	LockShared    LockMode = "Shared"
	LockExclusive LockMode = "Exclusive"
)

// Lock is a row of the distributed_locks table.
type Lock struct {
	LockID    string
	Resource  string
	Owner     string
	Mode      LockMode
	AcquiredAt time.Time
	ExpiresAt  time.Time
}

// SagaStepError is a participant-reported failure; Retryable governs
// whether the executor will retry per the step's effective policy.
type SagaStepError struct {
	StepID    string
	Code      string
	Message   string
	Retryable bool
	Stack     string
}

func (e *SagaStepError) Error() string { return e.Code + ": " + e.Message }

// SagaTimeoutError reports a step that exceeded its retry budget
// without ever succeeding.
type SagaTimeoutError struct {
	TransactionID string
	StepID        string
	Stack         string
}

func (e *SagaTimeoutError) Error() string {
	return "saga timeout: transaction=" + e.TransactionID + " step=" + e.StepID
}
