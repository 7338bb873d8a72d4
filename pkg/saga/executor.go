package saga

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cuemby/corestate/pkg/instance"
	corelog "github.com/cuemby/corestate/pkg/log"
	"github.com/cuemby/corestate/pkg/metrics"
	"github.com/cuemby/corestate/pkg/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ParticipantResolver resolves a Step's ParticipantID to a callable
// instance.Participant.
type ParticipantResolver func(participantID string) (instance.Participant, bool)

// Executor runs saga definitions to completion, persisting the state
// machine and every step result through ctx.SQL.
type Executor struct {
	ctx      *instance.Context
	resolve  ParticipantResolver
	clock    types.Clock
	logger   zerolog.Logger
}

// NewExecutor builds an Executor. resolve is consulted once per step
// to reach the participant named by Step.ParticipantID.
func NewExecutor(ctx *instance.Context, resolve ParticipantResolver) *Executor {
	return &Executor{
		ctx:     ctx,
		resolve: resolve,
		clock:   types.SystemClock,
		logger:  corelog.WithComponent("saga"),
	}
}

// Execute runs def's steps to completion (or to Aborted with
// compensation run), persisting the transaction and every step result
// along the way. It fails fast with *types.ValidationError if def's
// steps have a dependency cycle or a dangling dependsOn reference.
func (e *Executor) Execute(def types.SagaDefinition) (*types.SagaTransaction, error) {
	order, err := topoSort(def.Steps)
	if err != nil {
		return nil, err
	}
	if def.CompensationStrategy == "" {
		def.CompensationStrategy = types.CompensationSequential
	}

	now := e.clock()
	tx := &types.SagaTransaction{
		ID:          uuid.NewString(),
		State:       types.SagaPending,
		Definition:  def,
		StepResults: make(map[string]types.StepResult),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := e.insertTransaction(tx); err != nil {
		return nil, err
	}

	if err := e.transition(tx, types.SagaExecuting); err != nil {
		return nil, err
	}

	failedStep, runErr := e.runForward(tx, order)
	if runErr == nil {
		if err := e.transition(tx, types.SagaCommitting); err != nil {
			return nil, err
		}
		if err := e.transition(tx, types.SagaCommitted); err != nil {
			return nil, err
		}
		e.logger.Info().Str("transaction_id", tx.ID).Msg("saga committed")
		return tx, nil
	}

	e.logger.Warn().Str("transaction_id", tx.ID).Str("step_id", failedStep).Err(runErr).
		Msg("saga step failed, compensating")
	if err := e.transition(tx, types.SagaCompensating); err != nil {
		return nil, err
	}
	compErr := e.compensate(tx, order)

	aggErr := runErr
	if compErr != nil {
		aggErr = fmt.Errorf("step failure: %w; compensation failure: %v", runErr, compErr)
	}
	if err := e.setError(tx, aggErr); err != nil {
		return nil, err
	}
	if err := e.transition(tx, types.SagaAborted); err != nil {
		return nil, err
	}
	return tx, aggErr
}

// runForward executes order in sequence, gating each step on its
// dependencies' success. It returns the id of the first step that did
// not succeed (after retries) and the error that caused it, or ""/nil
// if every step succeeded.
func (e *Executor) runForward(tx *types.SagaTransaction, order []types.Step) (string, error) {
	for _, step := range order {
		if dep, ok := e.firstFailedDependency(tx, step); ok {
			err := fmt.Errorf("step %q skipped: dependency %q did not succeed", step.ID, dep)
			e.recordResult(tx, step.ID, false, nil, err, 0, false)
			return step.ID, err
		}

		result, stepErr, retryCount := e.runStepWithRetry(tx.ID, step)
		e.recordResult(tx, step.ID, stepErr == nil, result, stepErr, retryCount, false)
		if stepErr != nil {
			return step.ID, stepErr
		}
	}
	return "", nil
}

// firstFailedDependency reports the first dependency of step that has
// not been recorded as a success.
func (e *Executor) firstFailedDependency(tx *types.SagaTransaction, step types.Step) (string, bool) {
	for _, dep := range step.DependsOn {
		r, ok := tx.StepResults[dep]
		if !ok || !r.Success {
			return dep, true
		}
	}
	return "", false
}

// runStepWithRetry invokes step's participant method, retrying per
// its effective policy. retryCount is the number of retries actually
// performed (not total attempts).
func (e *Executor) runStepWithRetry(transactionID string, step types.Step) ([]byte, error, int) {
	policy := effectivePolicy(step.RetryPolicy)

	var lastErr error
	var result []byte
	retryCount := 0

	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		r, err := e.call(step.ParticipantID, step.Method, step.Params)
		if err == nil {
			return r, nil, retryCount
		}
		lastErr = err
		result = nil

		if !retryable(err) || attempt == policy.MaxAttempts-1 {
			break
		}
		metrics.SagaStepRetriesTotal.WithLabelValues(step.ID).Inc()
		retryCount++
		time.Sleep(backoffDelay(policy, attempt))
	}
	return result, lastErr, retryCount
}

func (e *Executor) call(participantID, method string, params []byte) ([]byte, error) {
	p, ok := e.resolve(participantID)
	if !ok {
		return nil, &types.SagaStepError{Code: "participant_not_found", Message: fmt.Sprintf("no participant %q", participantID), Retryable: false}
	}
	result, status, err := p.Call(context.Background(), method, params)
	if err != nil {
		return nil, err
	}
	if status != 0 && (status < 200 || status >= 300) {
		return nil, &types.SagaStepError{
			Code:      fmt.Sprintf("http_%d", status),
			Message:   "participant call returned non-success status",
			Retryable: true,
		}
	}
	return result, nil
}

// compensate invokes compensationMethod on every step that completed
// successfully, in reverse topological order (Sequential) or all at
// once (Parallel). Compensation failures are recorded but never
// re-compensated.
func (e *Executor) compensate(tx *types.SagaTransaction, order []types.Step) error {
	var toCompensate []types.Step
	for _, step := range order {
		if r, ok := tx.StepResults[step.ID]; ok && r.Success && step.CompensationMethod != "" {
			toCompensate = append(toCompensate, step)
		}
	}
	if len(toCompensate) == 0 {
		return nil
	}

	metrics.SagaCompensationsTotal.Add(float64(len(toCompensate)))

	if tx.Definition.CompensationStrategy == types.CompensationParallel {
		return e.compensateParallel(tx, toCompensate)
	}
	return e.compensateSequential(tx, reverseSteps(toCompensate))
}

func (e *Executor) compensateSequential(tx *types.SagaTransaction, steps []types.Step) error {
	var firstErr error
	for _, step := range steps {
		_, err := e.call(step.ParticipantID, step.CompensationMethod, step.Params)
		e.recordResult(tx, step.ID, err == nil, nil, err, 0, true)
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (e *Executor) compensateParallel(tx *types.SagaTransaction, steps []types.Step) error {
	type outcome struct {
		stepID string
		err    error
	}
	results := make(chan outcome, len(steps))
	for _, step := range steps {
		go func(s types.Step) {
			_, err := e.call(s.ParticipantID, s.CompensationMethod, s.Params)
			results <- outcome{stepID: s.ID, err: err}
		}(step)
	}

	var firstErr error
	for range steps {
		o := <-results
		e.recordResult(tx, o.stepID, o.err == nil, nil, o.err, 0, true)
		if o.err != nil && firstErr == nil {
			firstErr = o.err
		}
	}
	return firstErr
}

func (e *Executor) recordResult(tx *types.SagaTransaction, stepID string, success bool, data []byte, stepErr error, retryCount int, isCompensation bool) {
	now := e.clock()
	errMsg := ""
	if stepErr != nil {
		errMsg = stepErr.Error()
	}
	result := types.StepResult{
		TransactionID:  tx.ID,
		StepID:         stepID,
		IsCompensation: isCompensation,
		Success:        success,
		Data:           data,
		Error:          errMsg,
		RetryCount:     retryCount,
		StartedAt:      now,
		CompletedAt:    now,
	}
	if !isCompensation {
		tx.StepResults[stepID] = result
	}
	if err := e.saveStepResult(result); err != nil {
		e.logger.Error().Err(err).Str("transaction_id", tx.ID).Str("step_id", stepID).Msg("failed to persist step result")
	}
}

func (e *Executor) insertTransaction(tx *types.SagaTransaction) error {
	defBytes, err := json.Marshal(tx.Definition)
	if err != nil {
		return &types.StorageError{Op: "saga.insertTransaction", Err: err}
	}
	_, err = e.ctx.SQL.Exec(
		`INSERT INTO saga_transactions (id, state, definition, error, created_at, updated_at)
		 VALUES (?, ?, ?, NULL, ?, ?)`,
		tx.ID, string(tx.State), defBytes, tx.CreatedAt.UnixMilli(), tx.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		return &types.StorageError{Op: "saga.insertTransaction", Err: err}
	}
	return nil
}

func (e *Executor) transition(tx *types.SagaTransaction, next types.SagaState) error {
	tx.State = next
	tx.UpdatedAt = e.clock()
	_, err := e.ctx.SQL.Exec(
		"UPDATE saga_transactions SET state = ?, updated_at = ? WHERE id = ?",
		string(next), tx.UpdatedAt.UnixMilli(), tx.ID,
	)
	if err != nil {
		return &types.StorageError{Op: "saga.transition", Err: err}
	}
	metrics.SagaTransitionsTotal.WithLabelValues(string(next)).Inc()
	return nil
}

func (e *Executor) setError(tx *types.SagaTransaction, aggErr error) error {
	_, err := e.ctx.SQL.Exec("UPDATE saga_transactions SET error = ? WHERE id = ?", aggErr.Error(), tx.ID)
	if err != nil {
		return &types.StorageError{Op: "saga.setError", Err: err}
	}
	return nil
}

func (e *Executor) saveStepResult(r types.StepResult) error {
	_, err := e.ctx.SQL.Exec(
		`INSERT OR REPLACE INTO saga_step_results
		 (transaction_id, step_id, is_compensation, success, data, error, retry_count, started_at, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.TransactionID, r.StepID, boolToInt(r.IsCompensation), boolToInt(r.Success),
		r.Data, nullableString(r.Error), r.RetryCount, r.StartedAt.UnixMilli(), r.CompletedAt.UnixMilli(),
	)
	if err != nil {
		return &types.StorageError{Op: "saga.saveStepResult", Err: err}
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
