package saga

import (
	"encoding/json"
	"errors"

	"github.com/cuemby/corestate/pkg/kv"
	"github.com/cuemby/corestate/pkg/types"
)

// ErrNoPendingTransaction is returned by Commit when no prepared
// record exists for the transaction id -- including after Abort has
// already discarded one.
var ErrNoPendingTransaction = errors.New("No pending transaction")

// SideEffectHandler actually performs a prepared method's side
// effects when Commit is called. It is never invoked by Prepare.
type SideEffectHandler func(method string, params []byte) ([]byte, error)

type pendingRecord struct {
	Method string `json:"method"`
	Params []byte `json:"params"`
}

// TwoPC lets this instance act as a saga participant under a 2PC
// protocol: prepare stakes a pending record without running side
// effects, commit runs them, abort discards them.
type TwoPC struct {
	store   kv.Store
	handler SideEffectHandler
}

// NewTwoPC builds a TwoPC mixin. handler is consulted only by Commit.
func NewTwoPC(store kv.Store, handler SideEffectHandler) *TwoPC {
	return &TwoPC{store: store, handler: handler}
}

// Prepare validates the call and persists a pending record keyed by
// transactionID, without executing method's side effects. Returns
// true iff a pending record now exists for transactionID.
func (t *TwoPC) Prepare(transactionID, method string, params []byte) (bool, error) {
	if transactionID == "" || method == "" {
		return false, &types.ValidationError{Subject: "sagaPrepare", Reason: "transactionId and method are required"}
	}
	rec := pendingRecord{Method: method, Params: params}
	encoded, err := json.Marshal(rec)
	if err != nil {
		return false, &types.StorageError{Op: "saga.sagaPrepare", Err: err}
	}
	if err := t.store.Put(pendingKey(transactionID), encoded); err != nil {
		return false, &types.StorageError{Op: "saga.sagaPrepare", Err: err}
	}
	return true, nil
}

// Commit runs the prepared method's side effects and discards the
// pending record. It fails with ErrNoPendingTransaction if Prepare was
// never called, or Abort already ran, for transactionID.
func (t *TwoPC) Commit(transactionID string) ([]byte, error) {
	raw, found, err := t.store.Get(pendingKey(transactionID))
	if err != nil {
		return nil, &types.StorageError{Op: "saga.sagaCommit", Err: err}
	}
	if !found {
		return nil, ErrNoPendingTransaction
	}
	var rec pendingRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, &types.StorageError{Op: "saga.sagaCommit", Err: err}
	}

	result, handlerErr := t.handler(rec.Method, rec.Params)
	if err := t.store.Delete(pendingKey(transactionID)); err != nil {
		return nil, &types.StorageError{Op: "saga.sagaCommit", Err: err}
	}
	return result, handlerErr
}

// Abort discards the pending record, if any. It is idempotent: aborting
// a transaction with no pending record is not an error.
func (t *TwoPC) Abort(transactionID string) error {
	if err := t.store.Delete(pendingKey(transactionID)); err != nil {
		return &types.StorageError{Op: "saga.sagaAbort", Err: err}
	}
	return nil
}

func pendingKey(transactionID string) string {
	return "saga:pending:" + transactionID
}
