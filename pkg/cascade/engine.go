package cascade

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/cuemby/corestate/pkg/instance"
	corelog "github.com/cuemby/corestate/pkg/log"
	"github.com/cuemby/corestate/pkg/metrics"
	"github.com/cuemby/corestate/pkg/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// EventHandler receives cascade lifecycle notifications
// ("cascade:started", "cascade:completed", "cascade:failed",
// "cascade:queued"). A panicking handler is recovered and logged; it
// never affects the cascade's outcome.
type EventHandler func(event string, payload any)

// Envelope is what crosses an instance.Participant.Call for a hard
// cascade: the logical equivalent of the X-Cascade-* headers plus the
// JSON entity body.
type Envelope struct {
	Action       string          `json:"action"`
	Relationship string          `json:"relationship"`
	Entity       json.RawMessage `json:"entity"`
}

// Engine maintains relationship definitions and executes cascades.
type Engine struct {
	ctx        *instance.Context
	relations  *relationRegistry
	clock      types.Clock
	logger     zerolog.Logger
	handlersMu sync.Mutex
	handlers   []EventHandler
}

// NewEngine builds an Engine against ctx. Hard cascades resolve
// targets through ctx.Participants; soft cascades persist their queue
// through ctx.KV.
func NewEngine(ctx *instance.Context) *Engine {
	return &Engine{
		ctx:       ctx,
		relations: newRelationRegistry(),
		clock:     types.SystemClock,
		logger:    corelog.WithComponent("cascade"),
	}
}

// DefineRelation validates and stores def under name.
func (e *Engine) DefineRelation(name string, def types.RelationshipDefinition) error {
	return e.relations.Define(name, def)
}

// UndefineRelation removes name, reporting whether it existed.
func (e *Engine) UndefineRelation(name string) bool { return e.relations.Undefine(name) }

// HasRelation reports whether name is defined.
func (e *Engine) HasRelation(name string) bool { return e.relations.Has(name) }

// GetRelation returns the definition for name.
func (e *Engine) GetRelation(name string) (types.RelationshipDefinition, bool) {
	return e.relations.Get(name)
}

// ListRelations returns every definition, sorted by name.
func (e *Engine) ListRelations() []types.RelationshipDefinition { return e.relations.List() }

// OnEvent registers h to receive every cascade lifecycle event.
func (e *Engine) OnEvent(h EventHandler) {
	e.handlersMu.Lock()
	defer e.handlersMu.Unlock()
	e.handlers = append(e.handlers, h)
}

func (e *Engine) emit(event string, payload any) {
	e.handlersMu.Lock()
	handlers := append([]EventHandler(nil), e.handlers...)
	e.handlersMu.Unlock()

	for _, h := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					e.logger.Warn().Interface("panic", r).Str("event", event).Msg("cascade event handler panicked")
				}
			}()
			h(event, payload)
		}()
	}
}

// effectivePolicy returns the policy governing op for def. Create
// always cascades; Update/Delete defer to OnUpdate/OnDelete.
func effectivePolicy(def types.RelationshipDefinition, op types.CascadeOperation) types.CascadePolicy {
	switch op {
	case types.CascadeDelete:
		return def.OnDelete
	case types.CascadeUpdate:
		return def.OnUpdate
	default:
		return types.PolicyCascade
	}
}

// TriggerCascade runs the named relationship's cascade for
// (operation, entity). A nil result with a nil error means the
// cascade was skipped (effective policy is "ignore"). A
// *types.RestrictedError bubbles out when onDelete=restrict and the
// target reports a conflict.
func (e *Engine) TriggerCascade(name string, op types.CascadeOperation, entity map[string]any) (*types.CascadeResult, error) {
	def, ok := e.relations.Get(name)
	if !ok {
		return nil, &types.ValidationError{Subject: name, Reason: "relationship is not defined"}
	}

	policy := effectivePolicy(def, op)
	if policy == types.PolicyIgnore {
		return nil, nil
	}

	e.emit("cascade:started", map[string]any{"relationship": name, "operation": op})

	var (
		result *types.CascadeResult
		err    error
	)
	if def.Type.IsHard() {
		result, err = e.triggerHard(def, op, policy, entity)
	} else {
		result, err = e.triggerSoft(def, op, entity)
	}

	if err != nil {
		e.emit("cascade:failed", map[string]any{"relationship": name, "error": err.Error()})
		return nil, err
	}
	if result.Success {
		e.emit("cascade:completed", map[string]any{"relationship": name})
	} else {
		e.emit("cascade:failed", map[string]any{"relationship": name, "error": result.Error})
	}
	metrics.CascadesTotal.WithLabelValues(cascadeKind(def.Type), outcomeLabel(result)).Inc()
	return result, nil
}

func cascadeKind(t types.RelationType) string {
	if t.IsHard() {
		return "hard"
	}
	return "soft"
}

func outcomeLabel(r *types.CascadeResult) string {
	if r != nil && r.Success {
		return "success"
	}
	return "failure"
}

func (e *Engine) triggerHard(def types.RelationshipDefinition, op types.CascadeOperation, policy types.CascadePolicy, entity map[string]any) (*types.CascadeResult, error) {
	targetID, err := def.IDResolver(entity)
	if err != nil {
		return &types.CascadeResult{IsHard: true, Success: false, Error: "Failed to resolve target ID: " + err.Error()}, nil
	}

	participant, ok := e.ctx.Participants(def.TargetBinding, instance.NewID(targetID))
	if !ok {
		return &types.CascadeResult{IsHard: true, Success: false, Error: "DO binding not found"}, nil
	}

	action := fmt.Sprintf("cascade-%s", op)
	if policy == types.PolicyNullify {
		action = "cascade-nullify"
	}
	entityJSON, err := json.Marshal(entity)
	if err != nil {
		return &types.CascadeResult{IsHard: true, Success: false, Error: "Failed to encode entity: " + err.Error()}, nil
	}
	envelope, err := json.Marshal(Envelope{Action: action, Relationship: def.Name, Entity: entityJSON})
	if err != nil {
		return &types.CascadeResult{IsHard: true, Success: false, Error: "Failed to encode envelope: " + err.Error()}, nil
	}

	_, status, err := participant.Call(context.Background(), "cascade", envelope)
	if err != nil {
		return &types.CascadeResult{IsHard: true, Success: false, Error: err.Error()}, nil
	}
	if status == 409 && op == types.CascadeDelete && def.OnDelete == types.PolicyRestrict {
		return nil, &types.RestrictedError{RelationshipName: def.Name, TargetID: targetID}
	}
	if status < 200 || status >= 300 {
		return &types.CascadeResult{IsHard: true, Success: false, Error: fmt.Sprintf("cascade target returned status %d", status)}, nil
	}
	return &types.CascadeResult{IsHard: true, Success: true}, nil
}

func (e *Engine) triggerSoft(def types.RelationshipDefinition, op types.CascadeOperation, entity map[string]any) (*types.CascadeResult, error) {
	targetID, err := def.IDResolver(entity)
	if err != nil {
		return &types.CascadeResult{IsHard: false, Success: false, Error: "Failed to resolve target ID: " + err.Error()}, nil
	}
	entityJSON, err := json.Marshal(entity)
	if err != nil {
		return &types.CascadeResult{IsHard: false, Success: false, Error: "Failed to encode entity: " + err.Error()}, nil
	}

	queued := types.QueuedCascade{
		ID:               uuid.NewString(),
		RelationshipName: def.Name,
		Operation:        op,
		TargetID:         targetID,
		Entity:           entityJSON,
		EnqueuedAt:       e.clock(),
	}
	if err := e.enqueue(queued); err != nil {
		return nil, err
	}

	e.emit("cascade:queued", map[string]any{"relationship": def.Name, "queueId": queued.ID})
	return &types.CascadeResult{IsHard: false, Success: true}, nil
}

func (e *Engine) enqueue(q types.QueuedCascade) error {
	encoded, err := json.Marshal(q)
	if err != nil {
		return &types.StorageError{Op: "cascade.enqueue", Err: err}
	}
	key := queueKey(q.EnqueuedAt.UnixNano(), q.ID)
	if err := e.ctx.KV.Put(key, encoded); err != nil {
		return &types.StorageError{Op: "cascade.enqueue", Err: err}
	}
	metrics.SoftCascadeQueueDepth.Inc()
	return nil
}

func queueKey(ts int64, id string) string {
	return fmt.Sprintf("cascade:queue:%020d:%s", ts, id)
}

// ProcessSoftCascades drains the soft-cascade queue: each entry's
// relationship is re-validated (dropped if gone), then the equivalent
// cross-instance call is attempted. Failures are retained with
// retryCount incremented and lastError set rather than dropped. The
// returned slice has one result per entry that was actually drained
// (relationship-gone drops produce no result), in queue order.
func (e *Engine) ProcessSoftCascades() ([]types.CascadeResult, error) {
	entries, err := e.ctx.KV.List("cascade:queue:")
	if err != nil {
		return nil, &types.StorageError{Op: "cascade.processSoftCascades", Err: err}
	}

	var results []types.CascadeResult
	for _, entry := range entries {
		var q types.QueuedCascade
		if err := json.Unmarshal(entry.Value, &q); err != nil {
			e.logger.Error().Err(err).Str("key", entry.Key).Msg("dropping unreadable queued cascade")
			_ = e.ctx.KV.Delete(entry.Key)
			metrics.SoftCascadeQueueDepth.Dec()
			continue
		}

		def, ok := e.relations.Get(q.RelationshipName)
		if !ok {
			_ = e.ctx.KV.Delete(entry.Key)
			metrics.SoftCascadeQueueDepth.Dec()
			continue
		}

		participant, ok := e.ctx.Participants(def.TargetBinding, instance.NewID(q.TargetID))
		if !ok {
			e.retainWithError(entry.Key, q, "DO binding not found")
			results = append(results, types.CascadeResult{IsHard: false, Success: false, Error: "DO binding not found"})
			continue
		}
		action := fmt.Sprintf("cascade-%s", q.Operation)
		if effectivePolicy(def, q.Operation) == types.PolicyNullify {
			action = "cascade-nullify"
		}
		envelope, err := json.Marshal(Envelope{Action: action, Relationship: def.Name, Entity: q.Entity})
		if err != nil {
			e.retainWithError(entry.Key, q, err.Error())
			results = append(results, types.CascadeResult{IsHard: false, Success: false, Error: err.Error()})
			continue
		}

		_, status, err := participant.Call(context.Background(), "cascade", envelope)
		if err != nil {
			e.retainWithError(entry.Key, q, err.Error())
			results = append(results, types.CascadeResult{IsHard: false, Success: false, Error: err.Error()})
			continue
		}
		if status < 200 || status >= 300 {
			msg := fmt.Sprintf("cascade target returned status %d", status)
			e.retainWithError(entry.Key, q, msg)
			results = append(results, types.CascadeResult{IsHard: false, Success: false, Error: msg})
			continue
		}

		_ = e.ctx.KV.Delete(entry.Key)
		metrics.SoftCascadeQueueDepth.Dec()
		results = append(results, types.CascadeResult{IsHard: false, Success: true})
	}
	return results, nil
}

func (e *Engine) retainWithError(key string, q types.QueuedCascade, lastError string) {
	q.RetryCount++
	q.LastError = lastError
	encoded, err := json.Marshal(q)
	if err != nil {
		e.logger.Error().Err(err).Msg("failed to re-encode queued cascade after failed drain")
		return
	}
	if err := e.ctx.KV.Put(key, encoded); err != nil {
		e.logger.Error().Err(err).Msg("failed to persist queued cascade retry state")
	}
}
