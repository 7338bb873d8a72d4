package types

import "time"

// RelationType distinguishes hard (synchronous) from soft (queued)
// cascades, and direction.
type RelationType string

const (
	RelationHardForward RelationType = "->"
	RelationHardReverse RelationType = "<-"
	RelationSoftForward RelationType = "~>"
	RelationSoftReverse RelationType = "<~"
)

// IsHard reports whether the relationship cascades synchronously.
func (t RelationType) IsHard() bool {
	return t == RelationHardForward || t == RelationHardReverse
}

// CascadePolicy is the effective on-delete/on-update behavior.
type CascadePolicy string

const (
	PolicyCascade  CascadePolicy = "cascade"
	PolicyNullify  CascadePolicy = "nullify"
	PolicyRestrict CascadePolicy = "restrict"
	PolicyIgnore   CascadePolicy = "ignore"
)

// IDResolver extracts the remote id a cascade should target from the
// triggering entity payload.
type IDResolver func(entity map[string]any) (string, error)

// RelationshipDefinition is one registered relationship. Every field
// but IDResolver is a plain value a host can declare in YAML; the
// resolver function itself is always wired in code after load.
type RelationshipDefinition struct {
	Name          string        `yaml:"name"`
	Type          RelationType  `yaml:"type"`
	TargetBinding string        `yaml:"targetBinding"`
	IDResolver    IDResolver    `yaml:"-"`
	CascadeFields []string      `yaml:"cascadeFields,omitempty"`
	OnDelete      CascadePolicy `yaml:"onDelete,omitempty"`
	OnUpdate      CascadePolicy `yaml:"onUpdate,omitempty"`
}

// CascadeOperation is the triggering mutation.
type CascadeOperation string

const (
	CascadeCreate CascadeOperation = "create"
	CascadeUpdate CascadeOperation = "update"
	CascadeDelete CascadeOperation = "delete"
)

// QueuedCascade is a soft cascade awaiting drain.
type QueuedCascade struct {
	ID               string
	RelationshipName string
	Operation        CascadeOperation
	TargetID         string
	Entity           []byte // JSON
	EnqueuedAt       time.Time
	RetryCount       int
	LastError        string
}

// CascadeResult is returned by triggerCascade / processSoftCascades.
type CascadeResult struct {
	IsHard  bool
	Success bool
	Error   string
}

// RestrictedError bubbles out of triggerCascade when onDelete=restrict
// and the target reports a conflict.
type RestrictedError struct {
	RelationshipName string
	TargetID         string
}

func (e *RestrictedError) Error() string {
	return "cascade restricted: " + e.RelationshipName + " -> " + e.TargetID
}
