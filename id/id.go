// Package id generates the identifiers the runtime assigns on its own:
// orchestration instances started without a caller-supplied ID, execution
// generations, workers and work item lock tokens.
//
// IDs are TypeIDs ("prefix_suffix"): K-sortable, UUIDv7-based and URL-safe.
// Callers may still supply arbitrary instance IDs; only runtime-minted IDs
// carry a prefix.
package id

import (
	"fmt"

	"go.jetify.com/typeid/v2"
)

// Prefix identifies the kind of entity an ID was minted for.
type Prefix string

const (
	PrefixInstance  Prefix = "orch"
	PrefixExecution Prefix = "exec"
	PrefixWorker    Prefix = "wkr"
	PrefixWorkItem  Prefix = "item"
)

// ID is a prefix-qualified TypeID.
//
//nolint:recvcheck // Value receivers for read-only methods, pointer receiver for UnmarshalText.
type ID struct {
	inner typeid.TypeID
	valid bool
}

// Nil is the zero-value ID.
var Nil ID

// New generates a new ID with the given prefix. It panics if the prefix
// is not a valid TypeID prefix.
func New(prefix Prefix) ID {
	tid, err := typeid.Generate(string(prefix))
	if err != nil {
		panic(fmt.Sprintf("id: invalid prefix %q: %v", prefix, err))
	}
	return ID{inner: tid, valid: true}
}

// Parse parses a TypeID string such as "orch_01h2xcejqtf2nbrexx3vqjhp41".
func Parse(s string) (ID, error) {
	if s == "" {
		return Nil, fmt.Errorf("id: parse %q: empty string", s)
	}
	tid, err := typeid.Parse(s)
	if err != nil {
		return Nil, fmt.Errorf("id: parse %q: %w", s, err)
	}
	return ID{inner: tid, valid: true}, nil
}

// ParseWithPrefix parses s and checks that its prefix is expected.
func ParseWithPrefix(s string, expected Prefix) (ID, error) {
	parsed, err := Parse(s)
	if err != nil {
		return Nil, err
	}
	if parsed.Prefix() != expected {
		return Nil, fmt.Errorf("id: expected prefix %q, got %q", expected, parsed.Prefix())
	}
	return parsed, nil
}

// NewInstanceID mints an orchestration instance ID.
func NewInstanceID() ID { return New(PrefixInstance) }

// NewExecutionID mints an execution ID for one run of an instance.
func NewExecutionID() ID { return New(PrefixExecution) }

// NewWorkerID mints a worker ID.
func NewWorkerID() ID { return New(PrefixWorker) }

// NewWorkItemID mints a work item lock token.
func NewWorkItemID() ID { return New(PrefixWorkItem) }

// String returns the "prefix_suffix" form, or "" for Nil.
func (i ID) String() string {
	if !i.valid {
		return ""
	}
	return i.inner.String()
}

// Prefix returns the prefix component of this ID.
func (i ID) Prefix() Prefix {
	if !i.valid {
		return ""
	}
	return Prefix(i.inner.Prefix())
}

// IsNil reports whether this ID is the zero value.
func (i ID) IsNil() bool { return !i.valid }

// MarshalText implements encoding.TextMarshaler.
func (i ID) MarshalText() ([]byte, error) {
	if !i.valid {
		return []byte{}, nil
	}
	return []byte(i.inner.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (i *ID) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*i = Nil
		return nil
	}
	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}
	*i = parsed
	return nil
}
