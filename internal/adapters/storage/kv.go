package storage

import (
	"context"
	"errors"
	"net/url"
	"strings"
)

// ErrNotFound is returned by KV.Get when no record exists for a key.
var ErrNotFound = errors.New("record not found")

// ErrEmptyScope is returned for keys without a visitor scope.
var ErrEmptyScope = errors.New("record key scope is required")

// RecordKey addresses one persisted record inside a visitor scope.
// Components are kept as separate fields all the way down to the backend,
// so no caller ever builds or parses a concatenated key.
type RecordKey struct {
	Scope      string // visitor id, the equivalent of one browser's storage
	Record     string // record name, e.g. "tier"
	AgeGroupID string // empty for records that are not per age group
	Category   string // empty for records that are not per category
}

// Validate checks that the key has a scope and a record name.
func (k RecordKey) Validate() error {
	if k.Scope == "" {
		return ErrEmptyScope
	}
	if k.Record == "" {
		return errors.New("record key name is required")
	}
	return nil
}

// Encode renders the key as a single string for backends that only have flat keys.
// Every component is escaped, so distinct keys never collide.
func (k RecordKey) Encode(prefix string) string {
	parts := []string{prefix, k.Scope, k.Record, k.AgeGroupID, k.Category}
	for i, p := range parts {
		parts[i] = url.QueryEscape(p)
	}
	return strings.Join(parts, ":")
}

// Op is a single write inside an atomic batch.
type Op struct {
	Key    RecordKey
	Value  string
	Delete bool
}

// Put builds an upsert op.
func Put(key RecordKey, value string) Op {
	return Op{Key: key, Value: value}
}

// Remove builds a delete op. Deleting a missing record is not an error.
func Remove(key RecordKey) Op {
	return Op{Key: key, Delete: true}
}

// KV is the scoped key-value storage the calendar persists into.
// Implementations must apply every op of one Apply call atomically.
type KV interface {
	Get(ctx context.Context, key RecordKey) (string, error)
	Apply(ctx context.Context, ops ...Op) error
}
