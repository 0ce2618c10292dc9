// Package storage defines the key-value store abstraction notes are kept in.
package storage

import "context"

// Store is the interface for key-value operations. Plain keys hold string
// values; set keys hold unordered collections of string members. Patterns use
// the * wildcard to match any sequence of characters.
type Store interface {
	// Get returns the value at key, or apperr.ErrNotFound.
	Get(ctx context.Context, key string) (string, error)
	// Set stores value at key, replacing any previous value.
	Set(ctx context.Context, key, value string) error
	// Delete removes keys of any kind. Missing keys are ignored.
	Delete(ctx context.Context, keys ...string) error
	// Scan returns every key matching pattern, sorted.
	Scan(ctx context.Context, pattern string) ([]string, error)
	// Members returns the members of the set at key.
	Members(ctx context.Context, key string) ([]string, error)
	// Intersect returns the members present in every set at keys.
	Intersect(ctx context.Context, keys ...string) ([]string, error)
	// Atomic applies the writes queued by fn as a single unit.
	Atomic(ctx context.Context, fn func(Tx) error) error
	// Ping checks connectivity.
	Ping(ctx context.Context) error
	// Close releases the underlying connection.
	Close() error
}

// Tx queues writes for Store.Atomic.
type Tx interface {
	Set(key, value string)
	Delete(keys ...string)
	AddMember(key string, members ...string)
	RemoveMember(key string, members ...string)
}

type opKind int

const (
	opSet opKind = iota
	opDelete
	opAddMember
	opRemoveMember
)

type op struct {
	kind    opKind
	key     string
	value   string
	members []string
	keys    []string
}

// batch records queued writes in order; backends replay them inside their
// own transaction primitive.
type batch struct {
	ops []op
}

func (b *batch) Set(key, value string) {
	b.ops = append(b.ops, op{kind: opSet, key: key, value: value})
}

func (b *batch) Delete(keys ...string) {
	if len(keys) == 0 {
		return
	}
	b.ops = append(b.ops, op{kind: opDelete, keys: keys})
}

func (b *batch) AddMember(key string, members ...string) {
	if len(members) == 0 {
		return
	}
	b.ops = append(b.ops, op{kind: opAddMember, key: key, members: members})
}

func (b *batch) RemoveMember(key string, members ...string) {
	if len(members) == 0 {
		return
	}
	b.ops = append(b.ops, op{kind: opRemoveMember, key: key, members: members})
}

// collect runs fn against a fresh batch.
func collect(fn func(Tx) error) (*batch, error) {
	b := &batch{}
	if err := fn(b); err != nil {
		return nil, err
	}
	return b, nil
}
