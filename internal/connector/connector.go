// Package connector exposes the redis_notes connector: an independently
// enabled note backend with word-index search.
package connector

import (
	"context"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/starford/redisnotes/internal/notestore"
	"github.com/starford/redisnotes/internal/search"
)

// Name is the connector name matched against the configured connector list.
const Name = "redis_notes"

// Event kinds passed to an EventCallback.
const (
	EventSaved   = "saved"
	EventDeleted = "deleted"
)

// NoteIndex is the note storage the connector delegates to. *notestore.Store
// satisfies it.
type NoteIndex interface {
	Save(ctx context.Context, ts int64, text string) error
	Delete(ctx context.Context, ts int64) error
	Update(ctx context.Context, oldTS, newTS int64, text string) error
	Get(ctx context.Context, ts int64) (*notestore.Note, error)
	Load(ctx context.Context, ids []int64) ([]notestore.Note, error)
	List(ctx context.Context) ([]int64, error)
	Find(ctx context.Context, indexKeys []string) ([]int64, error)
}

var _ NoteIndex = (*notestore.Store)(nil)

// EventCallback is called after a successful mutation.
type EventCallback func(kind string, id int64)

// Connector coordinates the note index and the search parser.
type Connector struct {
	store      NoteIndex
	parser     search.Parser
	connectors atomic.Pointer[string]
	onEvent    EventCallback
	logger     *slog.Logger
}

// Option configures a Connector.
type Option func(*Connector)

// WithParser replaces the default search.RequestParser.
func WithParser(p search.Parser) Option {
	return func(c *Connector) { c.parser = p }
}

// WithEventCallback registers cb for note mutations.
func WithEventCallback(cb EventCallback) Option {
	return func(c *Connector) { c.onEvent = cb }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Connector) { c.logger = l }
}

// New creates a connector. connectors is the comma-separated list of enabled
// connector names from configuration.
func New(store NoteIndex, connectors string, opts ...Option) *Connector {
	c := &Connector{
		store:  store,
		parser: search.RequestParser{},
		logger: slog.Default(),
	}
	c.connectors.Store(&connectors)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetConnectors replaces the enabled connector list, e.g. after a config reload.
func (c *Connector) SetConnectors(connectors string) {
	c.connectors.Store(&connectors)
}

// IsEnabled reports whether Name appears in the configured connector list.
func (c *Connector) IsEnabled() bool {
	return Enabled(*c.connectors.Load(), Name)
}

// Enabled reports whether name is one of the comma-separated, trimmed entries
// of list. An empty list enables nothing.
func Enabled(list, name string) bool {
	for _, entry := range strings.Split(list, ",") {
		if strings.TrimSpace(entry) == name {
			return true
		}
	}
	return false
}

// SaveNote stores text under timestamp ts and indexes it.
func (c *Connector) SaveNote(ctx context.Context, ts int64, text string) error {
	if err := c.store.Save(ctx, ts, text); err != nil {
		return err
	}
	c.emit(EventSaved, ts)
	return nil
}

// DeleteNote removes the note at ts.
func (c *Connector) DeleteNote(ctx context.Context, ts int64) error {
	if err := c.store.Delete(ctx, ts); err != nil {
		return err
	}
	c.emit(EventDeleted, ts)
	return nil
}

// UpdateNote deletes the note at oldTS and saves text at newTS. The store
// applies both steps in one transaction.
func (c *Connector) UpdateNote(ctx context.Context, oldTS, newTS int64, text string) error {
	if err := c.store.Update(ctx, oldTS, newTS, text); err != nil {
		return err
	}
	if oldTS != newTS {
		c.emit(EventDeleted, oldTS)
	}
	c.emit(EventSaved, newTS)
	return nil
}

// GetNote returns the note at ts.
func (c *Connector) GetNote(ctx context.Context, ts int64) (*notestore.Note, error) {
	return c.store.Get(ctx, ts)
}

// ListNotes returns every note id, newest first.
func (c *Connector) ListNotes(ctx context.Context) ([]int64, error) {
	return c.store.List(ctx)
}

// FindNotes returns the ids of notes matching every search term.
func (c *Connector) FindNotes(ctx context.Context, terms []string) ([]int64, error) {
	indexKeys := c.parser.Parse(terms)
	c.logger.Debug("connector: find", slog.Any("terms", terms), slog.Any("keys", indexKeys))
	return c.store.Find(ctx, indexKeys)
}

// SearchNotes is FindNotes followed by loading the matching note bodies.
func (c *Connector) SearchNotes(ctx context.Context, terms []string) ([]notestore.Note, error) {
	ids, err := c.FindNotes(ctx, terms)
	if err != nil {
		return nil, err
	}
	return c.store.Load(ctx, ids)
}

func (c *Connector) emit(kind string, id int64) {
	if c.onEvent != nil {
		c.onEvent(kind, id)
	}
}
