// Package notestore keeps note bodies and their inverted word index in a
// key-value store.
//
// Layout:
//
//	note_<ts>         note body
//	note_tokens_<ts>  space-separated index keys the note was added to
//	w_<word>          set of note timestamps containing word
//	year_<Y> ...      set of note timestamps in that time bucket
package notestore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/starford/redisnotes/internal/apperr"
	"github.com/starford/redisnotes/internal/keys"
	"github.com/starford/redisnotes/internal/storage"
	"github.com/starford/redisnotes/internal/tokenizer"
)

// Note is a stored note.
type Note struct {
	ID   int64  `json:"id"`
	Text string `json:"text"`
}

// Store implements save, delete, update and lookup of notes on a
// storage.Store.
type Store struct {
	kv     storage.Store
	logger *slog.Logger
}

// New creates a note store. A nil logger falls back to slog.Default().
func New(kv storage.Store, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{kv: kv, logger: logger}
}

// Save writes the note body and adds ts to the index set of every token.
// Re-saving a note replaces its previous index memberships.
func (s *Store) Save(ctx context.Context, ts int64, text string) error {
	prior, err := s.indexKeys(ctx, ts)
	if err != nil {
		return err
	}
	err = s.kv.Atomic(ctx, func(tx storage.Tx) error {
		queueSave(tx, ts, text, prior)
		return nil
	})
	if err != nil {
		return fmt.Errorf("notestore: save %d: %w", ts, err)
	}
	s.logger.Debug("notestore: saved", slog.Int64("id", ts))
	return nil
}

// Delete removes the note body and retracts the note from every index set it
// joined. Deleting a missing note is not an error.
func (s *Store) Delete(ctx context.Context, ts int64) error {
	prior, err := s.indexKeys(ctx, ts)
	if err != nil {
		return err
	}
	err = s.kv.Atomic(ctx, func(tx storage.Tx) error {
		queueDelete(tx, ts, prior)
		return nil
	})
	if err != nil {
		return fmt.Errorf("notestore: delete %d: %w", ts, err)
	}
	s.logger.Debug("notestore: deleted", slog.Int64("id", ts))
	return nil
}

// Update deletes the note at oldTS and saves text at newTS in one store
// transaction.
func (s *Store) Update(ctx context.Context, oldTS, newTS int64, text string) error {
	priorOld, err := s.indexKeys(ctx, oldTS)
	if err != nil {
		return err
	}
	var priorNew []string
	if newTS != oldTS {
		if priorNew, err = s.indexKeys(ctx, newTS); err != nil {
			return err
		}
	}
	err = s.kv.Atomic(ctx, func(tx storage.Tx) error {
		queueDelete(tx, oldTS, priorOld)
		queueSave(tx, newTS, text, priorNew)
		return nil
	})
	if err != nil {
		return fmt.Errorf("notestore: update %d -> %d: %w", oldTS, newTS, err)
	}
	s.logger.Debug("notestore: updated", slog.Int64("old_id", oldTS), slog.Int64("id", newTS))
	return nil
}

// Get returns the note at ts, or apperr.ErrNotFound.
func (s *Store) Get(ctx context.Context, ts int64) (*Note, error) {
	text, err := s.kv.Get(ctx, keys.NoteKey(ts))
	if err != nil {
		return nil, fmt.Errorf("notestore: get %d: %w", ts, err)
	}
	return &Note{ID: ts, Text: text}, nil
}

// Load returns the notes for ids in the given order, skipping ids whose body
// no longer exists.
func (s *Store) Load(ctx context.Context, ids []int64) ([]Note, error) {
	out := make([]Note, 0, len(ids))
	for _, id := range ids {
		n, err := s.Get(ctx, id)
		if errors.Is(err, apperr.ErrNotFound) {
			s.logger.Warn("notestore: index points at missing note", slog.Int64("id", id))
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, *n)
	}
	return out, nil
}

// List returns the ids of all stored notes, newest first.
func (s *Store) List(ctx context.Context) ([]int64, error) {
	found, err := s.kv.Scan(ctx, keys.NotePattern())
	if err != nil {
		return nil, fmt.Errorf("notestore: list: %w", err)
	}
	// note_* also matches note_tokens_* records.
	ids := lo.FilterMap(found, func(k string, _ int) (int64, bool) {
		return keys.ParseNoteKey(k)
	})
	sortNewestFirst(ids)
	return ids, nil
}

// Find returns the ids present in every index set named by indexKeys, newest
// first. No keys yields no results.
func (s *Store) Find(ctx context.Context, indexKeys []string) ([]int64, error) {
	if len(indexKeys) == 0 {
		return []int64{}, nil
	}
	members, err := s.kv.Intersect(ctx, indexKeys...)
	if err != nil {
		return nil, fmt.Errorf("notestore: find: %w", err)
	}
	ids := make([]int64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			s.logger.Warn("notestore: malformed index member", slog.String("member", m))
			continue
		}
		ids = append(ids, id)
	}
	sortNewestFirst(ids)
	return ids, nil
}

// IndexKeys returns the index keys recorded for the note at ts.
func (s *Store) IndexKeys(ctx context.Context, ts int64) ([]string, error) {
	return s.indexKeys(ctx, ts)
}

func (s *Store) indexKeys(ctx context.Context, ts int64) ([]string, error) {
	raw, err := s.kv.Get(ctx, keys.TokensKey(ts))
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("notestore: read index keys %d: %w", ts, err)
	}
	return strings.Fields(raw), nil
}

func queueSave(tx storage.Tx, ts int64, text string, prior []string) {
	id := strconv.FormatInt(ts, 10)
	for _, k := range prior {
		tx.RemoveMember(k, id)
	}
	tokens := tokenizer.Tokenize(ts, text)
	tx.Set(keys.NoteKey(ts), text)
	for _, k := range tokens {
		tx.AddMember(k, id)
	}
	tx.Set(keys.TokensKey(ts), strings.Join(tokens, " "))
}

func queueDelete(tx storage.Tx, ts int64, prior []string) {
	id := strconv.FormatInt(ts, 10)
	for _, k := range prior {
		tx.RemoveMember(k, id)
	}
	tx.Delete(keys.NoteKey(ts), keys.TokensKey(ts))
}

func sortNewestFirst(ids []int64) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })
}
