package store

import (
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

// Entity provides generic CRUD operations for a domain type.
// Keys are laid out as {prefix}{id}; secondary index keys as
// {prefix}idx:{index}:{value} -> id. Index values are unique: two
// entities may never share the same value in the same index.
type Entity[T any] struct {
	store   *Store
	prefix  string
	indexes []Index[T]
}

// Index defines a secondary index on an entity.
type Index[T any] struct {
	name            string
	keyGen          func(*T) []string
	lookupTransform func(string) string // Optional transformation for lookups
}

// NewEntity creates a new Entity instance for type T.
func NewEntity[T any](s *Store, prefix string) *Entity[T] {
	return &Entity[T]{
		store:  s,
		prefix: prefix,
	}
}

// WithIndex adds a secondary index to the entity.
func (e *Entity[T]) WithIndex(name string, keyGen func(*T) []string) *Entity[T] {
	e.indexes = append(e.indexes, Index[T]{name: name, keyGen: keyGen})
	return e
}

// WithIndexTransform adds a secondary index whose lookup values are
// transformed before the index is consulted (e.g. case-insensitive email).
func (e *Entity[T]) WithIndexTransform(name string, keyGen func(*T) []string, lookupTransform func(string) string) *Entity[T] {
	e.indexes = append(e.indexes, Index[T]{name: name, keyGen: keyGen, lookupTransform: lookupTransform})
	return e
}

// indexKey builds the full database key for one index entry.
func (e *Entity[T]) indexKey(indexName, value string) []byte {
	return []byte(e.prefix + "idx:" + indexName + ":" + value)
}

// checkIndexConflicts fails with ErrAlreadyExists if any index entry for
// entity is already taken. Keys listed in skip are ignored (they belong to
// the entity being updated).
func (e *Entity[T]) checkIndexConflicts(txn *badger.Txn, entity *T, skip map[string]bool) error {
	for _, idx := range e.indexes {
		for _, value := range idx.keyGen(entity) {
			if skip[idx.name+":"+value] {
				continue
			}
			_, err := txn.Get(e.indexKey(idx.name, value))
			if err == nil {
				return fmt.Errorf("index %s conflict on %q: %w", idx.name, value, ErrAlreadyExists)
			}
			if !errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("failed to check index key: %w", err)
			}
		}
	}
	return nil
}

// writeIndexEntries points every index entry for entity at id.
func (e *Entity[T]) writeIndexEntries(txn *badger.Txn, entity *T, id string) error {
	for _, idx := range e.indexes {
		for _, value := range idx.keyGen(entity) {
			if err := txn.Set(e.indexKey(idx.name, value), []byte(id)); err != nil {
				return fmt.Errorf("failed to set index key: %w", err)
			}
		}
	}
	return nil
}

// deleteIndexEntries removes every index entry for entity.
func (e *Entity[T]) deleteIndexEntries(txn *badger.Txn, entity *T) error {
	for _, idx := range e.indexes {
		for _, value := range idx.keyGen(entity) {
			if err := txn.Delete(e.indexKey(idx.name, value)); err != nil {
				return fmt.Errorf("failed to delete index key: %w", err)
			}
		}
	}
	return nil
}

// Create creates a new entity with the given ID.
// Returns ErrAlreadyExists if an entity with this ID or a conflicting
// index value already exists.
func (e *Entity[T]) Create(ctx context.Context, id string, entity *T) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key := []byte(e.prefix + id)

	data, err := json.Marshal(entity)
	if err != nil {
		return fmt.Errorf("failed to marshal entity: %w", err)
	}

	return e.store.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if err == nil {
			return ErrAlreadyExists
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("failed to check existing key: %w", err)
		}

		if err := e.checkIndexConflicts(txn, entity, nil); err != nil {
			return err
		}

		if err := txn.Set(key, data); err != nil {
			return fmt.Errorf("failed to set key: %w", err)
		}

		return e.writeIndexEntries(txn, entity, id)
	})
}

// Get retrieves an entity by ID.
// Returns ErrNotFound if the entity does not exist.
func (e *Entity[T]) Get(ctx context.Context, id string) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var entity T
	err := e.store.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(e.prefix + id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to get key: %w", err)
		}

		return item.Value(func(val []byte) error {
			if err := json.Unmarshal(val, &entity); err != nil {
				return fmt.Errorf("failed to unmarshal entity: %w", err)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return &entity, nil
}

// GetByIndex retrieves an entity by secondary index value.
// The index's lookup transform, if any, is applied to value first.
func (e *Entity[T]) GetByIndex(ctx context.Context, indexName, value string) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for _, idx := range e.indexes {
		if idx.name == indexName && idx.lookupTransform != nil {
			value = idx.lookupTransform(value)
			break
		}
	}

	var entityID string
	err := e.store.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(e.indexKey(indexName, value))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			entityID = string(val)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return e.Get(ctx, entityID)
}

// Update replaces an existing entity, rewriting its index entries.
// Returns ErrNotFound if the entity does not exist.
func (e *Entity[T]) Update(ctx context.Context, id string, entity *T) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key := []byte(e.prefix + id)

	data, err := json.Marshal(entity)
	if err != nil {
		return fmt.Errorf("failed to marshal entity: %w", err)
	}

	return e.store.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to get existing key: %w", err)
		}

		var oldEntity T
		err = item.Value(func(val []byte) error {
			return json.Unmarshal(val, &oldEntity)
		})
		if err != nil {
			return fmt.Errorf("failed to unmarshal old entity: %w", err)
		}

		if err := e.deleteIndexEntries(txn, &oldEntity); err != nil {
			return err
		}

		// Index values the old entity already held stay available to the
		// new version without counting as conflicts.
		keep := make(map[string]bool)
		for _, idx := range e.indexes {
			for _, value := range idx.keyGen(&oldEntity) {
				keep[idx.name+":"+value] = true
			}
		}
		if err := e.checkIndexConflicts(txn, entity, keep); err != nil {
			return err
		}

		if err := txn.Set(key, data); err != nil {
			return fmt.Errorf("failed to set key: %w", err)
		}

		return e.writeIndexEntries(txn, entity, id)
	})
}

// Delete deletes an entity by ID.
// Idempotent: deleting a missing entity is not an error.
func (e *Entity[T]) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key := []byte(e.prefix + id)

	return e.store.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to get key: %w", err)
		}

		var entity T
		err = item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entity)
		})
		if err != nil {
			return fmt.Errorf("failed to unmarshal entity: %w", err)
		}

		if err := e.deleteIndexEntries(txn, &entity); err != nil {
			return err
		}

		if err := txn.Delete(key); err != nil {
			return fmt.Errorf("failed to delete key: %w", err)
		}

		return nil
	})
}

// List returns an iterator over all entities, in key order.
func (e *Entity[T]) List(ctx context.Context) iter.Seq2[*T, error] {
	return func(yield func(*T, error) bool) {
		//nolint:errcheck // Errors are yielded to the consumer
		_ = e.store.db.View(func(txn *badger.Txn) error {
			opts := badger.DefaultIteratorOptions
			opts.Prefix = []byte(e.prefix)
			opts.PrefetchValues = true

			it := txn.NewIterator(opts)
			defer it.Close()

			for it.Seek([]byte(e.prefix)); it.ValidForPrefix([]byte(e.prefix)); it.Next() {
				if ctx.Err() != nil {
					yield(nil, ctx.Err())
					return ctx.Err()
				}

				// Skip index keys.
				if strings.HasPrefix(string(it.Item().Key())[len(e.prefix):], "idx:") {
					continue
				}

				var entity T
				err := it.Item().Value(func(val []byte) error {
					return json.Unmarshal(val, &entity)
				})
				if err != nil {
					yield(nil, err)
					return err
				}

				if !yield(&entity, nil) {
					return nil // Consumer stopped early
				}
			}

			return nil
		})
	}
}

// All collects every entity into a slice. Convenience for small collections.
func (e *Entity[T]) All(ctx context.Context) ([]*T, error) {
	var out []*T
	for entity, err := range e.List(ctx) {
		if err != nil {
			return nil, err
		}
		out = append(out, entity)
	}
	return out, nil
}
