package cartstore

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/fjod/go_cart/storefront/internal/domain"
)

const keyPrefix = "cart/"

// PebbleBackend persists carts in a Pebble database on local disk.
// Keys are cart/<profileID>/<productID>, values are JSON-encoded cart lines.
type PebbleBackend struct {
	mu     sync.RWMutex
	db     *pebble.DB
	closed bool
}

func OpenPebble(dir string) (*PebbleBackend, error) {
	opts := &pebble.Options{
		MemTableSize:          16 << 20,
		L0CompactionThreshold: 4,
		L0StopWritesThreshold: 12,
	}
	db, err := pebble.Open(filepath.Clean(dir), opts)
	if err != nil {
		return nil, unavailable("pebble open", err)
	}
	return &PebbleBackend{db: db}, nil
}

func (b *PebbleBackend) Profile(profileID string) Store {
	prefix := []byte(keyPrefix + profileID + "/")
	return &pebbleStore{backend: b, prefix: prefix, upper: prefixUpperBound(prefix)}
}

func (b *PebbleBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	return b.db.Close()
}

// use runs fn with the database unless the backend has been closed.
func (b *PebbleBackend) use(op string, fn func(db *pebble.DB) error) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return unavailable(op, errClosed)
	}
	if err := fn(b.db); err != nil {
		return unavailable(op, err)
	}
	return nil
}

type pebbleStore struct {
	backend *PebbleBackend
	prefix  []byte
	upper   []byte
}

func (s *pebbleStore) key(productID string) []byte {
	k := make([]byte, 0, len(s.prefix)+len(productID))
	k = append(k, s.prefix...)
	return append(k, productID...)
}

func (s *pebbleStore) Upsert(ctx context.Context, line domain.CartLine) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	val, err := json.Marshal(line)
	if err != nil {
		return fmt.Errorf("marshal cart line: %w", err)
	}
	return s.backend.use("pebble upsert", func(db *pebble.DB) error {
		return db.Set(s.key(line.ProductID), val, pebble.Sync)
	})
}

func (s *pebbleStore) Remove(ctx context.Context, productID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	// Delete of a missing key is a no-op in pebble.
	return s.backend.use("pebble remove", func(db *pebble.DB) error {
		return db.Delete(s.key(productID), pebble.Sync)
	})
}

func (s *pebbleStore) ListAll(ctx context.Context) ([]domain.CartLine, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var lines []domain.CartLine
	err := s.backend.use("pebble list", func(db *pebble.DB) error {
		it, err := db.NewIter(&pebble.IterOptions{LowerBound: s.prefix, UpperBound: s.upper})
		if err != nil {
			return err
		}
		defer it.Close()

		for it.First(); it.Valid(); it.Next() {
			var l domain.CartLine
			if err := json.Unmarshal(it.Value(), &l); err != nil {
				return fmt.Errorf("decode %q: %w", it.Key(), err)
			}
			lines = append(lines, l)
		}
		return it.Error()
	})
	if err != nil {
		return nil, err
	}
	return lines, nil
}

func (s *pebbleStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.backend.use("pebble clear", func(db *pebble.DB) error {
		return db.DeleteRange(s.prefix, s.upper, pebble.Sync)
	})
}

// prefixUpperBound returns the smallest key greater than every key starting with prefix.
func prefixUpperBound(prefix []byte) []byte {
	upper := append([]byte(nil), prefix...)
	for i := len(upper) - 1; i >= 0; i-- {
		upper[i]++
		if upper[i] != 0 {
			return upper[:i+1]
		}
	}
	return nil
}
