package rpc

import (
	"encoding/binary"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
)

const (
	seenKeyPrefix     = "seen:"
	observedKeyPrefix = "observed:"
)

// seenStore remembers submitted transaction hashes so a resubmission within
// the TTL is rejected before it reaches the node.
type seenStore struct {
	mu sync.Mutex
	db *leveldb.DB
}

// openSeenStore opens the LevelDB store at path. An empty path keeps the
// store in memory.
func openSeenStore(path string) (*seenStore, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		db, err := leveldb.Open(storage.NewMemStorage(), nil)
		if err != nil {
			return nil, fmt.Errorf("open in-memory seen store: %w", err)
		}
		return &seenStore{db: db}, nil
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return nil, fmt.Errorf("resolve seen store path: %w", err)
	}
	db, err := leveldb.OpenFile(abs, nil)
	if err != nil {
		return nil, fmt.Errorf("open seen store: %w", err)
	}
	return &seenStore{db: db}, nil
}

func (s *seenStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// remember records hash and reports whether it was new. Entries older than
// ttl are pruned first.
func (s *seenStore) remember(hash string, now time.Time, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.prune(now.Add(-ttl)); err != nil {
		return false, err
	}
	key := []byte(seenKeyPrefix + hash)
	_, err := s.db.Get(key, nil)
	switch {
	case err == nil:
		return false, nil
	case !errors.Is(err, leveldb.ErrNotFound):
		return false, fmt.Errorf("load seen tx: %w", err)
	}
	nanos := now.UTC().UnixNano()
	batch := new(leveldb.Batch)
	batch.Put(key, encodeUnixNano(nanos))
	batch.Put([]byte(observedKey(nanos, hash)), nil)
	if err := s.db.Write(batch, nil); err != nil {
		return false, fmt.Errorf("record seen tx: %w", err)
	}
	return true, nil
}

// forget drops hash so a rejected transaction can be resubmitted.
func (s *seenStore) forget(hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := []byte(seenKeyPrefix + hash)
	raw, err := s.db.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load seen tx: %w", err)
	}
	batch := new(leveldb.Batch)
	batch.Delete(key)
	if len(raw) == 8 {
		batch.Delete([]byte(observedKey(int64(binary.BigEndian.Uint64(raw)), hash)))
	}
	return s.db.Write(batch, nil)
}

func (s *seenStore) prune(cutoff time.Time) error {
	cutoffKey := []byte(observedKey(cutoff.UTC().UnixNano(), ""))
	iter := s.db.NewIterator(util.BytesPrefix([]byte(observedKeyPrefix)), nil)
	defer iter.Release()

	batch := new(leveldb.Batch)
	for iter.Next() {
		if string(iter.Key()) >= string(cutoffKey) {
			break
		}
		parts := strings.SplitN(string(iter.Key()), ":", 3)
		if len(parts) != 3 {
			continue
		}
		batch.Delete(append([]byte(nil), iter.Key()...))
		batch.Delete([]byte(seenKeyPrefix + parts[2]))
	}
	if err := iter.Error(); err != nil {
		return fmt.Errorf("iterate seen txs: %w", err)
	}
	if batch.Len() == 0 {
		return nil
	}
	if err := s.db.Write(batch, nil); err != nil {
		return fmt.Errorf("prune seen txs: %w", err)
	}
	return nil
}

func observedKey(nanos int64, hash string) string {
	return fmt.Sprintf("%s%020d:%s", observedKeyPrefix, nanos, hash)
}

func encodeUnixNano(nanos int64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(nanos))
	return buf
}
