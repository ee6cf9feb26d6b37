package storage

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/core/rawdb"
	"github.com/ethereum/go-ethereum/ethdb"
	gethleveldb "github.com/ethereum/go-ethereum/ethdb/leveldb"
	"github.com/ethereum/go-ethereum/triedb"
)

const (
	levelDBCacheMB = 16
	levelDBHandles = 64
)

// Database is a generic interface for a key-value store.
// The ledger uses any backend (in-memory or persistent) that can also host the
// state trie's node database.
type Database interface {
	Put(key []byte, value []byte) error
	Get(key []byte) ([]byte, error)
	Has(key []byte) (bool, error)
	TrieDB() *triedb.Database
	Close()
}

// kvDatabase adapts a go-ethereum ethdb.Database to the Database interface and
// lazily creates a single shared trie node database on top of it.
type kvDatabase struct {
	disk ethdb.Database

	once   sync.Once
	trieDB *triedb.Database
}

func (db *kvDatabase) Put(key []byte, value []byte) error {
	return db.disk.Put(key, value)
}

func (db *kvDatabase) Get(key []byte) ([]byte, error) {
	has, err := db.disk.Has(key)
	if err != nil {
		return nil, err
	}
	if !has {
		return nil, fmt.Errorf("key not found")
	}
	return db.disk.Get(key)
}

func (db *kvDatabase) Has(key []byte) (bool, error) {
	return db.disk.Has(key)
}

// TrieDB returns the trie node database shared by every trie opened on this
// store. Sharing the handle keeps uncommitted node caches coherent.
func (db *kvDatabase) TrieDB() *triedb.Database {
	db.once.Do(func() {
		db.trieDB = triedb.NewDatabase(db.disk, triedb.HashDefaults)
	})
	return db.trieDB
}

// --- In-Memory DB (for testing) ---

type MemDB struct {
	kvDatabase
}

func NewMemDB() *MemDB {
	return &MemDB{kvDatabase{disk: rawdb.NewMemoryDatabase()}}
}

// Close satisfies the Database interface for MemDB.
func (db *MemDB) Close() {
	_ = db.disk.Close()
}

// --- Persistent DB ---

// LevelDB is a persistent key-value store using LevelDB.
type LevelDB struct {
	kvDatabase
}

// NewLevelDB creates or opens a LevelDB database at the specified path.
func NewLevelDB(path string) (*LevelDB, error) {
	kv, err := gethleveldb.New(path, levelDBCacheMB, levelDBHandles, "claimchain/db/", false)
	if err != nil {
		return nil, err
	}
	return &LevelDB{kvDatabase{disk: rawdb.NewDatabase(kv)}}, nil
}

// Close flushes the trie database and closes the connection.
func (ldb *LevelDB) Close() {
	if ldb.trieDB != nil {
		_ = ldb.trieDB.Close()
	}
	_ = ldb.disk.Close()
}
