/*
author: akashmaji
email: akashmaji@iisc.ac.in
file: go-redis/internal/database/database.go (trimmed: eviction policies,
RDB snapshot trackers, access counters and the multi-typed Item payload are
dropped — see DESIGN.md. Set/Del/Touch survive, generalized against the
corrected watchIndex in watch.go.)
*/
package database

import (
	"sync"
	"time"

	"github.com/kmishra/redis-txcore/internal/common"
)

// Database is one logical keyspace: a string-only store plus the watch
// index over it. Store mutation and the watch index live together because
// every mutation must call Touch before returning success to the caller —
// colocating them makes that ordering a property of the code, not a
// convention callers must remember.
type Database struct {
	ID int

	Mu    sync.RWMutex
	Store map[string]*common.Item

	watchMu sync.Mutex
	watch   *watchIndex
}

func NewDatabase(id int) *Database {
	return &Database{
		ID:    id,
		Store: make(map[string]*common.Item),
		watch: newWatchIndex(),
	}
}

// DatabaseSet is the server-wide collection of logical databases (SELECT
// targets), indexed by ID.
type DatabaseSet struct {
	DBs []*Database
}

func NewDatabaseSet(n int) *DatabaseSet {
	ds := &DatabaseSet{DBs: make([]*Database, n)}
	for i := range ds.DBs {
		ds.DBs[i] = NewDatabase(i)
	}
	return ds
}

// --- store operations: kept minimal (string GET/SET/INCR/DECR/DEL/EXPIRE)
// purely to exercise the transactional core end to end ---

// Get returns the item for key, deleting it first if lazily expired.
func (db *Database) Get(key string) (*common.Item, bool) {
	db.Mu.Lock()
	defer db.Mu.Unlock()
	item, ok := db.Store[key]
	if !ok {
		return nil, false
	}
	if item.IsExpired() {
		db.removeLocked(key)
		return nil, false
	}
	item.LastAccessed = time.Now()
	return item, true
}

// Exists reports whether key is present and unexpired, without touching
// LastAccessed. Backs the EXISTS command.
func (db *Database) Exists(key string) bool {
	db.Mu.RLock()
	defer db.Mu.RUnlock()
	item, ok := db.Store[key]
	return ok && !item.IsExpired()
}

// Set stores key=val with no expiration and marks watchers of key dirty.
func (db *Database) Set(key, val string) {
	db.Mu.Lock()
	db.Store[key] = &common.Item{Str: val, LastAccessed: time.Now()}
	db.Mu.Unlock()
	db.Touch(key)
}

// SetNX stores key=val only if key is absent/expired, reporting whether it did.
func (db *Database) SetNX(key, val string) bool {
	db.Mu.Lock()
	if item, ok := db.Store[key]; ok && !item.IsExpired() {
		db.Mu.Unlock()
		return false
	}
	db.Store[key] = &common.Item{Str: val, LastAccessed: time.Now()}
	db.Mu.Unlock()
	db.Touch(key)
	return true
}

// Incr adds delta to the integer at key (creating it at 0 if absent),
// returning the new value. Returns an error if the existing value isn't
// an integer.
func (db *Database) Incr(key string, delta int64) (int64, error) {
	db.Mu.Lock()
	item, ok := db.Store[key]
	var n int64
	if ok && !item.IsExpired() {
		var err error
		n, err = parseInt(item.Str)
		if err != nil {
			db.Mu.Unlock()
			return 0, err
		}
	}
	n += delta
	if ok {
		item.Str = formatInt(n)
	} else {
		db.Store[key] = &common.Item{Str: formatInt(n), LastAccessed: time.Now()}
	}
	db.Mu.Unlock()
	db.Touch(key)
	return n, nil
}

// Del removes key if present, reporting whether it was.
func (db *Database) Del(key string) bool {
	db.Mu.Lock()
	_, existed := db.Store[key]
	if existed {
		db.removeLocked(key)
	}
	db.Mu.Unlock()
	if existed {
		db.Touch(key)
	}
	return existed
}

// Expire sets key's TTL, reporting whether key exists.
func (db *Database) Expire(key string, ttl time.Duration) bool {
	db.Mu.Lock()
	item, ok := db.Store[key]
	if ok {
		item.Exp = time.Now().Add(ttl)
	}
	db.Mu.Unlock()
	if ok {
		db.Touch(key)
	}
	return ok
}

func (db *Database) removeLocked(key string) {
	delete(db.Store, key)
}

// --- watch index glue ---

// Touch marks every client watching key as CAS-failed, without
// structurally changing the index. Every store mutation above invokes this
// after releasing db.Mu, so Touch never takes watchMu while db.Mu is held;
// FlushDB is the one path that nests them, taking db.Mu first.
func (db *Database) Touch(key string) {
	db.watchMu.Lock()
	defer db.watchMu.Unlock()
	db.watch.touch(key)
}

// FlushDB clears this database's entire store, marking watchers of
// currently-existing keys dirty before the entries are removed.
func (db *Database) FlushDB() {
	db.Mu.Lock()
	defer db.Mu.Unlock()

	db.watchMu.Lock()
	db.watch.touchAllExisting(func(key string) bool {
		item, ok := db.Store[key]
		return ok && !item.IsExpired()
	})
	db.watchMu.Unlock()

	db.Store = make(map[string]*common.Item)
}

// FlushAll clears every logical database (FLUSHALL), touching each
// database's own watch index before clearing it.
func (ds *DatabaseSet) FlushAll() {
	for _, db := range ds.DBs {
		db.FlushDB()
	}
}

// Watch records client as watching key in this database. Returns false if
// the client was already watching (a no-op, not an error).
func (db *Database) Watch(client *common.Client, key string) bool {
	if !client.Tx.AddWatch(db.ID, key) {
		return false
	}
	db.watchMu.Lock()
	defer db.watchMu.Unlock()
	db.watch.watch(client, key)
	return true
}

// UnwatchKey removes client from key's watcher bucket only — an O(1)-bucket
// operation, not a scan of this database's whole watch index. Callers that
// manage multiple databases (DatabaseSet) call this once per (db, key) pair
// from the client's own watched list, giving unwatch-all its O(watched)
// bound instead of O(watched * total-watched-keys-in-db).
func (db *Database) UnwatchKey(client *common.Client, key string) {
	db.watchMu.Lock()
	defer db.watchMu.Unlock()
	db.watch.unwatch(client, key)
}

// WatcherCount is a test hook.
func (db *Database) WatcherCount(key string) int {
	db.watchMu.Lock()
	defer db.watchMu.Unlock()
	return db.watch.watcherCount(key)
}

// UnwatchAll removes client from exactly the (db, key) buckets it actually
// watches — one targeted UnwatchKey call per entry in client.Tx.Watched(),
// never a scan of any database's full watch index — and clears the
// client's own watched list. This is the UNWATCH-all primitive invoked by
// UNWATCH, EXEC/DISCARD termination, and disconnect; its cost is
// O(watched), not O(watched * keys watched by anyone else in that db).
func (ds *DatabaseSet) UnwatchAll(client *common.Client) {
	for _, wk := range client.Tx.Watched() {
		if wk.DB >= 0 && wk.DB < len(ds.DBs) {
			ds.DBs[wk.DB].UnwatchKey(client, wk.Key)
		}
	}
	client.Tx.ClearWatches()
}
