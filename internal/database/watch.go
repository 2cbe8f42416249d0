/*
Watch Index: the per-database key -> watching-clients mapping, paired with
the per-client watched list in internal/txn. Grounded on
Database.Watchers/WatchersMu and Database.Touch/TouchAll
(internal/database/database.go), corrected against a subtle bug: its prior
Touch() deleted the key's watcher list as a side effect of
touching it, so no structural change should ever ride along with a touch —
a second WATCH on the same key by a different client right after a touch
would silently lose the first watcher's entry if Touch had already dropped
the bucket. This version only removes a key's bucket via unwatch/eager
pruning, never from touch.
*/
package database

import "github.com/kmishra/redis-txcore/internal/common"

// watchIndex is the per-database reverse mapping: key -> ordered list of
// watching clients. Ordering is preserved only to make tests deterministic;
// it is not wire-observable.
type watchIndex struct {
	byKey map[string][]*common.Client
}

func newWatchIndex() *watchIndex {
	return &watchIndex{byKey: make(map[string][]*common.Client)}
}

// Watch adds (client, key) to the index. A second WATCH of the same key by
// the same client is a no-op, enforced on the client side by
// ClientTxState.AddWatch; this method trusts that check and only appends
// the reverse-index half when the client-side call reports a fresh watch.
func (w *watchIndex) watch(client *common.Client, key string) {
	w.byKey[key] = append(w.byKey[key], client)
}

// unwatch removes client from key's watcher bucket, the O(1)-bucket
// counterpart to watch: a targeted lookup/splice of w.byKey[key], never a
// scan of unrelated keys. This is what gives unwatch-all its O(watched)
// bound — the caller runs this once per (db, key) pair from the client's
// own watched list instead of scanning the whole index per key.
func (w *watchIndex) unwatch(client *common.Client, key string) {
	clients := w.byKey[key]
	for i, c := range clients {
		if c == client {
			w.byKey[key] = append(clients[:i], clients[i+1:]...)
			break
		}
	}
	if len(w.byKey[key]) == 0 {
		delete(w.byKey, key) // never leave an empty bucket
	}
}

// touch marks every client currently watching key as CAS-failed, without
// structurally changing the index.
func (w *watchIndex) touch(key string) {
	for _, c := range w.byKey[key] {
		c.MarkDirtyCAS()
	}
}

// touchAllExisting implements the flush-time variant of touch: every
// watched key that currently exists in the store gets its watchers marked;
// keys that were never present are left alone, distinguishing a flush that
// removes present data from a flush that removes nothing the watcher cared
// about. Must be called before the store actually clears its entries.
func (w *watchIndex) touchAllExisting(exists func(key string) bool) {
	for key, clients := range w.byKey {
		if !exists(key) {
			continue
		}
		for _, c := range clients {
			c.MarkDirtyCAS()
		}
	}
}

// watcherCount is a test hook exposing how many clients watch key right now.
func (w *watchIndex) watcherCount(key string) int {
	return len(w.byKey[key])
}
