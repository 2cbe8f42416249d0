/*
Transaction State Machine + the per-client half of the Watch Index's
bidirectional relation. Grounded on Client.InTx/Tx/WatchedKeys
(internal/common/client.go) and Transaction (internal/common/transaction.go),
generalized into one cohesive ClientTxState so the invariants around
MULTI/EXEC/WATCH are enforced by a single type instead of being spread
across Client and Database.
*/
package txn

import "errors"

// Errors returned by state-machine transitions. internal/server and
// internal/engine turn these into "ERR ..." wire replies (EXECABORT comes
// from the DIRTY_EXEC bit, not from these); txn itself stays
// protocol-agnostic.
var (
	ErrNestedMulti         = errors.New("MULTI calls can not be nested")
	ErrExecWithoutMulti    = errors.New("EXEC without MULTI")
	ErrDiscardWithoutMulti = errors.New("DISCARD without MULTI")
	ErrWatchInsideMulti    = errors.New("WATCH inside MULTI is not allowed")
)

// WatchedKey is one entry of a client's watched-key list: a (db, key) pair.
// DB is an integer index rather than a *Database pointer so txn need not
// import the database package.
type WatchedKey struct {
	DB  int
	Key string
}

// ClientTxState is the per-client transactional state: in_multi, dirty_cas,
// dirty_exec, queue, watched. One instance is created per client session and
// lives for the session's lifetime.
type ClientTxState struct {
	inMulti bool
	dirty   dirtyFlags
	queue   Queue
	watched []WatchedKey
}

func NewClientTxState() *ClientTxState {
	return &ClientTxState{}
}

func (s *ClientTxState) InMulti() bool   { return s.inMulti }
func (s *ClientTxState) DirtyCAS() bool  { return s.dirty.CAS() }
func (s *ClientTxState) DirtyExec() bool { return s.dirty.Exec() }
func (s *ClientTxState) Queue() *Queue   { return &s.queue }
func (s *ClientTxState) Watched() []WatchedKey {
	return s.watched
}

// MarkDirtyCAS is invoked by the Watch Index's touch()/touch_on_flush() for
// every client watching a mutated key. It is the sole write path into the
// CAS bit from outside this package: mark every client watching a given
// (db, key) as CAS-failed.
func (s *ClientTxState) MarkDirtyCAS() { s.dirty.setCAS() }

// Multi handles the MULTI command transition. Nested MULTI is a state
// error: the state is left unchanged.
func (s *ClientTxState) Multi() error {
	if s.inMulti {
		return ErrNestedMulti
	}
	s.inMulti = true
	return nil
}

// EnqueueOK buffers a successfully-resolved command while in_multi. Callers
// must check InMulti() first; EnqueueOK does not itself gate on state.
func (s *ClientTxState) EnqueueOK(cmd QueuedCmd) {
	s.queue.Append(cmd)
}

// EnqueueError records a queue-time resolution failure (unknown command,
// bad arity): while in_multi this sets DIRTY_EXEC instead of queueing the
// command.
func (s *ClientTxState) EnqueueError() {
	s.dirty.setExec()
}

// Discard implements the DISCARD transition: terminal, clears the queue and
// both dirty bits. It leaves the watched list alone; the caller runs
// DatabaseSet.UnwatchAll for that. Returns ErrDiscardWithoutMulti if called
// outside IN_MULTI.
func (s *ClientTxState) Discard() error {
	if !s.inMulti {
		return ErrDiscardWithoutMulti
	}
	s.terminate()
	return nil
}

// BeginExec validates the EXEC precondition and returns the two abort
// signals the engine must check in order: dirty_exec first, then dirty_cas.
// It does NOT itself terminate the transaction — the caller
// (internal/engine) runs the drain (or aborts) and then calls Terminate
// (success/CAS-abort/EXECABORT) exactly once. Termination means: run
// UNWATCH-all, clear queue, leave IDLE.
func (s *ClientTxState) BeginExec() (dirtyExec, dirtyCAS bool, err error) {
	if !s.inMulti {
		return false, false, ErrExecWithoutMulti
	}
	return s.dirty.Exec(), s.dirty.CAS(), nil
}

// Terminate runs the common cleanup shared by EXEC (success or abort) and
// DISCARD: clear queue, clear in_multi, clear both dirty bits. Unwatch-all
// is left to the caller (see terminate below).
func (s *ClientTxState) Terminate() {
	s.terminate()
}

// terminate clears queue/in_multi/both dirty bits. It deliberately does not
// touch s.watched — unwatch-all is a cross-package operation (the database
// side of the index must be cleared too) and is always run by the caller
// via DatabaseSet.UnwatchAll (which itself calls ClearWatches) before or
// as part of the same transition. See internal/engine.Exec and
// internal/server's DISCARD handling for the required call order.
func (s *ClientTxState) terminate() {
	s.queue.Clear()
	s.inMulti = false
	s.dirty.clearAll()
}

// WatchGuard returns ErrWatchInsideMulti if a WATCH is attempted while
// in_multi. Callers check this before recording a watch in the
// database-side index.
func (s *ClientTxState) WatchGuard() error {
	if s.inMulti {
		return ErrWatchInsideMulti
	}
	return nil
}

// AddWatch records (db, key) in the per-client watched list, deduplicating
// by value-equality: within client.watched, the pair (db, key) appears at
// most once. Returns true if this call actually added a new entry (so the
// caller — the database-side index — knows whether to link the
// reverse-index side too, keeping both sides in sync).
func (s *ClientTxState) AddWatch(db int, key string) bool {
	for _, wk := range s.watched {
		if wk.DB == db && wk.Key == key {
			return false
		}
	}
	s.watched = append(s.watched, WatchedKey{DB: db, Key: key})
	return true
}

// ClearWatches empties the per-client watched list and clears DIRTY_CAS,
// matching UNWATCH's effect: unwatch-all, clear DIRTY_CAS, reply OK. It
// does not touch DIRTY_EXEC or in_multi — UNWATCH is legal in any state and
// is not itself terminal.
func (s *ClientTxState) ClearWatches() {
	s.watched = nil
	s.dirty.clearCAS()
}
