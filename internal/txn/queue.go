/*
Command Queue: the per-client ordered buffer of commands accumulated
between MULTI and EXEC. Grounded on
internal/common/transaction.go (Transaction.Cmds / TxCommand), generalized
to track the OR-folded descriptor flags the follower-write gate needs.
*/
package txn

// CommandFlags summarizes a queued command's descriptor bits. The concrete
// Descriptor type lives in internal/command; txn only needs the flags it
// aggregates. txn is deliberately the most leaf-level package in this repo
// (no RESP, no database, no command-table knowledge) so the transactional
// core stays provable in isolation.
type CommandFlags uint8

const (
	FlagReadOnly CommandFlags = 1 << iota
	FlagWrite
	FlagAdmin
)

// QueuedCmd is one buffered command: its name (for propagation), flags (for
// aggregation and the lazy-MULTI trigger), argv, and the executor the
// engine invokes during drain. Reply is left as `any` — the engine layer
// knows it's a *common.Value and type-asserts; txn itself never needs to.
// The executor may legally rewrite Argv in place before returning, so that
// propagation observes what actually executed.
type QueuedCmd struct {
	Name     string
	Flags    CommandFlags
	Argv     []string
	Executor func(argv []string) (reply any)
}

// Queue is the per-client command buffer: commands are appended only while
// in_multi, executed strictly in insertion order, and cleared on EXEC
// completion and on DISCARD.
type Queue struct {
	cmds        []QueuedCmd
	queuedFlags CommandFlags
}

// Append buffers a validated command and OR-folds its flags into
// queuedFlags.
func (q *Queue) Append(cmd QueuedCmd) {
	q.cmds = append(q.cmds, cmd)
	q.queuedFlags |= cmd.Flags
}

func (q *Queue) Len() int { return len(q.cmds) }

// Flags returns the bitwise OR of all queued commands' flags.
func (q *Queue) Flags() CommandFlags { return q.queuedFlags }

// HasWrite reports whether any queued command carries FlagWrite — used by
// the engine's follower-write gate.
func (q *Queue) HasWrite() bool { return q.queuedFlags&FlagWrite != 0 }

// Drain iterates queued entries in insertion order, invoking onEach for
// each, then frees the backing storage.
func (q *Queue) Drain(onEach func(i int, cmd QueuedCmd)) {
	for i, cmd := range q.cmds {
		onEach(i, cmd)
	}
	q.cmds = nil
	q.queuedFlags = 0
}

// Clear discards the queue without draining it (used by DISCARD).
func (q *Queue) Clear() {
	q.cmds = nil
	q.queuedFlags = 0
}
