/*
Execution & Propagation Engine: the component that drains a client's
command queue during EXEC and frames the batch for the write-ahead log and
replication backlog. Grounded on handlers.ExecuteTransaction
(internal/handlers/handler_transaction.go in the prior version of this
code) — which merely looped the queue and collected replies under a single
mutex — generalized here into the full abort-check / role-gate /
lazy-MULTI / role-change-mid-drain protocol (see DESIGN.md).
*/
package engine

import (
	"sync/atomic"

	"github.com/kmishra/redis-txcore/internal/command"
	"github.com/kmishra/redis-txcore/internal/common"
	"github.com/kmishra/redis-txcore/internal/database"
	"github.com/kmishra/redis-txcore/internal/monitor"
	"github.com/kmishra/redis-txcore/internal/propagate"
	"github.com/kmishra/redis-txcore/internal/txn"
)

// RoleState exposes the server's replication posture. The engine reads the
// role up to three times per EXEC — for the write-gate, to snapshot the role
// just before the drain, and after the drain to detect a role flip
// mid-batch — so it's a live accessor, not a snapshot passed in by value.
type RoleState interface {
	Role() common.Role
	ReplicaReadOnly() bool
	HasPrimary() bool
	IsLoading() bool
}

// Engine ties the Watch Index / Dirty-Flag Tracker / Command Queue /
// Transaction State Machine together with propagation and monitoring. One
// Engine serves the whole server; EXEC calls run serially with respect to
// each other and to every other command, since internal/server holds one
// server-wide lock around each Dispatch.
type Engine struct {
	DBSet    *database.DatabaseSet
	Sink     propagate.Sink
	Monitors *monitor.Registry
	Roles    RoleState

	dirtyCounter int64 // incremented once per EXEC that actually propagates
}

func New(dbSet *database.DatabaseSet, sink propagate.Sink, monitors *monitor.Registry, roles RoleState) *Engine {
	return &Engine{DBSet: dbSet, Sink: sink, Monitors: monitors, Roles: roles}
}

// DirtyCounter reports how many EXEC batches have propagated a write so far.
func (e *Engine) DirtyCounter() int64 { return atomic.LoadInt64(&e.dirtyCounter) }

// errEXECAbort and errReadOnlyFollower are the two environment-level EXEC
// rejections; both terminate the transaction exactly like a successful EXEC
// does (unwatch-all, clear queue, leave IDLE).
func errEXECAbort() *common.Value {
	return common.NewErrorValue("EXECABORT Transaction discarded because of previous errors.")
}

func errReadOnlyFollower() *common.Value {
	return common.NewErrorValue("READONLY You can't write against a read only replica.")
}

// Exec runs the EXEC algorithm for client against its currently-selected
// database, argv being the EXEC invocation's own (trivial) argument vector
// — here just ["EXEC"], kept for monitor fan-out fidelity.
func (e *Engine) Exec(client *common.Client, db *database.Database, execArgv []string) *common.Value {
	dirtyExec, dirtyCAS, err := client.Tx.BeginExec()
	if err != nil {
		return common.NewErrorValue("ERR " + err.Error())
	}

	// Step 1: abort checks, in order. Both terminate the transaction and
	// still fall through to the monitor fan-out tail below.
	if dirtyExec {
		e.terminate(client)
		e.fanout(client, db.ID, execArgv)
		return errEXECAbort()
	}
	if dirtyCAS {
		e.terminate(client)
		e.fanout(client, db.ID, execArgv)
		return common.NewNullArrayValue()
	}

	queue := client.Tx.Queue()

	// Step 2: role/permission gate. A client acting as the server's own
	// replication channel is exempt.
	if e.roleBlocksWrite(client, queue) {
		e.terminate(client)
		e.fanout(client, db.ID, execArgv)
		return errReadOnlyFollower()
	}

	// Step 3: pre-execution unwatch. Further mutation of previously-watched
	// keys can no longer cancel a transaction that is already committed to
	// running.
	e.DBSet.UnwatchAll(client)

	roleAtEntry := e.Roles.Role()

	// Step 4: announce length up front — callers that stream replies
	// (rather than buffer them, as this implementation does) rely on this
	// count to know how many elements follow.
	n := queue.Len()
	replies := make([]common.Value, 0, n)

	mustPropagate := false

	// Step 5: drain in insertion order.
	queue.Drain(func(i int, cmd txn.QueuedCmd) {
		if !mustPropagate && cmd.Flags&txn.FlagWrite != 0 {
			// first entry carrying FlagWrite lazily opens the batch; the
			// admin bit is not consulted, so FLUSHDB/FLUSHALL open it too
			e.Sink.PropagateCommand(db.ID, []string{"MULTI"}, propagate.AllTargets)
			mustPropagate = true
		}
		reply := cmd.Executor(cmd.Argv)
		v, _ := reply.(*common.Value)
		if v == nil {
			v = common.NewNullValue()
		}
		replies = append(replies, *v)

		if mustPropagate {
			e.Sink.PropagateCommand(db.ID, append([]string{cmd.Name}, cmd.Argv...), propagate.AllTargets)
		}
	})

	// Step 6: post-drain. BeginExec/terminate bracket in_multi; Terminate
	// here clears the queue, both dirty bits and in_multi. It does not
	// unwatch — step 3 already ran UnwatchAll for this client.
	client.Tx.Terminate()

	// Step 7: finalize propagation. The closing EXEC frame goes to every
	// target, unless the server stopped being primary during the drain:
	// then the WAL still gets it as a command frame and the replication
	// backlog gets the raw pre-encoded frame instead.
	if mustPropagate {
		atomic.AddInt64(&e.dirtyCounter, 1)
		if roleAtEntry == common.RolePrimary && e.Roles.Role() == common.RoleReplica {
			e.Sink.PropagateCommand(db.ID, []string{"EXEC"}, propagate.WALTarget)
			e.Sink.RawReplicationFrame(common.RawEXECFrame())
		} else {
			e.Sink.PropagateCommand(db.ID, []string{"EXEC"}, propagate.AllTargets)
		}
	}

	// Step 8: monitor fan-out.
	e.fanout(client, db.ID, execArgv)

	return &common.Value{Typ: common.ARRAY, Arr: replies}
}

func (e *Engine) roleBlocksWrite(client *common.Client, queue *txn.Queue) bool {
	if client.IsReplicaLink {
		return false
	}
	if !queue.HasWrite() {
		return false
	}
	return e.Roles.Role() == common.RoleReplica && e.Roles.HasPrimary() && e.Roles.ReplicaReadOnly() && !e.Roles.IsLoading()
}

func (e *Engine) terminate(client *common.Client) {
	e.DBSet.UnwatchAll(client)
	client.Tx.Terminate()
}

func (e *Engine) fanout(client *common.Client, dbID int, execArgv []string) {
	if e.Monitors == nil || e.Monitors.Len() == 0 || e.Roles.IsLoading() {
		return
	}
	go e.Monitors.Fanout(dbID, execArgv, client)
}

// BuildQueuedCmd closes over the resolved descriptor and execution context
// so the queue never needs to know about internal/command's types (txn
// stays dependency-free — see internal/txn/queue.go).
func BuildQueuedCmd(d *command.Descriptor, ctx *command.ExecContext, argv []string) txn.QueuedCmd {
	return txn.QueuedCmd{
		Name:  d.Name,
		Flags: d.Flags,
		Argv:  argv,
		Executor: func(argv []string) any {
			return d.Exec(ctx, argv)
		},
	}
}
