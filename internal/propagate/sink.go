/*
Propagation sink: the engine's only window onto the write-ahead log and the
replication backlog. Grounded on common.Aof (single sink, always-on)
generalized into two independently targetable sinks, since the engine must
be able to address WAL and replication separately (a raw EXEC frame on
role change goes only to the backlog, never the WAL).
*/
package propagate

import "github.com/kmishra/redis-txcore/internal/common"

// Target is a bitmask of propagation destinations.
type Target uint8

const (
	WALTarget Target = 1 << iota
	Replication
)

func (t Target) Has(o Target) bool { return t&o != 0 }

// AllTargets is the usual case: a command propagates to both the log and
// any attached replicas.
const AllTargets = WALTarget | Replication

// Sink is what the execution engine depends on; internal/engine never
// touches *WAL or *Backlog directly. Kept minimal and protocol-agnostic so
// engine tests can substitute a recording fake.
type Sink interface {
	// PropagateCommand writes one command frame to every target in targets.
	PropagateCommand(dbID int, argv []string, targets Target)
	// RawReplicationFrame appends pre-encoded RESP bytes straight to the
	// replication backlog only, bypassing command framing. Used solely for
	// the synthetic terminating EXEC on a role change mid-drain.
	RawReplicationFrame(b []byte)
}

// Propagator is the concrete Sink: a WAL file plus a replication backlog.
type Propagator struct {
	wal     *WAL
	backlog *Backlog
}

func NewPropagator(wal *WAL, backlog *Backlog) *Propagator {
	return &Propagator{wal: wal, backlog: backlog}
}

func (p *Propagator) PropagateCommand(dbID int, argv []string, targets Target) {
	if targets.Has(WALTarget) && p.wal != nil {
		p.wal.Append(dbID, argv)
	}
	if targets.Has(Replication) && p.backlog != nil {
		p.backlog.Append(dbID, argv)
	}
}

func (p *Propagator) RawReplicationFrame(b []byte) {
	if p.backlog != nil {
		p.backlog.RawFrame(b)
	}
}

// commandFrame renders argv as a RESP array of bulk strings, the wire shape
// every propagated command (including the synthetic MULTI) takes.
func commandFrame(argv []string) *common.Value {
	vals := make([]common.Value, len(argv))
	for i, a := range argv {
		vals[i] = common.Value{Typ: common.BULK, Blk: a}
	}
	return common.NewArrayValue(vals)
}
