/*
Command descriptor table: name, arity, and flag bits resolved once per
command and consumed by the queueing/execution path. Grounded on the
registerCommand/cmdTable pattern from the godis examples
(CodingCaius-godis__transaction.go, 1024wangxiao-godis__transaction.go:
name -> {executor, arity, flags}), adapted to the flag vocabulary
internal/txn already defines (ReadOnly/Write/Admin) instead of godis's
richer read/write-key-set flags, since this core only needs the OR-folded
bit, not per-command key extraction.
*/
package command

import (
	"fmt"
	"strings"
	"time"

	"github.com/kmishra/redis-txcore/internal/common"
	"github.com/kmishra/redis-txcore/internal/database"
	"github.com/kmishra/redis-txcore/internal/txn"
)

// ExecContext is the receiver every Descriptor.Exec runs against: the
// client's currently-selected database, the full database set (FLUSHALL
// needs every database, not just the selected one), and the client itself
// for any command that needs to read connection-scoped state.
type ExecContext struct {
	DB     *database.Database
	DBSet  *database.DatabaseSet
	Client *common.Client
}

// Descriptor is the unit the queue and the engine both consume: enough to
// validate a queue-time call (MinArgs/MaxArgs) and enough to run it
// (Exec), plus the flag bits the queue OR-folds into queued_flags.
type Descriptor struct {
	Name    string
	MinArgs int // minimum argv length *after* the command name
	MaxArgs int // -1 means unbounded
	Flags   txn.CommandFlags
	Exec    func(ctx *ExecContext, argv []string) *common.Value
}

func (d *Descriptor) validArity(argc int) bool {
	if argc < d.MinArgs {
		return false
	}
	if d.MaxArgs >= 0 && argc > d.MaxArgs {
		return false
	}
	return true
}

// Table is the name -> Descriptor registry. Names are matched
// case-insensitively, as every example repo in the corpus does.
var Table = make(map[string]*Descriptor)

func register(d *Descriptor) {
	Table[strings.ToUpper(d.Name)] = d
}

// Resolve looks up cmdName and validates arity, returning the error the
// dispatcher replies with immediately and — while in_multi — also feeds
// into ClientTxState.EnqueueError as a queue-time error.
func Resolve(cmdName string, argc int) (*Descriptor, *common.Value) {
	d, ok := Table[strings.ToUpper(cmdName)]
	if !ok {
		return nil, common.NewErrorValue(fmt.Sprintf("ERR unknown command '%s'", cmdName))
	}
	if !d.validArity(argc) {
		return nil, common.NewErrorValue(fmt.Sprintf("ERR wrong number of arguments for '%s' command", strings.ToLower(cmdName)))
	}
	return d, nil
}

func init() {
	register(&Descriptor{Name: "PING", MinArgs: 0, MaxArgs: 1, Flags: txn.FlagReadOnly, Exec: execPing})

	register(&Descriptor{Name: "GET", MinArgs: 1, MaxArgs: 1, Flags: txn.FlagReadOnly, Exec: execGet})
	register(&Descriptor{Name: "EXISTS", MinArgs: 1, MaxArgs: -1, Flags: txn.FlagReadOnly, Exec: execExists})
	register(&Descriptor{Name: "SET", MinArgs: 2, MaxArgs: 2, Flags: txn.FlagWrite, Exec: execSet})
	register(&Descriptor{Name: "SETNX", MinArgs: 2, MaxArgs: 2, Flags: txn.FlagWrite, Exec: execSetNX})
	register(&Descriptor{Name: "INCR", MinArgs: 1, MaxArgs: 1, Flags: txn.FlagWrite, Exec: execIncr})
	register(&Descriptor{Name: "DECR", MinArgs: 1, MaxArgs: 1, Flags: txn.FlagWrite, Exec: execDecr})
	register(&Descriptor{Name: "DEL", MinArgs: 1, MaxArgs: -1, Flags: txn.FlagWrite, Exec: execDel})
	register(&Descriptor{Name: "EXPIRE", MinArgs: 2, MaxArgs: 2, Flags: txn.FlagWrite, Exec: execExpire})

	register(&Descriptor{Name: "FLUSHDB", MinArgs: 0, MaxArgs: 0, Flags: txn.FlagAdmin | txn.FlagWrite, Exec: execFlushDB})
	register(&Descriptor{Name: "FLUSHALL", MinArgs: 0, MaxArgs: 0, Flags: txn.FlagAdmin | txn.FlagWrite, Exec: execFlushAll})

	register(&Descriptor{Name: "INFO", MinArgs: 0, MaxArgs: 1, Flags: txn.FlagReadOnly | txn.FlagAdmin, Exec: execInfo})
}

func execPing(ctx *ExecContext, argv []string) *common.Value {
	if len(argv) == 1 {
		return common.NewStringValue(argv[0])
	}
	return common.NewStringValue("PONG")
}

func execGet(ctx *ExecContext, argv []string) *common.Value {
	item, ok := ctx.DB.Get(argv[0])
	if !ok {
		return common.NewNullValue()
	}
	return common.NewBulkValue(item.Str)
}

// execExists counts how many of argv are present and unexpired, mirroring
// DEL's multi-key counting reply — symmetric with it since both are
// existence-checking bulk operations over the same store.
func execExists(ctx *ExecContext, argv []string) *common.Value {
	count := 0
	for _, key := range argv {
		if ctx.DB.Exists(key) {
			count++
		}
	}
	return common.NewIntegerValue(int64(count))
}

func execSet(ctx *ExecContext, argv []string) *common.Value {
	ctx.DB.Set(argv[0], argv[1])
	return common.NewStringValue("OK")
}

func execSetNX(ctx *ExecContext, argv []string) *common.Value {
	if ctx.DB.SetNX(argv[0], argv[1]) {
		return common.NewIntegerValue(1)
	}
	return common.NewIntegerValue(0)
}

func execIncr(ctx *ExecContext, argv []string) *common.Value {
	n, err := ctx.DB.Incr(argv[0], 1)
	if err != nil {
		return common.NewErrorValue("ERR " + err.Error())
	}
	return common.NewIntegerValue(n)
}

func execDecr(ctx *ExecContext, argv []string) *common.Value {
	n, err := ctx.DB.Incr(argv[0], -1)
	if err != nil {
		return common.NewErrorValue("ERR " + err.Error())
	}
	return common.NewIntegerValue(n)
}

func execDel(ctx *ExecContext, argv []string) *common.Value {
	count := 0
	for _, key := range argv {
		if ctx.DB.Del(key) {
			count++
		}
	}
	return common.NewIntegerValue(int64(count))
}

func execExpire(ctx *ExecContext, argv []string) *common.Value {
	seconds, err := parseSeconds(argv[1])
	if err != nil {
		return common.NewErrorValue("ERR value is not an integer or out of range")
	}
	if ctx.DB.Expire(argv[0], time.Duration(seconds)*time.Second) {
		return common.NewIntegerValue(1)
	}
	return common.NewIntegerValue(0)
}

func execFlushDB(ctx *ExecContext, argv []string) *common.Value {
	ctx.DB.FlushDB()
	return common.NewStringValue("OK")
}

func execFlushAll(ctx *ExecContext, argv []string) *common.Value {
	ctx.DBSet.FlushAll()
	return common.NewStringValue("OK")
}

func execInfo(ctx *ExecContext, argv []string) *common.Value {
	return common.NewBulkValue(Info())
}

func parseSeconds(s string) (int64, error) {
	var n int64
	_, err := fmt.Sscanf(s, "%d", &n)
	return n, err
}
