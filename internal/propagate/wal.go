/*
author: akashmaji
email: akashmaji@iisc.ac.in
file: go-redis/internal/common/aof.go (trimmed: rewrite/compaction and
per-type replay dropped along with the hash/list/set/zset command families
they served — see DESIGN.md. File lifecycle carried over; of the fsync
modes only Always acts on each append.)
*/
package propagate

import (
	"fmt"
	"os"
	"path"

	"github.com/kmishra/redis-txcore/internal/common"
)

// WAL is the write-ahead log: every propagated command is appended here,
// one RESP array frame per line, before (or regardless of) replication.
type WAL struct {
	w     *common.Writer
	f     *os.File
	fsync common.FSyncMode
}

// NewWAL opens (creating if absent) <dir>/<filename>, appending.
func NewWAL(dir, filename string, fsync common.FSyncMode) (*WAL, error) {
	fp := path.Join(dir, filename)
	f, err := os.OpenFile(fp, os.O_CREATE|os.O_APPEND|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("propagate: open WAL %s: %w", fp, err)
	}
	return &WAL{w: common.NewWriter(f), f: f, fsync: fsync}, nil
}

// Append writes one command frame and, under Always fsync, flushes and
// syncs immediately. Under Everysec and No the frame stays in the buffered
// writer until Flush or Close; nothing flushes it on a timer.
func (w *WAL) Append(dbID int, argv []string) {
	if w == nil || w.w == nil {
		return
	}
	frame := commandFrame(argv)
	w.w.Write(frame)
	if w.fsync == common.Always {
		w.w.Flush()
		w.f.Sync()
	}
}

// Flush flushes buffered bytes to the OS and fsyncs the file. Close calls
// it once, regardless of mode; no other caller in this repository does.
func (w *WAL) Flush() {
	if w == nil || w.w == nil {
		return
	}
	w.w.Flush()
	w.f.Sync()
}

func (w *WAL) Close() error {
	if w == nil || w.f == nil {
		return nil
	}
	w.Flush()
	return w.f.Close()
}
