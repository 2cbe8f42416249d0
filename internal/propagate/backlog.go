package propagate

import "github.com/kmishra/redis-txcore/internal/common"

// Backlog is the replication stream's recent tail: a bounded byte ring that
// a replica connection drains from. Modeled on Redis's own repl_backlog,
// grounded here on the ring-buffer primitive from the Comolli-shiny_redis
// example repo (ring_buffer.go), since the base server this was built from
// has no replication concept of its own.
type Backlog struct {
	buf *ringBuffer
}

func NewBacklog(sizeBytes int) *Backlog {
	return &Backlog{buf: newRingBuffer(sizeBytes)}
}

// Append encodes argv as a RESP array and writes it to the backlog.
func (b *Backlog) Append(dbID int, argv []string) {
	frame := commandFrame(argv)
	b.buf.Write([]byte(common.Serialize(frame)))
}

// RawFrame writes pre-encoded bytes straight through — used only for the
// synthetic terminating EXEC frame on a role change mid-drain.
func (b *Backlog) RawFrame(raw []byte) {
	b.buf.Write(raw)
}

// Len is a test/inspection hook.
func (b *Backlog) Len() int { return b.buf.Len() }

// Drain is a test/inspection hook mirroring what a replica connection would
// pull from the backlog.
func (b *Backlog) Drain(p []byte) (int, error) { return b.buf.Read(p) }
