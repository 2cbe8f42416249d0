/*
author: akashmaji
email: akashmaji@iisc.ac.in
file: go-redis/internal/common/client.go (trimmed: the monitoring flag and
per-connection reply writer kept; authentication and hash/list/set
bookkeeping removed along with the value types that carried them)
*/
package common

import (
	"net"

	"github.com/kmishra/redis-txcore/internal/txn"
)

// Client represents one connected session. Tx holds all per-client
// transactional state (ClientTxState) — the session object itself stays a
// thin wrapper around the connection and the database selector.
type Client struct {
	Conn       net.Conn
	DatabaseID int

	// IsReplicaLink marks a connection as the server's own replication
	// channel to a primary, exempting it from the follower-write gate.
	IsReplicaLink bool

	// Monitoring: set once MONITOR has been issued on this connection.
	Monitoring bool

	Tx *txn.ClientTxState
}

func NewClient(conn net.Conn) *Client {
	return &Client{
		Conn: conn,
		Tx:   txn.NewClientTxState(),
	}
}

// MarkDirtyCAS implements database.Watcher, letting the per-database Watch
// Index mark this client CAS-failed without importing internal/txn itself.
func (c *Client) MarkDirtyCAS() {
	c.Tx.MarkDirtyCAS()
}

// WriteTo writes and flushes a reply to this client's connection.
func (c *Client) WriteTo(v *Value) {
	if c == nil || c.Conn == nil {
		return
	}
	w := NewWriter(c.Conn)
	w.Write(v)
	w.Flush()
}
