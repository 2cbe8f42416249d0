/*
author: akashmaji
email: akashmaji@iisc.ac.in
file: go-redis/internal/common/client.go (WriterMonitorLog) + appstate.go
(Monitors []Client), pulled out of AppState/Client into their own registry
so the execution engine can depend on a narrow interface instead of the
whole connection-management surface.
*/
package monitor

import (
	"fmt"
	"sync"
	"time"

	"github.com/kmishra/redis-txcore/internal/common"
)

// Registry is the set of connections that have issued MONITOR. The
// execution engine's fan-out step delivers the original EXEC invocation's
// argv to them and only needs Fanout; Register/Unregister are called by the
// MONITOR command handler and on disconnect.
type Registry struct {
	mu    sync.Mutex
	conns map[*common.Client]bool
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[*common.Client]bool)}
}

func (r *Registry) Register(c *common.Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[c] = true
	c.Monitoring = true
}

func (r *Registry) Unregister(c *common.Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, c)
	c.Monitoring = false
}

// Len reports how many connections are currently monitoring.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}

// Fanout delivers one executed command's argv to every monitoring
// connection except the one that issued it. Dispatched from a goroutine by
// the caller so a slow monitor connection never stalls command execution.
func (r *Registry) Fanout(dbID int, argv []string, from *common.Client) {
	r.mu.Lock()
	targets := make([]*common.Client, 0, len(r.conns))
	for c := range r.conns {
		if c != from {
			targets = append(targets, c)
		}
	}
	r.mu.Unlock()

	if len(targets) == 0 {
		return
	}

	msg := formatLine(dbID, argv, from)
	for _, c := range targets {
		common.Log.Debugw("monitor fanout", "to", c.Conn.RemoteAddr(), "line", msg)
		c.WriteTo(&common.Value{Typ: common.STRING, Str: msg})
	}
}

func formatLine(dbID int, argv []string, from *common.Client) string {
	fromAddr := "?"
	if from != nil && from.Conn != nil {
		fromAddr = from.Conn.RemoteAddr().String()
	}
	msg := fmt.Sprintf("%d [%d %s]", time.Now().Unix(), dbID, fromAddr)
	for _, a := range argv {
		msg += fmt.Sprintf(" %q", a)
	}
	return msg
}
