/*
author: akashmaji
email: akashmaji@iisc.ac.in
file: go-redis/cmd/main.go (handleOneConnection) + internal/handlers/handlers.go
(Handle), merged into one dispatch loop that routes transaction-control
commands to internal/txn's state machine directly and everything else
through internal/command's descriptor table, instead of the single flat
Handlers map covering both kinds uniformly.
*/
package server

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"

	"github.com/kmishra/redis-txcore/internal/command"
	"github.com/kmishra/redis-txcore/internal/common"
	"github.com/kmishra/redis-txcore/internal/database"
	"github.com/kmishra/redis-txcore/internal/engine"
	"github.com/kmishra/redis-txcore/internal/monitor"
	"github.com/kmishra/redis-txcore/internal/propagate"
	"github.com/kmishra/redis-txcore/internal/txn"
)

// Server owns the listener and routes every connection's commands to the
// transactional core (direct execution, or queue-time/EXEC handling).
type Server struct {
	Config   *common.Config
	DBSet    *database.DatabaseSet
	Engine   *engine.Engine
	Sink     propagate.Sink
	Monitors *monitor.Registry

	mu        sync.Mutex
	listeners []net.Listener
}

func New(cfg *common.Config, dbSet *database.DatabaseSet, eng *engine.Engine, sink propagate.Sink, monitors *monitor.Registry) *Server {
	return &Server{Config: cfg, DBSet: dbSet, Engine: eng, Sink: sink, Monitors: monitors}
}

// ListenAndServe binds to cfg.Bind:cfg.Port and serves connections until the
// listener is closed (see Close).
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf("%s:%d", s.Config.Bind, s.Config.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("server: listen on %s: %w", addr, err)
	}
	s.mu.Lock()
	s.listeners = append(s.listeners, ln)
	s.mu.Unlock()

	common.Log.Infow("listening", "addr", addr)

	var wg sync.WaitGroup
	for {
		conn, err := ln.Accept()
		if err != nil {
			common.Log.Infow("listener closed", "addr", addr)
			wg.Wait()
			return nil
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.handleConnection(conn)
		}()
	}
}

// Close stops accepting new connections on every listener this server owns.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var firstErr error
	for _, ln := range s.listeners {
		if err := ln.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()
	client := common.NewClient(conn)
	reader := bufio.NewReader(conn)

	common.Log.Infow("client connected", "addr", conn.RemoteAddr())

	for {
		v := common.Value{Typ: common.ARRAY}
		if err := v.ReadArray(reader); err != nil {
			if !errors.Is(err, io.EOF) {
				common.Log.Debugw("read error", "addr", conn.RemoteAddr(), "err", err)
			}
			break
		}
		if len(v.Arr) == 0 {
			continue
		}

		argv := make([]string, len(v.Arr))
		for i := range v.Arr {
			argv[i] = v.Arr[i].Blk
		}

		// Each connection has its own goroutine; holding s.mu around Dispatch
		// runs commands one at a time server-wide, so no other client's
		// command interleaves with an EXEC drain.
		s.mu.Lock()
		reply := s.Dispatch(client, argv)
		s.mu.Unlock()
		client.WriteTo(reply)
	}

	s.mu.Lock()
	s.DBSet.UnwatchAll(client)
	s.mu.Unlock()
	s.Monitors.Unregister(client)
	common.Log.Infow("client disconnected", "addr", conn.RemoteAddr())
}

// Dispatch routes one parsed command for client. Transaction-control
// commands (MULTI/EXEC/DISCARD/WATCH/UNWATCH) and connection-scoped
// commands (SELECT/MONITOR) bypass the descriptor table entirely — they
// mutate ClientTxState or connection state directly, the way the spec's
// transaction state machine requires, rather than being queueable data
// commands themselves.
func (s *Server) Dispatch(client *common.Client, argv []string) *common.Value {
	name := strings.ToUpper(argv[0])
	args := argv[1:]
	db := s.DBSet.DBs[client.DatabaseID]

	switch name {
	case "MULTI":
		if len(args) != 0 {
			return common.NewErrorValue("ERR wrong number of arguments for 'multi' command")
		}
		if err := client.Tx.Multi(); err != nil {
			return common.NewErrorValue("ERR " + err.Error())
		}
		return common.NewStringValue("OK")

	case "EXEC":
		if len(args) != 0 {
			return common.NewErrorValue("ERR wrong number of arguments for 'exec' command")
		}
		return s.Engine.Exec(client, db, argv)

	case "DISCARD":
		if len(args) != 0 {
			return common.NewErrorValue("ERR wrong number of arguments for 'discard' command")
		}
		if !client.Tx.InMulti() {
			return common.NewErrorValue("ERR DISCARD without MULTI")
		}
		s.DBSet.UnwatchAll(client)
		client.Tx.Discard()
		return common.NewStringValue("OK")

	case "WATCH":
		if len(args) == 0 {
			return common.NewErrorValue("ERR wrong number of arguments for 'watch' command")
		}
		if err := client.Tx.WatchGuard(); err != nil {
			return common.NewErrorValue("ERR " + err.Error())
		}
		for _, key := range args {
			db.Watch(client, key)
		}
		return common.NewStringValue("OK")

	case "UNWATCH":
		if len(args) != 0 {
			return common.NewErrorValue("ERR wrong number of arguments for 'unwatch' command")
		}
		s.DBSet.UnwatchAll(client)
		return common.NewStringValue("OK")

	case "SELECT":
		return s.selectDB(client, args)

	case "MONITOR":
		if len(args) != 0 {
			return common.NewErrorValue("ERR wrong number of arguments for 'monitor' command")
		}
		s.Monitors.Register(client)
		return common.NewStringValue("OK")
	}

	descriptor, errVal := command.Resolve(name, len(args))
	if errVal != nil {
		if client.Tx.InMulti() {
			client.Tx.EnqueueError()
		}
		return errVal
	}

	ctx := &command.ExecContext{DB: db, DBSet: s.DBSet, Client: client}

	if client.Tx.InMulti() {
		client.Tx.EnqueueOK(engine.BuildQueuedCmd(descriptor, ctx, args))
		return common.NewStringValue("QUEUED")
	}

	reply := descriptor.Exec(ctx, args)

	if descriptor.Flags&txn.FlagWrite != 0 {
		s.Sink.PropagateCommand(db.ID, argv, propagate.AllTargets)
	}
	if s.Monitors.Len() > 0 {
		go s.Monitors.Fanout(db.ID, argv, client)
	}

	return reply
}

func (s *Server) selectDB(client *common.Client, args []string) *common.Value {
	if len(args) != 1 {
		return common.NewErrorValue("ERR wrong number of arguments for 'select' command")
	}
	var id int
	if _, err := fmt.Sscanf(args[0], "%d", &id); err != nil || id < 0 || id >= len(s.DBSet.DBs) {
		return common.NewErrorValue("ERR DB index is out of range")
	}
	client.DatabaseID = id
	return common.NewStringValue("OK")
}
