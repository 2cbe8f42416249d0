/*
author: akashmaji
email: akashmaji@iisc.ac.in
file: go-redis/cmd/main.go (trimmed: RDB/TLS/eviction/signal-triggered
snapshotting dropped along with the value types and config directives that
served them — see DESIGN.md. Config loading, AOF attachment, and the
listen/accept shape survive.)
*/
package main

import (
	"os"

	"github.com/kmishra/redis-txcore/internal/command"
	"github.com/kmishra/redis-txcore/internal/common"
	"github.com/kmishra/redis-txcore/internal/database"
	"github.com/kmishra/redis-txcore/internal/engine"
	"github.com/kmishra/redis-txcore/internal/monitor"
	"github.com/kmishra/redis-txcore/internal/propagate"
	"github.com/kmishra/redis-txcore/internal/server"
)

const numDatabases = 16

func main() {
	configFilePath := "./config/redis.conf"
	if len(os.Args) > 1 {
		configFilePath = os.Args[1]
	}

	cfg := common.ReadConf(configFilePath)
	command.SetRole(cfg.Role)

	common.Log.Infow("starting redis-txcore", "config", configFilePath, "role", cfg.Role, "port", cfg.Port)

	dbSet := database.NewDatabaseSet(numDatabases)

	var wal *propagate.WAL
	if cfg.AofEnabled {
		var err error
		wal, err = propagate.NewWAL(cfg.Dir, cfg.AofFn, cfg.AofFsync)
		if err != nil {
			common.Log.Fatalw("failed to open WAL", "err", err)
		}
		defer wal.Close()
	}
	backlog := propagate.NewBacklog(cfg.BacklogSizeBytes)
	sink := propagate.NewPropagator(wal, backlog)

	monitors := monitor.NewRegistry()
	roles := &common.ConfigRole{Cfg: cfg}
	eng := engine.New(dbSet, sink, monitors, roles)

	srv := server.New(cfg, dbSet, eng, sink, monitors)
	if err := srv.ListenAndServe(); err != nil {
		common.Log.Fatalw("server exited", "err", err)
	}
}
