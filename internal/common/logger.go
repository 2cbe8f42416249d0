package common

import (
	"go.uber.org/zap"
)

// logger.go wires structured logging for the server. This replaces the
// prior hand-wrapped stdlib log.Logger with zap, matching the logging stack
// used elsewhere in the retrieval pack (mgtv-tech-redis-GunYu's pkg/log,
// talent-plan-tinykv's use of go.uber.org/zap).

var base *zap.Logger
var Log *zap.SugaredLogger

func init() {
	var err error
	base, err = zap.NewDevelopment()
	if err != nil {
		base = zap.NewNop()
	}
	Log = base.Sugar()
}

// UseProduction swaps the global logger for a JSON production config. Call
// once at startup before the server begins accepting connections.
func UseProduction() error {
	l, err := zap.NewProduction()
	if err != nil {
		return err
	}
	base = l
	Log = base.Sugar()
	return nil
}

// Sync flushes any buffered log entries. Best effort: zap commonly returns
// an error syncing os.Stderr on Linux, which is not actionable.
func Sync() {
	_ = base.Sync()
}
