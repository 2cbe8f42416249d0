/*
author: akashmaji
email: akashmaji@iisc.ac.in
file: go-redis/info.go (trimmed to the transactional core's own
observability surface: role, server identity, host memory total. The
teacher's store-memory/eviction sections don't apply — this core no longer
tracks per-key memory accounting.)
*/
package command

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/shirou/gopsutil/v4/mem"

	"github.com/kmishra/redis-txcore/internal/common"
)

var serverStart = time.Now()

// SetRole lets the server layer report the current replication role into
// INFO without this package importing the role-gate config directly.
var currentRole common.Role = common.RolePrimary

func SetRole(r common.Role) { currentRole = r }

// Info renders the server's INFO reply: a human-readable, section-grouped
// text blob in the spirit of Redis's own INFO, not a machine-parsed format.
func Info() string {
	exePath, err := os.Executable()
	if err != nil {
		exePath = ""
	}

	var memTotal uint64
	if vm, err := mem.VirtualMemory(); err == nil {
		memTotal = vm.Total
	}

	msg := "\n# Server\n"
	msg += fmt.Sprintf("process_id: %s\n", strconv.Itoa(os.Getpid()))
	msg += fmt.Sprintf("uptime_seconds: %d\n", int64(time.Since(serverStart).Seconds()))
	msg += fmt.Sprintf("executable: %s\n", exePath)
	msg += "\n# Replication\n"
	msg += fmt.Sprintf("role: %s\n", currentRole)
	msg += "\n# Memory\n"
	msg += fmt.Sprintf("system_memory_total_bytes: %d\n", memTotal)
	msg += "\n"
	return msg
}
