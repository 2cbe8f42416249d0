package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kmishra/redis-txcore/internal/common"
	"github.com/kmishra/redis-txcore/internal/database"
)

func TestResolveRejectsUnknownCommand(t *testing.T) {
	_, errVal := Resolve("NOSUCHCMD", 0)
	require.NotNil(t, errVal)
	assert.Contains(t, errVal.Err, "unknown command")
}

func TestResolveRejectsWrongArity(t *testing.T) {
	_, errVal := Resolve("GET", 0)
	require.NotNil(t, errVal)
	assert.Contains(t, errVal.Err, "wrong number of arguments")
}

func TestResolveAcceptsValidArity(t *testing.T) {
	d, errVal := Resolve("SET", 2)
	require.Nil(t, errVal)
	assert.Equal(t, "SET", d.Name)
}

func TestResolveIsCaseInsensitive(t *testing.T) {
	d, errVal := Resolve("get", 1)
	require.Nil(t, errVal)
	assert.Equal(t, "GET", d.Name)
}

func TestSetGetIncrDecrRoundtrip(t *testing.T) {
	ds := database.NewDatabaseSet(1)
	ctx := &ExecContext{DB: ds.DBs[0], DBSet: ds, Client: common.NewClient(nil)}

	setDesc, _ := Resolve("SET", 2)
	reply := setDesc.Exec(ctx, []string{"k", "10"})
	assert.Equal(t, "OK", reply.Str)

	incrDesc, _ := Resolve("INCR", 1)
	reply = incrDesc.Exec(ctx, []string{"k"})
	assert.Equal(t, int64(11), int64(reply.Num))

	decrDesc, _ := Resolve("DECR", 1)
	reply = decrDesc.Exec(ctx, []string{"k"})
	assert.Equal(t, int64(10), int64(reply.Num))

	getDesc, _ := Resolve("GET", 1)
	reply = getDesc.Exec(ctx, []string{"k"})
	assert.Equal(t, "10", reply.Blk)
}

func TestFlushAllClearsEveryDatabaseNotJustTheSelectedOne(t *testing.T) {
	ds := database.NewDatabaseSet(2)
	ds.DBs[0].Set("a", "1")
	ds.DBs[1].Set("b", "2")

	ctx := &ExecContext{DB: ds.DBs[0], DBSet: ds, Client: common.NewClient(nil)}
	flushAllDesc, _ := Resolve("FLUSHALL", 0)
	flushAllDesc.Exec(ctx, nil)

	_, ok0 := ds.DBs[0].Get("a")
	_, ok1 := ds.DBs[1].Get("b")
	assert.False(t, ok0)
	assert.False(t, ok1)
}

func TestExistsCountsOnlyPresentUnexpiredKeys(t *testing.T) {
	ds := database.NewDatabaseSet(1)
	ctx := &ExecContext{DB: ds.DBs[0], DBSet: ds, Client: common.NewClient(nil)}

	ds.DBs[0].Set("a", "1")
	existsDesc, _ := Resolve("EXISTS", 3)
	reply := existsDesc.Exec(ctx, []string{"a", "a", "missing"})
	assert.Equal(t, int64(2), int64(reply.Num))
}

func TestExpireOnMissingKeyReportsZero(t *testing.T) {
	ds := database.NewDatabaseSet(1)
	ctx := &ExecContext{DB: ds.DBs[0], DBSet: ds, Client: common.NewClient(nil)}

	expireDesc, _ := Resolve("EXPIRE", 2)
	reply := expireDesc.Exec(ctx, []string{"missing", "10"})
	assert.Equal(t, int64(0), int64(reply.Num))
}
