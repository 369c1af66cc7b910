package sqlitemanager

import (
	"bytes"
	"encoding/binary"
	"math"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/chamira/SQLiteManager/cache"
	"github.com/chamira/SQLiteManager/executor"
	"github.com/chamira/SQLiteManager/value"
)

// resultCache memoizes SELECT results per database. Keys carry a generation
// number that is bumped after every successful write, so entries cached
// before a write are never served after it.
type resultCache struct {
	store cache.Cache[string, executor.Result]
	ttl   time.Duration
	gen   atomic.Uint64
}

func newResultCache(store cache.Cache[string, executor.Result], ttl time.Duration) *resultCache {
	return &resultCache{store: store, ttl: ttl}
}

func (c *resultCache) generation() uint64 { return c.gen.Load() }

func (c *resultCache) invalidate() { c.gen.Add(1) }

// get and set copy rows so callers never share them with the cache.
func (c *resultCache) get(key string) (executor.Result, bool) {
	res, ok := c.store.Get(key)
	if !ok {
		return res, false
	}
	return cloneResult(res), true
}

func (c *resultCache) set(key string, res executor.Result) {
	res = cloneResult(res)
	if c.ttl > 0 {
		c.store.SetWithTTL(key, res, resultCost(res), c.ttl)
		return
	}
	c.store.Set(key, res, resultCost(res))
}

func (c *resultCache) close() { c.store.Close() }

// key encodes gen, sql and args. Each arg is written as its kind byte followed
// by a length-prefixed payload so distinct argument lists never collide.
func (c *resultCache) key(gen uint64, sql string, args []value.Value) string {
	var b strings.Builder
	b.WriteString(strconv.FormatUint(gen, 10))
	b.WriteByte(0)
	b.WriteString(strconv.Itoa(len(sql)))
	b.WriteByte(':')
	b.WriteString(sql)
	var buf [8]byte
	for _, v := range args {
		b.WriteByte(byte(v.Kind()))
		switch v.Kind() {
		case value.KindInteger:
			n, _ := v.Int64()
			binary.BigEndian.PutUint64(buf[:], uint64(n))
			b.Write(buf[:])
		case value.KindFloat:
			f, _ := v.Float64()
			binary.BigEndian.PutUint64(buf[:], math.Float64bits(f))
			b.Write(buf[:])
		case value.KindText:
			s, _ := v.Text()
			b.WriteString(strconv.Itoa(len(s)))
			b.WriteByte(':')
			b.WriteString(s)
		case value.KindBlob:
			p, _ := v.Bytes()
			b.WriteString(strconv.Itoa(len(p)))
			b.WriteByte(':')
			b.Write(p)
		}
	}
	return b.String()
}

func cloneResult(res executor.Result) executor.Result {
	if res.Rows == nil {
		return res
	}
	rows := make([]value.Row, len(res.Rows))
	for i, row := range res.Rows {
		r := make(value.Row, len(row))
		for col, v := range row {
			if p, ok := v.Bytes(); ok {
				v = value.Blob(bytes.Clone(p))
			}
			r[col] = v
		}
		rows[i] = r
	}
	res.Rows = rows
	return res
}

// resultCost approximates the memory held by res in bytes.
func resultCost(res executor.Result) int64 {
	cost := int64(64)
	for _, row := range res.Rows {
		for col, v := range row {
			cost += int64(len(col)) + 16
			switch v.Kind() {
			case value.KindText:
				s, _ := v.Text()
				cost += int64(len(s))
			case value.KindBlob:
				p, _ := v.Bytes()
				cost += int64(len(p))
			default:
				cost += 8
			}
		}
	}
	return cost
}
