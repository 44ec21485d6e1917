package ygggo_db

import (
	"container/list"
	"context"
	"database/sql"
	"sync"
	"sync/atomic"
)

// stmtCache is a per-connection LRU of prepared statements, keyed by SQL
// text. Front of the list is most recently used; eviction closes the
// statement it drops.
type stmtCache struct {
	cap int

	mu sync.Mutex
	ll *list.List
	m  map[string]*list.Element

	hits   uint64
	misses uint64
}

type stmtEntry struct {
	key  string
	stmt *sql.Stmt
}

func newStmtCache(capacity int) *stmtCache {
	if capacity < 1 {
		capacity = 1
	}
	return &stmtCache{
		cap: capacity,
		ll:  list.New(),
		m:   make(map[string]*list.Element),
	}
}

// getOrPrepare returns the cached statement for query, preparing and
// inserting it on a miss. Preparation happens outside the lock; a racing
// insert is resolved by closing the younger statement.
func (c *stmtCache) getOrPrepare(ctx context.Context, conn *sql.Conn, query string) (*sql.Stmt, error) {
	c.mu.Lock()
	if ele, ok := c.m[query]; ok {
		c.ll.MoveToFront(ele)
		atomic.AddUint64(&c.hits, 1)
		st := ele.Value.(*stmtEntry).stmt
		c.mu.Unlock()
		return st, nil
	}
	c.mu.Unlock()

	st, err := conn.PrepareContext(ctx, query)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if ele, ok := c.m[query]; ok {
		_ = st.Close()
		c.ll.MoveToFront(ele)
		atomic.AddUint64(&c.hits, 1)
		return ele.Value.(*stmtEntry).stmt, nil
	}
	atomic.AddUint64(&c.misses, 1)
	ele := c.ll.PushFront(&stmtEntry{key: query, stmt: st})
	c.m[query] = ele
	if c.ll.Len() > c.cap {
		c.evictOldest()
	}
	return st, nil
}

// evictOldest is called with mu held.
func (c *stmtCache) evictOldest() {
	back := c.ll.Back()
	if back == nil {
		return
	}
	c.ll.Remove(back)
	entry := back.Value.(*stmtEntry)
	delete(c.m, entry.key)
	_ = entry.stmt.Close()
}

func (c *stmtCache) closeAll() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for e := c.ll.Front(); e != nil; e = e.Next() {
		_ = e.Value.(*stmtEntry).stmt.Close()
	}
	c.ll.Init()
	clear(c.m)
}

// StmtCacheStats is a snapshot of one connection's statement cache.
type StmtCacheStats struct {
	Hits     uint64
	Misses   uint64
	Size     int
	Capacity int
}

// StmtCacheStats reports cache effectiveness for this connection. Zero
// values when no cache is enabled.
func (c *Conn) StmtCacheStats() StmtCacheStats {
	if c == nil || c.cache == nil {
		return StmtCacheStats{}
	}
	sc := c.cache
	sc.mu.Lock()
	size := sc.ll.Len()
	sc.mu.Unlock()
	return StmtCacheStats{
		Hits:     atomic.LoadUint64(&sc.hits),
		Misses:   atomic.LoadUint64(&sc.misses),
		Size:     size,
		Capacity: sc.cap,
	}
}
