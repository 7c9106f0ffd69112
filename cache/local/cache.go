package local

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// ErrNotFound is returned when a key does not exist.
var ErrNotFound = errors.New("cache: key not found")

// ErrWrongType is returned when a key holds a value of another kind.
var ErrWrongType = errors.New("cache: wrong value type")

// Config holds LocalCache settings.
type Config struct {
	GCInterval time.Duration
}

type kind int

const (
	kindString kind = iota
	kindHash
	kindZSet
	kindList
)

// item is one key of any kind with an optional expiry.
type item struct {
	kind     kind
	str      string
	hash     map[string]string
	zset     map[string]float64
	list     []string
	expireAt time.Time // zero means no expiry
}

func (it *item) expired(now time.Time) bool {
	return !it.expireAt.IsZero() && now.After(it.expireAt)
}

// LocalCache is an in-process cache implementing the Cache interface.
type LocalCache struct {
	mu         sync.Mutex
	items      map[string]*item
	gcInterval time.Duration
	stopGC     chan struct{}
	closeOnce  sync.Once
}

// NewCache creates a LocalCache and starts the background GC goroutine.
func NewCache(cfg Config) (*LocalCache, error) {
	interval := cfg.GCInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	c := &LocalCache{
		items:      make(map[string]*item),
		gcInterval: interval,
		stopGC:     make(chan struct{}),
	}
	go c.runGC()
	return c, nil
}

// Close stops the background GC goroutine.
func (c *LocalCache) Close() error {
	c.closeOnce.Do(func() { close(c.stopGC) })
	return nil
}

func (c *LocalCache) runGC() {
	ticker := time.NewTicker(c.gcInterval)
	defer ticker.Stop()
	for {
		select {
		case now := <-ticker.C:
			c.mu.Lock()
			for k, it := range c.items {
				if it.expired(now) {
					delete(c.items, k)
				}
			}
			c.mu.Unlock()
		case <-c.stopGC:
			return
		}
	}
}

// lookup returns the live item at key. Caller holds c.mu.
func (c *LocalCache) lookup(key string) (*item, bool) {
	it, ok := c.items[key]
	if !ok {
		return nil, false
	}
	if it.expired(time.Now()) {
		delete(c.items, key)
		return nil, false
	}
	return it, true
}

// ensure returns the item at key, creating it with k if absent. Caller
// holds c.mu.
func (c *LocalCache) ensure(key string, k kind) (*item, error) {
	if it, ok := c.lookup(key); ok {
		if it.kind != k {
			return nil, ErrWrongType
		}
		return it, nil
	}
	it := &item{kind: k}
	switch k {
	case kindHash:
		it.hash = make(map[string]string)
	case kindZSet:
		it.zset = make(map[string]float64)
	}
	c.items[key] = it
	return it, nil
}

// typed returns the item at key if it exists with kind k. Caller holds c.mu.
func (c *LocalCache) typed(key string, k kind) (*item, error) {
	it, ok := c.lookup(key)
	if !ok {
		return nil, ErrNotFound
	}
	if it.kind != k {
		return nil, ErrWrongType
	}
	return it, nil
}

// ---- KV ----

func (c *LocalCache) Get(_ context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	it, err := c.typed(key, kindString)
	if err != nil {
		return "", err
	}
	return it.str, nil
}

func (c *LocalCache) Set(_ context.Context, key, value string, ttl time.Duration) error {
	it := &item{kind: kindString, str: value}
	if ttl > 0 {
		it.expireAt = time.Now().Add(ttl)
	}
	c.mu.Lock()
	c.items[key] = it
	c.mu.Unlock()
	return nil
}

func (c *LocalCache) Del(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.items, k)
	}
	return nil
}

func (c *LocalCache) Expire(_ context.Context, key string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	it, ok := c.lookup(key)
	if !ok {
		return ErrNotFound
	}
	it.expireAt = time.Now().Add(ttl)
	return nil
}

// ---- Hash ----

func (c *LocalCache) HSet(_ context.Context, key string, fields map[string]string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	it, err := c.ensure(key, kindHash)
	if err != nil {
		return err
	}
	for f, v := range fields {
		it.hash[f] = v
	}
	return nil
}

func (c *LocalCache) HGetAll(_ context.Context, key string) (map[string]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]string)
	it, err := c.typed(key, kindHash)
	if errors.Is(err, ErrNotFound) {
		return out, nil
	}
	if err != nil {
		return nil, err
	}
	for f, v := range it.hash {
		out[f] = v
	}
	return out, nil
}

// ---- ZSet ----

func (c *LocalCache) ZAdd(_ context.Context, key string, score float64, member string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	it, err := c.ensure(key, kindZSet)
	if err != nil {
		return err
	}
	it.zset[member] = score
	return nil
}

// ZRevRange returns members from highest to lowest score. Equal scores are
// ordered by member descending, as Redis does.
func (c *LocalCache) ZRevRange(_ context.Context, key string, start, stop int64) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	it, err := c.typed(key, kindZSet)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	members := make([]string, 0, len(it.zset))
	for m := range it.zset {
		members = append(members, m)
	}
	sort.Slice(members, func(i, j int) bool {
		si, sj := it.zset[members[i]], it.zset[members[j]]
		if si != sj {
			return si > sj
		}
		return members[i] > members[j]
	})
	lo, hi, ok := bounds(int64(len(members)), start, stop)
	if !ok {
		return nil, nil
	}
	return members[lo : hi+1], nil
}

func (c *LocalCache) ZScore(_ context.Context, key, member string) (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	it, err := c.typed(key, kindZSet)
	if err != nil {
		return 0, err
	}
	s, ok := it.zset[member]
	if !ok {
		return 0, ErrNotFound
	}
	return s, nil
}

// ---- List ----

// LPush prepends values in order, so the last value ends up at index 0.
func (c *LocalCache) LPush(_ context.Context, key string, values ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	it, err := c.ensure(key, kindList)
	if err != nil {
		return err
	}
	head := make([]string, 0, len(values)+len(it.list))
	for i := len(values) - 1; i >= 0; i-- {
		head = append(head, values[i])
	}
	it.list = append(head, it.list...)
	return nil
}

func (c *LocalCache) LRange(_ context.Context, key string, start, stop int64) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	it, err := c.typed(key, kindList)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	lo, hi, ok := bounds(int64(len(it.list)), start, stop)
	if !ok {
		return nil, nil
	}
	out := make([]string, hi-lo+1)
	copy(out, it.list[lo:hi+1])
	return out, nil
}

func (c *LocalCache) LTrim(_ context.Context, key string, start, stop int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	it, err := c.typed(key, kindList)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	lo, hi, ok := bounds(int64(len(it.list)), start, stop)
	if !ok {
		delete(c.items, key)
		return nil
	}
	it.list = append([]string(nil), it.list[lo:hi+1]...)
	return nil
}

// bounds resolves Redis-style inclusive indexes (negative counts from the
// end) against a collection of length n.
func bounds(n, start, stop int64) (int64, int64, bool) {
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if n == 0 || start > stop || start >= n {
		return 0, 0, false
	}
	return start, stop, true
}
