// Package cart keeps the set of product IDs the user selected and mirrors it
// into durable storage. Memory is the source of truth; the durable copy is
// refreshed by a debounced write that always carries the latest membership.
package cart

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"Storefront/internal/debounce"
	"Storefront/internal/kv"
	"Storefront/pkg/kit"
)

const (
	DefaultKey         = "cartProducts"
	DefaultQuietPeriod = 300 * time.Millisecond

	hydrateTimeout = 3 * time.Second
	writeTimeout   = 5 * time.Second
)

type Options struct {
	KV      kv.Store
	Key     string
	Quiet   time.Duration
	Clock   debounce.Clock
	Log     *zap.Logger
	Metrics *kit.CoreMetrics
}

type Store struct {
	kv      kv.Store
	key     string
	timer   *debounce.Timer
	log     *zap.Logger
	metrics *kit.CoreMetrics

	mu        sync.Mutex
	items     map[int]uint64 // id -> insertion sequence
	seq       uint64
	// persisted is the last payload known to be durable; nil when the
	// durable content is unknown because hydration failed.
	persisted []byte
	mutated   bool

	// writeMu serializes durable writes; each write encodes the membership
	// current when it starts, so writes can never land out of order.
	writeMu sync.Mutex
}

// New hydrates the cart from opts.KV. A missing key gives an empty cart; an
// unreadable one is logged and also gives an empty cart.
func New(ctx context.Context, opts Options) *Store {
	if opts.Key == "" {
		opts.Key = DefaultKey
	}
	if opts.Quiet <= 0 {
		opts.Quiet = DefaultQuietPeriod
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}

	s := &Store{
		kv:      opts.KV,
		key:     opts.Key,
		timer:   debounce.New(opts.Quiet, opts.Clock),
		log:     opts.Log,
		metrics: opts.Metrics,
		items:   make(map[int]uint64),
	}
	s.hydrate(ctx)
	return s
}

func (s *Store) hydrate(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, hydrateTimeout)
	defer cancel()

	raw, ok, err := s.kv.Get(ctx, s.key)
	if err != nil {
		s.log.Warn("cart hydrate failed, starting empty", zap.String("key", s.key), zap.Error(err))
		return
	}
	if !ok {
		s.persisted = encodeIDs(nil)
		return
	}

	var ids []int
	if err := json.Unmarshal(raw, &ids); err != nil {
		s.log.Warn("cart payload unreadable, starting empty", zap.String("key", s.key), zap.Error(err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		s.insertLocked(id)
	}
	s.persisted = s.encodeLocked()
	s.log.Debug("cart hydrated", zap.Int("items", len(s.items)))
}

// Add puts id in the cart and reports whether membership changed. Adding a
// present id changes nothing but still restarts the write delay.
func (s *Store) Add(id int) bool {
	s.mu.Lock()
	changed := s.insertLocked(id)
	s.mutated = true
	s.mu.Unlock()

	s.metrics.CartMutation("add")
	s.timer.Arm(s.persist)
	return changed
}

// Remove takes id out of the cart and reports whether membership changed;
// removing an absent id only restarts the write delay.
func (s *Store) Remove(id int) bool {
	s.mu.Lock()
	_, changed := s.items[id]
	delete(s.items, id)
	s.mutated = true
	s.mu.Unlock()

	s.metrics.CartMutation("remove")
	s.timer.Arm(s.persist)
	return changed
}

func (s *Store) Contains(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.items[id]
	return ok
}

func (s *Store) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// IDs lists the cart in insertion order.
func (s *Store) IDs() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.idsLocked()
}

// Dirty reports whether memory differs from the last durable write.
func (s *Store) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirtyLocked(s.encodeLocked())
}

// Flush drops the pending delayed write and writes now if anything changed.
func (s *Store) Flush(ctx context.Context) error {
	s.timer.Cancel()
	return s.write(ctx)
}

// Close is the teardown hook: no delayed write fires after it returns, and
// any change that was waiting for one is written before it returns. The cart
// stays readable and mutable in memory.
func (s *Store) Close(ctx context.Context) error {
	s.timer.Close()
	return s.write(ctx)
}

func (s *Store) persist() {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	// Failures are already logged and counted; memory stays authoritative
	// and the next write reconciles.
	_ = s.write(ctx)
}

func (s *Store) write(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	payload := s.encodeLocked()
	dirty := s.dirtyLocked(payload)
	s.mu.Unlock()

	if !dirty {
		s.metrics.CartWrite(kit.ResultSkipped)
		return nil
	}

	if err := s.kv.Put(ctx, s.key, payload); err != nil {
		s.log.Warn("cart write failed", zap.String("key", s.key), zap.Error(err))
		s.metrics.CartWrite(kit.ResultError)
		return err
	}

	s.mu.Lock()
	s.persisted = payload
	s.mu.Unlock()

	s.metrics.CartWrite(kit.ResultOK)
	s.log.Debug("cart written", zap.String("key", s.key), zap.ByteString("ids", payload))
	return nil
}

// dirtyLocked reports whether payload has to be written. With the durable
// content unknown, any mutation forces a write so memory wins; without one
// the unknown content is left alone.
func (s *Store) dirtyLocked(payload []byte) bool {
	if s.persisted == nil {
		return s.mutated
	}
	return !bytes.Equal(payload, s.persisted)
}

func (s *Store) insertLocked(id int) bool {
	if _, ok := s.items[id]; ok {
		return false
	}
	s.seq++
	s.items[id] = s.seq
	return true
}

func (s *Store) idsLocked() []int {
	ids := make([]int, 0, len(s.items))
	for id := range s.items {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return s.items[ids[i]] < s.items[ids[j]] })
	return ids
}

func (s *Store) encodeLocked() []byte {
	return encodeIDs(s.idsLocked())
}

func encodeIDs(ids []int) []byte {
	if ids == nil {
		ids = []int{}
	}
	b, _ := json.Marshal(ids)
	return b
}
