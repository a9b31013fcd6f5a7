// Package expiremap is a small bounded map with LRU eviction and a per-entry
// time-to-live, used as an advisory cache: expired entries read as absent.
package expiremap

import (
	"sync"
	"time"
)

type node[K, V any] struct {
	key     K
	value   V
	written time.Time
	next    *node[K, V]
	prev    *node[K, V]
}

type Map[K comparable, V any] struct {
	max   int
	ttl   time.Duration
	now   func() time.Time // replaceable in tests
	nodes map[K]*node[K, V]
	head  *node[K, V]
	tail  *node[K, V]
	mu    sync.Mutex
}

// New creates a Map holding at most maxEntries values, each readable for ttl
// after its last Put. maxEntries must be at least 2.
func New[K comparable, V any](maxEntries int, ttl time.Duration) *Map[K, V] {
	if maxEntries < 2 {
		panic("expiremap: max entries must be at least 2")
	}
	return &Map[K, V]{
		max:   maxEntries,
		ttl:   ttl,
		now:   time.Now,
		nodes: make(map[K]*node[K, V]),
	}
}

// Put inserts or refreshes key, evicting the least recently used entry when
// over capacity.
func (m *Map[K, V]) Put(key K, value V) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n, ok := m.nodes[key]; ok {
		n.value = value
		n.written = m.now()
		m.moveToHead(n)
		return
	}
	n := &node[K, V]{key: key, value: value, written: m.now()}
	m.nodes[key] = n
	m.pushFront(n)
	if len(m.nodes) > m.max {
		m.evictTail()
	}
}

// Get returns the value for key unless it is missing or older than the TTL.
// A hit refreshes LRU position but not the TTL clock.
func (m *Map[K, V]) Get(key K) (v V, found bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.nodes[key]
	if !ok {
		return v, false
	}
	if m.ttl > 0 && m.now().Sub(n.written) >= m.ttl {
		m.unlink(n)
		delete(m.nodes, key)
		return v, false
	}
	m.moveToHead(n)
	return n.value, true
}

// Delete removes key if present.
func (m *Map[K, V]) Delete(key K) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n, ok := m.nodes[key]; ok {
		m.unlink(n)
		delete(m.nodes, key)
	}
}

// Len counts entries including any not yet noticed as expired.
func (m *Map[K, V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.nodes)
}

// SetClock replaces the time source; tests only.
func (m *Map[K, V]) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

func (m *Map[K, V]) pushFront(n *node[K, V]) {
	if m.head == nil {
		m.head = n
		m.tail = n
		return
	}
	n.next = m.head
	m.head.prev = n
	m.head = n
}

func (m *Map[K, V]) moveToHead(n *node[K, V]) {
	if m.head == n {
		return
	}
	m.unlink(n)
	m.pushFront(n)
}

func (m *Map[K, V]) unlink(n *node[K, V]) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		m.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		m.tail = n.prev
	}
	n.prev = nil
	n.next = nil
}

func (m *Map[K, V]) evictTail() {
	n := m.tail
	if n == nil {
		return
	}
	m.unlink(n)
	delete(m.nodes, n.key)
}
