package cache

// node is an entry in the recency ring.
type node[K comparable, V any] struct {
	key        K
	value      V
	prev, next *node[K, V]
}

// ring is a circular doubly linked list around a sentinel. The entry after
// the sentinel is the most recently used. Not safe for concurrent use.
type ring[K comparable, V any] struct {
	root node[K, V]
	len  int
}

func (r *ring[K, V]) init() {
	r.root.prev = &r.root
	r.root.next = &r.root
	r.len = 0
}

func (r *ring[K, V]) pushFront(n *node[K, V]) {
	n.prev = &r.root
	n.next = r.root.next
	r.root.next.prev = n
	r.root.next = n
	r.len++
}

func (r *ring[K, V]) remove(n *node[K, V]) {
	n.prev.next = n.next
	n.next.prev = n.prev
	n.prev, n.next = nil, nil
	r.len--
}

func (r *ring[K, V]) moveToFront(n *node[K, V]) {
	if r.root.next == n {
		return
	}
	r.remove(n)
	r.pushFront(n)
}

// back returns the least recently used entry, or nil when empty.
func (r *ring[K, V]) back() *node[K, V] {
	if r.len == 0 {
		return nil
	}
	return r.root.prev
}
