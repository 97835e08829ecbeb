package shotlog

import "sync"

// growThreshold is the occupancy fraction at which the spool doubles
// its capacity, so producers keep a headroom margin and never block.
const growThreshold = 0.7

// spool is an unbounded ring buffer between the routing path and the
// batch writer. Send grows the buffer instead of blocking or dropping.
type spool[T any] struct {
	mu       sync.Mutex
	buf      []T
	head     int
	tail     int
	count    int
	capacity int
	closed   bool
}

func newSpool[T any](initialCapacity int) *spool[T] {
	if initialCapacity <= 0 {
		initialCapacity = 64
	}
	return &spool[T]{
		buf:      make([]T, initialCapacity),
		capacity: initialCapacity,
	}
}

// Send appends an item, growing the buffer when occupancy crosses the
// threshold. It returns false only after Close.
func (s *spool[T]) Send(item T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}

	if float64(s.count) >= float64(s.capacity)*growThreshold {
		s.grow()
	}

	s.buf[s.tail] = item
	s.tail = (s.tail + 1) % s.capacity
	s.count++
	return true
}

// TryReceive pops the oldest item without blocking.
func (s *spool[T]) TryReceive() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var zero T
	if s.count == 0 {
		return zero, false
	}

	item := s.buf[s.head]
	s.buf[s.head] = zero
	s.head = (s.head + 1) % s.capacity
	s.count--
	return item, true
}

// DrainTo pops up to max items in FIFO order. max <= 0 drains everything.
func (s *spool[T]) DrainTo(max int) []T {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.count == 0 {
		return nil
	}

	n := s.count
	if max > 0 && max < n {
		n = max
	}

	var zero T
	items := make([]T, n)
	for i := 0; i < n; i++ {
		items[i] = s.buf[s.head]
		s.buf[s.head] = zero
		s.head = (s.head + 1) % s.capacity
	}
	s.count -= n
	return items
}

// Close stops further sends. Buffered items remain receivable.
func (s *spool[T]) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

func (s *spool[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

func (s *spool[T]) Cap() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.capacity
}

// grow doubles capacity, unwinding the ring into the new slice. Caller
// holds mu.
func (s *spool[T]) grow() {
	newCapacity := s.capacity * 2
	newBuf := make([]T, newCapacity)

	for i := 0; i < s.count; i++ {
		newBuf[i] = s.buf[(s.head+i)%s.capacity]
	}

	s.buf = newBuf
	s.head = 0
	s.tail = s.count
	s.capacity = newCapacity
}
