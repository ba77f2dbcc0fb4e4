package chat

import "sync"

// semaphore is a counting semaphore over a buffered channel — the
// channel-based rendering of sem_t that spec.md §9 explicitly permits
// ("may equivalently be expressed as a bounded channel with blocking send
// and try-send"). stop lets every blocked Acquire wake up at once on
// shutdown, instead of relying on one Release per waiter.
type semaphore struct {
	tokens chan struct{}
	stop   chan struct{}
	closer sync.Once
}

func newSemaphore(capacity, initial int) *semaphore {
	s := &semaphore{
		tokens: make(chan struct{}, capacity),
		stop:   make(chan struct{}),
	}
	for i := 0; i < initial; i++ {
		s.tokens <- struct{}{}
	}
	return s
}

// Acquire blocks until a token is available or Close is called, reporting
// which. Callers must treat a false return as "give up", not as having
// acquired a token.
func (s *semaphore) Acquire() bool {
	select {
	case <-s.tokens:
		return true
	case <-s.stop:
		return false
	}
}

func (s *semaphore) TryAcquire() bool {
	select {
	case <-s.tokens:
		return true
	default:
		return false
	}
}

func (s *semaphore) Release() {
	select {
	case s.tokens <- struct{}{}:
	default:
		// Would exceed capacity; the balance invariant (slots+items=cap)
		// means this should never happen in normal operation.
	}
}

// Close wakes every goroutine currently blocked in Acquire, and every
// future call to Acquire, without needing to know how many are waiting.
// Idempotent.
func (s *semaphore) Close() {
	s.closer.Do(func() { close(s.stop) })
}

// UploadQueue is a fixed-capacity circular buffer of FileTransfer records
// coordinated by two counting semaphores and a dedicated mutex, distinct
// from both registry locks and never held across a blocking send
// (spec.md §5).
//
// slots tracks free slots (producers acquire before writing), items
// tracks filled slots (the Transfer worker acquires before reading). At
// rest, slots.count + items.count == UploadQueueCap.
type UploadQueue struct {
	mu    sync.Mutex
	buf   [UploadQueueCap]FileTransfer
	head  int
	count int

	slots *semaphore
	items *semaphore
}

func NewUploadQueue() *UploadQueue {
	return &UploadQueue{
		slots: newSemaphore(UploadQueueCap, UploadQueueCap),
		items: newSemaphore(UploadQueueCap, 0),
	}
}

// TryEnqueue attempts a non-blocking acquire of a free slot. On success it
// commits tr into the buffer and returns true; on failure (queue full) it
// returns false without mutating anything, so the caller can emit the
// "queue full" notice before falling back to EnqueueBlocking.
func (q *UploadQueue) TryEnqueue(tr FileTransfer) bool {
	if !q.slots.TryAcquire() {
		return false
	}
	q.commit(tr)
	return true
}

// EnqueueBlocking blocks until a slot is free, then commits tr. Returns
// false without committing anything if Shutdown is called while waiting,
// so a session goroutine parked here during SIGINT can give up instead of
// blocking Server.Stop forever.
func (q *UploadQueue) EnqueueBlocking(tr FileTransfer) bool {
	if !q.slots.Acquire() {
		return false
	}
	q.commit(tr)
	return true
}

func (q *UploadQueue) commit(tr FileTransfer) {
	q.mu.Lock()
	tail := (q.head + q.count) % UploadQueueCap
	q.buf[tail] = tr
	q.count++
	q.mu.Unlock()
	q.items.Release()
}

// Dequeue blocks on the items semaphore, then returns the head record.
// The second return value is false when the wait ended without a real
// item — either Shutdown was called, or (rarely, racing Shutdown) an item
// was posted but Close won the select — the caller must not treat the
// zero-value FileTransfer as real work in that case.
func (q *UploadQueue) Dequeue() (FileTransfer, bool) {
	if !q.items.Acquire() {
		return FileTransfer{}, false
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.count == 0 {
		return FileTransfer{}, false
	}
	tr := q.buf[q.head]
	q.head = (q.head + 1) % UploadQueueCap
	q.count--

	return tr, true
}

// ReleaseSlot frees a slot after a transfer has been delivered (or failed
// delivery), letting queued producers proceed.
func (q *UploadQueue) ReleaseSlot() {
	q.slots.Release()
}

// Shutdown wakes every goroutine currently blocked in EnqueueBlocking or
// Dequeue — however many producers are parked waiting for a slot, and the
// single Transfer worker waiting for an item — so Server.Stop's
// s.wg.Wait() can return instead of hanging on a producer that will never
// see a slot freed again.
func (q *UploadQueue) Shutdown() {
	q.slots.Close()
	q.items.Close()
}

// Depth returns the advisory current queue length, for metrics only — the
// semaphores remain authoritative for coordination (spec.md §3).
func (q *UploadQueue) Depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}
