package chat

import (
	"testing"
	"time"
)

func TestUploadQueue_TryEnqueueFillsCapacityThenFails(t *testing.T) {
	q := NewUploadQueue()

	for i := 0; i < UploadQueueCap; i++ {
		if !q.TryEnqueue(FileTransfer{Filename: "f.txt"}) {
			t.Fatalf("expected enqueue %d to succeed immediately", i)
		}
	}

	if q.TryEnqueue(FileTransfer{Filename: "overflow.txt"}) {
		t.Fatalf("expected the queue to be full")
	}
	if got := q.Depth(); got != UploadQueueCap {
		t.Fatalf("expected depth %d, got %d", UploadQueueCap, got)
	}
}

func TestUploadQueue_DequeueFreesASlotForBlockedProducer(t *testing.T) {
	q := NewUploadQueue()
	for i := 0; i < UploadQueueCap; i++ {
		q.TryEnqueue(FileTransfer{Filename: "f.txt"})
	}

	done := make(chan struct{})
	go func() {
		if !q.EnqueueBlocking(FileTransfer{Filename: "queued.txt"}) {
			panic("expected the blocked enqueue to eventually succeed")
		}
		close(done)
	}()

	select {
	case <-done:
		t.Fatalf("blocking enqueue should not complete before a slot frees")
	default:
	}

	tr, ok := q.Dequeue()
	if !ok || tr.Filename != "f.txt" {
		t.Fatalf("unexpected dequeue result: %+v ok=%v", tr, ok)
	}
	q.ReleaseSlot()

	<-done // must complete now that a slot is free
}

func TestUploadQueue_DeliversInProducerCommitOrder(t *testing.T) {
	q := NewUploadQueue()
	names := []string{"a.txt", "b.txt", "c.txt"}
	for _, n := range names {
		if !q.TryEnqueue(FileTransfer{Filename: n}) {
			t.Fatalf("expected enqueue of %s to succeed", n)
		}
	}

	for _, want := range names {
		tr, ok := q.Dequeue()
		if !ok || tr.Filename != want {
			t.Fatalf("expected %s, got %+v ok=%v", want, tr, ok)
		}
		q.ReleaseSlot()
	}
}

func TestUploadQueue_ShutdownUnblocksDequeueWithoutItem(t *testing.T) {
	q := NewUploadQueue()

	done := make(chan bool, 1)
	go func() {
		_, ok := q.Dequeue()
		done <- ok
	}()

	q.Shutdown()

	if ok := <-done; ok {
		t.Fatalf("expected a shutdown wakeup to report ok=false")
	}
}

func TestUploadQueue_ShutdownUnblocksEveryWaitingProducer(t *testing.T) {
	q := NewUploadQueue()
	for i := 0; i < UploadQueueCap; i++ {
		q.TryEnqueue(FileTransfer{Filename: "f.txt"})
	}

	const producers = 3
	results := make(chan bool, producers)
	for i := 0; i < producers; i++ {
		go func() {
			results <- q.EnqueueBlocking(FileTransfer{Filename: "queued.txt"})
		}()
	}

	q.Shutdown()

	for i := 0; i < producers; i++ {
		select {
		case ok := <-results:
			if ok {
				t.Fatalf("expected a shutdown-woken producer to report ok=false")
			}
		case <-time.After(time.Second):
			t.Fatalf("expected every blocked producer to be woken by Shutdown")
		}
	}
}
