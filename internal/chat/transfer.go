package chat

import (
	"fmt"
	"sync/atomic"
	"time"
)

// TransferDelay emulates transfer duration, making the bounded-buffer
// backpressure externally observable under concurrent producers
// (spec.md §4.5, §9). Tests override it to keep runs fast.
var TransferDelay = 2 * time.Second

// TransferWorker is the singleton consumer of an UploadQueue: all
// in-flight transfers are serialized through it, so delivery order always
// matches producer-commit order (spec.md §4.5, §5).
type TransferWorker struct {
	queue   *UploadQueue
	users   *UserRegistry
	log     *EventSink
	running *atomic.Bool
}

func NewTransferWorker(queue *UploadQueue, users *UserRegistry, log *EventSink, running *atomic.Bool) *TransferWorker {
	return &TransferWorker{queue: queue, users: users, log: log, running: running}
}

// Run loops until shutdown is observed. It never performs an additional
// delivery once running has gone false, per spec.md §5.
func (w *TransferWorker) Run() {
	for {
		tr, ok := w.queue.Dequeue()
		if !w.running.Load() {
			return
		}
		if !ok {
			// Woken with nothing to deliver (shutdown, or a shutdown/enqueue
			// race); loop back to re-check running.
			continue
		}
		UploadQueueDepth.Set(float64(w.queue.Depth()))

		time.Sleep(TransferDelay)
		if !w.running.Load() {
			return
		}

		receiver, ok := w.users.Lookup(tr.Receiver)
		if ok && receiver.Active() {
			receiver.Enqueue(fmt.Sprintf("[FILE] Received '%s' from %s (%d bytes)\n", tr.Filename, tr.Sender, tr.PayloadSize))
			w.log.Log(TagSendFile, "'%s' sent from %s to %s (success)", tr.Filename, tr.Sender, tr.Receiver)
			TransfersTotal.WithLabelValues("delivered").Inc()
		} else {
			w.log.Log(TagSendFile, "'%s' from %s to %s (failed - user offline)", tr.Filename, tr.Sender, tr.Receiver)
			TransfersTotal.WithLabelValues("failed").Inc()
		}

		w.queue.ReleaseSlot()
	}
}
