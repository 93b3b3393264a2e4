package vdl2

/*------------------------------------------------------------------
 *
 * Purpose:   	Received frame queue.
 *
 * Description: There is one decoder goroutine per channel.  This queue
 *		collects link frames from all of them so they can be
 *		parsed and printed serially by a single consumer.
 *
 *		Frames are in arrival order.  Nothing is promised about
 *		ordering between different channels.
 *
 *		Once pushed, a frame belongs to the queue and then to
 *		whoever pops it.  The producer must not touch it again.
 *
 *---------------------------------------------------------------*/

import (
	"context"
	"sync"
	"time"
)

type QueuedFrame struct {
	Freq      uint32    // Channel frequency, Hz.
	Timestamp time.Time // Start of the burst.
	Signal    float64   // dBFS
	Noise     float64   // dBFS

	BurstBits       int // Transmission length from the burst header.
	HeaderCorrected int // Bits fixed by the header FEC.
	FECCorrected    int // Octets fixed by Reed-Solomon, whole burst.
	Index           int // Position of this frame within the burst, from 0.

	Data []byte // Raw AVLC frame including FCS.

	nextp *QueuedFrame
}

// Complain when the consumer seems to have stopped.
const QUEUE_WARN_LENGTH = 10

type FrameQueue struct {
	mu     sync.Mutex // Critical section for updating the list.
	head   *QueuedFrame
	tail   *QueuedFrame
	length int

	wake chan struct{} // Notify consumer when queue not empty.

	stats *Statistics
}

func NewFrameQueue(stats *Statistics) *FrameQueue {
	return &FrameQueue{ //nolint:exhaustruct
		wake:  make(chan struct{}, 1),
		stats: stats,
	}
}

/*-------------------------------------------------------------------
 *
 * Name:        Push
 *
 * Purpose:     Add a frame to the end of the queue.
 *
 * Description:	Never blocks.  Safe to call from any number of
 *		goroutines at once.
 *
 *--------------------------------------------------------------------*/

func (q *FrameQueue) Push(f *QueuedFrame) {
	f.nextp = nil

	q.mu.Lock()

	if q.tail == nil {
		q.head = f
	} else {
		q.tail.nextp = f
	}
	q.tail = f
	q.length++

	var queue_length = q.length

	q.mu.Unlock()

	q.stats.set_queue_length(queue_length)

	if queue_length > QUEUE_WARN_LENGTH {
		logger.Warn("Received frame queue is out of control.", "length", queue_length)
	}

	select {
	case q.wake <- struct{}{}:
	default:
		// Consumer already has a wake up pending.
	}
}

// Remove from the head, nil if empty.

func (q *FrameQueue) remove() *QueuedFrame {
	q.mu.Lock()
	defer q.mu.Unlock()

	var result = q.head
	if result != nil {
		q.head = result.nextp
		if q.head == nil {
			q.tail = nil
		}
		result.nextp = nil
		q.length--
		q.stats.set_queue_length(q.length)
	}

	return result
}

/*-------------------------------------------------------------------
 *
 * Name:        Pop
 *
 * Purpose:     Take the next frame, sleeping while the queue is empty.
 *
 * Returns:	The frame, or an error only when ctx is done.
 *
 * Description:	Intended for a single consumer.  There is no timeout;
 *		an idle consumer waits indefinitely.
 *
 *--------------------------------------------------------------------*/

func (q *FrameQueue) Pop(ctx context.Context) (*QueuedFrame, error) {
	for {
		if f := q.remove(); f != nil {
			return f, nil
		}

		select {
		case <-q.wake:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (q *FrameQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.length
}
