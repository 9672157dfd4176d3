package bot

import (
	"context"
	"sync"
)

type job func(ctx context.Context)

// chatQueue holds the pending jobs of one chat. It is guarded by dispatcher.mu.
type chatQueue struct {
	jobs []job
}

// dispatcher runs jobs in submission order per chat and concurrently across
// chats. A chat's worker goroutine exits as soon as its queue is empty.
type dispatcher struct {
	mu     sync.Mutex
	queues map[int64]*chatQueue
	wg     sync.WaitGroup
	size   int
}

func newDispatcher(size int) *dispatcher {
	return &dispatcher{
		queues: make(map[int64]*chatQueue),
		size:   size,
	}
}

// submit enqueues j for chatID without blocking. It reports false when the
// chat already has size jobs pending and j was dropped.
func (d *dispatcher) submit(ctx context.Context, chatID int64, j job) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	q, ok := d.queues[chatID]
	if !ok {
		q = &chatQueue{}
		d.queues[chatID] = q
		d.wg.Add(1)
		go d.worker(ctx, chatID, q)
	}
	if len(q.jobs) >= d.size {
		return false
	}
	q.jobs = append(q.jobs, j)
	return true
}

func (d *dispatcher) worker(ctx context.Context, chatID int64, q *chatQueue) {
	defer d.wg.Done()

	for {
		d.mu.Lock()
		if len(q.jobs) == 0 || ctx.Err() != nil {
			delete(d.queues, chatID)
			d.mu.Unlock()
			return
		}
		j := q.jobs[0]
		q.jobs[0] = nil
		q.jobs = q.jobs[1:]
		d.mu.Unlock()

		j(ctx)
	}
}

// pending returns the number of chats with a running worker.
func (d *dispatcher) pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queues)
}

// wait blocks until all workers have exited.
func (d *dispatcher) wait() {
	d.wg.Wait()
}
