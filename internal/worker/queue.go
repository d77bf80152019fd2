package worker

import "sync"

// Queue runs submitted tasks on a fixed set of background workers. It backs
// asynchronous dispatch: the caller hands off an event and returns
// immediately, with outcomes landing in the audit log instead of the caller.
type Queue struct {
	mu      sync.Mutex
	tasks   chan func()
	wg      sync.WaitGroup
	closed  bool
	onPanic func(recovered any)
}

// NewQueue starts a queue with the given worker count and buffer depth.
// Workers and depth below their minimums are raised to 1 and 0. onPanic,
// when non-nil, observes panics recovered from tasks; a panicking task
// never takes its worker down.
func NewQueue(workers, depth int, onPanic func(recovered any)) *Queue {
	if workers < 1 {
		workers = 1
	}
	if depth < 0 {
		depth = 0
	}
	q := &Queue{
		tasks:   make(chan func(), depth),
		onPanic: onPanic,
	}
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.run()
	}
	return q
}

func (q *Queue) run() {
	defer q.wg.Done()
	for task := range q.tasks {
		q.invoke(task)
	}
}

func (q *Queue) invoke(task func()) {
	defer func() {
		if r := recover(); r != nil && q.onPanic != nil {
			q.onPanic(r)
		}
	}()
	task()
}

// Submit enqueues a task, blocking while the buffer is full. Returns false
// once the queue is closed.
func (q *Queue) Submit(task func()) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.tasks <- task
	return true
}

// Close stops accepting tasks and blocks until every queued task has run.
// Safe to call more than once.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.tasks)
	q.mu.Unlock()
	q.wg.Wait()
}
