package harness

import "sync"

// eventQueue is the run's single event queue. Callbacks may be enqueued from
// any goroutine (timer goroutines, Harness.Post) but are always dequeued and
// executed by the one goroutine pumping the run. The queue is unbounded so
// that code already running on the pump goroutine can enqueue freely without
// deadlocking.
type eventQueue struct {
	lock  sync.Mutex
	items []func()
	wake  chan struct{}
}

func newEventQueue() *eventQueue {
	return &eventQueue{wake: make(chan struct{}, 1)}
}

func (q *eventQueue) push(f func()) {
	q.lock.Lock()
	q.items = append(q.items, f)
	q.lock.Unlock()
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *eventQueue) pop() (func(), bool) {
	q.lock.Lock()
	defer q.lock.Unlock()
	if len(q.items) == 0 {
		return nil, false
	}
	f := q.items[0]
	q.items = q.items[1:]
	return f, true
}

// awaitWake blocks until push has signalled that new items may be available.
func (q *eventQueue) awaitWake() {
	<-q.wake
}
