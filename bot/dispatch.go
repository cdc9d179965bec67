package bot

import (
	"log"
	"sync"
)

// dispatcher runs jobs one at a time per user, in submission order.
// Jobs of different users run in parallel. A user's worker goroutine
// exits as soon as its queue is empty.
type dispatcher struct {
	mu     sync.Mutex
	queues map[int64]*userQueue
	wg     sync.WaitGroup
}

type userQueue struct {
	jobs []func()
}

func newDispatcher() *dispatcher {
	return &dispatcher{queues: make(map[int64]*userQueue)}
}

func (d *dispatcher) submit(userID int64, job func()) {
	d.mu.Lock()
	if q, ok := d.queues[userID]; ok {
		q.jobs = append(q.jobs, job)
		d.mu.Unlock()
		return
	}
	q := &userQueue{jobs: []func(){job}}
	d.queues[userID] = q
	d.wg.Add(1)
	d.mu.Unlock()

	go d.drain(userID, q)
}

func (d *dispatcher) drain(userID int64, q *userQueue) {
	defer d.wg.Done()
	for {
		d.mu.Lock()
		if len(q.jobs) == 0 {
			delete(d.queues, userID)
			d.mu.Unlock()
			return
		}
		job := q.jobs[0]
		q.jobs[0] = nil
		q.jobs = q.jobs[1:]
		d.mu.Unlock()

		run(userID, job)
	}
}

func run(userID int64, job func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic handling update of user %d: %v", userID, r)
		}
	}()
	job()
}

// wait blocks until every submitted job has finished
func (d *dispatcher) wait() {
	d.wg.Wait()
}

func (d *dispatcher) active() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queues)
}
