package task

import (
	"runtime"
	"sync"
)

// Pool is a bounded worker pool for grouped sub-jobs within a single task.
// It is distinct from Group's one-goroutine-per-child model: a pool caps how
// many sub-jobs run at once.
type Pool struct {
	jobs chan func()
	wg   sync.WaitGroup
	once sync.Once
}

// NewPool starts a pool with the given number of workers; workers <= 0
// selects one per CPU.
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	p := &Pool{jobs: make(chan func())}

	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for f := range p.jobs {
				f()
			}
		}()
	}

	return p
}

// Add submits f to the pool. It blocks when all workers are busy. Add must
// not be called after Wait.
func (p *Pool) Add(f func()) {
	p.jobs <- f
}

// Wait closes the pool and blocks until every submitted job has finished.
// It is safe to call more than once.
func (p *Pool) Wait() {
	p.once.Do(func() { close(p.jobs) })
	p.wg.Wait()
}
