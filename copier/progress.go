package copier

import (
	"sync"

	"github.com/mfpkit/copyflow/core"
)

// dispatcher decouples progress emission from observation: events are
// appended to an internal queue and delivered in order by a single
// goroutine, so the operation worker never blocks on a slow observer.
type dispatcher struct {
	mu        sync.Mutex
	queue     []core.ProgressEvent
	observers []core.ProgressFunc
	wake      chan struct{}
	quit      chan struct{}
	done      chan struct{}
	started   bool
}

func newDispatcher(initialCap int) *dispatcher {
	if initialCap <= 0 {
		initialCap = 64
	}
	return &dispatcher{
		queue: make([]core.ProgressEvent, 0, initialCap),
		wake:  make(chan struct{}, 1),
		quit:  make(chan struct{}),
		done:  make(chan struct{}),
	}
}

func (d *dispatcher) subscribe(fn core.ProgressFunc) {
	d.mu.Lock()
	d.observers = append(d.observers, fn)
	d.mu.Unlock()
}

func (d *dispatcher) start() {
	d.mu.Lock()
	if d.started {
		d.mu.Unlock()
		return
	}
	d.started = true
	d.mu.Unlock()
	go d.run()
}

// stop drains pending events and terminates the delivery goroutine.
func (d *dispatcher) stop() {
	d.mu.Lock()
	if !d.started {
		d.mu.Unlock()
		return
	}
	d.mu.Unlock()
	close(d.quit)
	<-d.done
}

func (d *dispatcher) publish(ev core.ProgressEvent) {
	d.mu.Lock()
	d.queue = append(d.queue, ev)
	d.mu.Unlock()
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

func (d *dispatcher) run() {
	defer close(d.done)
	for {
		d.flush()
		select {
		case <-d.wake:
		case <-d.quit:
			d.flush()
			return
		}
	}
}

func (d *dispatcher) flush() {
	for {
		d.mu.Lock()
		if len(d.queue) == 0 {
			d.mu.Unlock()
			return
		}
		ev := d.queue[0]
		d.queue = d.queue[1:]
		observers := d.observers
		d.mu.Unlock()

		for _, fn := range observers {
			fn(ev)
		}
	}
}
