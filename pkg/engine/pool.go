package engine

import (
	"log/slog"
	"sync"

	"github.com/Chunn241529/FourT-sub001/pkg/keymap"
)

const (
	workerCount = 4
	workerQueue = 64
)

type keyOp struct {
	press bool
	key   string
	mod   keymap.Modifier
}

// keyPool runs key operations on a fixed set of workers, so one slow OS call
// delays at most the keys behind it on the same worker and never the
// scheduler itself.
type keyPool struct {
	ctrl Controller
	log  *slog.Logger

	ops     chan keyOp
	workers sync.WaitGroup
	pending sync.WaitGroup
}

func newKeyPool(ctrl Controller, log *slog.Logger) *keyPool {
	p := &keyPool{
		ctrl: ctrl,
		log:  log,
		ops:  make(chan keyOp, workerQueue),
	}
	p.workers.Add(workerCount)
	for i := 0; i < workerCount; i++ {
		go p.worker()
	}
	return p
}

func (p *keyPool) worker() {
	defer p.workers.Done()
	for op := range p.ops {
		var err error
		if op.press {
			err = p.ctrl.PressKey(op.key, op.mod)
		} else {
			err = p.ctrl.ReleaseKey(op.key, op.mod)
		}
		if err != nil {
			p.log.Warn("key operation failed", "press", op.press, "key", op.key, "error", err)
		}
		p.pending.Done()
	}
}

// submit queues an operation without ever blocking the scheduler. When the
// queue is saturated the operation is dropped and logged; late input is
// worse than missing input here.
func (p *keyPool) submit(op keyOp) {
	p.pending.Add(1)
	select {
	case p.ops <- op:
	default:
		p.pending.Done()
		p.log.Warn("input queue saturated, dropping", "press", op.press, "key", op.key)
	}
}

// drain blocks until every queued operation has run.
func (p *keyPool) drain() {
	p.pending.Wait()
}

// close drains the queue and stops the workers.
func (p *keyPool) close() {
	p.pending.Wait()
	close(p.ops)
	p.workers.Wait()
}
