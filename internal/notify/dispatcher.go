package notify

import (
	"context"
	"sync"
	"time"

	"github.com/mbeoliero/kit/log"
)

const publishTimeout = 2 * time.Second

// Dispatcher hands committed events to a Publisher from a bounded worker pool.
// When the queue is full the batch is dropped.
type Dispatcher struct {
	pub     Publisher
	queue   chan []Event
	workers int
	wg      sync.WaitGroup
}

// NewDispatcher creates a Dispatcher; call Run before emitting
func NewDispatcher(pub Publisher, queueSize, workers int) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 1024
	}
	if workers <= 0 {
		workers = 1
	}
	return &Dispatcher{
		pub:     pub,
		queue:   make(chan []Event, queueSize),
		workers: workers,
	}
}

// Run starts the workers; they stop when ctx is cancelled
func (d *Dispatcher) Run(ctx context.Context) {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.loop(ctx)
		}()
	}
	log.Info("started %d notify workers", d.workers)
}

// Wait blocks until every worker has exited
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Emit implements Emitter. It never blocks the caller.
func (d *Dispatcher) Emit(ctx context.Context, events ...Event) {
	if len(events) == 0 {
		return
	}
	select {
	case d.queue <- events:
		QueueDepth.Inc()
	default:
		for i := range events {
			EventsTotal.WithLabelValues(events[i].Type, resultDropped).Inc()
		}
		log.CtxWarn(ctx, "notify queue full, dropped %d events of type %s", len(events), events[0].Type)
	}
}

func (d *Dispatcher) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case batch := <-d.queue:
			QueueDepth.Dec()
			d.deliver(ctx, batch)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, batch []Event) {
	for i := range batch {
		e := &batch[i]
		pctx, cancel := context.WithTimeout(ctx, publishTimeout)
		err := d.pub.Publish(pctx, e)
		cancel()
		if err != nil {
			EventsTotal.WithLabelValues(e.Type, resultFailed).Inc()
			log.CtxDebug(ctx, "publish event failed: type=%s, recipient=%s, error=%v", e.Type, e.Recipient, err)
			continue
		}
		EventsTotal.WithLabelValues(e.Type, resultPublished).Inc()
	}
}
