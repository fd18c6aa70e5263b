package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/boostly/boosting-marketplace/internal/api/metrics"
	"github.com/boostly/boosting-marketplace/internal/core/domain"
	"github.com/boostly/boosting-marketplace/internal/core/ports"
)

const (
	defaultWorkers = 8
	channelBuffer  = 256
)

// Dispatcher routes order events to a fixed set of workers using consistent
// hashing on the order id, guaranteeing per-order event ordering.
type Dispatcher struct {
	workers []chan domain.OrderEvent
	handler ports.EventHandler
	log     zerolog.Logger

	stopped  chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

var _ ports.EventPublisher = (*Dispatcher)(nil)

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, handler ports.EventHandler, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan domain.OrderEvent, numWorkers),
		handler: handler,
		log:     log,
		stopped: make(chan struct{}),
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.OrderEvent, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
	go func() {
		<-ctx.Done()
		d.stopOnce.Do(func() { close(d.stopped) })
	}()
}

// Run starts the workers and blocks until ctx is cancelled and every worker
// has returned.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.Start(ctx)
	d.wg.Wait()
	return nil
}

// Publish hands an event to the worker responsible for its order. It only
// waits when that worker's buffer is full, and drops the event once the
// dispatcher has stopped.
func (d *Dispatcher) Publish(event domain.OrderEvent) {
	idx := d.shardIndex(event.OrderID)
	ch := d.workers[idx]

	select {
	case ch <- event:
	default:
		d.log.Warn().Str("order_id", event.OrderID).Int("worker_id", idx).Msg("event queue full, waiting for worker")
		select {
		case ch <- event:
		case <-d.stopped:
			d.log.Error().
				Str("order_id", event.OrderID).
				Str("transition", string(event.Transition)).
				Msg("dispatcher stopped, order event dropped")
			return
		}
	}
	metrics.EventsQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(ch)))
}

// shardIndex maps an order id deterministically to a worker index.
func (d *Dispatcher) shardIndex(orderID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(orderID))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan domain.OrderEvent) {
	defer d.wg.Done()
	label := strconv.Itoa(id)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			metrics.EventsQueueDepth.WithLabelValues(label).Set(float64(len(ch)))
			d.handle(ctx, id, event)
		}
	}
}

func (d *Dispatcher) handle(ctx context.Context, workerID int, event domain.OrderEvent) {
	start := time.Now()
	if err := d.handler.Handle(ctx, event); err != nil {
		metrics.EventProcessingDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		metrics.OrderEventErrorsTotal.WithLabelValues(domain.Code(err)).Inc()
		d.log.Error().Err(err).
			Str("order_id", event.OrderID).
			Str("transition", string(event.Transition)).
			Int("worker_id", workerID).
			Msg("order event processing failed")
		return
	}

	metrics.EventProcessingDuration.WithLabelValues(string(event.Transition)).Observe(time.Since(start).Seconds())
	metrics.OrderTransitionsTotal.WithLabelValues(string(event.Transition), string(event.To)).Inc()
	if event.Transition == domain.TransitionComplete {
		metrics.WalletCreditedTotal.WithLabelValues("completion").Add(event.Amount.InexactFloat64())
	}
}
