package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"localevents/logger"
	"localevents/metrics"
)

// Notifier is the fire-and-forget side used by the services. Notify never
// blocks and never reports delivery failures to the caller.
type Notifier interface {
	Notify(m Message)
}

type DispatcherConfig struct {
	QueueSize   int
	Workers     int
	SendTimeout time.Duration
}

// Dispatcher queues messages and delivers them from a fixed worker pool.
// Every attempt is written to the delivery log when one is configured.
type Dispatcher struct {
	sender  Sender
	log     DeliveryLog
	cfg     DispatcherConfig
	metrics metrics.Recorder

	mu     sync.RWMutex
	closed bool
	queue  chan Message
	wg     sync.WaitGroup
}

func NewDispatcher(sender Sender, log DeliveryLog, cfg DispatcherConfig, rec metrics.Recorder) *Dispatcher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}
	if rec == nil {
		rec = metrics.Nop
	}
	d := &Dispatcher{
		sender:  sender,
		log:     log,
		cfg:     cfg,
		metrics: rec,
		queue:   make(chan Message, cfg.QueueSize),
	}
	for i := 0; i < cfg.Workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	return d
}

// Notify enqueues m. A full queue or a closed dispatcher drops the message.
func (d *Dispatcher) Notify(m Message) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.drop(m, "closed")
		return
	}
	select {
	case d.queue <- m:
	default:
		d.drop(m, "queue full")
	}
}

func (d *Dispatcher) drop(m Message, reason string) {
	d.metrics.RecordNotification(string(m.Kind), "dropped")
	logger.Warn("notification dropped", logger.Fields{"kind": m.Kind, "to": m.To, "reason": reason})
}

// Close stops intake and waits for queued messages to be delivered, or for
// ctx to end.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.Join(errors.New("notification queue not drained"), ctx.Err())
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for m := range d.queue {
		d.deliver(m)
	}
}

func (d *Dispatcher) deliver(m Message) {
	ctx, cancel := context.WithTimeout(context.Background(), d.cfg.SendTimeout)
	err := d.sender.Send(ctx, m)
	cancel()

	rec := Delivery{
		ID:          m.ID,
		Kind:        m.Kind,
		To:          m.To,
		Subject:     m.Subject,
		Status:      StatusSent,
		AttemptedAt: time.Now().UTC(),
	}
	if err != nil {
		rec.Status = StatusFailed
		rec.Error = err.Error()
		logger.Error("notification failed", logger.Fields{"kind": m.Kind, "to": m.To, "error": err.Error()})
	}
	d.metrics.RecordNotification(string(m.Kind), rec.Status)

	if d.log == nil {
		return
	}
	if err := d.log.Record(context.Background(), rec); err != nil {
		logger.Warn("delivery log write failed", logger.Fields{"id": m.ID, "error": err.Error()})
	}
}
