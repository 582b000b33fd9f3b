package alert

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/adomitis8/password-alert/internal/config"
)

// deliverable is an alert queued for delivery.
type deliverable interface {
	kind() string
	deliver(ctx context.Context, c *Client) error
}

// Options configures a Dispatcher.
type Options struct {
	// Client options for the HTTP delivery side.
	ClientOptions

	// Timeout bounds one delivery attempt end to end, including the
	// token fetch. Defaults to config.DefaultAlertTimeout.
	Timeout time.Duration

	// QueueSize is the delivery buffer. When the buffer is full, new
	// alerts are dropped rather than blocking the detection path.
	// Defaults to config.DefaultAlertQueueSize.
	QueueSize int
}

// Dispatcher delivers alerts asynchronously. Detection hands an event
// over and moves on; delivery failures are logged, never retried, and
// never surfaced to the caller.
//
// Design decision: a full queue drops the newest alert instead of
// blocking. An alert is advisory and the backend tolerates gaps, but a
// detection path stalled on a slow proxy would be felt on every
// keystroke in the tab.
type Dispatcher struct {
	client  *Client
	logger  *slog.Logger
	timeout time.Duration

	ch        chan deliverable
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

// NewDispatcher creates a Dispatcher and starts its delivery goroutine.
func NewDispatcher(opts Options) (*Dispatcher, error) {
	client, err := NewClient(opts.ClientOptions)
	if err != nil {
		return nil, err
	}
	if opts.Timeout <= 0 {
		opts.Timeout = config.DefaultAlertTimeout
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = config.DefaultAlertQueueSize
	}

	d := &Dispatcher{
		client:  client,
		logger:  client.logger,
		timeout: opts.Timeout,
		ch:      make(chan deliverable, opts.QueueSize),
		done:    make(chan struct{}),
	}

	d.wg.Add(1)
	go d.run()

	return d, nil
}

// ReportPasswordTyped queues a password alert for delivery.
func (d *Dispatcher) ReportPasswordTyped(event PasswordEvent) {
	d.enqueue(event)
}

// ReportPhishingPage queues a phishing-page alert for delivery.
func (d *Dispatcher) ReportPhishingPage(event PhishingEvent) {
	d.enqueue(event)
}

func (d *Dispatcher) enqueue(event deliverable) {
	if d == nil || d.closed.Load() {
		return
	}

	select {
	case d.ch <- event:
	case <-d.done:
	default:
		d.dropped.Add(1)
		d.logger.Warn("alert queue full, dropping alert", "kind", event.kind())
	}
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case event := <-d.ch:
			d.deliver(event)
		case <-d.done:
			for {
				select {
				case event := <-d.ch:
					d.deliver(event)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) deliver(event deliverable) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	if err := event.deliver(ctx, d.client); err != nil {
		d.logger.Warn("failed to deliver alert", "kind", event.kind(), "error", err)
		return
	}
	d.logger.Debug("delivered alert", "kind", event.kind())
}

// Close stops accepting new alerts, attempts delivery of everything
// already queued, and waits for the delivery goroutine to exit.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.done)
		d.wg.Wait()
	})
}

// Dropped returns how many alerts were discarded because the queue was
// full.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
