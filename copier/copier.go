// Package copier is the top-level orchestrator sequencing capture,
// adjustment, composition and printing into complete copy operations.
package copier

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mfpkit/copyflow/config"
	"github.com/mfpkit/copyflow/core"
	apperrors "github.com/mfpkit/copyflow/errors"
)

// Copier runs one operation at a time against a capture device and a print
// sink.  A new operation submitted while one is active is rejected with
// ErrBusy rather than queued.
type Copier struct {
	cfg      config.Config
	device   core.CaptureDevice
	sink     core.PrintSink
	renderer core.DocumentRenderer
	encoder  core.PageEncoder
	storage  core.StorageAdapter
	thumbs   core.Thumbnailer
	logger   core.Logger
	hooks    []core.Hook

	events *dispatcher

	mu          sync.Mutex
	active      bool
	state       core.State
	opID        string
	lastPercent int

	flipCh chan struct{}
}

// New creates a Copier.  Call Start before submitting operations and Stop
// when done.
func New(cfg config.Config, device core.CaptureDevice, sink core.PrintSink) (*Copier, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryConfig, "copier.new", err)
	}
	if device == nil {
		return nil, apperrors.New(apperrors.CategoryCapture, "copier.new",
			apperrors.NewCaptureError(apperrors.DeviceNotFound, nil))
	}
	if sink == nil {
		return nil, apperrors.New(apperrors.CategoryPrint, "copier.new", apperrors.ErrSinkUnavailable)
	}
	return &Copier{
		cfg:    cfg,
		device: device,
		sink:   sink,
		state:  core.StateIdle,
		events: newDispatcher(cfg.EventQueueSize),
		flipCh: make(chan struct{}, 1),
	}, nil
}

// SetLogger attaches a structured logger.
func (c *Copier) SetLogger(l core.Logger) { c.logger = l }

// SetRenderer attaches the external document renderer used by PrintFile.
func (c *Copier) SetRenderer(r core.DocumentRenderer) { c.renderer = r }

// SetStorage attaches the encoder and storage used by scan-to-storage jobs.
func (c *Copier) SetStorage(enc core.PageEncoder, store core.StorageAdapter) {
	c.encoder = enc
	c.storage = store
}

// SetThumbnailer attaches an optional preview generator for scan jobs.
func (c *Copier) SetThumbnailer(t core.Thumbnailer) { c.thumbs = t }

// AddHook registers a stage observer.
func (c *Copier) AddHook(h core.Hook) { c.hooks = append(c.hooks, h) }

// Subscribe registers a progress observer.  Delivery order matches emission
// order and the emitting worker never blocks on fn.
func (c *Copier) Subscribe(fn core.ProgressFunc) { c.events.subscribe(fn) }

// Start launches the progress delivery goroutine.  It is idempotent.
func (c *Copier) Start() { c.events.start() }

// Stop drains pending progress events and shuts the dispatcher down.
func (c *Copier) Stop() { c.events.stop() }

// State returns the current operation state.
func (c *Copier) State() core.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Busy reports whether an operation is currently running.
func (c *Copier) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// ConfirmFlip acknowledges the AwaitFlip suspension point of an ID-copy
// operation: the operator has turned the document over.
func (c *Copier) ConfirmFlip() {
	select {
	case c.flipCh <- struct{}{}:
	default:
	}
}

// ── operation lifecycle ───────────────────────────────────────────────────────

// begin claims the single worker slot.  It fails with ErrBusy while another
// operation is active.
func (c *Copier) begin() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active {
		return "", apperrors.New(apperrors.CategoryConfig, "copier.begin", apperrors.ErrBusy)
	}
	c.active = true
	c.state = core.StateIdle
	c.opID = uuid.NewString()
	c.lastPercent = 0
	// Drop a stale acknowledgment left over from an aborted ID copy.
	select {
	case <-c.flipCh:
	default:
	}
	return c.opID, nil
}

// finish transitions to the terminal state and always emits percent 100.
func (c *Copier) finish(err error, doneMsg string) {
	if err != nil {
		c.setState(core.StateFailed, "Error: "+err.Error(), 100)
		if c.logger != nil {
			c.logger.Error("operation.failed", "op", c.opID, "error", err.Error())
		}
	} else {
		c.setState(core.StateDone, doneMsg, 100)
	}
	c.mu.Lock()
	c.active = false
	c.mu.Unlock()
}

// setState performs a state transition, emitting exactly one progress event.
func (c *Copier) setState(s core.State, message string, percent int) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
	c.emit(percent, message)
}

// emit publishes a progress event, clamped so percent never regresses within
// one operation.
func (c *Copier) emit(percent int, message string) {
	c.mu.Lock()
	if percent < c.lastPercent {
		percent = c.lastPercent
	}
	if percent > 100 {
		percent = 100
	}
	c.lastPercent = percent
	c.mu.Unlock()
	c.events.publish(core.ProgressEvent{Percent: percent, Message: message})
}

// runStage wraps one pipeline stage with hook notifications.
func (c *Copier) runStage(ctx context.Context, stage string, pages int, fn func() error) error {
	for _, h := range c.hooks {
		h.BeforeStage(ctx, stage, pages)
	}
	start := time.Now()
	err := fn()
	elapsed := time.Since(start)
	for _, h := range c.hooks {
		h.AfterStage(ctx, stage, pages, elapsed, err)
	}
	return err
}

// awaitFlip blocks the worker until ConfirmFlip is called.
func (c *Copier) awaitFlip(ctx context.Context) error {
	select {
	case <-c.flipCh:
		return nil
	case <-ctx.Done():
		return apperrors.Wrap(apperrors.CategoryCapture, "copier.await_flip", ctx.Err())
	}
}
