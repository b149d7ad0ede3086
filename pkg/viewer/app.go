// Package viewer wires the viewer components together and runs the event
// loop that owns every piece of session state.
//
// All state changes happen on the goroutine running App.Run. Work that
// blocks (folder ingestion, slice decoding) runs elsewhere and hands its
// result back with Post; the HTTP layer reaches the loop through Do and
// Push.
package viewer

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"mriviewer/pkg/dicomio"
	"mriviewer/pkg/interaction"
	"mriviewer/pkg/measurement"
	"mriviewer/pkg/navigator"
	"mriviewer/pkg/series"
	"mriviewer/pkg/state"
	"mriviewer/pkg/viewcontrol"
	"mriviewer/pkg/visualization"
)

// ErrStopped is returned when the event loop is not running any more
var ErrStopped = errors.New("viewer stopped")

// ErrSuperseded is returned by an open that finished after a newer one
// started; its result is discarded
var ErrSuperseded = errors.New("superseded by a newer open")

// Decoder parses DICOM files for ingestion and display
type Decoder interface {
	dicomio.Decoder
	visualization.FrameDecoder
}

// Options configures an App
type Options struct {
	// CanvasWidth and CanvasHeight are the display size in pixels
	CanvasWidth  int
	CanvasHeight int

	// Background is the hex fill colour around the image
	Background string

	// Workers bounds parallel parsing during folder ingestion
	Workers int

	// Extension selects the files picked up from a folder
	Extension string

	View viewcontrol.Settings

	// Decoder defaults to the DICOM file decoder
	Decoder Decoder

	// Source feeds input events; a queue is created when nil
	Source interaction.Source

	Logger *slog.Logger

	// Now defaults to time.Now; used for export filenames
	Now func() time.Time
}

// App is one viewer session
type App struct {
	state   *state.State
	canvas  *visualization.Canvas
	index   *series.Index
	nav     *navigator.Navigator
	measure *measurement.Engine
	view    *viewcontrol.Controller
	ctrl    *interaction.Controller

	decoder Decoder
	source  interaction.Source
	queue   *interaction.Queue

	workers   int
	extension string
	logger    *slog.Logger
	now       func() time.Time

	tasks   chan func()
	stopped chan struct{}

	panel   panel
	loading bool
	openGen uint64
	alerts  []string
}

// New builds a session from opts
func New(opts Options) *App {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.CanvasWidth <= 0 {
		opts.CanvasWidth = 512
	}
	if opts.CanvasHeight <= 0 {
		opts.CanvasHeight = 512
	}
	if opts.Decoder == nil {
		opts.Decoder = dicomio.NewFileDecoder()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	a := &App{
		state:     state.New(),
		canvas:    visualization.NewCanvas(opts.CanvasWidth, opts.CanvasHeight),
		decoder:   opts.Decoder,
		source:    opts.Source,
		workers:   opts.Workers,
		extension: opts.Extension,
		logger:    logger,
		now:       opts.Now,
		tasks:     make(chan func(), 64),
		stopped:   make(chan struct{}),
	}
	if opts.Background != "" {
		a.canvas.SetBackground(opts.Background)
	}
	if a.source == nil {
		a.queue = interaction.NewQueue(256)
		a.source = a.queue
	}

	a.measure = measurement.NewEngine(a.state, a.canvas, logger.With("component", "measurement"))
	a.view = viewcontrol.New(a.state, a.canvas, a.measure, opts.View)
	a.nav = navigator.New(a.state, nil, visualization.NewFileLoader(a.decoder), a.canvas, a, navigator.Options{
		Sink:         a,
		Measurements: a.measure,
		Notifier:     a,
		Logger:       logger.With("component", "navigator"),
	})
	a.ctrl = interaction.NewController(a.state, a.nav, a.measure, a.view, a.canvas, logger.With("component", "interaction"))
	return a
}

// Run processes events and posted work until ctx is done
func (a *App) Run(ctx context.Context) error {
	defer close(a.stopped)
	events := a.source.Events()
	a.logger.Info("viewer started")

	for {
		select {
		case <-ctx.Done():
			if a.queue != nil {
				a.queue.Close()
			}
			a.logger.Info("viewer stopped")
			return ctx.Err()
		case ev := <-events:
			a.handle(ev)
		case fn := <-a.tasks:
			// input that arrived before the task is applied first
			a.drain(events)
			fn()
		}
	}
}

func (a *App) handle(ev interaction.Event) {
	if err := a.ctrl.Handle(ev); err != nil {
		a.logger.Warn("event rejected", "type", ev.Type, "control", ev.Control, "error", err)
	}
}

func (a *App) drain(events <-chan interaction.Event) {
	for {
		select {
		case ev := <-events:
			a.handle(ev)
		default:
			return
		}
	}
}

// Post schedules fn on the event loop. It is dropped once the loop stopped.
func (a *App) Post(fn func()) {
	select {
	case a.tasks <- fn:
	case <-a.stopped:
	}
}

// Do runs fn on the event loop and waits for it to finish
func (a *App) Do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	task := func() {
		defer close(done)
		fn()
	}
	select {
	case a.tasks <- task:
	case <-a.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-a.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Push queues an input event for the loop
func (a *App) Push(ctx context.Context, ev interaction.Event) error {
	if err := ev.Validate(); err != nil {
		return err
	}
	if a.queue == nil {
		return errors.New("events are read from an external source")
	}
	return a.queue.Push(ctx, ev)
}

// Notify records a user-visible alert
func (a *App) Notify(msg string) {
	a.logger.Info("alert", "message", msg)
	a.alerts = append(a.alerts, msg)
}
