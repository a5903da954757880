// Package locator resolves logical frame numbers of one video stream into
// decoded pictures and hands them to an image exporter.
//
// A Locator runs one request at a time through the states
// Idle, Planning, Seeking, Decoding and then Matched or Failed, and returns to
// Idle before the next request.
package locator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/user/framegrab/pkg/decodecursor"
	"github.com/user/framegrab/pkg/frameindex"
	"github.com/user/framegrab/pkg/ports"
	"github.com/user/framegrab/pkg/seekplanner"
)

// ErrBusy is returned when Locate is called while a request is in flight.
var ErrBusy = errors.New("locator: request already in progress")

// Request asks for one logical frame.
type Request struct {
	// ID correlates logs, spans and results; generated when empty.
	ID    string
	Frame int
	// Formats lists the image encodings to export; nothing is exported when empty.
	Formats []ports.ImageFormat
}

// Result is the terminal outcome of a request.
type Result struct {
	RequestID string
	Frame     int
	State     State
	Kind      ports.ErrorKind
	Err       error

	Ordinal     int
	Timestamp   int64
	Approximate bool
	Images      []ports.ExportedImage

	Stats    decodecursor.Stats
	Duration time.Duration
}

// Observer is notified of state transitions and terminal results.
type Observer interface {
	Transition(from, to State)
	Completed(res Result)
}

// Options configures a Locator.
type Options struct {
	Strategy   seekplanner.Mode
	MaxPackets int
	Logger     ports.Logger
	Observer   Observer
	// Tracer defaults to the global provider's tracer.
	Tracer trace.Tracer
}

// Locator finds frames in the primary video stream of a container.
type Locator struct {
	stream   ports.Stream
	index    *frameindex.Index
	planner  seekplanner.Strategy
	cursor   *decodecursor.Cursor
	exporter ports.ImageExporter

	logger   ports.Logger
	observer Observer
	tracer   trace.Tracer

	state State
}

// New builds a Locator over the container's primary video stream. The container,
// decoder and exporter remain owned by the caller.
func New(container ports.Container, decoder ports.Decoder, exporter ports.ImageExporter, opts Options) (*Locator, error) {
	stream, err := container.SelectVideoStream()
	if err != nil {
		return nil, err
	}

	idx := frameindex.New(container.Index(stream.ID))
	planner, err := seekplanner.New(opts.Strategy, idx, stream)
	if err != nil {
		return nil, err
	}

	l := &Locator{
		stream:   stream,
		index:    idx,
		planner:  planner,
		exporter: exporter,
		observer: opts.Observer,
		tracer:   opts.Tracer,
	}
	if opts.Logger != nil {
		l.logger = opts.Logger.WithComponent("locator")
	}
	if l.tracer == nil {
		l.tracer = otel.Tracer("github.com/user/framegrab/pkg/locator")
	}
	l.cursor = decodecursor.New(container, decoder, stream.ID, decodecursor.Options{
		MaxPackets: opts.MaxPackets,
		Logger:     opts.Logger,
	})

	l.debug("stream %d (%s %dx%d), %d index entries, %s strategy",
		stream.ID, stream.Codec, stream.Width, stream.Height, idx.Len(), planner.Mode())
	return l, nil
}

// Stream returns the located stream.
func (l *Locator) Stream() ports.Stream {
	return l.stream
}

// Index returns the stream's frame index.
func (l *Locator) Index() *frameindex.Index {
	return l.index
}

// Mode returns the addressing strategy in use.
func (l *Locator) Mode() seekplanner.Mode {
	return l.planner.Mode()
}

// State returns the current state; Idle between requests.
func (l *Locator) State() State {
	return l.state
}

// Locate runs one request to a terminal state. The returned error is Result.Err.
func (l *Locator) Locate(ctx context.Context, req Request) (Result, error) {
	if l.state != StateIdle {
		return Result{Frame: req.Frame, State: StateFailed, Err: ErrBusy}, ErrBusy
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	start := time.Now()
	ctx, span := l.tracer.Start(ctx, "locator.Locate", trace.WithAttributes(
		attribute.String("request.id", req.ID),
		attribute.Int("frame.requested", req.Frame),
		attribute.String("seek.strategy", string(l.planner.Mode())),
	))
	defer span.End()

	res := l.run(ctx, req)
	res.RequestID = req.ID
	res.Frame = req.Frame
	res.Stats = l.cursor.Stats()
	res.Duration = time.Since(start)

	if res.Err != nil {
		res.State = StateFailed
		res.Kind = ports.KindOf(res.Err)
		span.RecordError(res.Err)
		span.SetStatus(codes.Error, res.Kind.String())
		l.transition(StateFailed)
	} else {
		res.State = StateMatched
		span.SetAttributes(
			attribute.Int("frame.ordinal", res.Ordinal),
			attribute.Int64("frame.timestamp", res.Timestamp),
		)
	}

	if l.observer != nil {
		l.observer.Completed(res)
	}
	l.transition(StateIdle)
	return res, res.Err
}

func (l *Locator) run(ctx context.Context, req Request) Result {
	var res Result

	l.transition(StatePlanning)
	_, span := l.tracer.Start(ctx, "locator.plan")
	plan, err := l.planner.Plan(seekplanner.Request{Frame: req.Frame})
	endSpan(span, err)
	if err != nil {
		res.Err = err
		return res
	}
	res.Approximate = plan.Approximate
	if plan.Approximate {
		l.warn("frame %d: timestamp %d is estimated from the frame rate", req.Frame, plan.TargetTimestamp)
	}
	l.debug("frame %d: target ts %d, seek to ordinal %d (ts %d)",
		req.Frame, plan.TargetTimestamp, plan.Seek.Ordinal, plan.Seek.Timestamp)

	l.transition(StateSeeking)
	_, span = l.tracer.Start(ctx, "locator.seek", trace.WithAttributes(
		attribute.Int("seek.ordinal", plan.Seek.Ordinal),
		attribute.Int64("seek.timestamp", plan.Seek.Timestamp),
	))
	err = l.cursor.OpenAt(plan.Seek)
	endSpan(span, err)
	if err != nil {
		res.Err = err
		return res
	}

	l.transition(StateDecoding)
	_, span = l.tracer.Start(ctx, "locator.decode", trace.WithAttributes(
		attribute.Int64("target.timestamp", plan.TargetTimestamp),
	))
	m, err := l.cursor.AdvanceToTimestamp(plan.TargetTimestamp)
	endSpan(span, err)
	if err != nil {
		res.Err = err
		return res
	}

	l.transition(StateMatched)
	res.Ordinal = m.Ordinal
	res.Timestamp = m.Frame.Timestamp()

	for _, format := range req.Formats {
		name := fmt.Sprintf("frame_%04d.%s", req.Frame, format.Extension())
		ectx, span := l.tracer.Start(ctx, "locator.export", trace.WithAttributes(
			attribute.String("image.format", format.String()),
		))
		img, err := l.exporter.Export(ectx, m.Frame, format, name)
		if err != nil && ports.KindOf(err) == ports.KindUnknown {
			err = ports.WrapError(ports.KindEncodeFailed, "export", fmt.Errorf("%s: %w", name, err))
		}
		endSpan(span, err)
		if err != nil {
			l.discard(ctx, res.Images)
			res.Images = nil
			res.Err = err
			return res
		}
		res.Images = append(res.Images, img)
	}

	return res
}

// discard removes the images of a request that failed in a later format, so a
// failed request leaves no output behind.
func (l *Locator) discard(ctx context.Context, images []ports.ExportedImage) {
	for _, img := range images {
		if err := l.exporter.Discard(ctx, img.Name); err != nil {
			l.warn("could not remove %s: %v", img.Location, err)
		}
	}
}

func (l *Locator) transition(to State) {
	from := l.state
	if !canTransition(from, to) {
		panic(fmt.Sprintf("locator: illegal transition %s -> %s", from, to))
	}
	l.state = to
	if l.observer != nil {
		l.observer.Transition(from, to)
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, ports.KindOf(err).String())
	}
	span.End()
}

func (l *Locator) debug(format string, args ...interface{}) {
	if l.logger != nil {
		l.logger.Debug(format, args...)
	}
}

func (l *Locator) warn(format string, args ...interface{}) {
	if l.logger != nil {
		l.logger.Warn(format, args...)
	}
}
