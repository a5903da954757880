// Package orchestrator runs frame extraction jobs over one container: it
// opens the container and decoder, drives a locator through the requested
// frames and reports the outcome for summary generation.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ideamans/go-l10n"
	"github.com/user/framegrab/pkg/frameindex"
	"github.com/user/framegrab/pkg/locator"
	"github.com/user/framegrab/pkg/ports"
	"github.com/user/framegrab/pkg/seekplanner"
)

var (
	// ErrNoFrames is returned when a run requests no frames.
	ErrNoFrames = errors.New("orchestrator: no frames requested")

	// ErrFramesFailed is returned after a run that continued past failed frames.
	ErrFramesFailed = errors.New("orchestrator: one or more frames failed")
)

// Config contains all configuration for an extraction run.
type Config struct {
	Input   string
	Frames  []int
	Formats []ports.ImageFormat

	Strategy   seekplanner.Mode
	MaxPackets int

	// ContinueOnError keeps extracting after a failed frame.
	ContinueOnError bool
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Formats:  []ports.ImageFormat{ports.FormatPPM},
		Strategy: seekplanner.ModeAuto,
	}
}

// Orchestrator coordinates the codec engine, the locator and the exporter.
type Orchestrator struct {
	engine   ports.CodecEngine
	exporter ports.ImageExporter
	observer locator.Observer
	logger   ports.Logger
}

// New creates a new Orchestrator. observer may be nil.
func New(engine ports.CodecEngine, exporter ports.ImageExporter, observer locator.Observer, logger ports.Logger) *Orchestrator {
	return &Orchestrator{
		engine:   engine,
		exporter: exporter,
		observer: observer,
		logger:   logger,
	}
}

// RunResult contains the results of an extraction run for summary generation.
type RunResult struct {
	Input        string
	Stream       ports.Stream
	Strategy     seekplanner.Mode
	IndexEntries int

	Frames    []locator.Result
	Succeeded int
	Failed    int

	TotalDurationMs int
}

// Images returns every image written during the run.
func (r RunResult) Images() []ports.ExportedImage {
	var images []ports.ExportedImage
	for _, f := range r.Frames {
		images = append(images, f.Images...)
	}
	return images
}

// Run extracts the configured frames in order. Cancellation is honoured
// between frames.
func (o *Orchestrator) Run(ctx context.Context, config Config) (RunResult, error) {
	result := RunResult{Input: config.Input}
	if len(config.Frames) == 0 {
		return result, ErrNoFrames
	}
	start := time.Now()

	o.logger.Info(l10n.F("Opening %s", config.Input))
	s, err := o.open(config.Input)
	if err != nil {
		return result, err
	}
	defer s.close()

	loc, err := locator.New(s.container, s.decoder, o.exporter, locator.Options{
		Strategy:   config.Strategy,
		MaxPackets: config.MaxPackets,
		Logger:     o.logger,
		Observer:   o.observer,
	})
	if err != nil {
		return result, fmt.Errorf("create locator: %w", err)
	}
	result.Stream = loc.Stream()
	result.Strategy = loc.Mode()
	result.IndexEntries = loc.Index().Len()

	o.logger.Info(l10n.F("Extracting %d frames from %s", len(config.Frames), config.Input))
	var firstErr error
	for _, frame := range config.Frames {
		if err := ctx.Err(); err != nil {
			o.logger.Warn(l10n.T("Interrupted, shutting down..."))
			result.TotalDurationMs = int(time.Since(start).Milliseconds())
			return result, err
		}

		res, err := loc.Locate(ctx, locator.Request{Frame: frame, Formats: config.Formats})
		result.Frames = append(result.Frames, res)
		if err != nil {
			result.Failed++
			o.logger.Error(l10n.F("Frame %d failed: %v", frame, err))
			if !config.ContinueOnError {
				result.TotalDurationMs = int(time.Since(start).Milliseconds())
				return result, err
			}
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		result.Succeeded++
		for _, img := range res.Images {
			o.logger.Info(l10n.F("Frame %d saved to %s", frame, img.Location))
		}
	}

	result.TotalDurationMs = int(time.Since(start).Milliseconds())
	o.logger.Info(l10n.F("Extracted %d of %d frames in %d ms", result.Succeeded, len(config.Frames), result.TotalDurationMs))

	if firstErr != nil {
		return result, fmt.Errorf("%w: %d of %d, first: %v", ErrFramesFailed, result.Failed, len(config.Frames), firstErr)
	}
	return result, nil
}

// Keyframe is one keyframe packet of the video stream.
type Keyframe struct {
	// Position is the byte offset of the packet in the container.
	Position int64
	PTS      int64
	// Packet is the packet's ordinal among the stream's packets in container order.
	Packet int
}

// KeyframeReport lists the keyframes of a container's video stream.
type KeyframeReport struct {
	Stream    ports.Stream
	Packets   int
	Keyframes []Keyframe
}

// ListKeyframes reads the video stream from the start and reports every
// keyframe packet.
func (o *Orchestrator) ListKeyframes(ctx context.Context, input string) (KeyframeReport, error) {
	var report KeyframeReport

	c, err := o.engine.OpenContainer(input)
	if err != nil {
		return report, err
	}
	defer c.Close()

	stream, err := c.SelectVideoStream()
	if err != nil {
		return report, err
	}
	report.Stream = stream

	for {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		pkt, err := c.ReadNextPacket()
		if errors.Is(err, ports.ErrEndOfStream) {
			break
		}
		if err != nil {
			return report, ports.WrapError(ports.KindDecodeError, "read", err)
		}
		if pkt.StreamID != stream.ID {
			continue
		}
		if pkt.Keyframe {
			report.Keyframes = append(report.Keyframes, Keyframe{
				Position: pkt.Pos,
				PTS:      pkt.PTS,
				Packet:   report.Packets,
			})
		}
		report.Packets++
	}

	o.logger.Info(l10n.F("Found %d keyframes in %d frames", len(report.Keyframes), report.Packets))
	return report, nil
}

// IndexReport summarizes a container and the index of its video stream.
type IndexReport struct {
	Streams   []ports.Stream
	Video     ports.Stream
	Entries   int
	Keyframes int

	FirstTimestamp int64
	LastTimestamp  int64
	FrameDuration  int64

	// Strategy is the addressing strategy auto mode resolves to; empty when
	// the stream can be addressed neither way.
	Strategy seekplanner.Mode
}

// Describe reports the streams and video index of input without decoding.
func (o *Orchestrator) Describe(input string) (IndexReport, error) {
	var report IndexReport

	c, err := o.engine.OpenContainer(input)
	if err != nil {
		return report, err
	}
	defer c.Close()

	report.Streams = c.Streams()
	video, err := c.SelectVideoStream()
	if err != nil {
		return report, err
	}
	report.Video = video
	report.FrameDuration = video.FrameDuration()

	idx := frameindex.New(c.Index(video.ID))
	report.Entries = idx.Len()
	report.Keyframes = len(idx.Keyframes())
	if idx.Len() > 0 {
		first, _ := idx.EntryAt(0)
		last, _ := idx.EntryAt(idx.Len() - 1)
		report.FirstTimestamp = first.Timestamp
		report.LastTimestamp = last.Timestamp
	}
	if planner, err := seekplanner.New(seekplanner.ModeAuto, idx, video); err == nil {
		report.Strategy = planner.Mode()
	}
	return report, nil
}

type session struct {
	container ports.Container
	decoder   ports.Decoder
}

func (o *Orchestrator) open(input string) (*session, error) {
	c, err := o.engine.OpenContainer(input)
	if err != nil {
		return nil, err
	}
	stream, err := c.SelectVideoStream()
	if err != nil {
		c.Close()
		return nil, err
	}
	d, err := o.engine.NewDecoder(c, stream)
	if err != nil {
		c.Close()
		return nil, err
	}
	return &session{container: c, decoder: d}, nil
}

func (s *session) close() {
	s.decoder.Close()
	s.container.Close()
}
