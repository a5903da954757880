// Package imageexport implements ports.ImageExporter. Frames are optionally
// scaled and stamped, encoded in memory and handed to a ports.FrameSink, so a
// failed encode never leaves anything behind.
package imageexport

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/user/framegrab/pkg/ports"
)

// Options configures an Exporter.
type Options struct {
	// Quality is the JPEG quality (1-100).
	Quality int
	// Width scales frames to this width keeping the aspect ratio; zero keeps the size.
	Width int
	// Stamp draws the frame name and timestamp at the bottom of the image.
	Stamp      bool
	StampStyle ports.StampStyle
	// Renderer performs scaling and stamping; both are skipped when nil.
	Renderer ports.Renderer
	Logger   ports.Logger
}

// Exporter encodes decoded frames and stores them in a sink.
type Exporter struct {
	sink   ports.FrameSink
	opts   Options
	logger ports.Logger
}

// New creates an Exporter writing to sink.
func New(sink ports.FrameSink, opts Options) *Exporter {
	e := &Exporter{sink: sink, opts: opts}
	if opts.Logger != nil {
		e.logger = opts.Logger.WithComponent("imageexport")
	}
	if e.opts.StampStyle.FontSize == 0 {
		e.opts.StampStyle.FontSize = 14
	}
	if e.opts.StampStyle.Color == nil {
		e.opts.StampStyle.Color = color.White
	}
	if e.opts.StampStyle.Background == nil {
		e.opts.StampStyle.Background = color.RGBA{A: 160}
	}
	return e
}

// Export encodes frame and stores it under name.
func (e *Exporter) Export(ctx context.Context, frame *ports.DecodedFrame, format ports.ImageFormat, name string) (ports.ExportedImage, error) {
	if err := ctx.Err(); err != nil {
		return ports.ExportedImage{}, ports.WrapError(ports.KindEncodeFailed, "export", err)
	}
	if frame == nil || frame.Image == nil {
		return ports.ExportedImage{}, ports.NewError(ports.KindEncodeFailed, "export", "%s: frame has no pixels", name)
	}

	img := e.prepare(frame, name)
	data, err := Encode(img, format, e.opts.Quality)
	if err != nil {
		return ports.ExportedImage{}, ports.WrapError(ports.KindEncodeFailed, "export", fmt.Errorf("%s: %w", name, err))
	}
	if err := e.sink.Put(ctx, name, data); err != nil {
		return ports.ExportedImage{}, ports.WrapError(ports.KindEncodeFailed, "export", fmt.Errorf("store %s: %w", name, err))
	}

	location := e.sink.Location(name)
	if e.logger != nil {
		e.logger.Debug("wrote %s (%d bytes)", location, len(data))
	}
	return ports.ExportedImage{
		Name:     name,
		Location: location,
		Format:   format,
		Size:     len(data),
	}, nil
}

// Discard removes a stored image from the sink.
func (e *Exporter) Discard(ctx context.Context, name string) error {
	if err := e.sink.Remove(ctx, name); err != nil {
		return fmt.Errorf("discard %s: %w", name, err)
	}
	if e.logger != nil {
		e.logger.Debug("discarded %s", e.sink.Location(name))
	}
	return nil
}

func (e *Exporter) prepare(frame *ports.DecodedFrame, name string) image.Image {
	img := frame.Image
	if e.opts.Renderer == nil {
		return img
	}

	if e.opts.Width > 0 {
		b := img.Bounds()
		if b.Dx() > 0 && b.Dx() != e.opts.Width {
			height := b.Dy() * e.opts.Width / b.Dx()
			if height < 1 {
				height = 1
			}
			img = e.opts.Renderer.ResizeImage(img, e.opts.Width, height)
		}
	}

	if e.opts.Stamp {
		text := strings.TrimSuffix(name, "."+extension(name))
		if ts := frame.Timestamp(); ts != ports.NoTimestamp {
			text = fmt.Sprintf("%s  pts %d", text, ts)
		}
		img = e.opts.Renderer.Stamp(img, text, e.opts.StampStyle)
	}
	return img
}

func extension(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}
	return ""
}

var _ ports.ImageExporter = (*Exporter)(nil)
