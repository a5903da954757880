package mocks

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/user/framegrab/pkg/ports"
)

// ImageExporter is a mock implementation of ports.ImageExporter.
type ImageExporter struct {
	ExportFunc  func(ctx context.Context, frame *ports.DecodedFrame, format ports.ImageFormat, name string) (ports.ExportedImage, error)
	DiscardFunc func(ctx context.Context, name string) error

	// Recorded calls for verification
	ExportCalls  []ExportCall
	DiscardCalls []string
}

// ExportCall records a call to Export.
type ExportCall struct {
	Name   string
	Format ports.ImageFormat
	PTS    int64
}

func (m *ImageExporter) Export(ctx context.Context, frame *ports.DecodedFrame, format ports.ImageFormat, name string) (ports.ExportedImage, error) {
	m.ExportCalls = append(m.ExportCalls, ExportCall{Name: name, Format: format, PTS: frame.PTS})
	if m.ExportFunc != nil {
		return m.ExportFunc(ctx, frame, format, name)
	}
	return ports.ExportedImage{Name: name, Location: "mem://" + name, Format: format, Size: frame.Width * frame.Height * 3}, nil
}

func (m *ImageExporter) Discard(ctx context.Context, name string) error {
	m.DiscardCalls = append(m.DiscardCalls, name)
	if m.DiscardFunc != nil {
		return m.DiscardFunc(ctx, name)
	}
	return nil
}

var _ ports.ImageExporter = (*ImageExporter)(nil)

// FrameSink is a mock implementation of ports.FrameSink that keeps objects in memory.
type FrameSink struct {
	mu      sync.RWMutex
	objects map[string][]byte

	PutFunc func(ctx context.Context, name string, data []byte) error
}

// NewFrameSink creates a new mock FrameSink.
func NewFrameSink() *FrameSink {
	return &FrameSink{objects: make(map[string][]byte)}
}

func (m *FrameSink) Put(ctx context.Context, name string, data []byte) error {
	if m.PutFunc != nil {
		if err := m.PutFunc(ctx, name, data); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[name] = data
	return nil
}

func (m *FrameSink) Remove(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, name)
	return nil
}

func (m *FrameSink) Location(name string) string {
	return fmt.Sprintf("mem://%s", name)
}

// Get returns a stored object (for test verification).
func (m *FrameSink) Get(name string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[name]
	return data, ok
}

// Len returns the number of stored objects (for test verification).
func (m *FrameSink) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}

var _ ports.FrameSink = (*FrameSink)(nil)

// Renderer is a mock implementation of ports.Renderer.
type Renderer struct {
	ResizeImageFunc func(img image.Image, width, height int) image.Image
	StampFunc       func(img image.Image, text string, style ports.StampStyle) image.Image

	// Recorded calls for verification
	Stamps []string
}

func (m *Renderer) ResizeImage(img image.Image, width, height int) image.Image {
	if m.ResizeImageFunc != nil {
		return m.ResizeImageFunc(img, width, height)
	}
	return image.NewRGBA(image.Rect(0, 0, width, height))
}

func (m *Renderer) Stamp(img image.Image, text string, style ports.StampStyle) image.Image {
	m.Stamps = append(m.Stamps, text)
	if m.StampFunc != nil {
		return m.StampFunc(img, text, style)
	}
	out := image.NewRGBA(img.Bounds())
	out.Set(0, 0, color.White)
	return out
}

var _ ports.Renderer = (*Renderer)(nil)
