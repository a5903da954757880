// Package summarizer provides summary generation for extraction runs.
package summarizer

import "time"

// Summary contains all data collected during an extraction run.
type Summary struct {
	// Metadata
	GeneratedAt time.Time

	// Source container and selected stream
	Input InputInfo

	// Extraction settings
	Settings Settings

	// Per-frame outcomes in request order
	Frames []FrameInfo

	// Aggregates over Frames
	Totals Totals
}

// InputInfo describes the source container.
type InputInfo struct {
	Path      string
	StreamID  int
	Codec     string
	Width     int
	Height    int
	TimeBase  string
	FrameRate string
	// IndexEntries is zero for streams without a usable index.
	IndexEntries int
}

// Settings contains the extraction configuration.
type Settings struct {
	Strategy   string
	Formats    []string
	Quality    int
	Width      int
	Stamp      bool
	MaxPackets int
	Output     string
}

// FrameInfo is the outcome of one frame request.
type FrameInfo struct {
	Requested   int
	Ordinal     int
	Timestamp   int64
	Approximate bool

	// Failed requests carry the error kind and message.
	Failed bool
	Kind   string
	Error  string

	Images []ImageInfo

	PacketsRead   int
	FramesDecoded int
	DurationMs    int
}

// ImageInfo is one written image.
type ImageInfo struct {
	Location string
	Format   string
	Size     int
}

// Totals aggregates a run.
type Totals struct {
	Succeeded       int
	Failed          int
	Bytes           int64
	TotalDurationMs int
}

// NewSummary creates a new Summary with the current timestamp.
func NewSummary() *Summary {
	return &Summary{
		GeneratedAt: time.Now(),
	}
}

// Builder provides a fluent interface for building a Summary.
type Builder struct {
	summary *Summary
}

// NewBuilder creates a new Builder.
func NewBuilder() *Builder {
	return &Builder{
		summary: NewSummary(),
	}
}

// WithInput sets source information.
func (b *Builder) WithInput(input InputInfo) *Builder {
	b.summary.Input = input
	return b
}

// WithSettings sets extraction settings.
func (b *Builder) WithSettings(settings Settings) *Builder {
	b.summary.Settings = settings
	return b
}

// AddFrame appends a frame outcome and updates the totals.
func (b *Builder) AddFrame(frame FrameInfo) *Builder {
	b.summary.Frames = append(b.summary.Frames, frame)
	if frame.Failed {
		b.summary.Totals.Failed++
	} else {
		b.summary.Totals.Succeeded++
	}
	for _, img := range frame.Images {
		b.summary.Totals.Bytes += int64(img.Size)
	}
	return b
}

// WithDuration sets the wall time of the run.
func (b *Builder) WithDuration(totalDurationMs int) *Builder {
	b.summary.Totals.TotalDurationMs = totalDurationMs
	return b
}

// Build returns the constructed Summary.
func (b *Builder) Build() *Summary {
	return b.summary
}
