package ports

import (
	"errors"
	"fmt"
	"image"
	"math"
)

// NoTimestamp marks a missing timestamp on a packet or decoded frame.
const NoTimestamp int64 = math.MinInt64

var (
	// ErrTryAgain is returned by Decoder.Receive when the decoder needs more input
	// before it can emit a frame. It is a control signal, not a failure.
	ErrTryAgain = errors.New("ports: decoder needs more input")

	// ErrEndOfStream is returned by Container.ReadNextPacket when the container is
	// exhausted and by Decoder.Receive once a flushed decoder has emitted every frame.
	ErrEndOfStream = errors.New("ports: end of stream")
)

// MediaKind identifies the type of an elementary stream.
type MediaKind string

const (
	MediaVideo MediaKind = "video"
	MediaAudio MediaKind = "audio"
	MediaOther MediaKind = "other"
)

// Rational is a fraction such as a stream time base or a frame rate.
type Rational struct {
	Num int64
	Den int64
}

// Valid reports whether the fraction can be used for arithmetic.
func (r Rational) Valid() bool {
	return r.Num > 0 && r.Den > 0
}

// Float64 returns the fraction as a float.
func (r Rational) Float64() float64 {
	if r.Den == 0 {
		return 0
	}
	return float64(r.Num) / float64(r.Den)
}

func (r Rational) String() string {
	return fmt.Sprintf("%d/%d", r.Num, r.Den)
}

// Stream describes one elementary stream inside a container.
type Stream struct {
	ID       int
	Kind     MediaKind
	Codec    string
	TimeBase Rational // seconds per timestamp unit
	Width    int
	Height   int

	// EntryCount is the number of index entries (samples) of the stream.
	EntryCount int
	// Duration in TimeBase units.
	Duration int64
	// NominalFrameRate is frames per second; zero when unknown.
	NominalFrameRate Rational

	// ParameterSets holds out-of-band decoder configuration, e.g. H.264 SPS and
	// PPS NAL units or AV1 configuration OBUs.
	ParameterSets [][]byte
}

// FrameDuration returns the nominal duration of one frame in TimeBase units,
// or zero when either the frame rate or the time base is unknown.
func (s Stream) FrameDuration() int64 {
	if !s.NominalFrameRate.Valid() || !s.TimeBase.Valid() {
		return 0
	}
	// seconds per frame / seconds per tick
	return (s.NominalFrameRate.Den * s.TimeBase.Den) / (s.NominalFrameRate.Num * s.TimeBase.Num)
}

// FrameTimestamp returns the nominal presentation timestamp of a frame number,
// computed in one division so fractional frame durations (24000/1001 fps at a
// 1/1000 time base) do not accumulate truncation error. Zero when the frame rate
// or the time base is unknown.
func (s Stream) FrameTimestamp(frame int) int64 {
	if !s.NominalFrameRate.Valid() || !s.TimeBase.Valid() {
		return 0
	}
	return (int64(frame) * s.NominalFrameRate.Den * s.TimeBase.Den) / (s.NominalFrameRate.Num * s.TimeBase.Num)
}

// IndexEntry is one container-level sample record.
type IndexEntry struct {
	Offset    int64 // byte position of the sample in the container
	Size      int
	Timestamp int64 // presentation timestamp in stream TimeBase units
	Keyframe  bool
}

// Packet is one compressed access unit read from a container.
type Packet struct {
	StreamID int
	DTS      int64
	PTS      int64
	Pos      int64
	Keyframe bool
	Data     []byte
}

// PixelFormat names the memory layout of decoded pixels.
type PixelFormat string

const (
	PixelFormatYUV420P PixelFormat = "yuv420p"
	PixelFormatRGB24   PixelFormat = "rgb24"
	PixelFormatRGBA    PixelFormat = "rgba"
)

// DecodedFrame is one decoded picture.
type DecodedFrame struct {
	Width       int
	Height      int
	PixelFormat PixelFormat

	// PTS is the presentation timestamp reported for the frame, NoTimestamp if unknown.
	PTS int64
	// BestEffortTimestamp is a monotonic estimate, NoTimestamp if the decoder has none.
	BestEffortTimestamp int64

	// Image holds the pixel planes (*image.YCbCr for planar YUV).
	Image image.Image
}

// Timestamp returns the best-effort timestamp when available, otherwise the PTS.
func (f *DecodedFrame) Timestamp() int64 {
	if f.BestEffortTimestamp != NoTimestamp {
		return f.BestEffortTimestamp
	}
	return f.PTS
}

// SeekDirection controls where a container lands relative to the requested timestamp.
type SeekDirection int

const (
	// SeekBackward lands on the last keyframe at or before the timestamp.
	SeekBackward SeekDirection = iota
	// SeekForward lands on the first keyframe at or after the timestamp.
	SeekForward
)

// CodecEngine opens containers and builds decoders for their streams.
type CodecEngine interface {
	// OpenContainer opens the container at path. Fails with KindOpenFailed.
	OpenContainer(path string) (Container, error)

	// NewDecoder creates a decoder for the given stream.
	NewDecoder(c Container, stream Stream) (Decoder, error)
}

// Container is a demultiplexer positioned on a read cursor.
type Container interface {
	// Streams returns every stream of the container.
	Streams() []Stream

	// SelectVideoStream returns the primary video stream. Fails with KindNotFound.
	SelectVideoStream() (Stream, error)

	// Index returns the index entries of a stream sorted by (Timestamp, Offset).
	// An empty slice means the container carries no usable index.
	Index(streamID int) []IndexEntry

	// Seek repositions the read cursor on a keyframe of the stream.
	Seek(streamID int, timestamp int64, dir SeekDirection) error

	// ReadNextPacket returns the next packet in container order, or ErrEndOfStream.
	ReadNextPacket() (*Packet, error)

	// Close releases the container.
	Close() error
}

// Decoder follows the submit/receive model: each submitted packet may yield zero,
// one or several frames, possibly after further packets have been submitted.
type Decoder interface {
	// Submit feeds one packet. A hard failure is reported as an error.
	Submit(pkt *Packet) error

	// Receive returns the next frame, ErrTryAgain or ErrEndOfStream.
	Receive() (*DecodedFrame, error)

	// Flush signals the end of input so buffered frames can be drained with Receive.
	Flush() error

	// Reset discards buffered state so decoding can restart at a keyframe.
	Reset() error

	// Close releases decoder resources.
	Close()
}
