// Package smartdecoder implements ports.CodecEngine. It opens MP4 containers
// and selects a decoder backend from the codec of the requested stream.
package smartdecoder

import (
	"errors"
	"fmt"
	"os"

	"github.com/user/framegrab/pkg/adapters/av1decoder"
	"github.com/user/framegrab/pkg/adapters/codecdetect"
	"github.com/user/framegrab/pkg/adapters/h264decoder"
	"github.com/user/framegrab/pkg/adapters/mp4demux"
	"github.com/user/framegrab/pkg/ports"
)

// Codec represents the video codec type (re-exported from codecdetect).
type Codec = codecdetect.Codec

const (
	CodecH264    = codecdetect.CodecH264
	CodecHEVC    = codecdetect.CodecHEVC
	CodecAV1     = codecdetect.CodecAV1
	CodecUnknown = codecdetect.CodecUnknown
)

// Backend represents the decoding backend used.
type Backend string

const (
	// BackendFFmpeg pipes the elementary stream through an ffmpeg process.
	BackendFFmpeg Backend = "ffmpeg"
	// BackendLibaom represents libaom for AV1 decoding.
	BackendLibaom Backend = "libaom"
)

// Info contains information about the selected decoder.
type Info struct {
	Codec   Codec
	Backend Backend
}

// Options configures the engine.
type Options struct {
	// FFmpegPath is an optional custom path to the ffmpeg binary.
	FFmpegPath string
	Logger     ports.Logger
}

var (
	// ErrUnsupportedCodec is returned when the codec is not supported.
	ErrUnsupportedCodec = errors.New("smartdecoder: unsupported codec")
	// ErrNoDecoderAvailable is returned when no decoder is available for the codec.
	ErrNoDecoderAvailable = errors.New("smartdecoder: no decoder available")
)

// Engine opens containers and builds decoders.
type Engine struct {
	opts   Options
	logger ports.Logger
}

// New creates an engine.
func New(opts Options) *Engine {
	if opts.FFmpegPath != "" {
		h264decoder.SetFFmpegPath(opts.FFmpegPath)
	}
	e := &Engine{opts: opts}
	if opts.Logger != nil {
		e.logger = opts.Logger.WithComponent("smartdecoder")
	}
	return e
}

// OpenContainer opens and indexes the MP4 file at path.
func (e *Engine) OpenContainer(path string) (ports.Container, error) {
	c, err := mp4demux.Open(path, e.opts.Logger)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// NewDecoder creates a decoder for the stream.
//
// The selection flow:
//   - AV1: libaom
//   - H.264 and HEVC: ffmpeg when it can be found
func (e *Engine) NewDecoder(c ports.Container, stream ports.Stream) (ports.Decoder, error) {
	info, err := SelectBackend(Codec(stream.Codec))
	if err != nil {
		return nil, ports.WrapError(ports.KindDecodeError, "decoder", err)
	}
	if e.logger != nil {
		e.logger.Debug("stream %d: %s decoded with %s", stream.ID, info.Codec, info.Backend)
	}

	var dec ports.Decoder
	switch info.Backend {
	case BackendLibaom:
		dec, err = av1decoder.New(e.opts.Logger)
	default:
		dec, err = h264decoder.New(stream, h264decoder.Options{
			FFmpegPath: e.opts.FFmpegPath,
			Logger:     e.opts.Logger,
		})
	}
	if err != nil {
		return nil, ports.WrapError(ports.KindDecodeError, "decoder", err)
	}
	return dec, nil
}

// SelectBackend returns the backend that decodes codec.
func SelectBackend(codec Codec) (Info, error) {
	switch codec {
	case CodecAV1:
		return Info{Codec: codec, Backend: BackendLibaom}, nil
	case CodecH264, CodecHEVC:
		if !h264decoder.IsAvailable() {
			return Info{}, fmt.Errorf("%w: %s needs ffmpeg", ErrNoDecoderAvailable, codec)
		}
		return Info{Codec: codec, Backend: BackendFFmpeg}, nil
	default:
		return Info{}, fmt.Errorf("%w: %s", ErrUnsupportedCodec, codec)
	}
}

// DetectCodec detects the video codec of a file without opening a decoder.
func DetectCodec(path string) (Codec, error) {
	f, err := os.Open(path)
	if err != nil {
		return CodecUnknown, err
	}
	defer f.Close()
	return codecdetect.DetectFromReader(f)
}

// IsH264Available checks if H.264 decoding is available.
func IsH264Available() bool {
	return h264decoder.IsAvailable()
}

// IsAV1Available always returns true (libaom is always linked).
func IsAV1Available() bool {
	return true
}

var _ ports.CodecEngine = (*Engine)(nil)
