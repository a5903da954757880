// Package h264decoder decodes H.264 and HEVC streams with an ffmpeg child
// process that stays open for the whole decode run.
//
// Packets are converted to Annex B and piped to ffmpeg's stdin; ffmpeg writes
// raw rgb24 pictures to stdout in presentation order. ffmpeg does not carry
// timestamps through raw output, so each picture takes the smallest pending
// timestamp of the packets submitted so far.
package h264decoder

import (
	"errors"
	"fmt"
	"image"
	"strconv"

	"github.com/user/framegrab/pkg/adapters/tsqueue"
	"github.com/user/framegrab/pkg/ports"
)

var (
	// ErrDecodeFailed is returned when ffmpeg rejects the stream.
	ErrDecodeFailed = errors.New("h264decoder: decode failed")

	// ErrFFmpegNotFound is returned when ffmpeg is not found.
	ErrFFmpegNotFound = errors.New("h264decoder: ffmpeg not found in PATH")

	// ErrUnsupportedStream is returned for streams ffmpeg cannot be fed as raw Annex B.
	ErrUnsupportedStream = errors.New("h264decoder: unsupported stream")

	// ErrFlushed is returned by Submit after Flush and before Reset.
	ErrFlushed = errors.New("h264decoder: decoder flushed")
)

// Options configures a Decoder.
type Options struct {
	// FFmpegPath overrides ffmpeg discovery for this decoder.
	FFmpegPath string
	Logger     ports.Logger
}

// Decoder implements ports.Decoder on top of ffmpeg.
type Decoder struct {
	ffmpegPath string
	format     string
	width      int
	height     int
	prefix     []byte
	logger     ports.Logger

	proc    *process
	pending tsqueue.Queue
	flushed bool
	// startPTS is the timestamp of the keyframe decoding restarted from;
	// packets presenting earlier are leading pictures and are not fed.
	startPTS int64
	started  bool
}

// New creates a decoder for an H.264 or HEVC video stream. The stream must
// carry its dimensions.
func New(stream ports.Stream, opts Options) (*Decoder, error) {
	var format string
	switch stream.Codec {
	case "h264":
		format = "h264"
	case "hevc":
		format = "hevc"
	default:
		return nil, fmt.Errorf("%w: codec %q", ErrUnsupportedStream, stream.Codec)
	}
	if stream.Width <= 0 || stream.Height <= 0 {
		return nil, fmt.Errorf("%w: unknown dimensions", ErrUnsupportedStream)
	}

	path := opts.FFmpegPath
	if path == "" {
		var err error
		if path, err = FindFFmpeg(); err != nil {
			return nil, err
		}
	}

	d := &Decoder{
		ffmpegPath: path,
		format:     format,
		width:      stream.Width,
		height:     stream.Height,
		prefix:     parameterSetPrefix(stream.ParameterSets),
	}
	if opts.Logger != nil {
		d.logger = opts.Logger.WithComponent("h264decoder")
	}
	return d, nil
}

func (d *Decoder) args() []string {
	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-f", d.format,
		"-i", "pipe:0",
		"-vsync", "passthrough",
		"-s", strconv.Itoa(d.width) + "x" + strconv.Itoa(d.height),
		"-pix_fmt", "rgb24",
		"-f", "rawvideo",
		"pipe:1",
	}
}

// Submit feeds one packet.
func (d *Decoder) Submit(pkt *ports.Packet) error {
	if d.flushed {
		return ErrFlushed
	}

	ts := pkt.PTS
	if ts == ports.NoTimestamp {
		ts = pkt.DTS
	}
	if !d.started {
		if !pkt.Keyframe {
			d.debug("dropping packet at %d before the first keyframe", ts)
			return nil
		}
		d.started = true
		d.startPTS = ts
	} else if ts != ports.NoTimestamp && d.startPTS != ports.NoTimestamp && ts < d.startPTS {
		d.debug("dropping leading picture at %d", ts)
		return nil
	}

	if d.proc == nil {
		proc, err := startProcess(d.ffmpegPath, d.args(), d.width*d.height*3)
		if err != nil {
			return err
		}
		d.proc = proc
		d.debug("started %s %dx%d decoder", d.format, d.width, d.height)
	}

	data := avccToAnnexB(pkt.Data)
	if pkt.Keyframe && len(d.prefix) > 0 {
		data = append(append(make([]byte, 0, len(d.prefix)+len(data)), d.prefix...), data...)
	}
	if err := d.proc.write(data); err != nil {
		return err
	}
	d.pending.Push(ts)
	return nil
}

// Receive returns the next picture. It never blocks before Flush.
func (d *Decoder) Receive() (*ports.DecodedFrame, error) {
	if d.proc == nil {
		if d.flushed {
			return nil, ports.ErrEndOfStream
		}
		return nil, ports.ErrTryAgain
	}

	raw, err := d.proc.next(d.flushed)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		if d.flushed {
			return nil, ports.ErrEndOfStream
		}
		return nil, ports.ErrTryAgain
	}

	ts, ok := d.pending.Pop()
	if !ok {
		ts = ports.NoTimestamp
	}
	return d.newFrame(raw, ts), nil
}

// newFrame wraps one rgb24 picture from ffmpeg as an RGBA frame.
func (d *Decoder) newFrame(raw []byte, ts int64) *ports.DecodedFrame {
	return &ports.DecodedFrame{
		Width:               d.width,
		Height:              d.height,
		PixelFormat:         ports.PixelFormatRGBA,
		PTS:                 ts,
		BestEffortTimestamp: ts,
		Image:               d.toRGBA(raw),
	}
}

// Flush closes ffmpeg's input so the remaining pictures can be drained.
func (d *Decoder) Flush() error {
	if d.flushed {
		return nil
	}
	d.flushed = true
	if d.proc == nil {
		return nil
	}
	if err := d.proc.closeInput(); err != nil {
		return fmt.Errorf("%w: close input: %v", ErrDecodeFailed, err)
	}
	return nil
}

// Reset stops ffmpeg; the next Submit starts a fresh process.
func (d *Decoder) Reset() error {
	d.stop()
	d.pending.Reset()
	d.flushed = false
	d.started = false
	return nil
}

// Close releases decoder resources.
func (d *Decoder) Close() {
	d.stop()
}

func (d *Decoder) stop() {
	if d.proc != nil {
		d.proc.kill()
		d.proc = nil
	}
}

func (d *Decoder) toRGBA(raw []byte) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, d.width, d.height))
	for i, j := 0, 0; i+2 < len(raw); i, j = i+3, j+4 {
		img.Pix[j] = raw[i]
		img.Pix[j+1] = raw[i+1]
		img.Pix[j+2] = raw[i+2]
		img.Pix[j+3] = 255
	}
	return img
}

func (d *Decoder) debug(format string, args ...interface{}) {
	if d.logger != nil {
		d.logger.Debug(format, args...)
	}
}

var _ ports.Decoder = (*Decoder)(nil)
