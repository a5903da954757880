// Package decodecursor drives the read/submit/receive loop of a container and a
// decoder from a keyframe up to a target presentation timestamp.
//
// The cursor keeps a frame counter seeded with the ordinal of the keyframe it was
// opened at. Every frame the decoder emits is assigned the current counter value
// and the counter is advanced, so the ordinal reported with a match is the
// logical frame number of the matched picture.
package decodecursor

import (
	"errors"
	"fmt"

	"github.com/user/framegrab/pkg/frameindex"
	"github.com/user/framegrab/pkg/ports"
)

// ErrNotOpen is returned by AdvanceToTimestamp before OpenAt succeeded.
var ErrNotOpen = errors.New("decodecursor: cursor not opened")

// Options configures a Cursor.
type Options struct {
	// MaxPackets bounds the packets read per advance; zero means unbounded.
	MaxPackets int
	Logger     ports.Logger
}

// Match is a decoded frame that satisfied the target timestamp.
type Match struct {
	Frame   *ports.DecodedFrame
	Ordinal int
}

// Stats counts the work done since the last OpenAt.
type Stats struct {
	PacketsRead      int
	PacketsSkipped   int // packets of other streams
	PacketsSubmitted int
	FramesDecoded    int
	Flushed          bool
	// DecoderEnded is set once the decoder reported end of stream.
	DecoderEnded bool
}

// Cursor decodes one stream of a container.
type Cursor struct {
	container ports.Container
	decoder   ports.Decoder
	streamID  int
	opts      Options
	logger    ports.Logger

	counter int
	opened  bool
	stats   Stats
}

// New creates a Cursor for streamID. The container and decoder stay owned by the caller.
func New(container ports.Container, decoder ports.Decoder, streamID int, opts Options) *Cursor {
	c := &Cursor{
		container: container,
		decoder:   decoder,
		streamID:  streamID,
		opts:      opts,
	}
	if opts.Logger != nil {
		c.logger = opts.Logger.WithComponent("decodecursor")
	}
	return c
}

// OpenAt repositions the container on the entry's keyframe, discards any decoder
// state and seeds the frame counter with the entry's ordinal. Opening twice at the
// same entry leaves the cursor in the same state.
func (c *Cursor) OpenAt(entry frameindex.Entry) error {
	c.opened = false
	c.stats = Stats{}

	if err := c.container.Seek(c.streamID, entry.Timestamp, ports.SeekBackward); err != nil {
		return ports.WrapError(ports.KindSeekFailed, "seek", fmt.Errorf("stream %d to %d: %w", c.streamID, entry.Timestamp, err))
	}
	if err := c.decoder.Reset(); err != nil {
		return ports.WrapError(ports.KindSeekFailed, "seek", fmt.Errorf("decoder reset: %w", err))
	}

	c.counter = entry.Ordinal
	c.opened = true
	c.debug("opened stream %d at ordinal %d (ts %d)", c.streamID, entry.Ordinal, entry.Timestamp)
	return nil
}

// AdvanceToTimestamp decodes until the first frame whose timestamp is >= target
// and returns it with its ordinal. Frames before it are discarded.
//
// Packets of other streams are skipped without touching the counter. When the
// container runs out the decoder is flushed and its buffered frames are still
// considered; if none qualifies the result is a KindExhausted error. A decoder
// that reports end of stream stops the loop the same way, without reading further
// packets. A submit failure is reported as KindDecodeError.
func (c *Cursor) AdvanceToTimestamp(target int64) (Match, error) {
	if !c.opened {
		return Match{}, ErrNotOpen
	}

	read := 0
	for {
		if c.opts.MaxPackets > 0 && read >= c.opts.MaxPackets {
			return Match{}, ports.NewError(ports.KindExhausted, "decode",
				"read %d packets without reaching ts %d", c.opts.MaxPackets, target)
		}

		pkt, err := c.container.ReadNextPacket()
		if errors.Is(err, ports.ErrEndOfStream) {
			return c.drain(target)
		}
		if err != nil {
			return Match{}, ports.WrapError(ports.KindDecodeError, "read", err)
		}
		read++
		c.stats.PacketsRead++

		if pkt.StreamID != c.streamID {
			c.stats.PacketsSkipped++
			continue
		}

		if err := c.decoder.Submit(pkt); err != nil {
			return Match{}, ports.WrapError(ports.KindDecodeError, "submit",
				fmt.Errorf("packet at %d (pts %d): %w", pkt.Pos, pkt.PTS, err))
		}
		c.stats.PacketsSubmitted++

		m, st, err := c.receive(target)
		if err != nil || st == matched {
			return m, err
		}
		if st == ended {
			return Match{}, ports.NewError(ports.KindExhausted, "decode",
				"decoder ended at ordinal %d before ts %d", c.counter, target)
		}
	}
}

// drain flushes the decoder at end of input and looks at the remaining frames.
func (c *Cursor) drain(target int64) (Match, error) {
	c.stats.Flushed = true
	if err := c.decoder.Flush(); err != nil {
		return Match{}, ports.WrapError(ports.KindDecodeError, "flush", err)
	}

	m, st, err := c.receive(target)
	if err != nil || st == matched {
		return m, err
	}
	return Match{}, ports.NewError(ports.KindExhausted, "decode",
		"stream ended at ordinal %d before ts %d", c.counter, target)
}

type receiveState int

const (
	needInput receiveState = iota
	matched
	ended
)

// receive pulls frames until the decoder wants more input, matches the target
// or signals that it will emit nothing more.
func (c *Cursor) receive(target int64) (Match, receiveState, error) {
	for {
		frame, err := c.decoder.Receive()
		if errors.Is(err, ports.ErrTryAgain) {
			return Match{}, needInput, nil
		}
		if errors.Is(err, ports.ErrEndOfStream) {
			c.stats.DecoderEnded = true
			return Match{}, ended, nil
		}
		if err != nil {
			return Match{}, needInput, ports.WrapError(ports.KindDecodeError, "receive", err)
		}

		ordinal := c.counter
		c.counter++
		c.stats.FramesDecoded++

		ts := frame.Timestamp()
		if ts == ports.NoTimestamp {
			c.debug("frame %d has no timestamp", ordinal)
			continue
		}
		if ts >= target {
			c.debug("matched frame %d at ts %d (target %d)", ordinal, ts, target)
			return Match{Frame: frame, Ordinal: ordinal}, matched, nil
		}
	}
}

// Counter returns the ordinal the next decoded frame will get.
func (c *Cursor) Counter() int {
	return c.counter
}

// Stats returns the work done since the last OpenAt.
func (c *Cursor) Stats() Stats {
	return c.stats
}

func (c *Cursor) debug(format string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Debug(format, args...)
	}
}
