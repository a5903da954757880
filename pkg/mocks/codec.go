package mocks

import (
	"fmt"
	"image"
	"sort"

	"github.com/user/framegrab/pkg/ports"
)

// Container is a mock implementation of ports.Container over a scripted packet list.
type Container struct {
	StreamList []ports.Stream
	// Packets are returned by ReadNextPacket in this (container) order.
	Packets []*ports.Packet
	// Entries overrides the index derived from Packets when set.
	Entries map[int][]ports.IndexEntry

	SeekFunc func(streamID int, timestamp int64, dir ports.SeekDirection) error
	ReadFunc func(pkt *ports.Packet) error

	// Recorded calls for verification
	SeekCalls   []SeekCall
	PacketsRead int
	Closed      bool

	pos int
}

// SeekCall records a call to Seek.
type SeekCall struct {
	StreamID  int
	Timestamp int64
	Direction ports.SeekDirection
}

func (m *Container) Streams() []ports.Stream {
	return m.StreamList
}

func (m *Container) SelectVideoStream() (ports.Stream, error) {
	for _, s := range m.StreamList {
		if s.Kind == ports.MediaVideo {
			return s, nil
		}
	}
	return ports.Stream{}, ports.NewError(ports.KindNotFound, "select", "no video stream")
}

func (m *Container) Index(streamID int) []ports.IndexEntry {
	if m.Entries != nil {
		return m.Entries[streamID]
	}
	var entries []ports.IndexEntry
	for _, p := range m.Packets {
		if p.StreamID != streamID {
			continue
		}
		entries = append(entries, ports.IndexEntry{
			Offset:    p.Pos,
			Size:      len(p.Data),
			Timestamp: p.PTS,
			Keyframe:  p.Keyframe,
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Timestamp != entries[j].Timestamp {
			return entries[i].Timestamp < entries[j].Timestamp
		}
		return entries[i].Offset < entries[j].Offset
	})
	return entries
}

// Seek positions the cursor on the keyframe packet of the stream with the greatest
// PTS <= timestamp, or on the stream's first packet when there is none.
func (m *Container) Seek(streamID int, timestamp int64, dir ports.SeekDirection) error {
	m.SeekCalls = append(m.SeekCalls, SeekCall{StreamID: streamID, Timestamp: timestamp, Direction: dir})
	if m.SeekFunc != nil {
		if err := m.SeekFunc(streamID, timestamp, dir); err != nil {
			return err
		}
	}

	best, first := -1, -1
	for i, p := range m.Packets {
		if p.StreamID != streamID {
			continue
		}
		if first < 0 {
			first = i
		}
		if p.Keyframe && p.PTS <= timestamp && (best < 0 || p.PTS > m.Packets[best].PTS) {
			best = i
		}
	}
	switch {
	case best >= 0:
		m.pos = best
	case first >= 0:
		m.pos = first
	default:
		return fmt.Errorf("mock container: stream %d has no packets", streamID)
	}
	return nil
}

func (m *Container) ReadNextPacket() (*ports.Packet, error) {
	if m.pos >= len(m.Packets) {
		return nil, ports.ErrEndOfStream
	}
	p := *m.Packets[m.pos]
	m.pos++
	m.PacketsRead++
	if m.ReadFunc != nil {
		if err := m.ReadFunc(&p); err != nil {
			return nil, err
		}
	}
	return &p, nil
}

func (m *Container) Close() error {
	m.Closed = true
	return nil
}

var _ ports.Container = (*Container)(nil)

// GOPOptions configures NewGOPContainer.
type GOPOptions struct {
	Frames    int
	GOP       int
	FrameDur  int64
	Timescale int64
	// Reorder emits each GOP in I P B B decode order, as B-frame streams do.
	Reorder bool
	// AudioEvery interleaves one audio packet after every n video packets.
	AudioEvery int
}

// NewGOPContainer builds a container with one video stream (ID 1) whose presentation
// timestamps are ordinal * FrameDur, and an optional audio stream (ID 2).
func NewGOPContainer(opts GOPOptions) *Container {
	if opts.Timescale == 0 {
		opts.Timescale = 15360
	}
	if opts.FrameDur == 0 {
		opts.FrameDur = 512
	}
	if opts.GOP == 0 {
		opts.GOP = opts.Frames
	}

	var order []int
	for start := 0; start < opts.Frames; start += opts.GOP {
		end := start + opts.GOP
		if end > opts.Frames {
			end = opts.Frames
		}
		order = append(order, start)
		for k := start + 1; k < end; k += 3 {
			if !opts.Reorder {
				for j := k; j < k+3 && j < end; j++ {
					order = append(order, j)
				}
				continue
			}
			// P frame first, then the B frames that reference it
			last := k + 2
			if last >= end {
				last = end - 1
			}
			order = append(order, last)
			for j := k; j < last; j++ {
				order = append(order, j)
			}
		}
	}

	c := &Container{
		StreamList: []ports.Stream{{
			ID:               1,
			Kind:             ports.MediaVideo,
			Codec:            "h264",
			TimeBase:         ports.Rational{Num: 1, Den: opts.Timescale},
			Width:            2,
			Height:           2,
			EntryCount:       opts.Frames,
			Duration:         int64(opts.Frames) * opts.FrameDur,
			NominalFrameRate: ports.Rational{Num: opts.Timescale, Den: opts.FrameDur},
		}},
	}
	if opts.AudioEvery > 0 {
		c.StreamList = append(c.StreamList, ports.Stream{
			ID:       2,
			Kind:     ports.MediaAudio,
			Codec:    "aac",
			TimeBase: ports.Rational{Num: 1, Den: 48000},
		})
	}

	pos := int64(48)
	for i, ordinal := range order {
		pts := int64(ordinal) * opts.FrameDur
		c.Packets = append(c.Packets, &ports.Packet{
			StreamID: 1,
			DTS:      int64(i)*opts.FrameDur - opts.FrameDur,
			PTS:      pts,
			Pos:      pos,
			Keyframe: ordinal%opts.GOP == 0,
			Data:     []byte{byte(ordinal), byte(ordinal >> 8)},
		})
		pos += 100
		if opts.AudioEvery > 0 && (i+1)%opts.AudioEvery == 0 {
			c.Packets = append(c.Packets, &ports.Packet{
				StreamID: 2,
				DTS:      int64(i) * 1024,
				PTS:      int64(i) * 1024,
				Pos:      pos,
				Keyframe: true,
				Data:     []byte{0xff},
			})
			pos += 10
		}
	}
	return c
}

// Decoder is a mock implementation of ports.Decoder. It holds submitted packets
// back until more than Delay are pending and emits them in PTS order, which
// models both decoder latency and B-frame reordering.
type Decoder struct {
	Delay int
	// NoBestEffort leaves BestEffortTimestamp unset on emitted frames.
	NoBestEffort bool

	SubmitFunc  func(pkt *ports.Packet) error
	ReceiveFunc func() (*ports.DecodedFrame, error)

	// Recorded calls for verification
	Submitted  []int64
	FlushCount int
	ResetCount int
	Closed     bool

	pending []int64
	ready   []*ports.DecodedFrame
	flushed bool
}

func (m *Decoder) Submit(pkt *ports.Packet) error {
	if m.SubmitFunc != nil {
		if err := m.SubmitFunc(pkt); err != nil {
			return err
		}
	}
	m.Submitted = append(m.Submitted, pkt.PTS)

	i := sort.Search(len(m.pending), func(i int) bool { return m.pending[i] > pkt.PTS })
	m.pending = append(m.pending, 0)
	copy(m.pending[i+1:], m.pending[i:])
	m.pending[i] = pkt.PTS

	for len(m.pending) > m.Delay {
		m.ready = append(m.ready, m.frame(m.pending[0]))
		m.pending = m.pending[1:]
	}
	return nil
}

func (m *Decoder) Receive() (*ports.DecodedFrame, error) {
	if m.ReceiveFunc != nil {
		return m.ReceiveFunc()
	}
	if len(m.ready) > 0 {
		f := m.ready[0]
		m.ready = m.ready[1:]
		return f, nil
	}
	if !m.flushed {
		return nil, ports.ErrTryAgain
	}
	if len(m.pending) > 0 {
		f := m.frame(m.pending[0])
		m.pending = m.pending[1:]
		return f, nil
	}
	return nil, ports.ErrEndOfStream
}

func (m *Decoder) Flush() error {
	m.FlushCount++
	m.flushed = true
	return nil
}

func (m *Decoder) Reset() error {
	m.ResetCount++
	m.pending = nil
	m.ready = nil
	m.flushed = false
	return nil
}

func (m *Decoder) Close() {
	m.Closed = true
}

func (m *Decoder) frame(pts int64) *ports.DecodedFrame {
	f := &ports.DecodedFrame{
		Width:               2,
		Height:              2,
		PixelFormat:         ports.PixelFormatYUV420P,
		PTS:                 pts,
		BestEffortTimestamp: pts,
		Image:               image.NewYCbCr(image.Rect(0, 0, 2, 2), image.YCbCrSubsampleRatio420),
	}
	if m.NoBestEffort {
		f.BestEffortTimestamp = ports.NoTimestamp
	}
	return f
}

var _ ports.Decoder = (*Decoder)(nil)

// CodecEngine is a mock implementation of ports.CodecEngine.
type CodecEngine struct {
	OpenContainerFunc func(path string) (ports.Container, error)
	NewDecoderFunc    func(c ports.Container, stream ports.Stream) (ports.Decoder, error)

	// Recorded calls for verification
	Opened []string
}

func (m *CodecEngine) OpenContainer(path string) (ports.Container, error) {
	m.Opened = append(m.Opened, path)
	if m.OpenContainerFunc != nil {
		return m.OpenContainerFunc(path)
	}
	return nil, ports.NewError(ports.KindOpenFailed, "open", "no container scripted for %s", path)
}

func (m *CodecEngine) NewDecoder(c ports.Container, stream ports.Stream) (ports.Decoder, error) {
	if m.NewDecoderFunc != nil {
		return m.NewDecoderFunc(c, stream)
	}
	return &Decoder{}, nil
}

var _ ports.CodecEngine = (*CodecEngine)(nil)
