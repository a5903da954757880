// Package mp4demux implements ports.Container for progressive and fragmented
// MP4 files using mp4ff.
//
// The whole sample table is resolved when the file is opened. Samples of all
// tracks are then served in file offset order, which is the order a muxer
// interleaved them in. Progressive sample payloads are read from the file on
// demand; fragmented payloads are kept from parsing.
package mp4demux

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/Eyevinn/mp4ff/mp4"
	"github.com/user/framegrab/pkg/adapters/codecdetect"
	"github.com/user/framegrab/pkg/ports"
)

// sampleIsNonSync is the sample_is_non_sync_sample bit of ISO/IEC 14496-12 sample flags.
const sampleIsNonSync = 0x00010000

type sample struct {
	track    int
	offset   int64
	size     int
	dts      int64
	pts      int64
	dur      uint32
	keyframe bool
	data     []byte // fragmented files only
}

type track struct {
	stream  ports.Stream
	samples []int // positions in Container.samples
}

// Container is an opened MP4 file.
type Container struct {
	reader  io.ReadSeeker
	closer  io.Closer
	tracks  []*track
	samples []sample
	pos     int
	logger  ports.Logger
}

// Open opens and indexes the MP4 file at path.
func Open(path string, logger ports.Logger) (*Container, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ports.WrapError(ports.KindOpenFailed, "open", err)
	}

	c, err := NewFromReader(f, logger)
	if err != nil {
		f.Close()
		return nil, err
	}
	c.closer = f
	return c, nil
}

// NewFromReader indexes an MP4 file from reader. The reader must stay valid
// until the container is closed.
func NewFromReader(reader io.ReadSeeker, logger ports.Logger) (*Container, error) {
	mp4File, err := mp4.DecodeFile(reader)
	if err != nil {
		return nil, ports.WrapError(ports.KindOpenFailed, "open", fmt.Errorf("decode mp4: %w", err))
	}

	c := &Container{reader: reader}
	if logger != nil {
		c.logger = logger.WithComponent("mp4demux")
	}

	if mp4File.IsFragmented() {
		err = c.loadFragmented(mp4File)
	} else {
		err = c.loadProgressive(mp4File)
	}
	if err != nil {
		return nil, ports.WrapError(ports.KindOpenFailed, "open", err)
	}

	c.finish()
	return c, nil
}

func (c *Container) loadProgressive(mp4File *mp4.File) error {
	if mp4File.Moov == nil {
		return fmt.Errorf("no moov box found")
	}

	for _, trak := range mp4File.Moov.Traks {
		t := c.addTrack(trak)
		if t == nil {
			continue
		}
		if trak.Mdia.Minf == nil || trak.Mdia.Minf.Stbl == nil {
			return fmt.Errorf("track %d: no sample table found", t.stream.ID)
		}
		stbl := trak.Mdia.Minf.Stbl
		if stbl.Stsz == nil {
			return fmt.Errorf("track %d: no stsz box found", t.stream.ID)
		}

		syncSamples := make(map[uint32]bool)
		if stbl.Stss != nil {
			for _, sampleNr := range stbl.Stss.SampleNumber {
				syncSamples[sampleNr] = true
			}
		}

		for sampleNr := uint32(1); sampleNr <= stbl.Stsz.SampleNumber; sampleNr++ {
			offset, err := sampleOffset(stbl, sampleNr)
			if err != nil {
				return fmt.Errorf("track %d sample %d: %w", t.stream.ID, sampleNr, err)
			}

			var decodeTime uint64
			var dur uint32
			if stbl.Stts != nil {
				decodeTime, dur = stbl.Stts.GetDecodeTime(sampleNr)
			}
			pts := int64(decodeTime)
			if stbl.Ctts != nil {
				pts += int64(stbl.Ctts.GetCompositionTimeOffset(sampleNr))
			}

			c.samples = append(c.samples, sample{
				track:    t.stream.ID,
				offset:   offset,
				size:     int(stbl.Stsz.GetSampleSize(int(sampleNr))),
				dts:      int64(decodeTime),
				pts:      pts,
				dur:      dur,
				keyframe: stbl.Stss == nil || syncSamples[sampleNr],
			})
		}
	}
	return nil
}

func (c *Container) loadFragmented(mp4File *mp4.File) error {
	if mp4File.Init == nil || mp4File.Init.Moov == nil {
		return fmt.Errorf("no init segment found")
	}
	moov := mp4File.Init.Moov

	trexs := make(map[uint32]*mp4.TrexBox)
	for _, trak := range moov.Traks {
		c.addTrack(trak)
	}
	if moov.Mvex != nil {
		for _, t := range moov.Mvex.Trexs {
			trexs[t.TrackID] = t
		}
	}

	// next decode time per track, for trafs without a tfdt
	nextDTS := make(map[uint32]uint64)
	for _, seg := range mp4File.Segments {
		for _, frag := range seg.Fragments {
			if frag.Moof == nil {
				continue
			}
			for _, traf := range frag.Moof.Trafs {
				if traf.Tfhd == nil {
					continue
				}
				trackID := traf.Tfhd.TrackID
				if c.track(int(trackID)) == nil {
					continue
				}
				if err := c.addTraf(frag, traf, trexs[trackID], nextDTS); err != nil {
					return fmt.Errorf("track %d: %w", trackID, err)
				}
			}
		}
	}
	return nil
}

// addTraf resolves the samples of one track fragment. Every traf of a moof
// carries its own base data offset, run offsets and defaults.
func (c *Container) addTraf(frag *mp4.Fragment, traf *mp4.TrafBox, trex *mp4.TrexBox, nextDTS map[uint32]uint64) error {
	tfhd := traf.Tfhd
	trackID := tfhd.TrackID
	if frag.Mdat == nil {
		return fmt.Errorf("moof at %d has no mdat", frag.Moof.StartPos)
	}
	mdatStart := frag.Mdat.PayloadAbsoluteOffset()
	mdatEnd := mdatStart + uint64(len(frag.Mdat.Data))

	baseTime := nextDTS[trackID]
	if traf.Tfdt != nil {
		baseTime = traf.Tfdt.BaseMediaDecodeTime()
	}

	// data offsets are relative to the base; a run without one follows the previous run
	base := frag.Moof.StartPos
	if tfhd.HasBaseDataOffset() {
		base = tfhd.BaseDataOffset
	}
	pos := base
	for i, trun := range traf.Truns {
		runDur := trun.AddSampleDefaultValues(tfhd, trex)
		if trun.HasDataOffset() {
			pos = uint64(int64(base) + int64(trun.DataOffset))
		}
		if pos < mdatStart || pos > mdatEnd {
			return fmt.Errorf("run %d: data offset %d outside mdat [%d, %d)", i, pos, mdatStart, mdatEnd)
		}

		offset := int64(pos)
		for _, s := range trun.GetFullSamples(uint32(pos-mdatStart), baseTime, frag.Mdat) {
			dts := int64(s.DecodeTime)
			c.samples = append(c.samples, sample{
				track:    int(trackID),
				offset:   offset,
				size:     len(s.Data),
				dts:      dts,
				pts:      dts + int64(s.CompositionTimeOffset),
				dur:      s.Dur,
				keyframe: s.Flags&sampleIsNonSync == 0,
				data:     s.Data,
			})
			offset += int64(len(s.Data))
		}
		pos = uint64(offset)
		baseTime += runDur
	}
	nextDTS[trackID] = baseTime
	return nil
}

// addTrack registers a video or audio track and returns nil for other handlers.
func (c *Container) addTrack(trak *mp4.TrakBox) *track {
	if trak.Tkhd == nil || trak.Mdia == nil || trak.Mdia.Hdlr == nil {
		return nil
	}

	stream := ports.Stream{
		ID:    int(trak.Tkhd.TrackID),
		Codec: string(codecdetect.FromTrack(trak)),
	}
	switch trak.Mdia.Hdlr.HandlerType {
	case "vide":
		stream.Kind = ports.MediaVideo
	case "soun":
		stream.Kind = ports.MediaAudio
	default:
		return nil
	}

	timescale := uint32(1000)
	if trak.Mdia.Mdhd != nil && trak.Mdia.Mdhd.Timescale > 0 {
		timescale = trak.Mdia.Mdhd.Timescale
	}
	stream.TimeBase = ports.Rational{Num: 1, Den: int64(timescale)}

	if trak.Mdia.Minf != nil && trak.Mdia.Minf.Stbl != nil && trak.Mdia.Minf.Stbl.Stsd != nil {
		for _, child := range trak.Mdia.Minf.Stbl.Stsd.Children {
			vse, ok := child.(*mp4.VisualSampleEntryBox)
			if !ok {
				continue
			}
			stream.Width = int(vse.Width)
			stream.Height = int(vse.Height)
			if vse.AvcC != nil {
				stream.ParameterSets = append(stream.ParameterSets, vse.AvcC.SPSnalus...)
				stream.ParameterSets = append(stream.ParameterSets, vse.AvcC.PPSnalus...)
			}
			if vse.HvcC != nil {
				for _, arr := range vse.HvcC.NaluArrays {
					stream.ParameterSets = append(stream.ParameterSets, arr.Nalus...)
				}
			}
			break
		}
	}

	t := &track{stream: stream}
	c.tracks = append(c.tracks, t)
	return t
}

// finish orders samples by file offset and derives per-track statistics.
func (c *Container) finish() {
	sort.SliceStable(c.samples, func(i, j int) bool {
		return c.samples[i].offset < c.samples[j].offset
	})

	for i, s := range c.samples {
		if t := c.track(s.track); t != nil {
			t.samples = append(t.samples, i)
		}
	}

	for _, t := range c.tracks {
		var total int64
		for _, i := range t.samples {
			total += int64(c.samples[i].dur)
		}
		t.stream.EntryCount = len(t.samples)
		t.stream.Duration = total
		if t.stream.Kind == ports.MediaVideo && total > 0 {
			t.stream.NominalFrameRate = reduce(ports.Rational{
				Num: int64(len(t.samples)) * t.stream.TimeBase.Den,
				Den: total * t.stream.TimeBase.Num,
			})
		}

		if c.logger != nil {
			c.logger.Debug("track %d: %s %s %dx%d, %d samples, %s fps",
				t.stream.ID, t.stream.Kind, t.stream.Codec, t.stream.Width, t.stream.Height,
				t.stream.EntryCount, t.stream.NominalFrameRate)
		}
	}
}

func (c *Container) track(id int) *track {
	for _, t := range c.tracks {
		if t.stream.ID == id {
			return t
		}
	}
	return nil
}

// Streams returns every video and audio stream.
func (c *Container) Streams() []ports.Stream {
	streams := make([]ports.Stream, len(c.tracks))
	for i, t := range c.tracks {
		streams[i] = t.stream
	}
	return streams
}

// SelectVideoStream returns the first video stream that has samples.
func (c *Container) SelectVideoStream() (ports.Stream, error) {
	for _, t := range c.tracks {
		if t.stream.Kind == ports.MediaVideo && len(t.samples) > 0 {
			return t.stream, nil
		}
	}
	return ports.Stream{}, ports.NewError(ports.KindNotFound, "select", "no video track found")
}

// Index returns the stream's samples in presentation order.
func (c *Container) Index(streamID int) []ports.IndexEntry {
	t := c.track(streamID)
	if t == nil {
		return nil
	}

	entries := make([]ports.IndexEntry, len(t.samples))
	for i, si := range t.samples {
		s := c.samples[si]
		entries[i] = ports.IndexEntry{
			Offset:    s.offset,
			Size:      s.size,
			Timestamp: s.pts,
			Keyframe:  s.keyframe,
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Timestamp != entries[j].Timestamp {
			return entries[i].Timestamp < entries[j].Timestamp
		}
		return entries[i].Offset < entries[j].Offset
	})
	return entries
}

// Seek positions the read cursor on a keyframe of the stream. Backward picks the
// keyframe with the greatest presentation timestamp <= timestamp and falls back
// to the stream's first sample; forward picks the smallest >= timestamp.
func (c *Container) Seek(streamID int, timestamp int64, dir ports.SeekDirection) error {
	t := c.track(streamID)
	if t == nil || len(t.samples) == 0 {
		return fmt.Errorf("mp4demux: no samples for stream %d", streamID)
	}

	best := -1
	for _, si := range t.samples {
		s := c.samples[si]
		if !s.keyframe {
			continue
		}
		switch dir {
		case ports.SeekBackward:
			if s.pts <= timestamp && (best < 0 || s.pts > c.samples[best].pts) {
				best = si
			}
		case ports.SeekForward:
			if s.pts >= timestamp && (best < 0 || s.pts < c.samples[best].pts) {
				best = si
			}
		}
	}

	if best < 0 {
		if dir == ports.SeekForward {
			return fmt.Errorf("mp4demux: no keyframe at or after %d in stream %d", timestamp, streamID)
		}
		best = t.samples[0]
	}

	c.pos = best
	if c.logger != nil {
		c.logger.Debug("seek stream %d to %d: sample at offset %d (pts %d)",
			streamID, timestamp, c.samples[best].offset, c.samples[best].pts)
	}
	return nil
}

// ReadNextPacket returns the next sample in file order.
func (c *Container) ReadNextPacket() (*ports.Packet, error) {
	if c.pos >= len(c.samples) {
		return nil, ports.ErrEndOfStream
	}
	s := c.samples[c.pos]
	c.pos++

	data := s.data
	if data == nil {
		if _, err := c.reader.Seek(s.offset, io.SeekStart); err != nil {
			return nil, fmt.Errorf("seek to sample: %w", err)
		}
		data = make([]byte, s.size)
		if _, err := io.ReadFull(c.reader, data); err != nil {
			return nil, fmt.Errorf("read sample at %d: %w", s.offset, err)
		}
	}

	return &ports.Packet{
		StreamID: s.track,
		DTS:      s.dts,
		PTS:      s.pts,
		Pos:      s.offset,
		Keyframe: s.keyframe,
		Data:     data,
	}, nil
}

// Close closes the underlying file when the container opened it.
func (c *Container) Close() error {
	if c.closer != nil {
		return c.closer.Close()
	}
	return nil
}

// sampleOffset returns the file offset of a sample of a progressive MP4 file.
func sampleOffset(stbl *mp4.StblBox, sampleNr uint32) (int64, error) {
	if stbl.Stsc == nil {
		return 0, fmt.Errorf("missing stsc box")
	}

	chunkNr, firstSampleInChunk, err := stbl.Stsc.ChunkNrFromSampleNr(int(sampleNr))
	if err != nil {
		return 0, fmt.Errorf("get chunk nr: %w", err)
	}

	var chunkOffset uint64
	if stbl.Stco != nil {
		chunkOffset, err = stbl.Stco.GetOffset(chunkNr)
		if err != nil {
			return 0, fmt.Errorf("get chunk offset: %w", err)
		}
	} else if stbl.Co64 != nil {
		if chunkNr < 1 || chunkNr > len(stbl.Co64.ChunkOffset) {
			return 0, fmt.Errorf("chunk nr out of range")
		}
		chunkOffset = stbl.Co64.ChunkOffset[chunkNr-1]
	} else {
		return 0, fmt.Errorf("no stco or co64 box")
	}

	offset := chunkOffset
	for s := uint32(firstSampleInChunk); s < sampleNr; s++ {
		offset += uint64(stbl.Stsz.GetSampleSize(int(s)))
	}
	return int64(offset), nil
}

func reduce(r ports.Rational) ports.Rational {
	a, b := r.Num, r.Den
	for b != 0 {
		a, b = b, a%b
	}
	if a == 0 {
		return r
	}
	return ports.Rational{Num: r.Num / a, Den: r.Den / a}
}

var _ ports.Container = (*Container)(nil)
