package mp4demux

import (
	"bytes"
	"errors"
	"testing"

	"github.com/Eyevinn/mp4ff/mp4"
	"github.com/user/framegrab/pkg/ports"
)

const (
	testTimescale = 15360
	testDur       = 512
)

type fixture struct {
	frames    int
	gop       int
	perFrag   int
	reorder   bool
	withAudio bool
}

// decodeOrder returns presentation ordinals in decode order, I P B B per group
// when reordering.
func (f fixture) decodeOrder() []int {
	var order []int
	for start := 0; start < f.frames; start += f.gop {
		end := start + f.gop
		if end > f.frames {
			end = f.frames
		}
		order = append(order, start)
		for k := start + 1; k < end; k += 3 {
			last := k + 2
			if last >= end {
				last = end - 1
			}
			if !f.reorder {
				for j := k; j <= last; j++ {
					order = append(order, j)
				}
				continue
			}
			order = append(order, last)
			for j := k; j < last; j++ {
				order = append(order, j)
			}
		}
	}
	return order
}

// pts is the presentation timestamp of ordinal o, two frames of composition delay.
func pts(o int) int64 {
	return int64(o+2) * testDur
}

// writeInit writes ftyp and moov with video track 1 and, optionally, audio track 2.
func writeInit(t *testing.T, buf *bytes.Buffer, withAudio bool) {
	t.Helper()

	init := mp4.CreateEmptyInit()
	init.AddEmptyTrack(testTimescale, "video", "en")
	trak := init.Moov.Trak
	avc1 := mp4.CreateVisualSampleEntryBox("avc1", 64, 48, nil)
	trak.Mdia.Minf.Stbl.Stsd.AddChild(avc1)
	trak.Tkhd.Width = mp4.Fixed32(64 << 16)
	trak.Tkhd.Height = mp4.Fixed32(48 << 16)
	if withAudio {
		init.AddEmptyTrack(48000, "audio", "en")
	}

	ftyp := mp4.NewFtyp("isom", 0x200, []string{"isom", "iso2", "avc1", "mp41"})
	if err := ftyp.Encode(buf); err != nil {
		t.Fatalf("encode ftyp: %v", err)
	}
	if err := init.Moov.Encode(buf); err != nil {
		t.Fatalf("encode moov: %v", err)
	}
}

func buildFragmented(t *testing.T, f fixture) []byte {
	t.Helper()

	var buf bytes.Buffer
	writeInit(t, &buf, f.withAudio)

	order := f.decodeOrder()
	seq := uint32(1)
	for start := 0; start < len(order); start += f.perFrag {
		frag, err := mp4.CreateFragment(seq, 1)
		if err != nil {
			t.Fatalf("create fragment: %v", err)
		}
		seq++

		end := start + f.perFrag
		if end > len(order) {
			end = len(order)
		}
		for i := start; i < end; i++ {
			o := order[i]
			flags := mp4.NonSyncSampleFlags
			if o%f.gop == 0 {
				flags = mp4.SyncSampleFlags
			}
			data := []byte{0, 0, 0, 2, byte(o), byte(o >> 8)}
			frag.AddFullSample(mp4.FullSample{
				Sample: mp4.Sample{
					Flags:                 flags,
					Size:                  uint32(len(data)),
					Dur:                   testDur,
					CompositionTimeOffset: int32(pts(o) - int64(i)*testDur),
				},
				DecodeTime: uint64(i) * testDur,
				Data:       data,
			})
		}
		if err := frag.Encode(&buf); err != nil {
			t.Fatalf("encode fragment: %v", err)
		}

		if f.withAudio {
			afrag, err := mp4.CreateFragment(seq, 2)
			if err != nil {
				t.Fatalf("create audio fragment: %v", err)
			}
			seq++
			afrag.AddFullSample(mp4.FullSample{
				Sample:     mp4.Sample{Flags: mp4.SyncSampleFlags, Size: 1, Dur: 1024},
				DecodeTime: uint64(start) * 1024,
				Data:       []byte{0xff},
			})
			if err := afrag.Encode(&buf); err != nil {
				t.Fatalf("encode audio fragment: %v", err)
			}
		}
	}

	return buf.Bytes()
}

// buildMuxed writes fragments whose moof carries an audio traf followed by a
// video traf, the way muxers interleave tracks in one fragment.
func buildMuxed(t *testing.T, frames, perFrag, gop int) []byte {
	t.Helper()

	var buf bytes.Buffer
	writeInit(t, &buf, true)

	seq := uint32(1)
	for start := 0; start < frames; start += perFrag {
		frag, err := mp4.CreateMultiTrackFragment(seq, []uint32{2, 1})
		if err != nil {
			t.Fatalf("create fragment: %v", err)
		}
		seq++

		err = frag.AddFullSampleToTrack(mp4.FullSample{
			Sample:     mp4.Sample{Flags: mp4.SyncSampleFlags, Size: 2, Dur: 1024},
			DecodeTime: uint64(start) * 1024,
			Data:       []byte{0xff, 0xf1},
		}, 2)
		if err != nil {
			t.Fatalf("add audio sample: %v", err)
		}

		end := start + perFrag
		if end > frames {
			end = frames
		}
		for o := start; o < end; o++ {
			flags := mp4.NonSyncSampleFlags
			if o%gop == 0 {
				flags = mp4.SyncSampleFlags
			}
			data := []byte{0, 0, 0, 2, byte(o), byte(o >> 8)}
			err := frag.AddFullSampleToTrack(mp4.FullSample{
				Sample:     mp4.Sample{Flags: flags, Size: uint32(len(data)), Dur: testDur},
				DecodeTime: uint64(o) * testDur,
				Data:       data,
			}, 1)
			if err != nil {
				t.Fatalf("add video sample: %v", err)
			}
		}
		if err := frag.Encode(&buf); err != nil {
			t.Fatalf("encode fragment: %v", err)
		}
	}
	return buf.Bytes()
}

func open(t *testing.T, f fixture) *Container {
	t.Helper()
	c, err := NewFromReader(bytes.NewReader(buildFragmented(t, f)), nil)
	if err != nil {
		t.Fatalf("NewFromReader failed: %v", err)
	}
	return c
}

func TestContainer_Streams(t *testing.T) {
	c := open(t, fixture{frames: 90, gop: 30, perFrag: 30, withAudio: true})

	streams := c.Streams()
	if len(streams) != 2 {
		t.Fatalf("expected 2 streams, got %d", len(streams))
	}

	video, err := c.SelectVideoStream()
	if err != nil {
		t.Fatalf("SelectVideoStream failed: %v", err)
	}
	if video.ID != 1 || video.Kind != ports.MediaVideo {
		t.Errorf("expected video track 1, got %+v", video)
	}
	if video.Codec != "h264" {
		t.Errorf("expected h264, got %s", video.Codec)
	}
	if video.Width != 64 || video.Height != 48 {
		t.Errorf("expected 64x48, got %dx%d", video.Width, video.Height)
	}
	if video.EntryCount != 90 {
		t.Errorf("expected 90 samples, got %d", video.EntryCount)
	}
	if video.TimeBase != (ports.Rational{Num: 1, Den: testTimescale}) {
		t.Errorf("unexpected time base %s", video.TimeBase)
	}
	if video.NominalFrameRate != (ports.Rational{Num: 30, Den: 1}) {
		t.Errorf("expected 30/1 fps, got %s", video.NominalFrameRate)
	}
	if video.FrameDuration() != testDur {
		t.Errorf("expected frame duration %d, got %d", testDur, video.FrameDuration())
	}
	if streams[1].Kind != ports.MediaAudio {
		t.Errorf("expected audio second, got %s", streams[1].Kind)
	}
}

func TestContainer_MuxedFragments(t *testing.T) {
	c, err := NewFromReader(bytes.NewReader(buildMuxed(t, 24, 8, 12)), nil)
	if err != nil {
		t.Fatalf("NewFromReader failed: %v", err)
	}

	video, err := c.SelectVideoStream()
	if err != nil {
		t.Fatalf("SelectVideoStream failed: %v", err)
	}
	if video.EntryCount != 24 {
		t.Fatalf("expected 24 video samples, got %d", video.EntryCount)
	}
	entries := c.Index(1)
	for i, e := range entries {
		if e.Timestamp != int64(i)*testDur {
			t.Errorf("entry %d: expected ts %d, got %d", i, int64(i)*testDur, e.Timestamp)
		}
		if e.Keyframe != (i%12 == 0) {
			t.Errorf("entry %d: keyframe = %v", i, e.Keyframe)
		}
	}
	if n := len(c.Index(2)); n != 3 {
		t.Errorf("expected 3 audio samples, got %d", n)
	}

	// payloads must come from each traf's own data offset
	next := 0
	for {
		pkt, err := c.ReadNextPacket()
		if errors.Is(err, ports.ErrEndOfStream) {
			break
		}
		if err != nil {
			t.Fatalf("ReadNextPacket failed: %v", err)
		}
		switch pkt.StreamID {
		case 1:
			want := []byte{0, 0, 0, 2, byte(next), byte(next >> 8)}
			if !bytes.Equal(pkt.Data, want) {
				t.Errorf("video packet %d: expected %v, got %v", next, want, pkt.Data)
			}
			next++
		case 2:
			if !bytes.Equal(pkt.Data, []byte{0xff, 0xf1}) {
				t.Errorf("unexpected audio payload %v", pkt.Data)
			}
		}
	}
	if next != 24 {
		t.Errorf("expected 24 video packets, got %d", next)
	}
}

func TestContainer_IndexIsPresentationOrdered(t *testing.T) {
	c := open(t, fixture{frames: 60, gop: 30, perFrag: 20, reorder: true})

	entries := c.Index(1)
	if len(entries) != 60 {
		t.Fatalf("expected 60 entries, got %d", len(entries))
	}
	for i, e := range entries {
		if e.Timestamp != pts(i) {
			t.Errorf("entry %d: expected ts %d, got %d", i, pts(i), e.Timestamp)
		}
		if e.Keyframe != (i%30 == 0) {
			t.Errorf("entry %d: keyframe = %v", i, e.Keyframe)
		}
		if e.Size != 6 {
			t.Errorf("entry %d: expected size 6, got %d", i, e.Size)
		}
	}
	if c.Index(99) != nil {
		t.Error("expected no entries for an unknown stream")
	}
}

func TestContainer_ReadsInFileOrder(t *testing.T) {
	c := open(t, fixture{frames: 30, gop: 30, perFrag: 10, reorder: true, withAudio: true})

	var lastPos int64 = -1
	video, audio := 0, 0
	for {
		pkt, err := c.ReadNextPacket()
		if errors.Is(err, ports.ErrEndOfStream) {
			break
		}
		if err != nil {
			t.Fatalf("ReadNextPacket failed: %v", err)
		}
		if pkt.Pos <= lastPos {
			t.Errorf("packet at %d after %d", pkt.Pos, lastPos)
		}
		lastPos = pkt.Pos
		switch pkt.StreamID {
		case 1:
			video++
			if pkt.PTS < pkt.DTS {
				t.Errorf("pts %d before dts %d", pkt.PTS, pkt.DTS)
			}
			if len(pkt.Data) != 6 {
				t.Errorf("expected 6 payload bytes, got %d", len(pkt.Data))
			}
		case 2:
			audio++
		}
	}
	if video != 30 || audio != 3 {
		t.Errorf("expected 30 video and 3 audio packets, got %d and %d", video, audio)
	}
}

func TestContainer_SeekBackward(t *testing.T) {
	c := open(t, fixture{frames: 150, gop: 60, perFrag: 30, reorder: true, withAudio: true})

	tests := []struct {
		name    string
		ts      int64
		wantPTS int64
	}{
		{"inside second gop", pts(75), pts(60)},
		{"on a keyframe", pts(120), pts(120)},
		{"before first frame", 0, pts(0)},
		{"past the end", pts(500), pts(120)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := c.Seek(1, tt.ts, ports.SeekBackward); err != nil {
				t.Fatalf("Seek failed: %v", err)
			}
			pkt, err := c.ReadNextPacket()
			if err != nil {
				t.Fatalf("ReadNextPacket failed: %v", err)
			}
			if pkt.StreamID != 1 || !pkt.Keyframe || pkt.PTS != tt.wantPTS {
				t.Errorf("expected keyframe at %d, got stream %d pts %d keyframe %v",
					tt.wantPTS, pkt.StreamID, pkt.PTS, pkt.Keyframe)
			}
		})
	}
}

func TestContainer_SeekForward(t *testing.T) {
	c := open(t, fixture{frames: 90, gop: 30, perFrag: 30})

	if err := c.Seek(1, pts(31), ports.SeekForward); err != nil {
		t.Fatalf("Seek failed: %v", err)
	}
	pkt, err := c.ReadNextPacket()
	if err != nil {
		t.Fatalf("ReadNextPacket failed: %v", err)
	}
	if pkt.PTS != pts(60) {
		t.Errorf("expected keyframe 60, got pts %d", pkt.PTS)
	}

	if err := c.Seek(1, pts(61), ports.SeekForward); err == nil {
		t.Error("expected error seeking forward past the last keyframe")
	}
	if err := c.Seek(7, 0, ports.SeekBackward); err == nil {
		t.Error("expected error for an unknown stream")
	}
}

func TestNewFromReader_Invalid(t *testing.T) {
	_, err := NewFromReader(bytes.NewReader([]byte("not an mp4 file")), nil)
	if ports.KindOf(err) != ports.KindOpenFailed {
		t.Errorf("expected open_failed, got %v", err)
	}
}

func TestOpen_Missing(t *testing.T) {
	_, err := Open("/nonexistent/clip.mp4", nil)
	if ports.KindOf(err) != ports.KindOpenFailed {
		t.Errorf("expected open_failed, got %v", err)
	}
}
