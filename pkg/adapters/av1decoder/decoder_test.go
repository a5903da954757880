package av1decoder

import (
	"errors"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/user/framegrab/pkg/adapters/mp4demux"
	"github.com/user/framegrab/pkg/ports"
)

func TestDecoder_Lifecycle(t *testing.T) {
	decoder, err := New(nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if _, err := decoder.Receive(); !errors.Is(err, ports.ErrTryAgain) {
		t.Errorf("expected ErrTryAgain, got %v", err)
	}
	if err := decoder.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	if _, err := decoder.Receive(); !errors.Is(err, ports.ErrEndOfStream) {
		t.Errorf("expected ErrEndOfStream, got %v", err)
	}
	if err := decoder.Submit(&ports.Packet{Data: []byte{0x12, 0x00}}); !errors.Is(err, ErrFlushed) {
		t.Errorf("expected ErrFlushed, got %v", err)
	}
	if err := decoder.Reset(); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if _, err := decoder.Receive(); !errors.Is(err, ports.ErrTryAgain) {
		t.Errorf("expected ErrTryAgain after Reset, got %v", err)
	}

	// Should not panic
	decoder.Close()
	decoder.Close()

	if err := decoder.Submit(&ports.Packet{Data: []byte{0}}); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("expected ErrNotInitialized after Close, got %v", err)
	}
}

func TestDecoder_RejectsInvalidData(t *testing.T) {
	decoder, err := New(nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer decoder.Close()

	if err := decoder.Submit(&ports.Packet{}); !errors.Is(err, ErrDecodeFailed) {
		t.Errorf("expected ErrDecodeFailed for an empty packet, got %v", err)
	}
	if err := decoder.Submit(&ports.Packet{Data: []byte{0xff, 0xff, 0xff, 0xff}}); !errors.Is(err, ErrDecodeFailed) {
		t.Errorf("expected ErrDecodeFailed for garbage, got %v", err)
	}
}

func TestDecoder_DecodesClip(t *testing.T) {
	ffmpeg, err := exec.LookPath("ffmpeg")
	if err != nil {
		t.Skip("ffmpeg not available")
	}
	path := filepath.Join(t.TempDir(), "clip.mp4")
	cmd := exec.Command(ffmpeg, "-hide_banner", "-loglevel", "error",
		"-f", "lavfi", "-i", "testsrc=size=64x64:rate=30",
		"-frames:v", "10",
		"-c:v", "libaom-av1", "-cpu-used", "8", "-g", "5", "-pix_fmt", "yuv420p",
		path)
	if output, err := cmd.CombinedOutput(); err != nil {
		t.Skipf("cannot encode test clip: %v: %s", err, output)
	}

	c, err := mp4demux.Open(path, nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer c.Close()
	stream, err := c.SelectVideoStream()
	if err != nil {
		t.Fatalf("SelectVideoStream failed: %v", err)
	}

	decoder, err := New(nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer decoder.Close()

	var frames []*ports.DecodedFrame
	drain := func() {
		for {
			f, err := decoder.Receive()
			if err != nil {
				return
			}
			frames = append(frames, f)
		}
	}
	for {
		pkt, err := c.ReadNextPacket()
		if errors.Is(err, ports.ErrEndOfStream) {
			break
		}
		if err != nil {
			t.Fatalf("ReadNextPacket failed: %v", err)
		}
		if pkt.StreamID != stream.ID {
			continue
		}
		if err := decoder.Submit(pkt); err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
		drain()
	}
	if err := decoder.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	drain()

	if len(frames) != 10 {
		t.Fatalf("expected 10 frames, got %d", len(frames))
	}
	var prev int64 = -1
	for i, f := range frames {
		if f.Width != 64 || f.Height != 64 {
			t.Errorf("frame %d: unexpected size %dx%d", i, f.Width, f.Height)
		}
		if f.Timestamp() <= prev {
			t.Errorf("frame %d: timestamp %d after %d", i, f.Timestamp(), prev)
		}
		prev = f.Timestamp()
	}
}
