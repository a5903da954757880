package imageexport

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"io"
	"testing"

	"github.com/user/framegrab/pkg/mocks"
	"github.com/user/framegrab/pkg/ports"
)

func testFrame(width, height int) *ports.DecodedFrame {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 40), G: uint8(y * 40), B: 200, A: 255})
		}
	}
	return &ports.DecodedFrame{
		Width:               width,
		Height:              height,
		PixelFormat:         ports.PixelFormatRGBA,
		PTS:                 1024,
		BestEffortTimestamp: 1024,
		Image:               img,
	}
}

func TestEncodePPM_RoundTrip(t *testing.T) {
	frame := testFrame(5, 3)

	data, err := Encode(frame.Image, ports.FormatPPM, 0)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("P6\n5 3\n255\n")) {
		t.Fatalf("unexpected header %q", data[:12])
	}

	r := bufio.NewReader(bytes.NewReader(data))
	h, err := DecodePPMHeader(r)
	if err != nil {
		t.Fatalf("DecodePPMHeader failed: %v", err)
	}
	if h.Width != 5 || h.Height != 3 || h.MaxVal != 255 {
		t.Errorf("unexpected header %+v", h)
	}

	raster, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read raster: %v", err)
	}
	if len(raster) != 5*3*3 {
		t.Fatalf("expected %d raster bytes, got %d", 5*3*3, len(raster))
	}
	// pixel (2,1)
	off := (1*5 + 2) * 3
	if raster[off] != 80 || raster[off+1] != 40 || raster[off+2] != 200 {
		t.Errorf("unexpected pixel %v", raster[off:off+3])
	}
}

func TestEncodePPM_YCbCr(t *testing.T) {
	img := image.NewYCbCr(image.Rect(0, 0, 4, 2), image.YCbCrSubsampleRatio420)
	for i := range img.Y {
		img.Y[i] = 235
	}
	for i := range img.Cb {
		img.Cb[i] = 128
		img.Cr[i] = 128
	}

	var buf bytes.Buffer
	if err := EncodePPM(&buf, img); err != nil {
		t.Fatalf("EncodePPM failed: %v", err)
	}
	raster := buf.Bytes()[len("P6\n4 2\n255\n"):]
	for i, v := range raster {
		if v != 235 {
			t.Fatalf("byte %d: expected grey 235, got %d", i, v)
		}
	}
}

func TestDecodePPMHeader_Invalid(t *testing.T) {
	for _, in := range []string{"P5\n1 1\n255\n", "P6\n1\n", ""} {
		if _, err := DecodePPMHeader(bufio.NewReader(bytes.NewReader([]byte(in)))); err == nil {
			t.Errorf("%q: expected error", in)
		}
	}
}

func TestEncode_Formats(t *testing.T) {
	frame := testFrame(8, 8)

	tests := []struct {
		format ports.ImageFormat
		magic  []byte
	}{
		{ports.FormatPNG, []byte("\x89PNG")},
		{ports.FormatJPEG, []byte{0xff, 0xd8}},
		{ports.FormatBMP, []byte("BM")},
		{ports.FormatTIFF, []byte("II*")},
	}

	for _, tt := range tests {
		t.Run(tt.format.String(), func(t *testing.T) {
			data, err := Encode(frame.Image, tt.format, 80)
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			if !bytes.HasPrefix(data, tt.magic) {
				t.Errorf("unexpected magic %x", data[:4])
			}
		})
	}

	if _, err := Encode(frame.Image, ports.ImageFormat(99), 0); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestExporter_Export(t *testing.T) {
	sink := mocks.NewFrameSink()
	e := New(sink, Options{})

	img, err := e.Export(context.Background(), testFrame(4, 4), ports.FormatPNG, "frame_0007.png")
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if img.Name != "frame_0007.png" || img.Location != "mem://frame_0007.png" {
		t.Errorf("unexpected result %+v", img)
	}
	data, ok := sink.Get("frame_0007.png")
	if !ok || len(data) != img.Size {
		t.Errorf("expected %d stored bytes, got %d (ok=%v)", img.Size, len(data), ok)
	}
}

func TestExporter_ScaleAndStamp(t *testing.T) {
	sink := mocks.NewFrameSink()
	renderer := &mocks.Renderer{}
	var gotW, gotH int
	renderer.ResizeImageFunc = func(img image.Image, width, height int) image.Image {
		gotW, gotH = width, height
		return image.NewRGBA(image.Rect(0, 0, width, height))
	}
	e := New(sink, Options{Width: 2, Stamp: true, Renderer: renderer})

	if _, err := e.Export(context.Background(), testFrame(4, 6), ports.FormatPPM, "frame_0003.ppm"); err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if gotW != 2 || gotH != 3 {
		t.Errorf("expected resize to 2x3, got %dx%d", gotW, gotH)
	}
	if len(renderer.Stamps) != 1 || renderer.Stamps[0] != "frame_0003  pts 1024" {
		t.Errorf("unexpected stamps %v", renderer.Stamps)
	}
}

func TestExporter_Failures(t *testing.T) {
	sink := mocks.NewFrameSink()
	e := New(sink, Options{})

	_, err := e.Export(context.Background(), &ports.DecodedFrame{}, ports.FormatPNG, "frame_0001.png")
	if ports.KindOf(err) != ports.KindEncodeFailed {
		t.Errorf("expected encode_failed for an empty frame, got %v", err)
	}

	_, err = e.Export(context.Background(), testFrame(2, 2), ports.ImageFormat(42), "frame_0001.bin")
	if ports.KindOf(err) != ports.KindEncodeFailed {
		t.Errorf("expected encode_failed for an unknown format, got %v", err)
	}

	sink.PutFunc = func(ctx context.Context, name string, data []byte) error {
		return errors.New("disk full")
	}
	_, err = e.Export(context.Background(), testFrame(2, 2), ports.FormatPNG, "frame_0001.png")
	if ports.KindOf(err) != ports.KindEncodeFailed {
		t.Errorf("expected encode_failed for a sink failure, got %v", err)
	}
	if sink.Len() != 0 {
		t.Errorf("expected nothing stored, got %d objects", sink.Len())
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := e.Export(ctx, testFrame(2, 2), ports.FormatPNG, "frame_0001.png"); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestExporter_Discard(t *testing.T) {
	sink := mocks.NewFrameSink()
	e := New(sink, Options{})

	if _, err := e.Export(context.Background(), testFrame(2, 2), ports.FormatPNG, "frame_0004.png"); err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if err := e.Discard(context.Background(), "frame_0004.png"); err != nil {
		t.Fatalf("Discard failed: %v", err)
	}
	if sink.Len() != 0 {
		t.Errorf("expected the image to be removed, got %d objects", sink.Len())
	}
	if err := e.Discard(context.Background(), "frame_0009.png"); err != nil {
		t.Errorf("expected discarding a missing image to succeed, got %v", err)
	}
}
