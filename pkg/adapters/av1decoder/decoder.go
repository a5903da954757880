// Package av1decoder provides an AV1 video decoder using libaom.
package av1decoder

/*
#cgo pkg-config: aom
#include <aom/aom_decoder.h>
#include <aom/aomdx.h>
#include <stdlib.h>
#include <string.h>

static aom_codec_iface_t* get_av1_decoder_interface() {
    return aom_codec_av1_dx();
}

static aom_codec_err_t init_decoder(aom_codec_ctx_t *ctx, aom_codec_iface_t *iface) {
    return aom_codec_dec_init(ctx, iface, NULL, 0);
}

static unsigned char* get_plane(aom_image_t *img, int plane) {
    return img->planes[plane];
}

static int get_stride(aom_image_t *img, int plane) {
    return img->stride[plane];
}

static unsigned int get_width(aom_image_t *img) {
    return img->d_w;
}

static unsigned int get_height(aom_image_t *img) {
    return img->d_h;
}

static int get_high_bitdepth(aom_image_t *img) {
    return (img->fmt & AOM_IMG_FMT_HIGHBITDEPTH) != 0;
}

static unsigned int get_bit_depth(aom_image_t *img) {
    return img->bit_depth;
}

static int get_monochrome(aom_image_t *img) {
    return img->monochrome;
}

static unsigned int get_x_chroma_shift(aom_image_t *img) {
    return img->x_chroma_shift;
}

static unsigned int get_y_chroma_shift(aom_image_t *img) {
    return img->y_chroma_shift;
}
*/
import "C"

import (
	"errors"
	"fmt"
	"image"
	"unsafe"

	"github.com/user/framegrab/pkg/adapters/tsqueue"
	"github.com/user/framegrab/pkg/ports"
)

var (
	// ErrNotInitialized is returned when decoder methods are called after Close.
	ErrNotInitialized = errors.New("av1decoder: decoder not initialized")

	// ErrDecodeFailed is returned when libaom rejects a temporal unit.
	ErrDecodeFailed = errors.New("av1decoder: decode failed")

	// ErrFlushed is returned by Submit after Flush and before Reset.
	ErrFlushed = errors.New("av1decoder: decoder flushed")
)

// Decoder implements ports.Decoder with libaom. Every submitted packet is one
// temporal unit and yields at most one shown frame.
type Decoder struct {
	codec   *C.aom_codec_ctx_t
	logger  ports.Logger
	frames  []*ports.DecodedFrame
	pending tsqueue.Queue
	flushed bool
}

// New creates and initializes an AV1 decoder.
func New(logger ports.Logger) (*Decoder, error) {
	d := &Decoder{}
	if logger != nil {
		d.logger = logger.WithComponent("av1decoder")
	}
	if err := d.init(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Decoder) init() error {
	d.codec = (*C.aom_codec_ctx_t)(C.malloc(C.sizeof_aom_codec_ctx_t))
	if d.codec == nil {
		return fmt.Errorf("failed to allocate decoder context")
	}
	C.memset(unsafe.Pointer(d.codec), 0, C.sizeof_aom_codec_ctx_t)

	iface := C.get_av1_decoder_interface()
	if res := C.init_decoder(d.codec, iface); res != C.AOM_CODEC_OK {
		C.free(unsafe.Pointer(d.codec))
		d.codec = nil
		return fmt.Errorf("failed to initialize decoder: %d", res)
	}
	return nil
}

// Submit decodes one temporal unit and queues the frames it shows.
func (d *Decoder) Submit(pkt *ports.Packet) error {
	if d.codec == nil {
		return ErrNotInitialized
	}
	if d.flushed {
		return ErrFlushed
	}
	if len(pkt.Data) == 0 {
		return fmt.Errorf("%w: empty packet", ErrDecodeFailed)
	}

	res := C.aom_codec_decode(
		d.codec,
		(*C.uint8_t)(unsafe.Pointer(&pkt.Data[0])),
		C.size_t(len(pkt.Data)),
		nil,
	)
	if res != C.AOM_CODEC_OK {
		return fmt.Errorf("%w: %s", ErrDecodeFailed, C.GoString(C.aom_codec_error(d.codec)))
	}

	ts := pkt.PTS
	if ts == ports.NoTimestamp {
		ts = pkt.DTS
	}
	d.pending.Push(ts)
	return d.collect()
}

// collect copies every frame libaom has ready. Image buffers are only valid
// until the next aom_codec_decode call.
func (d *Decoder) collect() error {
	var iter C.aom_codec_iter_t
	for {
		img := C.aom_codec_get_frame(d.codec, &iter)
		if img == nil {
			return nil
		}
		pic, err := toYCbCr(img)
		if err != nil {
			return err
		}
		ts, ok := d.pending.Pop()
		if !ok {
			ts = ports.NoTimestamp
		}
		d.frames = append(d.frames, &ports.DecodedFrame{
			Width:               pic.Rect.Dx(),
			Height:              pic.Rect.Dy(),
			PixelFormat:         ports.PixelFormatYUV420P,
			PTS:                 ts,
			BestEffortTimestamp: ts,
			Image:               pic,
		})
	}
}

// Receive returns the next queued frame.
func (d *Decoder) Receive() (*ports.DecodedFrame, error) {
	if len(d.frames) > 0 {
		f := d.frames[0]
		d.frames[0] = nil
		d.frames = d.frames[1:]
		return f, nil
	}
	if d.flushed {
		return nil, ports.ErrEndOfStream
	}
	return nil, ports.ErrTryAgain
}

// Flush drains frames libaom still holds.
func (d *Decoder) Flush() error {
	if d.codec == nil {
		return ErrNotInitialized
	}
	if d.flushed {
		return nil
	}
	d.flushed = true
	if res := C.aom_codec_decode(d.codec, nil, 0, nil); res != C.AOM_CODEC_OK {
		return fmt.Errorf("%w: flush: %s", ErrDecodeFailed, C.GoString(C.aom_codec_error(d.codec)))
	}
	return d.collect()
}

// Reset recreates the libaom context so decoding can restart at a keyframe.
func (d *Decoder) Reset() error {
	d.destroy()
	d.frames = nil
	d.pending.Reset()
	d.flushed = false
	return d.init()
}

// Close releases decoder resources.
func (d *Decoder) Close() {
	d.destroy()
}

func (d *Decoder) destroy() {
	if d.codec != nil {
		C.aom_codec_destroy(d.codec)
		C.free(unsafe.Pointer(d.codec))
		d.codec = nil
	}
}

// toYCbCr copies a 4:2:0 aom image. High bit depth samples are scaled to 8 bits.
func toYCbCr(img *C.aom_image_t) (*image.YCbCr, error) {
	width := int(C.get_width(img))
	height := int(C.get_height(img))
	if C.get_x_chroma_shift(img) != 1 || C.get_y_chroma_shift(img) != 1 {
		return nil, fmt.Errorf("%w: only 4:2:0 output is supported", ErrDecodeFailed)
	}

	out := image.NewYCbCr(image.Rect(0, 0, width, height), image.YCbCrSubsampleRatio420)
	high := C.get_high_bitdepth(img) != 0
	shift := uint(0)
	if high {
		shift = uint(C.get_bit_depth(img)) - 8
	}
	cw, ch := (width+1)/2, (height+1)/2

	copyPlane(out.Y, out.YStride, C.get_plane(img, 0), int(C.get_stride(img, 0)), width, height, high, shift)
	if C.get_monochrome(img) != 0 {
		for i := range out.Cb {
			out.Cb[i] = 128
			out.Cr[i] = 128
		}
		return out, nil
	}
	copyPlane(out.Cb, out.CStride, C.get_plane(img, 1), int(C.get_stride(img, 1)), cw, ch, high, shift)
	copyPlane(out.Cr, out.CStride, C.get_plane(img, 2), int(C.get_stride(img, 2)), cw, ch, high, shift)
	return out, nil
}

func copyPlane(dst []byte, dstStride int, plane *C.uchar, stride, width, height int, high bool, shift uint) {
	src := unsafe.Slice((*byte)(unsafe.Pointer(plane)), stride*height)
	for y := 0; y < height; y++ {
		row := src[y*stride:]
		out := dst[y*dstStride : y*dstStride+width]
		if !high {
			copy(out, row[:width])
			continue
		}
		for x := range out {
			v := uint16(row[2*x]) | uint16(row[2*x+1])<<8
			out[x] = uint8(v >> shift)
		}
	}
}

var _ ports.Decoder = (*Decoder)(nil)
