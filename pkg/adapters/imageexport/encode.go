package imageexport

import (
	"bufio"
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"github.com/user/framegrab/pkg/ports"
)

// DefaultJPEGQuality is used when no quality is configured.
const DefaultJPEGQuality = 90

// Encode serializes img in the given format.
func Encode(img image.Image, format ports.ImageFormat, quality int) ([]byte, error) {
	var buf bytes.Buffer

	switch format {
	case ports.FormatPPM:
		if err := EncodePPM(&buf, img); err != nil {
			return nil, fmt.Errorf("encode PPM: %w", err)
		}
	case ports.FormatPNG:
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("encode PNG: %w", err)
		}
	case ports.FormatJPEG:
		if quality <= 0 || quality > 100 {
			quality = DefaultJPEGQuality
		}
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, fmt.Errorf("encode JPEG: %w", err)
		}
	case ports.FormatBMP:
		if err := bmp.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("encode BMP: %w", err)
		}
	case ports.FormatTIFF:
		if err := tiff.Encode(&buf, img, &tiff.Options{Compression: tiff.Deflate}); err != nil {
			return nil, fmt.Errorf("encode TIFF: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported format: %d", format)
	}

	return buf.Bytes(), nil
}

// EncodePPM writes img as a binary PPM: "P6\n<w> <h>\n255\n" followed by
// packed RGB rows, top to bottom.
func EncodePPM(w io.Writer, img image.Image) error {
	b := img.Bounds()
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(bw, "P6\n%d %d\n255\n", b.Dx(), b.Dy()); err != nil {
		return err
	}

	row := make([]byte, 3*b.Dx())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		switch src := img.(type) {
		case *image.RGBA:
			off := src.PixOffset(b.Min.X, y)
			for x := 0; x < b.Dx(); x++ {
				copy(row[3*x:3*x+3], src.Pix[off+4*x:off+4*x+3])
			}
		case *image.YCbCr:
			for x := 0; x < b.Dx(); x++ {
				yi := src.YOffset(b.Min.X+x, y)
				ci := src.COffset(b.Min.X+x, y)
				row[3*x], row[3*x+1], row[3*x+2] = color.YCbCrToRGB(src.Y[yi], src.Cb[ci], src.Cr[ci])
			}
		default:
			for x := 0; x < b.Dx(); x++ {
				c := color.RGBAModel.Convert(img.At(b.Min.X+x, y)).(color.RGBA)
				row[3*x], row[3*x+1], row[3*x+2] = c.R, c.G, c.B
			}
		}
		if _, err := bw.Write(row); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// PPMHeader is the parsed header of a binary PPM.
type PPMHeader struct {
	Width  int
	Height int
	MaxVal int
}

// DecodePPMHeader reads a "P6" header and leaves r positioned on the first pixel.
func DecodePPMHeader(r *bufio.Reader) (PPMHeader, error) {
	var h PPMHeader
	var magic string
	if _, err := fmt.Fscan(r, &magic, &h.Width, &h.Height, &h.MaxVal); err != nil {
		return h, fmt.Errorf("read PPM header: %w", err)
	}
	if magic != "P6" {
		return h, fmt.Errorf("not a binary PPM: %q", magic)
	}
	// single whitespace byte before the raster
	if _, err := r.ReadByte(); err != nil {
		return h, fmt.Errorf("read PPM header: %w", err)
	}
	return h, nil
}
