package ports

import (
	"context"
	"fmt"
	"strings"
)

// ImageFormat specifies the still-image encoding of an exported frame.
type ImageFormat int

const (
	FormatPPM ImageFormat = iota
	FormatPNG
	FormatJPEG
	FormatBMP
	FormatTIFF
)

// Extension returns the file extension without the dot.
func (f ImageFormat) Extension() string {
	switch f {
	case FormatPPM:
		return "ppm"
	case FormatPNG:
		return "png"
	case FormatJPEG:
		return "jpg"
	case FormatBMP:
		return "bmp"
	case FormatTIFF:
		return "tiff"
	default:
		return "bin"
	}
}

func (f ImageFormat) String() string {
	switch f {
	case FormatJPEG:
		return "jpeg"
	default:
		return f.Extension()
	}
}

// ParseImageFormat parses a format name such as "png" or "jpeg".
func ParseImageFormat(s string) (ImageFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ppm", "p6", "raw":
		return FormatPPM, nil
	case "png":
		return FormatPNG, nil
	case "jpeg", "jpg":
		return FormatJPEG, nil
	case "bmp":
		return FormatBMP, nil
	case "tiff", "tif":
		return FormatTIFF, nil
	default:
		return 0, fmt.Errorf("unknown image format %q", s)
	}
}

// ExportedImage describes one written image.
type ExportedImage struct {
	Name     string
	Location string
	Format   ImageFormat
	Size     int
}

// ImageExporter serializes decoded frames.
type ImageExporter interface {
	// Export encodes frame in the given format and stores it as the named output.
	// Nothing is stored when encoding fails.
	Export(ctx context.Context, frame *DecodedFrame, format ImageFormat, name string) (ExportedImage, error)

	// Discard deletes an image a previous Export stored. Discarding a name that
	// was never stored is not an error.
	Discard(ctx context.Context, name string) error
}

// FrameSink stores encoded images. Put must not leave a partial object behind.
type FrameSink interface {
	// Put stores data under name.
	Put(ctx context.Context, name string, data []byte) error

	// Remove deletes name. A missing name is not an error.
	Remove(ctx context.Context, name string) error

	// Location returns a human readable location for name.
	Location(name string) string
}
